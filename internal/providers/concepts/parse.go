package concepts

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/kulfy/kulfy-agent/internal/agent"
)

// The model's JSON shape is not contractually fixed, so parsing runs an
// ordered decision table of shape matchers and takes the first hit.
type shapeMatcher struct {
	name  string
	match func(raw []byte) ([]agent.Concept, bool)
}

var shapeMatchers = []shapeMatcher{
	{name: "array", match: matchArray},
	{name: "wrapped", match: matchWrapped},
	{name: "single", match: matchSingle},
	{name: "any-array", match: matchAnyArray},
}

// Key names tried, in priority order, when the response wraps the concept
// list in an object.
var wrapperKeys = []string{"memes", "concepts", "meme_concepts", "data", "items"}

var errNoConcepts = errors.New("no concept-shaped data found in response")

// ParseConcepts locates concept data in a model response. It tolerates code
// fences and surrounding prose, and reports which shape matched.
func ParseConcepts(raw string) ([]agent.Concept, string, error) {
	fragment := extractJSONFragment(raw)
	if fragment == "" {
		return nil, "", errors.New("empty response payload")
	}
	data := []byte(fragment)
	for _, m := range shapeMatchers {
		if concepts, ok := m.match(data); ok {
			return concepts, m.name, nil
		}
	}
	return nil, "", errNoConcepts
}

func matchArray(raw []byte) ([]agent.Concept, bool) {
	var concepts []agent.Concept
	if err := json.Unmarshal(raw, &concepts); err != nil {
		return nil, false
	}
	return validConcepts(concepts)
}

func matchWrapped(raw []byte) ([]agent.Concept, bool) {
	fields, ok := topLevelFields(raw)
	if !ok {
		return nil, false
	}
	for _, key := range wrapperKeys {
		value, present := fields[key]
		if !present {
			continue
		}
		var concepts []agent.Concept
		if err := json.Unmarshal(value, &concepts); err != nil {
			continue
		}
		if concepts, ok := validConcepts(concepts); ok {
			return concepts, true
		}
	}
	return nil, false
}

// matchSingle handles the case where the object itself is one concept.
func matchSingle(raw []byte) ([]agent.Concept, bool) {
	fields, ok := topLevelFields(raw)
	if !ok {
		return nil, false
	}
	if _, hasTitle := fields["title"]; !hasTitle {
		return nil, false
	}
	if _, hasOverlay := fields["text_overlay"]; !hasOverlay {
		return nil, false
	}
	var c agent.Concept
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, false
	}
	return []agent.Concept{c}, true
}

// matchAnyArray is the last resort: any top-level key holding a non-empty
// concept array. Keys are visited in sorted order so the result is
// deterministic.
func matchAnyArray(raw []byte) ([]agent.Concept, bool) {
	fields, ok := topLevelFields(raw)
	if !ok {
		return nil, false
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		var concepts []agent.Concept
		if err := json.Unmarshal(fields[key], &concepts); err != nil {
			continue
		}
		if concepts, ok := validConcepts(concepts); ok {
			return concepts, true
		}
	}
	return nil, false
}

func topLevelFields(raw []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// validConcepts rejects empty lists and lists whose entries carry none of the
// concept fields (e.g. an array of unrelated objects).
func validConcepts(concepts []agent.Concept) ([]agent.Concept, bool) {
	if len(concepts) == 0 {
		return nil, false
	}
	first := concepts[0]
	if first.Title == "" && first.TextOverlay == "" && first.VisualDescription == "" {
		return nil, false
	}
	return concepts, true
}

// extractJSONFragment strips code fences and surrounding prose from a model
// response, keeping the outermost JSON value.
func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
