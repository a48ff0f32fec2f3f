package concepts

import "testing"

func TestParseConceptsShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantShape string
		wantCount int
		wantTitle string
	}{
		{
			name:      "bare array",
			raw:       `[{"title":"One","text_overlay":"A","visual_description":"x","context":"c"}]`,
			wantShape: "array",
			wantCount: 1,
			wantTitle: "One",
		},
		{
			name:      "memes wrapper",
			raw:       `{"memes":[{"title":"Two","text_overlay":"B","visual_description":"y"}]}`,
			wantShape: "wrapped",
			wantCount: 1,
			wantTitle: "Two",
		},
		{
			name:      "concepts wrapper",
			raw:       `{"concepts":[{"title":"Three","text_overlay":"C","visual_description":"z"},{"title":"Four","text_overlay":"D","visual_description":"w"}]}`,
			wantShape: "wrapped",
			wantCount: 2,
			wantTitle: "Three",
		},
		{
			name:      "single concept object",
			raw:       `{"title":"Solo","text_overlay":"E","visual_description":"v","context":"ctx"}`,
			wantShape: "single",
			wantCount: 1,
			wantTitle: "Solo",
		},
		{
			name:      "unknown wrapper key",
			raw:       `{"results":[{"title":"Five","text_overlay":"F","visual_description":"u"}]}`,
			wantShape: "any-array",
			wantCount: 1,
			wantTitle: "Five",
		},
		{
			name:      "code fenced",
			raw:       "```json\n[{\"title\":\"Fenced\",\"text_overlay\":\"G\",\"visual_description\":\"t\"}]\n```",
			wantShape: "array",
			wantCount: 1,
			wantTitle: "Fenced",
		},
		{
			name:      "surrounding prose",
			raw:       `Here are your memes: {"memes":[{"title":"Prose","text_overlay":"H","visual_description":"s"}]} Enjoy!`,
			wantShape: "wrapped",
			wantCount: 1,
			wantTitle: "Prose",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			concepts, shape, err := ParseConcepts(tc.raw)
			if err != nil {
				t.Fatalf("ParseConcepts() error = %v", err)
			}
			if shape != tc.wantShape {
				t.Fatalf("shape = %q, want %q", shape, tc.wantShape)
			}
			if len(concepts) != tc.wantCount {
				t.Fatalf("count = %d, want %d", len(concepts), tc.wantCount)
			}
			if concepts[0].Title != tc.wantTitle {
				t.Fatalf("title = %q, want %q", concepts[0].Title, tc.wantTitle)
			}
		})
	}
}

func TestParseConceptsRejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty input", raw: ""},
		{name: "no json at all", raw: "sorry, I cannot help with that"},
		{name: "empty array", raw: `[]`},
		{name: "array of unrelated objects", raw: `[{"foo":"bar"}]`},
		{name: "object with no concept fields", raw: `{"note":"nothing here"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ParseConcepts(tc.raw); err == nil {
				t.Fatal("ParseConcepts() error = nil, want rejection")
			}
		})
	}
}

func TestParseConceptsAnyArrayIsDeterministic(t *testing.T) {
	raw := `{"zeta":[{"title":"Z","text_overlay":"z","visual_description":"z"}],"alpha":[{"title":"A","text_overlay":"a","visual_description":"a"}]}`
	for i := 0; i < 20; i++ {
		concepts, shape, err := ParseConcepts(raw)
		if err != nil {
			t.Fatalf("ParseConcepts() error = %v", err)
		}
		if shape != "any-array" {
			t.Fatalf("shape = %q, want %q", shape, "any-array")
		}
		if concepts[0].Title != "A" {
			t.Fatalf("title = %q, want the alphabetically first key's array", concepts[0].Title)
		}
	}
}
