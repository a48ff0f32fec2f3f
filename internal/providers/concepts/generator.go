// Package concepts asks a chat model for exactly five structured meme
// concepts and degrades to a fixed fixture set on any failure. The stage
// never propagates an error to its caller.
package concepts

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"gopkg.in/yaml.v3"

	"github.com/kulfy/kulfy-agent/internal/agent"
)

const (
	conceptCount   = 5
	defaultModel   = "gpt-4-turbo-preview"
	defaultTimeout = 60 * time.Second
)

//go:embed fallback.yaml
var fallbackYAML []byte

var (
	fallbackOnce sync.Once
	fallbackSet  []agent.Concept
)

// Fallback returns the fixed five-concept set substituted when the model
// path fails. Callers get a copy.
func Fallback() []agent.Concept {
	fallbackOnce.Do(func() {
		if err := yaml.Unmarshal(fallbackYAML, &fallbackSet); err != nil {
			panic(fmt.Sprintf("concepts: invalid embedded fallback set: %v", err))
		}
	})
	return append([]agent.Concept(nil), fallbackSet...)
}

// Options configures a Generator.
type Options struct {
	APIKey      string
	Model       string
	BaseURL     string // optional (tests)
	HTTPClient  *http.Client
	Timeout     time.Duration
	Temperature float64
	Sink        agent.Sink
}

// Generator makes exactly one chat-completions call per Generate invocation.
type Generator struct {
	client      openai.Client
	model       string
	timeout     time.Duration
	temperature float64
	sink        agent.Sink
}

// New validates the credentials and builds a Generator. A blank API key is
// the sole fatal condition of this stage and fails here rather than inside
// Generate.
func New(opts Options) (*Generator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("concepts: openai api key is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = 0.8
	}
	sink := opts.Sink
	if sink == nil {
		sink = agent.NopSink
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	reqOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Generator{
		client:      openai.NewClient(reqOpts...),
		model:       model,
		timeout:     timeout,
		temperature: temperature,
		sink:        sink,
	}, nil
}

// Generate returns exactly five concepts. Transport errors, timeouts, parse
// failures and short responses are all absorbed: the cause is returned as an
// error string alongside data completed from the fallback set.
func (g *Generator) Generate(ctx context.Context, articles []agent.Article) ([]agent.Concept, []string) {
	g.sink.Emit(agent.Event{Level: agent.LevelInfo, Message: "Calling chat model for meme concepts", Step: "Analyzing content"})

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(g.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(strings.TrimSpace(systemPrompt)),
			openai.UserMessage(buildUserPrompt(articles)),
		},
	})
	if err != nil {
		return g.degrade(fmt.Errorf("%w", err))
	}
	if len(resp.Choices) == 0 {
		return g.degrade(errors.New("no choices in response"))
	}

	concepts, shape, err := ParseConcepts(resp.Choices[0].Message.Content)
	if err != nil {
		return g.degrade(err)
	}
	g.sink.Emit(agent.Event{Level: agent.LevelSuccess, Message: fmt.Sprintf("Parsed %d concepts (shape: %s)", len(concepts), shape)})

	if len(concepts) > conceptCount {
		concepts = concepts[:conceptCount]
	}

	var errs []string
	if len(concepts) < conceptCount {
		// Complete short responses from the fallback set so downstream
		// stages can rely on the five-concept invariant.
		msg := fmt.Sprintf("Concept generation returned %d concepts, padded to %d from fallback set", len(concepts), conceptCount)
		errs = append(errs, msg)
		g.sink.Emit(agent.Event{Level: agent.LevelWarning, Message: msg})
		for _, c := range Fallback() {
			if len(concepts) == conceptCount {
				break
			}
			concepts = append(concepts, c)
		}
	}
	return concepts, errs
}

func (g *Generator) degrade(cause error) ([]agent.Concept, []string) {
	msg := fmt.Sprintf("Concept generation failed: %v", cause)
	g.sink.Emit(agent.Event{Level: agent.LevelError, Message: msg})
	g.sink.Emit(agent.Event{Level: agent.LevelWarning, Message: "Using fallback meme concepts"})
	return Fallback(), []string{msg}
}

var _ agent.ConceptGenerator = (*Generator)(nil)
