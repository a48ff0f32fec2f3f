// Package image renders one square image per meme concept through the
// images API and downloads the result. Failures are scoped to the single
// concept being processed.
package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/kulfy/kulfy-agent/internal/agent"
)

const (
	defaultModel           = "dall-e-3"
	defaultGenerateTimeout = 90 * time.Second
	defaultDownloadTimeout = 30 * time.Second

	renderedMimeType = "image/png"
)

// Options configures a Renderer.
type Options struct {
	APIKey          string
	Model           string
	BaseURL         string // optional (tests)
	HTTPClient      *http.Client
	GenerateTimeout time.Duration
	DownloadTimeout time.Duration
	Sink            agent.Sink
}

// Renderer calls the image model once per concept and fetches the returned
// image's binary content.
type Renderer struct {
	client          openai.Client
	httpClient      *http.Client
	model           string
	generateTimeout time.Duration
	downloadTimeout time.Duration
	sink            agent.Sink
}

// New validates the credentials and builds a Renderer.
func New(opts Options) (*Renderer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("image: openai api key is required")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	generateTimeout := opts.GenerateTimeout
	if generateTimeout <= 0 {
		generateTimeout = defaultGenerateTimeout
	}
	downloadTimeout := opts.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = defaultDownloadTimeout
	}
	sink := opts.Sink
	if sink == nil {
		sink = agent.NopSink
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: generateTimeout}
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(opts.APIKey)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	return &Renderer{
		client:          openai.NewClient(reqOpts...),
		httpClient:      httpClient,
		model:           model,
		generateTimeout: generateTimeout,
		downloadTimeout: downloadTimeout,
		sink:            sink,
	}, nil
}

// Render requests a single 1024x1024 standard-quality image for the concept
// and downloads its binary content.
func (r *Renderer) Render(ctx context.Context, c agent.Concept) ([]byte, string, error) {
	genCtx, cancel := context.WithTimeout(ctx, r.generateTimeout)
	defer cancel()

	resp, err := r.client.Images.Generate(genCtx, openai.ImageGenerateParams{
		Prompt:         buildImagePrompt(c),
		Model:          openai.ImageModel(r.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		Quality:        openai.ImageGenerateParamsQualityStandard,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return nil, "", fmt.Errorf("generating image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, "", errors.New("generating image: empty response")
	}

	data, err := r.download(ctx, resp.Data[0].URL)
	if err != nil {
		return nil, "", fmt.Errorf("downloading image: %w", err)
	}
	r.sink.Emit(agent.Event{Level: agent.LevelSuccess, Message: fmt.Sprintf("Image downloaded (%d KB)", len(data)/1024)})
	return data, renderedMimeType, nil
}

func (r *Renderer) download(ctx context.Context, imageURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

var _ agent.ImageRenderer = (*Renderer)(nil)
