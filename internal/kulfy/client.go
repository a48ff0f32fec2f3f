// Package kulfy posts rendered memes to the Kulfy upload endpoint. Upload
// failures are per-item outcomes, not errors: the pipeline treats a
// partially-fulfilled batch as a normal result.
package kulfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kulfy/kulfy-agent/internal/agent"
)

const defaultTimeout = 30 * time.Second

// titleMarker flags uploads as machine-generated for the moderation queue.
const titleMarker = "🤖 %s [AI-Generated]"

// Options configures a Client.
type Options struct {
	UploadURL  string
	HTTPClient *http.Client
	Timeout    time.Duration
	Sink       agent.Sink
}

// Client uploads one image per call via multipart POST.
type Client struct {
	uploadURL string
	client    *http.Client
	timeout   time.Duration
	sink      agent.Sink
}

// New builds a Client. The upload URL is required.
func New(opts Options) (*Client, error) {
	uploadURL := strings.TrimSpace(opts.UploadURL)
	if uploadURL == "" {
		return nil, errors.New("kulfy: upload url is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	sink := opts.Sink
	if sink == nil {
		sink = agent.NopSink
	}
	return &Client{uploadURL: uploadURL, client: client, timeout: timeout, sink: sink}, nil
}

type uploadResponse struct {
	OK  bool   `json:"ok"`
	CID string `json:"cid"`
	ID  string `json:"id"`
}

// Upload posts the image bytes, the marked title and the optional source URL.
// Exactly HTTP 200 counts as success; anything else (including transport
// failures) produces a failure result carrying a descriptive error string.
func (c *Client) Upload(ctx context.Context, img agent.RenderedImage) agent.UploadResult {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "meme.png")
	if err != nil {
		return failure(img.Title, fmt.Sprintf("Upload failed: %v", err))
	}
	if _, err := part.Write(img.ImageBytes); err != nil {
		return failure(img.Title, fmt.Sprintf("Upload failed: %v", err))
	}
	if err := writer.WriteField("title", fmt.Sprintf(titleMarker, img.Title)); err != nil {
		return failure(img.Title, fmt.Sprintf("Upload failed: %v", err))
	}
	if img.SourceURL != "" {
		if err := writer.WriteField("sourceUrl", img.SourceURL); err != nil {
			return failure(img.Title, fmt.Sprintf("Upload failed: %v", err))
		}
	}
	if err := writer.Close(); err != nil {
		return failure(img.Title, fmt.Sprintf("Upload failed: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return failure(img.Title, fmt.Sprintf("Upload failed: %v", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return failure(img.Title, fmt.Sprintf("Upload failed: %v", err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return failure(img.Title, fmt.Sprintf("Upload failed with status %d", resp.StatusCode))
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return failure(img.Title, fmt.Sprintf("Upload failed: parsing response: %v", err))
	}
	c.sink.Emit(agent.Event{Level: agent.LevelSuccess, Message: fmt.Sprintf("Uploaded to Kulfy (post %s)", parsed.ID)})
	return agent.UploadResult{
		Success: true,
		Title:   img.Title,
		CID:     parsed.CID,
		ID:      parsed.ID,
	}
}

func failure(title, msg string) agent.UploadResult {
	return agent.UploadResult{Success: false, Title: title, Error: msg}
}

var _ agent.Uploader = (*Client)(nil)
