package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kulfy/kulfy-agent/internal/agent"
	"github.com/kulfy/kulfy-agent/internal/jobs"
)

type generateRequest struct {
	Count         int      `json:"count"`
	URLs          []string `json:"urls"`
	WebhookURL    string   `json:"webhook_url"`
	CustomPrompts []string `json:"custom_prompts"`
}

// GenerateMemes starts a full pipeline run in the background. At most one
// job runs at a time; a second request while busy is acknowledged with
// status "busy" and HTTP 200, never queued.
func (a *App) GenerateMemes(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	jobID, ok := a.Runs.TryStart()
	if !ok {
		a.json(w, http.StatusOK, map[string]any{
			"success": false,
			"status":  "busy",
			"message": "A meme generation job is already running",
		})
		return
	}

	a.Log.Info().Str("job_id", jobID).Int("urls", len(req.URLs)).Int("custom_prompts", len(req.CustomPrompts)).Msg("meme generation started")
	go a.runJob(jobID, req)

	a.json(w, http.StatusOK, map[string]any{
		"success": true,
		"job_id":  jobID,
		"status":  "running",
		"message": "Meme generation started",
	})
}

func (a *App) runJob(jobID string, req generateRequest) {
	ctx := context.Background()

	var summary agent.Summary
	if len(req.CustomPrompts) > 0 {
		summary = a.Pipeline.RunFromConcepts(ctx, conceptsFromPrompts(req.CustomPrompts))
	} else {
		summary = a.Pipeline.Run(ctx, req.URLs)
	}

	res := jobs.Result{
		Success:     summary.SuccessfulUploads > 0,
		CompletedAt: time.Now(),
		Summary:     &summary,
	}
	if !res.Success {
		res.Error = "no memes were uploaded"
	}
	a.Runs.Finish(res)
	a.Log.Info().Str("job_id", jobID).Bool("success", res.Success).Int("uploads", summary.SuccessfulUploads).Msg("meme generation finished")

	if req.WebhookURL != "" {
		a.notifyWebhook(ctx, req.WebhookURL, jobID, res)
	}
}

// conceptsFromPrompts wraps caller-supplied image prompts as ready-made
// concepts, bypassing scraping and concept generation.
func conceptsFromPrompts(prompts []string) []agent.Concept {
	concepts := make([]agent.Concept, 0, len(prompts))
	for i, p := range prompts {
		concepts = append(concepts, agent.Concept{
			Title:             fmt.Sprintf("Custom Meme %d", i+1),
			VisualDescription: p,
		})
	}
	return concepts
}

func (a *App) notifyWebhook(ctx context.Context, url, jobID string, res jobs.Result) {
	payload, err := json.Marshal(map[string]any{
		"job_id":  jobID,
		"success": res.Success,
		"summary": res.Summary,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		a.Log.Warn().Err(err).Msg("webhook request failed")
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := a.WebhookClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		a.Log.Warn().Err(err).Str("webhook", url).Msg("webhook delivery failed")
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		a.Log.Warn().Int("status", resp.StatusCode).Str("webhook", url).Msg("webhook rejected")
	}
}

// decodeBody decodes a JSON body, treating an empty body as an empty request.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
