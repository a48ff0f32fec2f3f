package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kulfy/kulfy-agent/internal/agent"
	"github.com/kulfy/kulfy-agent/internal/jobs"
)

// Version reported by the health and info endpoints.
const Version = "1.0.0"

// Runner is the pipeline surface the handlers need.
type Runner interface {
	Run(ctx context.Context, urls []string) agent.Summary
	RunConceptsOnly(ctx context.Context, urls []string) ([]agent.Concept, agent.Summary)
	RunFromConcepts(ctx context.Context, concepts []agent.Concept) agent.Summary
}

type App struct {
	Log      zerolog.Logger
	Runs     *jobs.RunState
	Pipeline Runner

	KulfyUploadURL   string
	OpenAIConfigured bool

	// WebhookClient posts completion notifications; defaults to
	// http.DefaultClient when nil.
	WebhookClient *http.Client
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]any{"success": false, "error": msg})
}

// Info describes the service and its endpoints on GET /.
func (a *App) Info(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"service": "Kulfy Meme Agent",
		"version": Version,
		"endpoints": map[string]string{
			"POST /generate-memes":    "Start a meme generation job",
			"POST /generate-concepts": "Generate meme concepts without images",
			"GET /status":             "Poll the current job status",
			"GET /health":             "Health check",
		},
	})
}
