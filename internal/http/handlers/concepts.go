package handlers

import (
	"net/http"
	"time"

	"github.com/kulfy/kulfy-agent/internal/jobs"
)

type conceptsRequest struct {
	URLs []string `json:"urls"`
}

// GenerateConcepts runs the fetch and concept stages synchronously so the
// caller can review concepts without committing to image generation. It
// shares the single-flight guard with full runs.
func (a *App) GenerateConcepts(w http.ResponseWriter, r *http.Request) {
	var req conceptsRequest
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

	concepts, summary := a.Pipeline.RunConceptsOnly(r.Context(), req.URLs)
	a.Runs.Finish(jobs.Result{
		Success:     len(concepts) > 0,
		CompletedAt: time.Now(),
		Summary:     &summary,
	})
	a.Log.Info().Str("job_id", jobID).Int("concepts", len(concepts)).Msg("concept generation finished")

	a.json(w, http.StatusOK, map[string]any{
		"success":  true,
		"concepts": concepts,
		"count":    len(concepts),
	})
}
