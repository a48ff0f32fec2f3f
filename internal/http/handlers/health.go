package handlers

import "net/http"

// Health reports service liveness and the effective upstream configuration.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"version":           Version,
		"openai_configured": a.OpenAIConfigured,
		"kulfy_endpoint":    a.KulfyUploadURL,
	})
}
