package handlers

import "net/http"

// Status returns a snapshot of the current (or most recent) job.
func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.Runs.Snapshot())
}
