package handlers

import (
	"encoding/json"
	"net/http"

	"mediaforge/internal/middleware"
	"mediaforge/internal/normalize"
)

// Generate accepts a generation request and runs the orchestrator pipeline.
// Synchronous jobs answer 200 with the stored media URL; asynchronous jobs
// answer 202 with the job id. The orchestrator pre-serializes the body so
// idempotent replays are byte-identical.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var raw normalize.RawRequest
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	resp := a.Orchestrator.Generate(r.Context(), userID, middleware.ClientIP(r), r.Header.Get("Idempotency-Key"), raw)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}
