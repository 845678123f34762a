package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediaforge/internal/domain"
	"mediaforge/internal/orchestrator"
)

// GenerationCallback receives the asynchronous provider's completion report.
// The route is unauthenticated because the provider cannot hold our tokens;
// correlation happens through the job id embedded in the callback URL.
func (a *App) GenerationCallback(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	var payload orchestrator.CallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	if err := a.Orchestrator.HandleCallback(r.Context(), jobID, payload); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "unknown job")
			return
		}
		a.Log.Error().Err(err).Str("job_id", jobID).Msg("callback handling failed")
		a.error(w, http.StatusInternalServerError, "internal", "callback handling failed")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
