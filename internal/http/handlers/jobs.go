package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mediaforge/internal/domain"
)

// JobStatus lets a caller poll an asynchronous job they own.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}

	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil || job.UserID != userID {
		// Not distinguishing missing from foreign keeps job ids unguessable.
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}

	body := map[string]any{
		"id":         job.ID,
		"status":     string(job.Status),
		"provider":   job.Provider,
		"model":      job.Model,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.Status == domain.JobStatusSucceeded && job.OutputURL != nil {
		body["output_url"] = *job.OutputURL
	}
	a.json(w, http.StatusOK, body)
}
