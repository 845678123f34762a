package handlers

import (
	"encoding/json"
	"net/http"

	"mediaforge/internal/storage"
)

type signUploadRequest struct {
	Filename string `json:"filename"`
}

// SignUpload issues a direct-upload URL inside the caller's tenant prefix of
// the shared upload bucket.
func (a *App) SignUpload(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	if userID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing user context")
		return
	}
	var req signUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	path, err := storage.SanitizePath(userID + "/" + req.Filename)
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_filename", "filename cannot be used")
		return
	}
	if err := storage.EnforceTenantPrefix(path, userID); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_filename", "filename cannot be used")
		return
	}

	uploadURL, err := a.Store.CreateSignedUploadURL(r.Context(), a.Cfg.UploadBucket, path)
	if err != nil {
		a.Log.Error().Err(err).Msg("signed upload url failed")
		a.error(w, http.StatusBadGateway, "storage_error", "upload url could not be issued")
		return
	}
	a.json(w, http.StatusOK, map[string]string{
		"upload_url": uploadURL,
		"path":       path,
	})
}
