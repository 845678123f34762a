package handlers

import (
	"net/http"
)

// Health reports liveness plus which external collaborators are configured.
// Presence booleans only; no secret values.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"env":          a.Cfg.AppEnv,
		"capabilities": a.Cfg.Capabilities(),
	})
}
