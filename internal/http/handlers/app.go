package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"mediaforge/internal/infra"
	"mediaforge/internal/infra/geoip"
	"mediaforge/internal/middleware"
	"mediaforge/internal/orchestrator"
	"mediaforge/internal/storage"
)

// App is the handler container; everything a route needs is injected here.
type App struct {
	Log          zerolog.Logger
	Cfg          *infra.Config
	Orchestrator *orchestrator.Service
	Jobs         orchestrator.JobStore
	Store        *storage.Client
	Countries    geoip.CountryResolver
}

// NewApp builds the handler container.
func NewApp(log zerolog.Logger, cfg *infra.Config, orch *orchestrator.Service, jobs orchestrator.JobStore, store *storage.Client, countries geoip.CountryResolver) *App {
	return &App{
		Log:          log,
		Cfg:          cfg,
		Orchestrator: orch,
		Jobs:         jobs,
		Store:        store,
		Countries:    countries,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]any{"ok": false, "error": errCode, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}
