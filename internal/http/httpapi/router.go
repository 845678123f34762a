package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"mediaforge/internal/http/handlers"
	"mediaforge/internal/infra"
	"mediaforge/internal/middleware"
)

// NewRouter assembles the HTTP surface. The provider callback route stays
// outside the auth group; everything else that touches user data requires a
// bearer token.
func NewRouter(app *handlers.App, cfg *infra.Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.Logger(app.Log, app.Countries))

	r.Get("/v1/healthz", app.Health)
	r.Post("/v1/generations/callback/{job_id}", app.GenerationCallback)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))
		r.Post("/v1/generations", app.Generate)
		r.Get("/v1/generations/{job_id}", app.JobStatus)
		r.Post("/v1/uploads/sign", app.SignUpload)
	})

	return r
}
