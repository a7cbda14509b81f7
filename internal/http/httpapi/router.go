package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"neuroforge/internal/http/handlers"
	"neuroforge/internal/infra"
	"neuroforge/internal/middleware"
)

// NewRouter wires the public API. lookup may be nil when no GeoIP database is
// configured.
func NewRouter(app *handlers.App, cfg *infra.Config, lookup middleware.CountryLookup) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(*app.Logger),
		middleware.CORS(cfg.AllowedOrigins),
		middleware.RateLimit(cfg.RateLimitPerMin, time.Minute),
		middleware.I18N("en", lookup),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/tools", app.Tools)
	r.Get("/v1/showcase", app.ShowcaseLatest)
	r.Post("/v1/auth/register", app.Register)
	r.Post("/v1/auth/login", app.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(cfg.JWTSecret))
		r.Get("/v1/me", app.Me)
		r.Get("/v1/generations", app.GenerationHistory)
		r.Post("/v1/tools/{tool_id}/generate", app.Generate)
		r.Post("/v1/audio/transcriptions", app.AudioTranscribe)
	})

	return r
}
