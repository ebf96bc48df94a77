package api

import (
	"net/http"

	"github.com/aires-app/gemini-relay/internal/api/handlers"
	"github.com/aires-app/gemini-relay/internal/api/middleware"
	"github.com/aires-app/gemini-relay/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "X-Trace-Id"},
		MaxAge:         300,
	}))

	r.NotFound(h.NotFound)

	// Liveness, health & info
	r.Get("/", h.Liveness)
	r.Get("/health", h.Health)
	r.Get("/version", h.VersionInfo)

	// Prompt relay
	r.Route("/api/gemini", func(r chi.Router) {
		r.Post("/", h.Prompt)
	})

	return r
}
