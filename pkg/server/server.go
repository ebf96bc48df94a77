// Package server provides the public entry point for assembling the relay.
//
// Usage:
//
//	cfg := config.Load()
//	srv, err := server.New(ctx, cfg)
//	http.ListenAndServe(fmt.Sprintf(":%d", srv.Port), srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aires-app/gemini-relay/internal/api"
	"github.com/aires-app/gemini-relay/internal/api/handlers"
	"github.com/aires-app/gemini-relay/internal/config"
	"github.com/aires-app/gemini-relay/internal/gemini"
	"github.com/aires-app/gemini-relay/internal/relay"
	"github.com/aires-app/gemini-relay/internal/sanitize"
	"github.com/aires-app/gemini-relay/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// Server holds the initialized relay.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Config is the configuration the server was built from.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New validates cfg and wires the relay components. A missing API key is
// reported as config.ErrMissingAPIKey.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	shutdown, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	upstream := gemini.New(gemini.Config{
		APIKey:     cfg.Gemini.APIKey,
		BaseURL:    cfg.Gemini.BaseURL,
		APIVersion: cfg.Gemini.APIVersion,
		Model:      cfg.Gemini.Model,
		Timeout:    cfg.Gemini.Timeout,
	})
	log.Info().
		Str("model", upstream.Model()).
		Str("api_version", cfg.Gemini.APIVersion).
		Msg("✅ Gemini client initialized")

	inv, err := relay.NewInvoker(upstream, sanitize.New(cfg.Sanitizer.Repair), relay.Options{
		Attempts: cfg.Retry.Attempts,
		Delay:    cfg.Retry.Delay,
	})
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("init invoker: %w", err)
	}
	log.Info().
		Int("attempts", cfg.Retry.Attempts).
		Dur("delay", cfg.Retry.Delay).
		Bool("json_repair", cfg.Sanitizer.Repair).
		Msg("✅ Prompt invoker initialized")

	h := handlers.New(inv, cfg.Telemetry.ServiceName, cfg.Version)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
