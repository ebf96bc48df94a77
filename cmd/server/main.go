// Aires Gemini relay.
//
// Accepts {prompt} on POST /api/gemini, wraps it in the Aires persona
// instruction, asks Gemini, and returns the model's JSON answer. Failed
// attempts are retried a fixed number of times with a fixed delay.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aires-app/gemini-relay/internal/config"
	"github.com/aires-app/gemini-relay/pkg/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	log.Info().Msg("🤖 Gemini relay starting...")

	ctx := context.Background()
	srv, err := server.New(ctx, cfg)
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			log.Fatal().Msg("❌ Missing GEMINI_API_KEY in environment or .env file")
		}
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", srv.Port),
		Handler:           srv.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	idle := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("🛑 Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
		if err := srv.ShutdownFunc(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Telemetry flush failed")
		}
		close(idle)
	}()

	log.Info().
		Int("port", srv.Port).
		Msgf("🚀 Server running on http://localhost:%d", srv.Port)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("Server failed")
	}
	<-idle
}
