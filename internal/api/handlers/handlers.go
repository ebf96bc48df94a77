// Package handlers implements the HTTP handlers for the relay.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/aires-app/gemini-relay/pkg/models"
)

// LivenessMessage is the plain-text body of GET /.
const LivenessMessage = "Gemini Backend Server is running 🚀"

const maxBodyBytes = 1 << 20

// Invoker answers a prompt. *relay.Invoker satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (models.Result, error)
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Invoker Invoker
	Service string
	Version string
}

// New creates a new Handlers instance.
func New(inv Invoker, service, version string) *Handlers {
	return &Handlers{Invoker: inv, Service: service, Version: version}
}

// Prompt relays {prompt} to the model. Upstream and parse failures are
// reported in the body with a 200; only a missing prompt (400) and an
// interrupted invocation (500) change the status code.
func (h *Handlers) Prompt(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req models.PromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large.", "")
			return
		}
		log.Debug().Err(err).Msg("Unreadable prompt body")
		respondError(w, http.StatusBadRequest, models.MsgMissingPrompt, "")
		return
	}
	prompt, ok := req.Text()
	if !ok {
		respondError(w, http.StatusBadRequest, models.MsgMissingPrompt, "")
		return
	}

	result, err := h.Invoker.Invoke(r.Context(), prompt)
	if err != nil {
		log.Error().
			Err(err).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("Prompt invocation failed")
		respondError(w, http.StatusInternalServerError, models.MsgServerError, err.Error())
		return
	}

	if result.IsError() {
		log.Warn().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("message", result.Message()).
			Msg("Returning upstream failure to caller")
	}
	respondJSON(w, http.StatusOK, result)
}

// Liveness answers GET / with a plain-text banner.
func (h *Handlers) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(LivenessMessage))
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.Service,
	})
}

func (h *Handlers) VersionInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
		"service": h.Service,
	})
}

// NotFound keeps unknown routes in the same JSON error shape.
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "Cannot "+r.Method+" "+r.URL.Path, "")
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message, details string) {
	f := models.NewFailure(strings.TrimSpace(message))
	f.Details = details
	respondJSON(w, status, f)
}
