package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/aires-app/gemini-relay/pkg/models"
)

// Recoverer turns a handler panic into the relay's 500 error body.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			log.Error().
				Str("request_id", chimw.GetReqID(r.Context())).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("Handler panicked")

			f := models.NewFailure(models.MsgServerError)
			f.Details = fmt.Sprint(rec)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(f)
		}()

		next.ServeHTTP(w, r)
	})
}
