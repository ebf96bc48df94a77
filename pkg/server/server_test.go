package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aires-app/gemini-relay/internal/config"
	"github.com/aires-app/gemini-relay/pkg/server"
)

// fakeGemini serves canned generateContent envelopes and counts calls.
type fakeGemini struct {
	calls     atomic.Int32
	envelopes []string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(f.calls.Add(1)) - 1
	if n >= len(f.envelopes) {
		n = len(f.envelopes) - 1
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, f.envelopes[n])
}

func textEnvelope(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	return string(b)
}

func newServer(t *testing.T, upstreamURL string) *server.Server {
	t.Helper()
	cfg := &config.Config{
		Port:    3010,
		Version: "test",
		Gemini: config.GeminiConfig{
			APIKey:     "test-key",
			BaseURL:    upstreamURL,
			APIVersion: "v1",
			Model:      "gemini-2.5-flash",
		},
		Retry:     config.RetryConfig{Attempts: 3, Delay: 5 * time.Millisecond},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"*"}},
		Telemetry: config.TelemetryConfig{ServiceName: "aires-gemini-relay"},
	}
	srv, err := server.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { srv.ShutdownFunc(context.Background()) })
	return srv
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNew_MissingAPIKey(t *testing.T) {
	cfg := &config.Config{Retry: config.RetryConfig{Attempts: 3}}

	_, err := server.New(context.Background(), cfg)

	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrMissingAPIKey))
}

func TestPrompt_EndToEnd(t *testing.T) {
	fake := &fakeGemini{envelopes: []string{
		textEnvelope("```json\n[{\"aires\":\"Hello! 😊\",\"language\":\"en-US\"}]\n```"),
	}}
	upstream := httptest.NewServer(fake)
	defer upstream.Close()

	srv := newServer(t, upstream.URL)

	for _, path := range []string{"/api/gemini", "/api/gemini/"} {
		w := do(t, srv.Handler, http.MethodPost, path, `{"prompt":"hi there"}`)

		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `[{"aires":"Hello! 😊","language":"en-US"}]`, w.Body.String(), path)
	}
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestPrompt_MissingPromptNeverCallsUpstream(t *testing.T) {
	fake := &fakeGemini{envelopes: []string{textEnvelope("[]")}}
	upstream := httptest.NewServer(fake)
	defer upstream.Close()

	srv := newServer(t, upstream.URL)

	w := do(t, srv.Handler, http.MethodPost, "/api/gemini", `{"message":"hi"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"Missing 'prompt' in request body."}`, w.Body.String())
	assert.Equal(t, int32(0), fake.calls.Load())
}

func TestPrompt_ExhaustedRetriesReturn200WithLastFailure(t *testing.T) {
	fake := &fakeGemini{envelopes: []string{`{"candidates":[]}`}}
	upstream := httptest.NewServer(fake)
	defer upstream.Close()

	srv := newServer(t, upstream.URL)

	w := do(t, srv.Handler, http.MethodPost, "/api/gemini", `{"prompt":"hi"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"error","message":"No valid response from Gemini.","raw":{"candidates":[]}}`, w.Body.String())
	assert.Equal(t, int32(3), fake.calls.Load())
}

func TestPrompt_RecoversAfterInvalidJSON(t *testing.T) {
	fake := &fakeGemini{envelopes: []string{
		textEnvelope("Sure! Here you go: hello"),
		textEnvelope(`[{"aires":"hello","language":"en-US"}]`),
	}}
	upstream := httptest.NewServer(fake)
	defer upstream.Close()

	srv := newServer(t, upstream.URL)

	w := do(t, srv.Handler, http.MethodPost, "/api/gemini", `{"prompt":"hi"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"aires":"hello","language":"en-US"}]`, w.Body.String())
	assert.Equal(t, int32(2), fake.calls.Load())
}

func TestPrompt_UpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	srv := newServer(t, url)

	w := do(t, srv.Handler, http.MethodPost, "/api/gemini", `{"prompt":"hi"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Gemini API network or fetch error.", body["message"])
	assert.NotEmpty(t, body["details"])
	assert.NotContains(t, w.Body.String(), "test-key")
}

func TestLivenessRoute(t *testing.T) {
	srv := newServer(t, "http://127.0.0.1:0")

	w := do(t, srv.Handler, http.MethodGet, "/", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Gemini Backend Server is running 🚀", w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/plain"))
}

func TestUnknownRoute(t *testing.T) {
	srv := newServer(t, "http://127.0.0.1:0")

	w := do(t, srv.Handler, http.MethodGet, "/api/unknown", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
}
