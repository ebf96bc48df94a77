// Package gemini is a minimal client for the Gemini generateContent REST
// endpoint. It returns the response envelope as received; deciding what a
// usable answer looks like is left to the caller.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1"
	defaultModel      = "gemini-2.5-flash"
)

// Config holds the upstream connection settings.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	// Timeout of zero keeps the transport default (no client timeout).
	Timeout time.Duration
	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client calls generateContent for a single model. It is safe for
// concurrent use.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// New creates a client, filling unset fields with the public Gemini defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		endpoint: fmt.Sprintf("%s/%s/models/%s:generateContent",
			strings.TrimRight(cfg.BaseURL, "/"), strings.Trim(cfg.APIVersion, "/"), cfg.Model),
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		client: httpClient,
	}
}

// Model returns the model id requests are sent to.
func (c *Client) Model() string { return c.model }

// ── Wire types ──────────────────────────────────────────────

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Response is a decoded-enough upstream reply: the HTTP status and the raw
// JSON envelope.
type Response struct {
	StatusCode int
	Envelope   json.RawMessage
}

// Text returns candidates[0].content.parts[0].text, or "" when the envelope
// has no such field (including error envelopes and non-object bodies).
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	var env generateContentResponse
	if err := json.Unmarshal(r.Envelope, &env); err != nil {
		return ""
	}
	if len(env.Candidates) == 0 || len(env.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return env.Candidates[0].Content.Parts[0].Text
}

// GenerateContent sends text as a single user turn. Any HTTP status is
// accepted as long as the body is JSON; Gemini error replies are envelopes
// too. The error return covers transport failures and non-JSON bodies only.
func (c *Client) GenerateContent(ctx context.Context, text string) (*Response, error) {
	body, err := json.Marshal(generateContentRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: text}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gemini: create request: %w", c.redact(err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini: send request: %w", c.redact(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gemini: read response: %w", c.redact(err))
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("gemini: invalid JSON response body (status %d): %s", resp.StatusCode, preview(raw))
	}

	if resp.StatusCode >= 400 {
		log.Warn().
			Str("model", c.model).
			Int("status", resp.StatusCode).
			Msg("Gemini returned an error envelope")
	}

	return &Response{StatusCode: resp.StatusCode, Envelope: json.RawMessage(raw)}, nil
}

func (c *Client) requestURL() string {
	return c.endpoint + "?" + url.Values{"key": {c.apiKey}}.Encode()
}

// redact keeps the API key out of error strings, which end up in response
// bodies and logs.
func (c *Client) redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		uerr.URL = c.endpoint
	}
	return err
}

// preview shortens a body for error messages without splitting a rune.
func preview(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
