// Package models defines the request and result types exchanged between the
// relay's HTTP surface and its core.
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// StatusError marks a structured failure payload.
const StatusError = "error"

// Failure messages returned to callers inside a 200 response body.
const (
	MsgInvalidJSON     = "AI response was not valid JSON. Raw response returned."
	MsgNoValidResponse = "No valid response from Gemini."
	MsgFetchError      = "Gemini API network or fetch error."
	MsgMissingPrompt   = "Missing 'prompt' in request body."
	MsgServerError     = "Server error"
)

// PromptRequest is the inbound body of POST /api/gemini. Prompt is kept
// raw because callers are not held to sending a string.
type PromptRequest struct {
	Prompt json.RawMessage `json:"prompt"`
}

// Text resolves the prompt to the text sent upstream. Absent, null, "",
// false and zero count as missing. Strings are used as-is; any other value
// is sent as its compact JSON text.
func (r PromptRequest) Text() (string, bool) {
	raw := bytes.TrimSpace(r.Prompt)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case 'n', 'f':
		return "", false
	case 't', '{', '[':
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	default:
		// Out-of-range numbers fail to parse but are still non-zero.
		if f, err := strconv.ParseFloat(string(raw), 64); err == nil && f == 0 {
			return "", false
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", false
	}
	return buf.String(), true
}

// Failure is the structured error payload. Raw carries whatever the relay
// could not use (cleaned model text or the upstream envelope); Details
// carries a transport error description.
type Failure struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Raw     any    `json:"raw,omitempty"`
	Details string `json:"details,omitempty"`
}

// NewFailure returns a Failure with Status set to "error".
func NewFailure(message string) *Failure {
	return &Failure{Status: StatusError, Message: message}
}

// Result is the outcome of one attempt or one invocation. Exactly one of
// Body and Failure is set. Body holds the upstream JSON document untouched.
type Result struct {
	Body    json.RawMessage
	Failure *Failure
}

// Succeeded wraps a parsed upstream document.
func Succeeded(body json.RawMessage) Result {
	return Result{Body: body}
}

// Failed wraps a failure payload.
func Failed(f *Failure) Result {
	return Result{Failure: f}
}

// IsError reports whether the result carries a top-level status of "error".
// Upstream documents are inspected too: a model that answers with
// {"status":"error"} is treated like any other failed attempt. Documents
// without a status, or that are not objects, are successes.
func (r Result) IsError() bool {
	return r.Status() == StatusError
}

// Status returns the top-level status field, or "" when there is none.
func (r Result) Status() string {
	if r.Failure != nil {
		return r.Failure.Status
	}
	trimmed := bytes.TrimSpace(r.Body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return ""
	}
	var probe struct {
		Status any `json:"status"`
	}
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return ""
	}
	s, _ := probe.Status.(string)
	return s
}

// Message returns the failure message, or the upstream document's
// top-level message when it has one.
func (r Result) Message() string {
	if r.Failure != nil {
		return r.Failure.Message
	}
	var probe struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(r.Body, &probe); err != nil {
		return ""
	}
	s, _ := probe.Message.(string)
	return s
}

// MarshalJSON emits the failure payload or the upstream document verbatim.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Failure != nil {
		return json.Marshal(r.Failure)
	}
	if len(r.Body) == 0 {
		return []byte("null"), nil
	}
	return r.Body, nil
}
