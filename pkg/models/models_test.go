package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aires-app/gemini-relay/pkg/models"
)

func TestResult_IsError(t *testing.T) {
	tests := []struct {
		name   string
		result models.Result
		want   bool
	}{
		{"failure payload", models.Failed(models.NewFailure("boom")), true},
		{"array document", models.Succeeded(json.RawMessage(`[{"aires":"hi","language":"en-US"}]`)), false},
		{"object without status", models.Succeeded(json.RawMessage(`{"aires":"hi"}`)), false},
		{"object with success status", models.Succeeded(json.RawMessage(`{"status":"success"}`)), false},
		{"object with other status", models.Succeeded(json.RawMessage(`{"status":"pending"}`)), false},
		{"object with numeric status", models.Succeeded(json.RawMessage(`{"status":500}`)), false},
		{"model reported error", models.Succeeded(json.RawMessage(` {"status":"error","message":"nope"}`)), true},
		{"scalar document", models.Succeeded(json.RawMessage(`"error"`)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.IsError())
		})
	}
}

func TestResult_MarshalJSON(t *testing.T) {
	doc := `[{"language":"en-US","aires":"hi"}]`
	out, err := json.Marshal(models.Succeeded(json.RawMessage(doc)))
	require.NoError(t, err)
	assert.Equal(t, doc, string(out), "upstream document must pass through unchanged")

	f := models.NewFailure(models.MsgInvalidJSON)
	f.Raw = ""
	out, err = json.Marshal(models.Failed(f))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"AI response was not valid JSON. Raw response returned.","raw":""}`, string(out))

	f = models.NewFailure(models.MsgFetchError)
	f.Details = "dial tcp: refused"
	out, err = json.Marshal(models.Failed(f))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","message":"Gemini API network or fetch error.","details":"dial tcp: refused"}`, string(out))
}

func TestResult_Message(t *testing.T) {
	assert.Equal(t, "boom", models.Failed(models.NewFailure("boom")).Message())
	assert.Equal(t, "nope", models.Succeeded(json.RawMessage(`{"status":"error","message":"nope"}`)).Message())
	assert.Equal(t, "", models.Succeeded(json.RawMessage(`[1,2]`)).Message())
}

func TestPromptRequest_Text(t *testing.T) {
	tests := []struct {
		body   string
		want   string
		wantOK bool
	}{
		{`{}`, "", false},
		{`{"prompt":null}`, "", false},
		{`{"prompt":""}`, "", false},
		{`{"prompt":false}`, "", false},
		{`{"prompt":0}`, "", false},
		{`{"prompt":0e5}`, "", false},
		{`{"prompt":"hi"}`, "hi", true},
		{`{"prompt":" "}`, " ", true},
		{`{"prompt":12.50}`, "12.50", true},
		{`{"prompt":1e400}`, "1e400", true},
		{`{"prompt":true}`, "true", true},
		{`{"prompt":{}}`, "{}", true},
		{`{"prompt":[ ]}`, "[]", true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req models.PromptRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			got, ok := req.Text()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
