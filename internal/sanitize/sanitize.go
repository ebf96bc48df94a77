// Package sanitize turns model output into JSON. Models often wrap their
// answer in markdown code fences even when told not to; Parse strips those
// markers and parses what is left. It never fails: text that still is not
// JSON comes back as a structured error payload carrying the cleaned text.
package sanitize

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rs/zerolog/log"

	"github.com/aires-app/gemini-relay/pkg/models"
)

const fence = "```"

var jsonFence = regexp.MustCompile("(?i)```json")

// Sanitizer parses upstream model text. The zero value parses strictly.
type Sanitizer struct {
	repair bool
}

// New returns a Sanitizer. With repair set, text that fails strict parsing
// gets one jsonrepair pass before it is reported as invalid. Only repaired
// objects and arrays are accepted; jsonrepair turns plain prose into strings
// and arrays of strings, which must still count as invalid answers.
func New(repair bool) *Sanitizer {
	return &Sanitizer{repair: repair}
}

// Parse is the strict sanitizer.
func Parse(raw string) models.Result {
	return (&Sanitizer{}).Parse(raw)
}

// Parse strips fence markers, trims, and parses. Successful documents are
// returned byte for byte.
func (s *Sanitizer) Parse(raw string) models.Result {
	cleaned := Clean(raw)

	if json.Valid([]byte(cleaned)) {
		return models.Succeeded(json.RawMessage(cleaned))
	}

	if s.repair {
		if repaired, err := jsonrepair.JSONRepair(cleaned); err == nil && isDocument(cleaned, repaired) {
			log.Debug().Int("bytes", len(cleaned)).Msg("Repaired malformed model JSON")
			return models.Succeeded(json.RawMessage(repaired))
		}
	}

	f := models.NewFailure(models.MsgInvalidJSON)
	f.Raw = cleaned
	return models.Failed(f)
}

// isDocument reports whether a repair produced an object or array the model
// actually started writing. Both the original and the repaired text must
// open with '{' or '['.
func isDocument(original, repaired string) bool {
	return opensDocument(original) && opensDocument(repaired) && json.Valid([]byte(repaired))
}

func opensDocument(s string) bool {
	t := strings.TrimSpace(s)
	return t != "" && (t[0] == '{' || t[0] == '[')
}

// Clean removes every "```json" (any case) and every bare "```", then trims
// surrounding whitespace, including a byte order mark.
func Clean(raw string) string {
	s := jsonFence.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, fence, "")
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
