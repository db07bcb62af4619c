package ai

import (
	"encoding/json"
	"strings"

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

// ExtractJSONObject returns the first balanced {...} span in text that is
// valid JSON. Braces inside string literals are ignored, so prose, code
// fences and trailing commentary around the object do not matter.
//
// Only top-level spans are considered: a span that never closes ends the
// search, so a truncated object never yields one of its nested objects.
func ExtractJSONObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		end, ok := matchBrace(text, start)
		if !ok {
			return "", false
		}
		if candidate := text[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate, true
		}

		next := strings.IndexByte(text[end+1:], '{')
		if next < 0 {
			break
		}
		start = end + 1 + next
	}
	return "", false
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// DecodeJSON extracts the first JSON object from text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return rigerrors.New("no JSON object found in model output")
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return rigerrors.Wrap(err, "failed to decode model output")
	}
	return nil
}
