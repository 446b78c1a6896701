package ai

import (
	"encoding/json"
	"strings"
)

// ExtractJSON pulls the first balanced {...} object out of a possibly noisy
// completion and parses it. The model is not guaranteed to return only JSON:
// it may wrap the object in code fences or surround it with prose. Returns nil
// when nothing parseable can be extracted; never panics. Callers treat nil as
// "no usable feedback".
func ExtractJSON(s string) map[string]any {
	s = stripCodeFence(s)

	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}

		switch r {
		case '"':
			// Quotes outside an object are still string context for the
			// scan: braces inside them must not count.
			inString = true
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				var out map[string]any
				if err := json.Unmarshal([]byte(s[start:i+1]), &out); err != nil {
					return nil
				}
				return out
			}
		}
	}

	return nil
}

// stripCodeFence removes a leading/trailing markdown code fence if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
