// Package jsonx locates JSON values embedded in free-form LLM output.
package jsonx

import "encoding/json"

// FirstObject returns the first balanced, valid JSON object in s.
func FirstObject(s string) (string, bool) {
	return first(s, '{', '}')
}

// FirstArray returns the first balanced, valid JSON array in s.
func FirstArray(s string) (string, bool) {
	return first(s, '[', ']')
}

func first(s string, open, close byte) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != open {
			continue
		}
		end, ok := matchClose(s, start, open, close)
		if !ok {
			continue
		}
		candidate := s[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// matchClose finds the index of the bracket closing s[start], skipping
// brackets inside JSON strings.
func matchClose(s string, start int, open, close byte) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
