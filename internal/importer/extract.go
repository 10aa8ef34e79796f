package importer

import (
	"encoding/json"
	"strings"
)

// ExtractJSON recovers the JSON object embedded in free-form generated text.
//
// It keeps the span from the first '{' to the last '}', drops // and /* */ comments and
// trailing commas before '}' or ']' (string literals are left untouched), and checks that
// the result is valid JSON.
func ExtractJSON(text string) ([]byte, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return nil, &ParseError{Reason: "no JSON object found in text"}
	}

	cleaned := stripTrailingCommas(stripComments(text[start : end+1]))
	if !json.Valid(cleaned) {
		return nil, &ParseError{Reason: "extracted payload is not valid JSON"}
	}
	return cleaned, nil
}

func stripComments(s string) []byte {
	out := make([]byte, 0, len(s))
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			out = append(out, c)
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

		switch {
		case c == '"':
			inString = true
			out = append(out, c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				out = append(out, '\n')
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			closing := strings.Index(s[i+2:], "*/")
			if closing < 0 {
				i = len(s)
				continue
			}
			i += 2 + closing + 1
			out = append(out, ' ')
		default:
			out = append(out, c)
		}
	}
	return out
}

func stripTrailingCommas(b []byte) []byte {
	out := make([]byte, 0, len(b))
	inString, escaped := false, false

	for i := 0; i < len(b); i++ {
		c := b[i]
		if inString {
			out = append(out, c)
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

		if c == '"' {
			inString = true
		}
		if c == ',' {
			j := i + 1
			for j < len(b) && isSpace(b[j]) {
				j++
			}
			if j < len(b) && (b[j] == '}' || b[j] == ']') {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
