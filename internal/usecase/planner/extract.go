package planner

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fenceRe = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")

// extractObject finds the JSON candidate in free-form model output.
// Order: the whole text when it is valid JSON, then the first fenced block
// holding an object, then the first balanced {...} span in the text.
func extractObject(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if json.Valid([]byte(text)) {
		return text, true
	}
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		if span, ok := balancedObject(m[1]); ok {
			return span, true
		}
	}
	return balancedObject(text)
}

// balancedObject returns the span from the first '{' to the brace that
// closes it. Braces inside string literals do not count.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
