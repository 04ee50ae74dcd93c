package llm

import (
	"encoding/json"
	"strings"
)

// ExtractObject parses model output expected to contain a single JSON
// object. Markdown fences, surrounding prose and trailing commas are
// tolerated; anything beyond that bounded repair set fails with
// *UnparseableError. It never panics on malformed input.
func ExtractObject(raw string) (map[string]any, error) {
	text := extractBalanced(stripFences(raw), '{', '}')
	if text == "" {
		return nil, newUnparseableError(raw)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, nil
	}

	// One repair pass: models frequently emit trailing commas before a
	// closing brace. Nothing more speculative than that.
	if err := json.Unmarshal([]byte(stripTrailingCommas(text)), &obj); err == nil {
		return obj, nil
	}
	return nil, newUnparseableError(raw)
}

// ExtractArray parses model output expected to contain a JSON array.
// Same tolerance and failure contract as ExtractObject.
func ExtractArray(raw string) ([]any, error) {
	text := extractBalanced(stripFences(raw), '[', ']')
	if text == "" {
		return nil, newUnparseableError(raw)
	}

	var arr []any
	if err := json.Unmarshal([]byte(text), &arr); err == nil {
		return arr, nil
	}
	if err := json.Unmarshal([]byte(stripTrailingCommas(text)), &arr); err == nil {
		return arr, nil
	}
	return nil, newUnparseableError(raw)
}

// ObjectFrom accepts either an already-structured value or raw text.
// Structured non-empty maps pass through unchanged; strings go through
// ExtractObject.
func ObjectFrom(v any) (map[string]any, error) {
	switch x := v.(type) {
	case map[string]any:
		if x != nil {
			return x, nil
		}
		return nil, newUnparseableError("<nil object>")
	case string:
		return ExtractObject(x)
	default:
		return nil, newUnparseableError("<unexpected value type>")
	}
}

// stripFences removes markdown code-fence wrappers around model output.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"```json", "```"} {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			if idx := strings.LastIndex(text, "```"); idx >= 0 {
				text = text[:idx]
			}
			break
		}
	}
	return strings.TrimSpace(text)
}

// extractBalanced returns the first balanced top-level open...close
// substring, respecting JSON string literals and escapes. Returns "" when
// no balanced region exists.
func extractBalanced(text string, open, close byte) string {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == close:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// stripTrailingCommas removes commas that directly precede a closing
// brace or bracket (outside string literals).
func stripTrailingCommas(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inString := false
	escaped := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if escaped {
			b.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' && inString {
			b.WriteByte(c)
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			b.WriteByte(c)
			continue
		}
		if c == ',' && !inString {
			// Look ahead past whitespace for a closing bracket.
			j := i + 1
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue // drop the comma
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}
