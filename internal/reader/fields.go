package reader

import "time"

// Helpers for pulling loosely-typed fields out of decoded JSON maps. Key
// lists encode the field-name synonyms observed across tool storage
// versions; the first match wins.

var (
	timestampFields   = []string{"timestamp", "createdAt", "created_at", "time", "date"}
	inputTokenFields  = []string{"input_tokens", "inputTokens", "promptTokens", "prompt_tokens"}
	outputTokenFields = []string{"output_tokens", "outputTokens", "completionTokens", "completion_tokens"}
)

// firstString returns the first non-empty string among the named keys.
func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstList returns the first list value among the named keys.
func firstList(m map[string]any, keys ...string) []any {
	for _, k := range keys {
		if l, ok := m[k].([]any); ok {
			return l
		}
	}
	return nil
}

// extractTimestamp tries every known timestamp field and format, returning
// the zero time on total failure.
func extractTimestamp(m map[string]any) time.Time {
	for _, field := range timestampFields {
		v, ok := m[field]
		if !ok || v == nil {
			continue
		}
		if t := ParseTimestamp(v); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// inputTokens returns the input-side token count, checking direct fields
// then the nested usage block.
func inputTokens(m map[string]any) int {
	return tokenCount(m, inputTokenFields)
}

// outputTokens returns the output-side token count.
func outputTokens(m map[string]any) int {
	return tokenCount(m, outputTokenFields)
}

func tokenCount(m map[string]any, keys []string) int {
	if n, ok := numericField(m, keys); ok {
		return n
	}
	if usage, ok := m["usage"].(map[string]any); ok {
		if n, ok := numericField(usage, keys); ok {
			return n
		}
	}
	return 0
}

func numericField(m map[string]any, keys []string) (int, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return int(v), true
		case int:
			return v, true
		}
	}
	return 0, false
}
