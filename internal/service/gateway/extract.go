package gateway

import (
	"encoding/json"
	"strings"
	"time"
)

// NoResponsePlaceholder is used when a reply carries no recognizable text.
const NoResponsePlaceholder = "Maaf, tidak ada respons dari server."

// UnknownSource marks replies whose backend subsystem was not reported.
const UnknownSource = "unknown"

// textFields lists the reply fields in priority order. Backends have moved
// between these names; the order decides which one wins when several exist.
var textFields = []string{"response", "text", "message", "reply"}

// ExtractText returns the canonical reply text of an opaque backend payload.
func ExtractText(data any) string {
	switch v := data.(type) {
	case map[string]any:
		for _, key := range textFields {
			if text, ok := fieldText(v[key]); ok {
				return text
			}
		}
	case string:
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return NoResponsePlaceholder
}

// fieldText reports a field as defined when it is present, non-null and not
// blank. Non-string values are rendered as compact JSON.
func fieldText(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		if strings.TrimSpace(t) == "" {
			return "", false
		}
		return t, true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// Normalize converts a decoded backend payload into a Result.
func Normalize(data any, receivedAt time.Time) Result {
	result := Result{
		Text:       ExtractText(data),
		Source:     UnknownSource,
		ReceivedAt: receivedAt,
		Success:    true,
	}

	fields, ok := data.(map[string]any)
	if !ok {
		return result
	}

	if from, ok := fields["from"].(string); ok && from != "" {
		result.Source = from
	}
	if intent, ok := fields["intent"].(string); ok && intent != "" {
		result.Intent = &intent
	}
	if confidence, ok := fields["confidence"].(float64); ok {
		result.Confidence = &confidence
	}

	return result
}
