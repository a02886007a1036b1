package triage

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spec-kit/triage-service/internal/domain"
)

var errNoObject = errors.New("no balanced JSON object found in model output")

// extractBalancedObject locates the first balanced {...} substring in free
// text, tolerating prose around the payload.
func extractBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// parseDraft reads the model output defensively. Missing or malformed fields
// take documented defaults; only a totally unusable payload returns an error.
func parseDraft(raw string) (*Draft, error) {
	object, ok := extractBalancedObject(raw)
	if !ok {
		return nil, errNoObject
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(object), &fields); err != nil {
		return nil, err
	}

	draft := &Draft{
		Category:      domain.NormalizeCategory(readString(fields, "category", domain.CategoryGeneralRequest)),
		Priority:      domain.NormalizePriority(readString(fields, "priority", "Medium")),
		Risk:          domain.NormalizeRisk(readString(fields, "risk", "Low")),
		Confidence:    clampConfidence(readFloat(fields, "confidence", 0.75)),
		DraftResponse: strings.TrimSpace(readString(fields, "draftResponse", "")),
	}
	if draft.Category == "" {
		draft.Category = domain.CategoryGeneralRequest
	}
	return draft, nil
}

func readString(fields map[string]any, key, fallback string) string {
	if val, ok := fields[key].(string); ok && strings.TrimSpace(val) != "" {
		return val
	}
	return fallback
}

func readFloat(fields map[string]any, key string, fallback float64) float64 {
	if val, ok := fields[key].(float64); ok {
		return val
	}
	return fallback
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
