// Package masking redacts secrets before they land in audit metadata.
package masking

import "strings"

const maskToken = "****"

// MaskSecret redacts a secret while keeping a short suffix so two audit
// entries for the same credential remain distinguishable.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	// Keep a recognizable key prefix such as "sk_" when present.
	prefix := ""
	if idx := strings.LastIndex(trimmed, "_"); idx > 0 && idx < len(trimmed)-1 {
		prefix = trimmed[:idx+1]
		trimmed = trimmed[idx+1:]
	}

	if len(trimmed) <= 4 {
		return prefix + maskToken
	}
	return prefix + maskToken + trimmed[len(trimmed)-4:]
}

// MaskJSON returns a copy of the input with every string value masked. Used
// when the whole payload is credentials, such as an OAuth token pair.
func MaskJSON(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(value)
	}

	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(value any) any {
	switch cast := value.(type) {
	case string:
		return MaskSecret(cast)
	case map[string]any:
		return MaskJSON(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(item))
		}
		return out
	default:
		return value
	}
}
