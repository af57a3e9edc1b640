package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// schemaInstruction renders a schema as a prompt suffix for providers
// without server-side schema enforcement.
func schemaInstruction(schema map[string]interface{}) string {
	data, err := json.Marshal(schema)
	if err != nil {
		return "Respond with valid JSON only, no prose or markdown fences."
	}
	return fmt.Sprintf("Respond with valid JSON only, no prose or markdown fences. The response must conform to this JSON Schema:\n%s", data)
}

// ExtractJSON strips markdown code fences and surrounding prose from a
// model response, returning the JSON payload. Providers without schema
// enforcement routinely wrap JSON in ```json fences.
func ExtractJSON(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```") {
		if idx := strings.Index(trimmed, "\n"); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
			trimmed = trimmed[:idx]
		}
		return strings.TrimSpace(trimmed)
	}

	// Fall back to the outermost object or array in surrounding prose
	start := strings.IndexAny(trimmed, "{[")
	if start < 0 {
		return trimmed
	}
	var end int
	if trimmed[start] == '{' {
		end = strings.LastIndex(trimmed, "}")
	} else {
		end = strings.LastIndex(trimmed, "]")
	}
	if end > start {
		return strings.TrimSpace(trimmed[start : end+1])
	}
	return trimmed
}

// ParseInto extracts the JSON payload from a model response and
// unmarshals it into out. A response that does not conform to the
// expected shape is a typed failure here, never a panic downstream.
func ParseInto(response string, out interface{}) error {
	payload := ExtractJSON(response)
	if payload == "" {
		return fmt.Errorf("response contains no JSON payload")
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}
