// Package utils holds small shared helpers for decoding model output.
package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// StripCodeFences removes markdown code fences that vision and language
// models wrap around JSON payloads (```json ... ```).
func StripCodeFences(input string) string {
	cleaned := strings.TrimSpace(input)
	if strings.HasPrefix(cleaned, "```") {
		if idx := strings.Index(cleaned, "\n"); idx >= 0 {
			cleaned = cleaned[idx+1:]
		}
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// RepairJSON attempts to fix common JSON errors in model output: single
// quotes, unquoted keys, trailing commas, unclosed arrays.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// DecodeModelJSON parses model output into schema, trying strategies in
// order of strictness:
//  1. standard JSON after stripping code fences
//  2. repaired JSON
//  3. hjson, the most lenient
func DecodeModelJSON(input string, schema interface{}) error {
	cleaned := StripCodeFences(input)

	if err := json.Unmarshal([]byte(cleaned), schema); err == nil {
		return nil
	}

	if repaired, err := RepairJSON(cleaned); err == nil {
		if err := json.Unmarshal([]byte(repaired), schema); err == nil {
			return nil
		}
	}

	if err := hjson.Unmarshal([]byte(cleaned), schema); err == nil {
		return nil
	}

	return fmt.Errorf("all decode strategies failed for model output")
}
