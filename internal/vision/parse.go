package vision

import (
	"encoding/json"
	"strings"

	"github.com/rancheye/analysis_server/internal/model"
)

// parseModelOutput extracts the JSON object from a model response. Models
// sometimes wrap JSON in markdown fences or surround it with prose, so after
// stripping fences we fall back to the outermost {...} span. A response that
// yields no JSON gets confidence 0 and keeps the raw text for debugging.
func parseModelOutput(raw string) (model.JSONMap, float64) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[7:]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[3:]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	cleaned = strings.TrimSpace(cleaned)

	var parsed model.JSONMap
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start >= 0 && end > start {
			if err := json.Unmarshal([]byte(raw[start:end+1]), &parsed); err == nil {
				return parsed, extractConfidence(parsed)
			}
		}
		return model.JSONMap{"error": "failed to parse JSON response", "raw": raw}, 0
	}

	return parsed, extractConfidence(parsed)
}

// extractConfidence reads the model's self-reported confidence, defaulting to
// 0.5 when the field is absent.
func extractConfidence(parsed model.JSONMap) float64 {
	if _, ok := parsed["confidence"]; !ok {
		return 0.5
	}
	return parsed.Float("confidence")
}
