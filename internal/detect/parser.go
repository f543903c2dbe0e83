package detect

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/eivindbakke/merkelapp/internal/model"
)

// defaultConfidence is assumed when the model reports an object without a
// confidence value.
const defaultConfidence = 0.7

var (
	blockCommentRe  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe   = regexp.MustCompile(`(?m)^\s*//.*$`)
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// detectionPayload mirrors the JSON shape the prompt asks for. Objects stays
// raw because some models return bare name arrays instead of objects.
type detectionPayload struct {
	Objects     json.RawMessage `json:"objects"`
	Description string          `json:"description"`
}

type objectPayload struct {
	Name       string   `json:"name"`
	Confidence *float64 `json:"confidence"`
}

// parseDetection turns a raw model response into a DetectionResult. The
// response is sanitized first, so fenced, commented, or chatty output is
// tolerated as long as a JSON object can be dug out of it.
func parseDetection(raw string) (*model.DetectionResult, error) {
	cleaned := sanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var payload detectionPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	result := &model.DetectionResult{Description: strings.TrimSpace(payload.Description)}
	if len(payload.Objects) == 0 || string(payload.Objects) == "null" {
		return result, nil
	}

	var objects []objectPayload
	if err := json.Unmarshal(payload.Objects, &objects); err == nil {
		for _, obj := range objects {
			name := strings.TrimSpace(obj.Name)
			if name == "" {
				continue
			}
			confidence := defaultConfidence
			if obj.Confidence != nil {
				confidence = clampConfidence(*obj.Confidence)
			}
			result.Objects = append(result.Objects, model.DetectedObject{
				Name:       name,
				Confidence: confidence,
			})
		}
		return result, nil
	}

	// Some models answer with a bare name array.
	var names []string
	if err := json.Unmarshal(payload.Objects, &names); err != nil {
		return nil, fmt.Errorf("unrecognized objects payload: %s", payload.Objects)
	}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		result.Objects = append(result.Objects, model.DetectedObject{
			Name:       name,
			Confidence: defaultConfidence,
		})
	}
	return result, nil
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// sanitizeModelJSON removes code fences, comments, and trailing commas, then
// keeps only the outermost JSON object.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = blockCommentRe.ReplaceAllString(raw, "")
	raw = lineCommentRe.ReplaceAllString(raw, "")
	raw = trailingCommaRe.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
