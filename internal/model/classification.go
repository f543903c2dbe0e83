package model

import "time"

// LabelSource indicates how a label ended up on a photo.
type LabelSource string

// Label source constants.
const (
	SourceManual LabelSource = "MANUAL"
	SourceAI     LabelSource = "AI"
	SourceImport LabelSource = "IMPORT"
)

// ClassificationResult is the scorer's verdict for one photo. A photo has at
// most one result; rescoring overwrites it in place.
type ClassificationResult struct {
	ComputedAt time.Time
	PhotoID    string
	AssetID    string
	Reasoning  string
	Labels     []string // distinct label names that contributed, vocabulary order
	Score      float64
}

// DetectedObject is a single object the external detector reported.
type DetectedObject struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// DetectionResult is what an external detector produced for one image. The
// scorer never consumes this directly; callers turn it into a label-count
// snapshot and apply whatever confidence filtering they want first.
type DetectionResult struct {
	Model       string           `json:"model"`
	Description string           `json:"description,omitempty"`
	Objects     []DetectedObject `json:"objects"`
}

// Counts collapses the detection into a label-count snapshot, keeping only
// objects at or above the confidence floor.
func (d *DetectionResult) Counts(minConfidence float64) map[string]int {
	counts := make(map[string]int, len(d.Objects))
	for _, obj := range d.Objects {
		if obj.Confidence < minConfidence {
			continue
		}
		counts[NormalizeLabelName(obj.Name)]++
	}
	return counts
}
