package model

import "time"

// Photo represents a captured or imported image in the library.
//
// AssetID is the identifier the photo source knows the image by; for
// filesystem imports it is the original file path. ID is the library's own
// stable identifier and never changes once assigned.
type Photo struct {
	CreatedAt  time.Time
	AnalyzedAt time.Time
	ID         string
	AssetID    string
	Thumbnail  []byte
	Analysis   []byte // raw detector response, kept opaque
	Analyzed   bool
}

// LabelCounts builds the label-count snapshot for a photo's label set: each
// attached label contributes exactly one occurrence. The snapshot is the sole
// input the scorer accepts, so every label mutation reduces to rebuilding it.
func LabelCounts(labels []Label) map[string]int {
	counts := make(map[string]int, len(labels))
	for _, l := range labels {
		counts[NormalizeLabelName(l.Name)]++
	}
	return counts
}
