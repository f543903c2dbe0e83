package model

import "testing"

func TestDetectionResult_Counts(t *testing.T) {
	tests := []struct {
		name          string
		want          map[string]int
		detection     DetectionResult
		minConfidence float64
	}{
		{
			name:      "empty detection",
			detection: DetectionResult{},
			want:      map[string]int{},
		},
		{
			name: "all objects pass",
			detection: DetectionResult{
				Objects: []DetectedObject{
					{Name: "pakke", Confidence: 0.9},
					{Name: "postkasse", Confidence: 0.8},
					{Name: "pakke", Confidence: 0.7},
				},
			},
			minConfidence: 0.5,
			want:          map[string]int{"pakke": 2, "postkasse": 1},
		},
		{
			name: "low confidence objects dropped",
			detection: DetectionResult{
				Objects: []DetectedObject{
					{Name: "pakke", Confidence: 0.9},
					{Name: "etikett", Confidence: 0.2},
				},
			},
			minConfidence: 0.5,
			want:          map[string]int{"pakke": 1},
		},
		{
			name: "boundary confidence kept",
			detection: DetectionResult{
				Objects: []DetectedObject{
					{Name: "postkasseskilt", Confidence: 0.5},
				},
			},
			minConfidence: 0.5,
			want:          map[string]int{"postkasseskilt": 1},
		},
		{
			name: "names normalized before counting",
			detection: DetectionResult{
				Objects: []DetectedObject{
					{Name: "Pakke", Confidence: 0.9},
					{Name: " pakke ", Confidence: 0.9},
				},
			},
			want: map[string]int{"pakke": 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.detection.Counts(tt.minConfidence)
			if len(got) != len(tt.want) {
				t.Fatalf("Counts(%.1f) returned %d entries, want %d",
					tt.minConfidence, len(got), len(tt.want))
			}
			for name, count := range tt.want {
				if got[name] != count {
					t.Errorf("Counts(%.1f)[%q] = %d, want %d",
						tt.minConfidence, name, got[name], count)
				}
			}
		})
	}
}
