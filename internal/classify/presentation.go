package classify

import "math"

// Percent converts a score to a whole-number percentage.
func Percent(score float64) int {
	return int(math.Round(score * 100))
}

// ConfidenceLevel maps a score to its display bucket.
func ConfidenceLevel(score float64) string {
	switch {
	case score >= 1.0:
		return "Very High"
	case score >= 0.7:
		return "High"
	case score >= 0.5:
		return "Medium"
	case score >= 0.25:
		return "Low"
	case score >= 0.1:
		return "Very Low"
	case score >= 0.05:
		return "Minimal"
	default:
		return "None"
	}
}

// RiskLevel maps a score to the delivery-likelihood wording used in reports.
func RiskLevel(score float64) string {
	switch {
	case score >= 1.0:
		return "Package Delivery Confirmed"
	case score >= 0.7:
		return "High Probability"
	case score >= 0.5:
		return "Moderate Probability"
	case score >= 0.25:
		return "Low Probability"
	default:
		return "No Package Detected"
	}
}
