// Package confidence provides score math utilities shared by the cost model.
package confidence

// Clamp ensures a score is in the valid range [0, 1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// WeightedSum combines scores with fixed weights. The caller is responsible
// for clamping when the weights can exceed 1 in total.
func WeightedSum(scores []float64, weights []float64) float64 {
	if len(scores) != len(weights) {
		return 0
	}
	var sum float64
	for i, s := range scores {
		sum += s * weights[i]
	}
	return sum
}

// FromRisk converts a bounded risk score into a confidence score.
func FromRisk(risk float64) float64 {
	return Clamp(1 - risk)
}

// AboveThreshold checks if a score meets a minimum requirement.
func AboveThreshold(score, threshold float64) bool {
	return score >= threshold
}

// Reference confidence levels.
const (
	HighConfidence   = 0.95
	MediumConfidence = 0.80
	LowConfidence    = 0.60
)
