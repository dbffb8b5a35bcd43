package diagnosis

import "math"

// confidenceScale rounds confidences to 4 decimal places.
const confidenceScale = 10000

// Softmax converts raw scores to probabilities. The maximum is subtracted before
// exponentiation so large scores do not overflow.
func Softmax(scores []float32) []float64 {
	if len(scores) == 0 {
		return nil
	}

	maxScore := float64(scores[0])
	for _, s := range scores[1:] {
		maxScore = math.Max(maxScore, float64(s))
	}

	probs := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		probs[i] = math.Exp(float64(s) - maxScore)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// argmax returns the index of the largest value; ties go to the lowest index.
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}

// RoundConfidence rounds p to 4 decimal places, halves away from zero.
func RoundConfidence(p float64) float64 {
	return math.Round(p*confidenceScale) / confidenceScale
}
