package domain

import "math"

// CosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 for mismatched lengths or zero-magnitude vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ClampScore clamps a similarity score to [0,1]. Cosine similarity can drift
// fractionally outside the range due to floating-point error.
func ClampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
