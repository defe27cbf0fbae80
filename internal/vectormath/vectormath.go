// Package vectormath holds the small pure-math pieces of the retrieval
// pipeline.
package vectormath

import "math"

// CosineSimilarity returns the normalized dot product of two vectors in
// [-1, 1]. It never fails: empty vectors, mismatched lengths, and zero
// magnitudes all yield 0.0 so a malformed embedding simply ranks as a
// non-match.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) != len(b) {
		return 0.0
	}

	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}

	magA = math.Sqrt(magA)
	magB = math.Sqrt(magB)
	if magA == 0 || magB == 0 {
		return 0.0
	}

	sim := dot / (magA * magB)
	if math.IsNaN(sim) || math.IsInf(sim, 0) {
		return 0.0
	}
	return sim
}
