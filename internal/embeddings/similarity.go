package embeddings

import (
	"fmt"
	"math"
)

// CosineSimilarity returns a value in [-1, 1]; 1 means identical direction.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have same length: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("vector norm cannot be zero")
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// floating point drift
	return math.Max(-1, math.Min(1, sim)), nil
}

// Blend combines a keyword score and a semantic score. When the prompt has
// no embedding only the keyword score counts.
func Blend(keyword, semantic float64, hasSemantic bool, keywordWeight, semanticWeight float64) float64 {
	if !hasSemantic {
		return keyword
	}
	return keyword*keywordWeight + semantic*semanticWeight
}
