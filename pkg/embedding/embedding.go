// Package embedding provides dense text vectors through a pluggable
// Embedder, plus the pooled-statistics feature extractor built on top.
// Vectors are float32 end to end; similarity math accumulates in float64.
package embedding

import (
	"context"
	"math"
)

// Embedder turns text into a dense vector. Implementations must be safe for
// concurrent use; one extractor is shared across estimation calls.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	ModelID() string
	Close() error
}

// Cosine is the cosine similarity of two vectors. Norms carry a small
// epsilon so the zero vector yields 0 instead of NaN. Mismatched lengths
// compare over the shorter prefix.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	const eps = 1e-8
	return dot / ((math.Sqrt(normA) + eps) * (math.Sqrt(normB) + eps))
}
