package domain

import (
	"context"
	"fmt"
	"math"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the query vector and whatever usage the provider reports.
type EmbeddingResult struct {
	Embedding    []float32
	Model        string
	PromptTokens int
}

// Dim returns the vector dimensionality.
func (r EmbeddingResult) Dim() int { return len(r.Embedding) }

// ValidateVector rejects vectors the vector store cannot be queried with.
func ValidateVector(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("empty embedding vector: %w", ErrEmbeddingService)
	}
	for i, f := range v {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("non-finite value at index %d: %w", i, ErrEmbeddingService)
		}
	}
	return nil
}
