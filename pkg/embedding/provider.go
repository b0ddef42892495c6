package embedding

import (
	"context"
	"math"
	"time"

	"pdfchat-be/pkg/llm"
)

// EmbeddingProvider defines the interface for generating text embeddings.
// Model identifies the vector space; an index and its queries must share it.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// normalizeVector normalizes a vector to unit length (magnitude = 1)
// so cosine similarity reduces to a dot product
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	// Avoid division by zero
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}

// NormalizeVector is exported for adapters living in sub-packages.
func NormalizeVector(vec []float32) []float32 {
	return normalizeVector(vec)
}

type retryingProvider struct {
	next        EmbeddingProvider
	maxAttempts uint
	initial     time.Duration
}

// WithRetry retries failed Embed calls with exponential backoff.
func WithRetry(next EmbeddingProvider, maxAttempts int, initialInterval time.Duration) EmbeddingProvider {
	if maxAttempts <= 1 {
		return next
	}
	if initialInterval <= 0 {
		initialInterval = 500 * time.Millisecond
	}
	return &retryingProvider{next: next, maxAttempts: uint(maxAttempts), initial: initialInterval}
}

func (r *retryingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return llm.Retry(ctx, r.maxAttempts, r.initial, func() ([]float32, error) {
		return r.next.Embed(ctx, text)
	})
}

func (r *retryingProvider) Model() string {
	return r.next.Model()
}
