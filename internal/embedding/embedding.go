// Package embedding provides the semantic-similarity capability used by the
// scorer: text embedding providers and the cosine similarity primitive.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// Vector is a fixed-size embedding produced by an Embedder.
type Vector []float32

// Embedder turns text into comparable vectors. Implementations must be safe
// for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// ErrUnavailable marks failures of the embedding backend itself (network,
// quota, timeout, malformed response) as opposed to caller mistakes.
var ErrUnavailable = errors.New("embedding capability unavailable")

// UnavailableError carries the provider and the underlying cause of an
// unavailable backend. errors.Is(err, ErrUnavailable) reports true for it.
type UnavailableError struct {
	Provider string
	Err      error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s embeddings unavailable: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s embeddings unavailable", e.Provider)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func unavailable(provider string, err error) error {
	return &UnavailableError{Provider: provider, Err: err}
}

// Cosine computes cosine similarity between two vectors.
// Returns 0 for zero-length, zero-norm or mismatched vectors.
func Cosine(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
