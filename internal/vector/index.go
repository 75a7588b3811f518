// Package vector provides exact inner-product vector indexes addressed by ordinal.
package vector

import (
	"context"
	"errors"
)

// ErrDimensionMismatch is returned when a vector's dimension differs from the
// index dimension, either within one Add batch or for a query vector.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index stores dense vectors at contiguous 0-based ordinals and answers
// top-k inner-product queries. Ordinals are assigned at append time in order
// and never reused. Implementations are safe for concurrent use, but a fully
// built index is expected to be immutable: rebuilds construct a new instance.
type Index interface {
	// Add appends vectors at the next contiguous ordinals. The dimension of
	// the first added batch fixes the index dimension; any later vector of a
	// different dimension fails with ErrDimensionMismatch and nothing from
	// that call is appended.
	Add(ctx context.Context, vectors [][]float32) error
	// Search returns up to k (ordinal, score) pairs sorted by descending
	// score, ties broken by ascending ordinal. An index with fewer than k
	// entries returns all of them; an empty index returns an empty slice.
	Search(ctx context.Context, query []float32, k int) ([]Result, error)
	// Size returns the number of stored vectors.
	Size() int
	// Dimension returns the fixed dimension, or 0 before the first Add.
	Dimension() int
	// Type returns the index type identifier.
	Type() string
	Close() error
}

// Result is a single vector search hit.
type Result struct {
	Ordinal int
	Score   float64 // inner product; equals cosine similarity for unit-norm vectors
}
