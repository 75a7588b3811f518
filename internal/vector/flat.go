// Package vector provides an in-memory flat index using brute-force inner product search.
package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// normEpsilon is the tolerance for the optional unit-norm assertion.
const normEpsilon = 1e-3

// FlatIndex is an exhaustive dense vector store with no partitioning or
// approximation. Search is O(n*d) per query. Chosen for correctness and
// simplicity at small and medium corpus sizes; an approximate structure can
// later be substituted behind the same Index contract.
type FlatIndex struct {
	dimensions    int
	vectors       [][]float32
	validateNorms bool
	mu            sync.RWMutex
}

// FlatOption configures a FlatIndex.
type FlatOption func(*FlatIndex)

// WithNormValidation makes Add reject vectors whose L2 norm deviates from 1
// by more than a small epsilon. Unnormalized vectors make inner-product
// scores diverge from cosine similarity.
func WithNormValidation() FlatOption {
	return func(f *FlatIndex) { f.validateNorms = true }
}

// NewFlatIndex creates a flat index. dimensions may be 0, in which case the
// first added batch fixes the dimension.
func NewFlatIndex(dimensions int, opts ...FlatOption) (*FlatIndex, error) {
	if dimensions < 0 {
		return nil, fmt.Errorf("dimensions must not be negative")
	}
	f := &FlatIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Add appends vectors at the next contiguous ordinals. The whole batch is
// validated before anything is appended, so a dimension error leaves the
// index unchanged.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	dims := f.dimensions
	if dims == 0 {
		dims = len(vectors[0])
		if dims == 0 {
			return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
		}
	}
	for i, vec := range vectors {
		if len(vec) != dims {
			return fmt.Errorf("%w: vector %d has dimension %d, index expects %d", ErrDimensionMismatch, i, len(vec), dims)
		}
		if f.validateNorms {
			if n := L2Norm(vec); math.Abs(n-1) > normEpsilon {
				return fmt.Errorf("vector %d is not unit-normalized (norm %.4f)", i, n)
			}
		}
	}
	f.dimensions = dims
	for _, vec := range vectors {
		stored := make([]float32, dims)
		copy(stored, vec)
		f.vectors = append(f.vectors, stored)
	}
	return nil
}

// Search returns the top-k ordinals by inner product, descending score,
// ties broken by ascending ordinal for determinism.
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.vectors) == 0 {
		return []Result{}, nil
	}
	if len(query) != f.dimensions {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d", ErrDimensionMismatch, len(query), f.dimensions)
	}
	if k <= 0 {
		return []Result{}, nil
	}
	scores := make([]Result, len(f.vectors))
	for i, vec := range f.vectors {
		scores[i] = Result{Ordinal: i, Score: InnerProduct(query, vec)}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Ordinal < scores[j].Ordinal
	})
	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

// Size returns the number of stored vectors.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Dimension returns the fixed dimension, or 0 before the first Add.
func (f *FlatIndex) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dimensions
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
