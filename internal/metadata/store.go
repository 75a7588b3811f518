// Package metadata provides the ordinal-addressed chunk record store that
// runs parallel to the vector index.
package metadata

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Kailramiya/AI4Chat-ai-assistant/internal/models"
)

// ErrOutOfRange is returned by Get for an ordinal that was never appended.
var ErrOutOfRange = errors.New("ordinal out of range")

// Store is an append-only list of chunk records. The ordinal assigned by
// Append is the record's position, 0-based and contiguous, and must match
// the vector index ordinal for the same chunk — the builder enforces the
// lockstep, not the store.
type Store struct {
	chunks []*models.Chunk
	mu     sync.RWMutex
}

// NewStore creates an empty metadata store.
func NewStore() *Store {
	return &Store{chunks: make([]*models.Chunk, 0)}
}

// NewStoreFromChunks creates a store over an already-ordered chunk list,
// e.g. one loaded from a persisted artifact.
func NewStoreFromChunks(chunks []*models.Chunk) *Store {
	s := &Store{chunks: make([]*models.Chunk, len(chunks))}
	copy(s.chunks, chunks)
	return s
}

// Append adds a chunk and returns its assigned ordinal.
func (s *Store) Append(chunk *models.Chunk) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
	return len(s.chunks) - 1
}

// Get returns the chunk at ordinal, or ErrOutOfRange if it was never appended.
func (s *Store) Get(ordinal int) (*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ordinal < 0 || ordinal >= len(s.chunks) {
		return nil, fmt.Errorf("%w: %d (store has %d entries)", ErrOutOfRange, ordinal, len(s.chunks))
	}
	return s.chunks[ordinal], nil
}

// Len returns the number of stored chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Chunks returns the ordered chunk list for persistence. The returned slice
// is a copy; the records themselves are shared and must not be mutated.
func (s *Store) Chunks() []*models.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Chunk, len(s.chunks))
	copy(out, s.chunks)
	return out
}
