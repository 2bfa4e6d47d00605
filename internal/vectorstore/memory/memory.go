// Package memory is the default chunk index: a process-local brute-force
// vector search.
package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"airrag/internal/domain"
)

const defaultTopK = 5

var ErrDimension = errors.New("memory: vector dimension mismatch")

type entry struct {
	chunk  domain.Chunk
	vector []float64
}

// Storage expects unit-length vectors; scores are plain dot products.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	entries   []entry
}

func NewStorage() *Storage { return &Storage{} }

// Init sets the dimension and drops everything indexed so far.
func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("memory: invalid dimension %d", dimension)
	}
	s.mu.Lock()
	s.dimension = dimension
	s.entries = nil
	s.mu.Unlock()
	return nil
}

func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("memory: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := make([]entry, len(chunks))
	for i, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("%w: got %d, want %d", ErrDimension, len(v), s.dimension)
		}
		batch[i] = entry{chunk: chunks[i], vector: v}
	}
	s.entries = append(s.entries, batch...)
	return nil
}

// Search returns the topK entries by descending score. Ties keep insertion
// order, and zero-score entries fill the tail when few chunks match.
func (s *Storage) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	s.mu.RLock()
	results := make([]domain.SearchResult, len(s.entries))
	for i, e := range s.entries {
		results[i] = domain.SearchResult{Chunk: e.chunk, Score: dot(e.vector, vector)}
	}
	s.mu.RUnlock()

	slices.SortStableFunc(results, func(a, b domain.SearchResult) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return results[:min(topK, len(results))], nil
}

func (s *Storage) Clear(_ context.Context) error {
	s.mu.Lock()
	s.entries = nil
	s.mu.Unlock()
	return nil
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range min(len(a), len(b)) {
		sum += a[i] * b[i]
	}
	return sum
}
