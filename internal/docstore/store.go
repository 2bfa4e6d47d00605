// Package docstore holds the chunks of the most recently uploaded document
// and answers relevance queries over them.
package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"airrag/internal/domain"
	"airrag/internal/embedding/tfidf"
)

const DefaultTopK = 3

// Options tunes search behaviour.
type Options struct {
	TopK int
	// SummarizeKeywords are queries that return every chunk in order
	// instead of a ranked selection.
	SummarizeKeywords []string
	// NewEmbedder builds the embedder for each upload. Nil selects TF-IDF.
	NewEmbedder func() domain.Embedder
}

// Store is replaced wholesale on every upload. Readers never see a
// half-indexed document.
type Store struct {
	mu       sync.RWMutex
	chunks   []domain.Chunk
	embedder domain.Embedder
	vectors  [][]float64
	index    domain.VectorStore
	newEmb   func() domain.Embedder

	topK      int
	summarize map[string]struct{}
	log       *zap.Logger
}

func New(index domain.VectorStore, opts Options, log *zap.Logger) *Store {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if log == nil {
		log = zap.NewNop()
	}
	kw := map[string]struct{}{"summarize": {}}
	for _, k := range opts.SummarizeKeywords {
		kw[normalize(k)] = struct{}{}
	}
	newEmb := opts.NewEmbedder
	if newEmb == nil {
		newEmb = func() domain.Embedder { return tfidf.NewEmbedder() }
	}
	return &Store{index: index, newEmb: newEmb, topK: opts.TopK, summarize: kw, log: log}
}

// Replace discards the previous chunk set and indexes chunks in its place.
// When the index cannot be rebuilt the previous chunk set stays in place
// and the error is returned.
func (s *Store) Replace(ctx context.Context, chunks []domain.Chunk) error {
	next := append([]domain.Chunk(nil), chunks...)
	emb, vectors := s.embed(next)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rebuild(ctx, next, emb, vectors); err != nil {
		s.restore(ctx)
		return err
	}
	s.chunks, s.embedder, s.vectors = next, emb, vectors
	if emb != nil {
		s.log.Debug("document indexed", zap.Int("chunks", len(next)), zap.String("embedder", emb.Name()), zap.Int("dimension", emb.Dimension()))
	}
	return nil
}

// embed returns a nil embedder when chunks cannot be ranked; search then
// falls back to document order.
func (s *Store) embed(chunks []domain.Chunk) (domain.Embedder, [][]float64) {
	if len(chunks) == 0 {
		return nil, nil
	}
	corpus := texts(chunks)
	emb := s.newEmb()
	if err := emb.Prepare(corpus); err != nil {
		s.log.Debug("document has no indexable terms", zap.Error(err))
		return nil, nil
	}
	vectors := make([][]float64, len(corpus))
	for i, t := range corpus {
		vec, err := emb.Embed(t)
		if err != nil {
			s.log.Warn("embedding failed", zap.String("embedder", emb.Name()), zap.Int("chunk", i), zap.Error(err))
			return nil, nil
		}
		vectors[i] = vec
	}
	return emb, vectors
}

func (s *Store) rebuild(ctx context.Context, chunks []domain.Chunk, emb domain.Embedder, vectors [][]float64) error {
	if err := s.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	if emb == nil {
		return nil
	}
	if err := s.index.Init(ctx, emb.Dimension()); err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	if err := s.index.Upsert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}
	return nil
}

// restore puts the current chunk set back into the index after a failed
// rebuild. If that fails too, ranking is dropped until the next upload.
// Caller holds mu.
func (s *Store) restore(ctx context.Context) {
	if s.embedder == nil {
		return
	}
	if err := s.rebuild(ctx, s.chunks, s.embedder, s.vectors); err != nil {
		s.log.Warn("index restore failed, search falls back to document order", zap.Error(err))
		s.embedder, s.vectors = nil, nil
	}
}

// Clear empties the store.
func (s *Store) Clear(ctx context.Context) error {
	return s.Replace(ctx, nil)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *Store) Empty() bool { return s.Len() == 0 }

// Chunks returns a copy of the current chunk set in document order.
func (s *Store) Chunks() []domain.Chunk {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Chunk(nil), s.chunks...)
}

// Texts returns every chunk text in document order.
func (s *Store) Texts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return texts(s.chunks)
}

// Search returns the texts most relevant to query, best first. A summarize
// keyword returns every chunk in document order. Ranking is positional, so
// chunks with a zero score still fill the result when nothing better exists.
func (s *Store) Search(ctx context.Context, query string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, nil
	}
	if _, ok := s.summarize[normalize(query)]; ok {
		return texts(s.chunks), nil
	}
	k := s.topK
	if k > len(s.chunks) {
		k = len(s.chunks)
	}
	if s.embedder == nil {
		return texts(s.chunks[:k]), nil
	}
	vec, err := s.embedder.Embed(query)
	if err != nil {
		s.log.Warn("query embedding failed", zap.Error(err))
		return texts(s.chunks[:k]), nil
	}
	if isZero(vec) {
		return texts(s.chunks[:k]), nil
	}
	res, err := s.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	sort.SliceStable(res, func(i, j int) bool {
		if res[i].Score != res[j].Score {
			return res[i].Score > res[j].Score
		}
		return res[i].Chunk.Index < res[j].Chunk.Index
	})
	out := make([]string, len(res))
	for i, r := range res {
		out[i] = r.Chunk.Text
	}
	return out, nil
}

func normalize(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func texts(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

func isZero(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
