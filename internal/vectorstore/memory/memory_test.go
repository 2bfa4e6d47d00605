package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airrag/internal/domain"
)

func chunks(texts ...string) []domain.Chunk {
	out := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		out[i] = domain.Chunk{Text: t, Index: i}
	}
	return out
}

func TestStorage_InitRejectsZeroDimension(t *testing.T) {
	require.Error(t, NewStorage().Init(context.Background(), 0))
}

func TestStorage_UpsertDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.ErrorIs(t, s.Upsert(ctx, chunks("a"), [][]float64{{1, 0, 0}}), ErrDimension)
	require.Error(t, s.Upsert(ctx, chunks("a", "b"), [][]float64{{1, 0}}))
	assert.Zero(t, s.Len())
}

func TestStorage_SearchRanksDescendingWithStableTies(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, chunks("a", "b", "c", "d"), [][]float64{
		{0, 1}, {1, 0}, {0, 1}, {1, 0},
	}))

	res, err := s.Search(ctx, []float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "b", res[0].Chunk.Text)
	assert.Equal(t, "d", res[1].Chunk.Text)
	assert.Equal(t, "a", res[2].Chunk.Text)
	assert.Zero(t, res[2].Score)
}

func TestStorage_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, chunks("a"), [][]float64{{1}}))
	require.NoError(t, s.Clear(ctx))
	assert.Zero(t, s.Len())
}

func TestStorage_InitDropsEntries(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, chunks("a", "b"), [][]float64{{1}, {0.5}}))
	require.NoError(t, s.Init(ctx, 1))
	res, err := s.Search(ctx, []float64{1}, 0)
	require.NoError(t, err)
	assert.Empty(t, res)
}
