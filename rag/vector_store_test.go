package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInMemoryVectorStoreQueryOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryVectorStore(zap.NewNop())

	err := store.Add(ctx, []Chunk{
		{ID: "x", Text: "points along x", Embedding: []float64{1, 0}},
		{ID: "y", Text: "points along y", Embedding: []float64{0, 1}},
		{ID: "xy", Text: "diagonal", Embedding: []float64{0.7071, 0.7071}},
	})
	require.NoError(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	matches, err := store.Query(ctx, []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "x", matches[0].Chunk.ID)
	assert.Equal(t, "xy", matches[1].Chunk.ID)
	assert.InDelta(t, 0.0, matches[0].Distance, 1e-9)
	assert.Less(t, matches[0].Distance, matches[1].Distance)
}

func TestInMemoryVectorStoreRejectsMissingEmbedding(t *testing.T) {
	store := NewInMemoryVectorStore(zap.NewNop())
	err := store.Add(context.Background(), []Chunk{{ID: "bad", Text: "no vector"}})
	assert.Error(t, err)
}

func TestInMemoryVectorStoreEmptyQuery(t *testing.T) {
	store := NewInMemoryVectorStore(zap.NewNop())
	matches, err := store.Query(context.Background(), []float64{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
