package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mapSearcher returns canned candidates keyed by exact query.
type mapSearcher struct {
	results map[string][]ScoredCandidate
	queries []string
}

func (m *mapSearcher) SearchWeighted(_ context.Context, question string, _, _ float64, _ int) ([]ScoredCandidate, error) {
	m.queries = append(m.queries, question)
	return m.results[question], nil
}

func TestMultiHopChainsEntities(t *testing.T) {
	searcher := &mapSearcher{results: map[string][]ScoredCandidate{
		"who mentored the physicist?": {
			{Text: "the physicist Marie Curie worked in Paris", Score: 1.0},
		},
		"Marie Curie Paris": {
			{Text: "Paris hosted the Sorbonne laboratory", Score: 0.9},
		},
		"Paris Sorbonne": {
			{Text: "a plain lowercase chunk", Score: 0.5},
		},
	}}

	retriever := NewMultiHopRetriever(DefaultMultiHopConfig(), searcher, zap.NewNop())
	result, err := retriever.Retrieve(context.Background(), "who mentored the physicist?", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, result.HopsPerformed)
	assert.Equal(t, 3, result.TotalChunks)
	require.Len(t, result.Chain, 3)

	// Hop 2's query is the first entities of hop 1 joined by spaces.
	assert.Equal(t, "Marie Curie Paris", result.Chain[1].Query)
	assert.Equal(t, "Paris Sorbonne", result.Chain[2].Query)
	assert.Equal(t,
		"Hop 1: Found 1 chunks, extracted 2 entities | Hop 2: Found 1 chunks, extracted 2 entities | Hop 3: Found 1 chunks, extracted 0 entities",
		result.Summary)
}

func TestMultiHopStopsWithoutEntities(t *testing.T) {
	searcher := &mapSearcher{results: map[string][]ScoredCandidate{
		"start": {{Text: "all lowercase, no proper nouns", Score: 1.0}},
	}}

	retriever := NewMultiHopRetriever(DefaultMultiHopConfig(), searcher, zap.NewNop())
	result, err := retriever.Retrieve(context.Background(), "start", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, result.HopsPerformed)
	assert.Equal(t, 1, result.TotalChunks)
	assert.Len(t, searcher.queries, 1)
}

func TestMultiHopDeduplicatesChunks(t *testing.T) {
	shared := ScoredCandidate{Text: "Shared Fact about Rome", Score: 1.0}
	searcher := &mapSearcher{results: map[string][]ScoredCandidate{
		"q":                      {shared},
		"Shared Fact Rome":       {shared},
		"Shared Fact Rome again": nil,
	}}

	retriever := NewMultiHopRetriever(DefaultMultiHopConfig(), searcher, zap.NewNop())
	result, err := retriever.Retrieve(context.Background(), "q", 2)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TotalChunks)
	assert.Equal(t, []string{"Shared Fact about Rome"}, result.AllChunks)
	assert.Equal(t, 2, result.HopsPerformed)
}

func TestMultiHopRespectsCap(t *testing.T) {
	searcher := &mapSearcher{results: map[string][]ScoredCandidate{}}
	loop := []ScoredCandidate{{Text: "Endless Entity", Score: 1.0}}
	searcher.results["seed"] = loop
	searcher.results["Endless Entity"] = loop

	retriever := NewMultiHopRetriever(MultiHopConfig{MaxHops: 2, ChunksPerHop: 3}, searcher, zap.NewNop())
	result, err := retriever.Retrieve(context.Background(), "seed", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.HopsPerformed)
}
