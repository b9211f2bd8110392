package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vijayvaraprasad/rag-qa-system/llm/embedding"
)

func newTestPipeline(t *testing.T, provider *scriptedProvider, cache AnswerCache) *Pipeline {
	t.Helper()
	ctx := context.Background()

	embedder := embedding.NewLocalProvider(0)
	store := NewInMemoryVectorStore(zap.NewNop())
	lexical := NewLexicalIndex(DefaultLexicalIndexConfig(), zap.NewNop())

	texts := []string{
		"Paris is the capital of France and its largest city",
		"Berlin is the capital of Germany",
		"Madrid is the capital of Spain",
	}
	vectors, err := embedder.Embed(ctx, texts)
	require.NoError(t, err)
	chunks := make([]Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = Chunk{ID: text, Text: text, Embedding: vectors[i]}
	}
	require.NoError(t, store.Add(ctx, chunks))
	lexical.Index(texts)

	searcher := NewHybridSearcher(DefaultHybridConfig(), store, embedder, lexical, zap.NewNop())
	verifier := NewVerifier(DefaultVerifierConfig(), provider, zap.NewNop())
	selector := NewThresholdSelector(DefaultThresholdSelectorConfig(), nil, nil, zap.NewNop())

	cfg := DefaultPipelineConfig()
	cfg.UseExpansion = false
	cfg.UseRerank = false
	cfg.UseRefinement = false

	return NewPipeline(cfg, PipelineDeps{
		Provider: provider,
		Searcher: searcher,
		Selector: selector,
		Verifier: verifier,
		Cache:    cache,
	}, DefaultRefinerConfig(), zap.NewNop())
}

func TestPipelineAskSimpleQuestion(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Paris",
		"GROUNDED: yes\nCONFIDENCE: 0.95\nREASONING: stated directly",
	}}
	p := newTestPipeline(t, provider, nil)

	answer, err := p.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, "Paris", answer.Answer)
	assert.Equal(t, ComplexitySimple, answer.Complexity)
	assert.True(t, answer.Grounded)
	assert.InDelta(t, 0.95, answer.Confidence, 1e-9)
	assert.Equal(t, "hybrid", answer.Method)
	assert.False(t, answer.FromCache)
	assert.NotEmpty(t, answer.Chunks)

	// Generation prompt carries the retrieved context.
	require.NotEmpty(t, provider.prompts)
	assert.Contains(t, provider.prompts[0], "Paris is the capital of France")
	assert.Contains(t, provider.prompts[0], "ONLY using the context")
}

func TestPipelineRejectsEmptyQuestion(t *testing.T) {
	p := newTestPipeline(t, &scriptedProvider{}, nil)
	_, err := p.Ask(context.Background(), "   ")
	assert.Error(t, err)
}

type mapCache struct {
	answers map[string]*Answer
	sets    int
}

func (m *mapCache) Get(_ context.Context, question string) (*Answer, bool) {
	a, ok := m.answers[question]
	return a, ok
}

func (m *mapCache) Set(_ context.Context, question string, answer *Answer) {
	m.sets++
	m.answers[question] = answer
}

func TestPipelineCacheRoundTrip(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Paris",
		"GROUNDED: yes\nCONFIDENCE: 0.95\nREASONING: stated directly",
	}}
	cache := &mapCache{answers: map[string]*Answer{}}
	p := newTestPipeline(t, provider, cache)

	first, err := p.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, 1, cache.sets)

	callsAfterFirst := provider.calls
	second, err := p.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Answer, second.Answer)
	assert.Equal(t, callsAfterFirst, provider.calls)
}

func TestPipelineUngroundedNotCached(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"made up claim",
		"GROUNDED: no\nCONFIDENCE: 0.2\nREASONING: not in context",
	}}
	cache := &mapCache{answers: map[string]*Answer{}}
	p := newTestPipeline(t, provider, cache)

	answer, err := p.Ask(context.Background(), "What is the capital of Atlantis?")
	require.NoError(t, err)
	assert.False(t, answer.Grounded)
	assert.Equal(t, 0, cache.sets)
	assert.NotEqual(t, "made up claim", answer.Answer)
}

func TestPipelineEmptyRetrievalSkipsGeneration(t *testing.T) {
	embedder := embedding.NewLocalProvider(0)
	store := NewInMemoryVectorStore(zap.NewNop())
	lexical := NewLexicalIndex(DefaultLexicalIndexConfig(), zap.NewNop())
	searcher := NewHybridSearcher(DefaultHybridConfig(), store, embedder, lexical, zap.NewNop())

	provider := &scriptedProvider{replies: []string{"should never be used"}}
	cfg := DefaultPipelineConfig()
	cfg.UseExpansion = false
	cfg.UseRerank = false
	cfg.UseRefinement = false

	p := NewPipeline(cfg, PipelineDeps{
		Provider: provider,
		Searcher: searcher,
	}, DefaultRefinerConfig(), zap.NewNop())

	answer, err := p.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.False(t, answer.Grounded)
	assert.Zero(t, answer.Confidence)
	assert.Empty(t, answer.Chunks)
	assert.Contains(t, answer.Answer, "No relevant documents")
	assert.Equal(t, 0, provider.calls)
}

func TestPipelineCompressionShrinksContext(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"Paris",
		"GROUNDED: yes\nCONFIDENCE: 0.9\nREASONING: supported",
	}}
	p := newTestPipeline(t, provider, nil)

	// The compressor keeps one chunk and empties the rest.
	compProvider := &scriptedProvider{replies: []string{"Paris is the capital of France", ""}}
	p.cfg.UseCompression = true
	p.compressor = NewContextCompressor(DefaultCompressorConfig(), compProvider, zap.NewNop())

	answer, err := p.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris is the capital of France"}, answer.Chunks)

	// The generator only sees the compressed context.
	require.NotEmpty(t, provider.prompts)
	assert.NotContains(t, provider.prompts[0], "Berlin")
}

func TestPipelineMultiHopUsesConfiguredHops(t *testing.T) {
	loop := []ScoredCandidate{{Text: "Endless Entity keeps the chain alive", Score: 1.0}}
	searcher := &mapSearcher{results: map[string][]ScoredCandidate{
		"Explain the Endless Entity": loop,
		"Endless Entity":             loop,
	}}
	multiHop := NewMultiHopRetriever(DefaultMultiHopConfig(), searcher, zap.NewNop())

	provider := &scriptedProvider{replies: []string{"an answer"}}
	cfg := DefaultPipelineConfig()
	cfg.UseExpansion = false
	cfg.UseRerank = false
	cfg.UseRefinement = false
	cfg.MaxHops = 2

	p := NewPipeline(cfg, PipelineDeps{
		Provider: provider,
		MultiHop: multiHop,
	}, DefaultRefinerConfig(), zap.NewNop())

	answer, err := p.Ask(context.Background(), "Explain the Endless Entity")
	require.NoError(t, err)
	assert.Equal(t, "multi_hop", answer.Method)
	assert.Len(t, searcher.queries, 2)
}

func TestPipelineRefinementRecovers(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"vague answer",
		"GROUNDED: no\nCONFIDENCE: 0.3\nREASONING: too vague",
		// Refinement iteration 1: rewrite happens after verify, so the
		// next call is generation against refreshed retrieval.
		"Paris is the capital",
		"GROUNDED: yes\nCONFIDENCE: 0.9\nREASONING: supported",
	}}

	p := newTestPipeline(t, provider, nil)
	p.cfg.UseRefinement = true

	answer, err := p.Ask(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.True(t, answer.Grounded)
	assert.True(t, answer.Converged)
	assert.Equal(t, "hybrid+refined", answer.Method)
	assert.Equal(t, "Paris is the capital", answer.Answer)
}
