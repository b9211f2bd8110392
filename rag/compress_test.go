package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCompressExtractsRelevantSentences(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"It provides light and heat."}}
	c := NewContextCompressor(DefaultCompressorConfig(), provider, zap.NewNop())

	passage := "The sun is a star. It provides light and heat. Birds sing when the sun rises."
	out := c.Compress(context.Background(), "Does the sun provide light?", passage)
	assert.Equal(t, "It provides light and heat.", out)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "Does the sun provide light?")
	assert.Contains(t, provider.prompts[0], passage)
}

func TestCompressFailureKeepsPassage(t *testing.T) {
	provider := &scriptedProvider{err: assert.AnError}
	c := NewContextCompressor(DefaultCompressorConfig(), provider, zap.NewNop())

	out := c.Compress(context.Background(), "q", "full passage")
	assert.Equal(t, "full passage", out)
}

func TestCompressNilProviderKeepsPassage(t *testing.T) {
	c := NewContextCompressor(DefaultCompressorConfig(), nil, zap.NewNop())
	assert.Equal(t, "full passage", c.Compress(context.Background(), "q", "full passage"))
}

func TestCompressRateLimitedKeepsPassage(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"short"}}
	cfg := DefaultCompressorConfig()
	cfg.MaxCalls = 1
	c := NewContextCompressor(cfg, provider, zap.NewNop())

	assert.Equal(t, "short", c.Compress(context.Background(), "q", "first passage"))
	// Budget exhausted: second passage passes through untouched.
	assert.Equal(t, "second passage", c.Compress(context.Background(), "q", "second passage"))
	assert.Equal(t, 1, provider.calls)
}

func TestCompressChunksDropsEmptied(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"kept sentence", ""}}
	c := NewContextCompressor(DefaultCompressorConfig(), provider, zap.NewNop())

	out := c.CompressChunks(context.Background(), "q", []string{"chunk a", "chunk b"})
	assert.Equal(t, []string{"kept sentence"}, out)
}
