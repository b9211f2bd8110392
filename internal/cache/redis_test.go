package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vijayvaraprasad/rag-qa-system/rag"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCache(Config{Addr: mr.Addr(), TTL: time.Minute}, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	answer := &rag.Answer{
		Question:   "what is x?",
		Answer:     "x is y",
		Confidence: 0.9,
		Grounded:   true,
	}
	c.Set(ctx, "what is x?", answer)

	got, ok := c.Get(ctx, "what is x?")
	require.True(t, ok)
	assert.Equal(t, "x is y", got.Answer)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
}

func TestCacheMiss(t *testing.T) {
	c, _ := newTestCache(t)
	_, ok := c.Get(context.Background(), "never asked")
	assert.False(t, ok)
}

func TestCacheKeyNormalization(t *testing.T) {
	assert.Equal(t, Key("What is X?"), Key("  what   is x?  "))
	assert.NotEqual(t, Key("what is x?"), Key("what is y?"))
}

func TestCacheNormalizedQuestionsShareEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t)

	c.Set(ctx, "What Is The Answer?", &rag.Answer{Answer: "42"})
	got, ok := c.Get(ctx, "what is the answer?")
	require.True(t, ok)
	assert.Equal(t, "42", got.Answer)
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	c.Set(ctx, "q", &rag.Answer{Answer: "a"})
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "q")
	assert.False(t, ok)
}

func TestCacheCorruptEntryDropped(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, mr.Set(Key("q"), "not json"))
	_, ok := c.Get(ctx, "q")
	assert.False(t, ok)
	assert.False(t, mr.Exists(Key("q")))
}

func TestCacheDownDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	mr.Close()

	c.Set(ctx, "q", &rag.Answer{Answer: "a"})
	_, ok := c.Get(ctx, "q")
	assert.False(t, ok)
}
