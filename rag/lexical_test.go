package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"hello", "world"}, Tokenize("Hello   WORLD"))
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   "))
}

func TestLexicalIndexSearch(t *testing.T) {
	ix := NewLexicalIndex(DefaultLexicalIndexConfig(), zap.NewNop())
	ix.Index([]string{
		"the quick brown fox",
		"the lazy dog sleeps",
		"a fox and a dog",
	})
	require.Equal(t, 3, ix.Size())

	results := ix.Search("fox", 10)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Greater(t, r.Score, 0.0)
		assert.Contains(t, r.Text, "fox")
	}
}

func TestLexicalIndexRareTermRanksHigher(t *testing.T) {
	ix := NewLexicalIndex(DefaultLexicalIndexConfig(), zap.NewNop())
	ix.Index([]string{
		"common common common rare",
		"common common common",
		"common common",
	})

	results := ix.Search("rare", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "common common common rare", results[0].Text)
}

func TestLexicalIndexNoMatches(t *testing.T) {
	ix := NewLexicalIndex(DefaultLexicalIndexConfig(), zap.NewNop())
	ix.Index([]string{"alpha beta", "gamma delta"})

	assert.Empty(t, ix.Search("zeta", 10))
	assert.Empty(t, ix.Search("", 10))
}

func TestLexicalIndexEmpty(t *testing.T) {
	ix := NewLexicalIndex(DefaultLexicalIndexConfig(), zap.NewNop())
	assert.Equal(t, 0, ix.Size())
	assert.Empty(t, ix.Search("anything", 5))
}

func TestLexicalIndexTopKTruncation(t *testing.T) {
	ix := NewLexicalIndex(DefaultLexicalIndexConfig(), zap.NewNop())
	ix.Index([]string{
		"term one", "term two", "term three", "term four", "term five",
	})
	results := ix.Search("term", 2)
	assert.Len(t, results, 2)
}

func TestLexicalIndexReindexReplaces(t *testing.T) {
	ix := NewLexicalIndex(DefaultLexicalIndexConfig(), zap.NewNop())
	ix.Index([]string{"old corpus text"})
	ix.Index([]string{"new words", "entirely different"})

	assert.Equal(t, 2, ix.Size())
	assert.Empty(t, ix.Search("corpus", 5))
	assert.Len(t, ix.Search("words", 5), 1)
}
