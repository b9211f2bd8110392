package rerank

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalProviderOrdersByOverlap(t *testing.T) {
	p := NewLocalProvider()
	docs := []string{
		"nothing relevant here",
		"the capital of france is paris",
		"france has a capital",
	}

	results, err := p.Rerank(context.Background(), "capital of france", docs, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, 1, results[0].Index)
	assert.Equal(t, "the capital of france is paris", results[0].Text)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.GreaterOrEqual(t, results[1].Score, results[2].Score)
}

func TestLocalProviderTopN(t *testing.T) {
	p := NewLocalProvider()
	results, err := p.Rerank(context.Background(), "q", []string{"q one", "q two", "q three"}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestLocalProviderEmptyDocuments(t *testing.T) {
	p := NewLocalProvider()
	results, err := p.Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestJinaProviderRerank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "Bearer jina-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"results": [
				{"index": 2, "relevance_score": 0.95},
				{"index": 0, "relevance_score": 0.40},
				{"index": 9, "relevance_score": 0.30}
			]
		}`))
	}))
	defer srv.Close()

	p := NewJinaProvider(JinaConfig{APIKey: "jina-test", BaseURL: srv.URL})
	results, err := p.Rerank(context.Background(), "q", []string{"a", "b", "c"}, 3)
	require.NoError(t, err)

	// The out-of-range index 9 is dropped.
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].Text)
	assert.InDelta(t, 0.95, results[0].Score, 1e-9)
	assert.Equal(t, "a", results[1].Text)
}

func TestJinaProviderUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewJinaProvider(JinaConfig{APIKey: "jina-test", BaseURL: srv.URL})
	_, err := p.Rerank(context.Background(), "q", []string{"a"}, 1)
	assert.Error(t, err)
}
