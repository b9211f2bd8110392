// Package rerank provides a uniform cross-encoder reranking interface with an
// HTTP implementation (Jina) and a lexical local fallback. Scores are used
// only to select the top N candidates, never as calibrated probabilities.
package rerank

import "context"

// Result is a single reranked document.
type Result struct {
	// Index is the document's position in the input slice.
	Index int `json:"index"`
	// Score is the relevance score; higher means more relevant. Scores are
	// comparable only within one Rerank call.
	Score float64 `json:"score"`
	Text  string  `json:"text,omitempty"`
}

// Provider scores (query, document) pairs and returns the topN most relevant
// documents in descending score order. Empty input yields empty output.
type Provider interface {
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error)
	Name() string
}
