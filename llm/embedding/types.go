// Package embedding provides a uniform embedding provider interface with an
// HTTP OpenAI implementation and a deterministic local implementation for
// keyless operation and tests. All providers return unit-normalized vectors
// so cosine similarity reduces to a dot product downstream.
package embedding

import "context"

// Provider turns text into fixed-dimension unit-normalized vectors. Corpus
// and query embeddings must come from the same provider instance so their
// dimensionalities match.
type Provider interface {
	// Embed generates embeddings for the given inputs, one vector per input,
	// in input order.
	Embed(ctx context.Context, inputs []string) ([][]float64, error)

	// EmbedQuery is a convenience method for a single query string.
	EmbedQuery(ctx context.Context, query string) ([]float64, error)

	Name() string
	Dimensions() int
}
