package embedding

import (
	"context"
	"hash/fnv"
	"strings"
)

// LocalProvider is a deterministic bag-of-words hashing embedder. It needs no
// network or model weights, which makes it the offline/demo counterpart of
// the HTTP providers and the substrate for tests. Texts sharing vocabulary
// land in overlapping hash buckets, so cosine similarity remains meaningful
// for small corpora.
type LocalProvider struct {
	dims int
}

// NewLocalProvider creates a hashing embedder with the given dimensionality.
// dims <= 0 selects the default of 256.
func NewLocalProvider(dims int) *LocalProvider {
	if dims <= 0 {
		dims = 256
	}
	return &LocalProvider{dims: dims}
}

func (p *LocalProvider) Name() string    { return "local" }
func (p *LocalProvider) Dimensions() int { return p.dims }

func (p *LocalProvider) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vectors := make([][]float64, len(inputs))
	for i, text := range inputs {
		vectors[i] = p.embedOne(text)
	}
	return vectors, nil
}

func (p *LocalProvider) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.embedOne(query), nil
}

func (p *LocalProvider) embedOne(text string) []float64 {
	v := make([]float64, p.dims)

	tokens := strings.Fields(strings.ToLower(text))
	for i, tok := range tokens {
		v[p.bucket(tok)]++
		// Word bigrams give adjacent-word context some weight.
		if i+1 < len(tokens) {
			v[p.bucket(tok+" "+tokens[i+1])] += 0.5
		}
	}

	return normalize(v)
}

func (p *LocalProvider) bucket(s string) int {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int(h.Sum64() % uint64(p.dims))
}
