package rerank

import (
	"context"
	"sort"
	"strings"
)

// LocalProvider is a term-overlap reranker used when no cross-encoder API is
// configured. It scores each document by the fraction of query terms it
// contains, which keeps top-N selection working offline.
type LocalProvider struct{}

func NewLocalProvider() *LocalProvider { return &LocalProvider{} }

func (p *LocalProvider) Name() string { return "local" }

func (p *LocalProvider) Rerank(ctx context.Context, query string, documents []string, topN int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(documents) == 0 {
		return []Result{}, nil
	}

	queryTerms := strings.Fields(strings.ToLower(query))

	results := make([]Result, len(documents))
	for i, doc := range documents {
		results[i] = Result{
			Index: i,
			Score: overlapScore(queryTerms, doc),
			Text:  doc,
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// overlapScore is the fraction of query terms present in the document.
func overlapScore(queryTerms []string, doc string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}

	docTerms := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(doc)) {
		docTerms[t] = true
	}

	matched := 0
	for _, qt := range queryTerms {
		if docTerms[qt] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}
