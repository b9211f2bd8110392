package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// MultiHopConfig bounds the hop chain.
type MultiHopConfig struct {
	MaxHops      int `json:"max_hops"`
	ChunksPerHop int `json:"chunks_per_hop"`
}

func DefaultMultiHopConfig() MultiHopConfig {
	return MultiHopConfig{
		MaxHops:      3,
		ChunksPerHop: 3,
	}
}

// HopSearcher is the retrieval surface the chainer drives. HybridSearcher
// satisfies it.
type HopSearcher interface {
	SearchWeighted(ctx context.Context, question string, semanticWeight, keywordWeight float64, topK int) ([]ScoredCandidate, error)
}

// MultiHopRetriever chains retrievals: each hop mines entities from the
// chunks the previous hop found and uses them as the next query. The chain
// terminates when a hop yields no entities, when the requested hop count is
// reached, or at the configured hard cap.
type MultiHopRetriever struct {
	cfg      MultiHopConfig
	searcher HopSearcher
	logger   *zap.Logger
}

func NewMultiHopRetriever(cfg MultiHopConfig, searcher HopSearcher, logger *zap.Logger) *MultiHopRetriever {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultMultiHopConfig().MaxHops
	}
	if cfg.ChunksPerHop <= 0 {
		cfg.ChunksPerHop = DefaultMultiHopConfig().ChunksPerHop
	}
	return &MultiHopRetriever{
		cfg:      cfg,
		searcher: searcher,
		logger:   logger.With(zap.String("component", "multi_hop")),
	}
}

// Retrieve runs up to numHops chained retrievals starting from the raw
// question. The accumulated chunk list is deduplicated by exact text,
// preserving discovery order across hops.
func (r *MultiHopRetriever) Retrieve(ctx context.Context, question string, numHops int) (*MultiHopResult, error) {
	if numHops > r.cfg.MaxHops {
		numHops = r.cfg.MaxHops
	}
	if numHops < 1 {
		numHops = 1
	}

	result := &MultiHopResult{}
	seen := make(map[string]struct{})
	query := question

	for hop := 1; hop <= numHops; hop++ {
		candidates, err := r.searcher.SearchWeighted(ctx, query, 0.6, 0.4, r.cfg.ChunksPerHop)
		if err != nil {
			return nil, fmt.Errorf("hop %d: %w", hop, err)
		}

		texts := make([]string, 0, len(candidates))
		for _, c := range candidates {
			texts = append(texts, c.Text)
			if _, ok := seen[c.Text]; ok {
				continue
			}
			seen[c.Text] = struct{}{}
			result.AllChunks = append(result.AllChunks, c.Text)
		}

		entities := ExtractEntities(strings.Join(texts, " "))
		result.Chain = append(result.Chain, HopRecord{
			Hop:      hop,
			Query:    query,
			Chunks:   texts,
			Entities: entities,
		})
		result.HopsPerformed = hop

		r.logger.Debug("hop complete",
			zap.Int("hop", hop),
			zap.Int("chunks", len(texts)),
			zap.Int("entities", len(entities)))

		if hop == numHops {
			break
		}
		if len(entities) == 0 {
			break
		}
		next := entities
		if len(next) > 3 {
			next = next[:3]
		}
		query = strings.Join(next, " ")
	}

	result.TotalChunks = len(result.AllChunks)
	result.Summary = summarizeChain(result.Chain)
	return result, nil
}

func summarizeChain(chain []HopRecord) string {
	parts := make([]string, 0, len(chain))
	for _, h := range chain {
		parts = append(parts, fmt.Sprintf("Hop %d: Found %d chunks, extracted %d entities",
			h.Hop, len(h.Chunks), len(h.Entities)))
	}
	return strings.Join(parts, " | ")
}
