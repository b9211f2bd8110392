package rag

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Vijayvaraprasad/rag-qa-system/llm/embedding"
)

// HybridConfig configures the semantic/keyword blend.
type HybridConfig struct {
	SemanticWeight float64 `json:"semantic_weight"`
	KeywordWeight  float64 `json:"keyword_weight"`
	TopK           int     `json:"top_k"`
}

func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		SemanticWeight: 0.6,
		KeywordWeight:  0.4,
		TopK:           8,
	}
}

// HybridSearcher blends vector-similarity and BM25 keyword scores into one
// ranked candidate list. The two score distributions are normalized
// independently by their own maxima before blending, so neither retrieval
// mode can drown out the other.
type HybridSearcher struct {
	cfg      HybridConfig
	store    VectorStore
	embedder embedding.Provider
	lexical  *LexicalIndex
	logger   *zap.Logger
}

func NewHybridSearcher(
	cfg HybridConfig,
	store VectorStore,
	embedder embedding.Provider,
	lexical *LexicalIndex,
	logger *zap.Logger,
) *HybridSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridSearcher{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		lexical:  lexical,
		logger:   logger.With(zap.String("component", "hybrid_searcher")),
	}
}

// SemanticSearch embeds the question and returns up to topK chunks by
// cosine similarity (1 - distance), in descending similarity order.
func (s *HybridSearcher) SemanticSearch(ctx context.Context, question string, topK int) ([]ScoredCandidate, error) {
	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.store.Query(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	candidates := make([]ScoredCandidate, 0, len(matches))
	for _, m := range matches {
		candidates = append(candidates, ScoredCandidate{
			Text:  m.Chunk.Text,
			Score: 1.0 - m.Distance,
		})
	}
	return candidates, nil
}

// KeywordSearch returns up to topK chunks with positive BM25 scores. A
// never-built lexical index degrades to no results.
func (s *HybridSearcher) KeywordSearch(question string, topK int) []ScoredCandidate {
	if s.lexical == nil {
		return []ScoredCandidate{}
	}
	return s.lexical.Search(question, topK)
}

// Search runs both retrieval modes with the configured weights.
func (s *HybridSearcher) Search(ctx context.Context, question string) ([]ScoredCandidate, error) {
	return s.SearchWeighted(ctx, question, s.cfg.SemanticWeight, s.cfg.KeywordWeight, s.cfg.TopK)
}

// SearchWeighted runs semantic and keyword retrieval and merges them:
// each list is normalized by its own maximum score (zero maxima guard to 0),
// then each distinct chunk text gets semanticWeight*normSemantic +
// keywordWeight*normKeyword, with a chunk appearing in only one list
// contributing only that term. Results are sorted descending by combined
// score with ties broken by first-seen order, and truncated to topK. An
// empty result from either mode is not an error.
func (s *HybridSearcher) SearchWeighted(
	ctx context.Context,
	question string,
	semanticWeight, keywordWeight float64,
	topK int,
) ([]ScoredCandidate, error) {
	semantic, err := s.SemanticSearch(ctx, question, topK)
	if err != nil {
		// Keyword search still works without embeddings.
		s.logger.Warn("semantic search failed, keyword only", zap.Error(err))
		semantic = nil
	}
	keyword := s.KeywordSearch(question, topK)

	merged := MergeScored(semantic, keyword, semanticWeight, keywordWeight)

	if topK > 0 && len(merged) > topK {
		merged = merged[:topK]
	}
	return merged, nil
}

// MergeScored is the pure blending step, exposed separately so the merge
// semantics can be tested without any store. Input order defines tie-break
// order: semantic candidates first, then keyword candidates.
func MergeScored(semantic, keyword []ScoredCandidate, semanticWeight, keywordWeight float64) []ScoredCandidate {
	combined := make(map[string]float64)
	order := make([]string, 0, len(semantic)+len(keyword))

	maxSemantic := maxScore(semantic)
	for _, c := range semantic {
		normalized := 0.0
		if maxSemantic > 0 {
			normalized = c.Score / maxSemantic
		}
		if _, seen := combined[c.Text]; !seen {
			order = append(order, c.Text)
		}
		combined[c.Text] += semanticWeight * normalized
	}

	maxKeyword := maxScore(keyword)
	for _, c := range keyword {
		normalized := 0.0
		if maxKeyword > 0 {
			normalized = c.Score / maxKeyword
		}
		if _, seen := combined[c.Text]; !seen {
			order = append(order, c.Text)
		}
		combined[c.Text] += keywordWeight * normalized
	}

	merged := make([]ScoredCandidate, 0, len(order))
	for _, text := range order {
		merged = append(merged, ScoredCandidate{Text: text, Score: combined[text]})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func maxScore(candidates []ScoredCandidate) float64 {
	max := 0.0
	for _, c := range candidates {
		if c.Score > max {
			max = c.Score
		}
	}
	return max
}
