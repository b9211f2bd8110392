package rag

import (
	"math"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// LexicalIndexConfig holds the BM25 parameters.
type LexicalIndexConfig struct {
	K1 float64 `json:"k1"` // term frequency saturation (1.2-2.0)
	B  float64 `json:"b"`  // document length normalization (0.75)
}

func DefaultLexicalIndexConfig() LexicalIndexConfig {
	return LexicalIndexConfig{K1: 1.5, B: 0.75}
}

// LexicalIndex is a BM25 term-frequency index over all ingested chunk texts.
// It is rebuilt by ingestion and read-only on the query path; scoring an
// index that was never built returns no results rather than failing.
type LexicalIndex struct {
	cfg    LexicalIndexConfig
	logger *zap.Logger

	mu        sync.RWMutex
	texts     []string
	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

func NewLexicalIndex(cfg LexicalIndexConfig, logger *zap.Logger) *LexicalIndex {
	if cfg.K1 <= 0 {
		cfg.K1 = 1.5
	}
	if cfg.B <= 0 {
		cfg.B = 0.75
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LexicalIndex{
		cfg:    cfg,
		logger: logger.With(zap.String("component", "lexical_index")),
		idf:    make(map[string]float64),
	}
}

// Tokenize lowercases and whitespace-splits text. Both indexing and query
// paths must use the same tokenization.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// Index rebuilds the index over the given chunk texts, replacing any prior
// contents.
func (ix *LexicalIndex) Index(texts []string) {
	termFreqs := make([]map[string]int, len(texts))
	docLens := make([]int, len(texts))
	docCount := make(map[string]int)
	totalLen := 0

	for i, text := range texts {
		terms := Tokenize(text)
		docLens[i] = len(terms)
		totalLen += len(terms)

		tf := make(map[string]int, len(terms))
		for _, t := range terms {
			tf[t]++
		}
		termFreqs[i] = tf

		for t := range tf {
			docCount[t]++
		}
	}

	avgDocLen := 0.0
	if len(texts) > 0 {
		avgDocLen = float64(totalLen) / float64(len(texts))
	}

	n := float64(len(texts))
	idf := make(map[string]float64, len(docCount))
	for term, df := range docCount {
		idf[term] = math.Log((n-float64(df)+0.5)/(float64(df)+0.5) + 1.0)
	}

	ix.mu.Lock()
	ix.texts = append([]string(nil), texts...)
	ix.termFreqs = termFreqs
	ix.docLens = docLens
	ix.avgDocLen = avgDocLen
	ix.idf = idf
	ix.mu.Unlock()

	ix.logger.Info("lexical index built",
		zap.Int("chunks", len(texts)),
		zap.Int("terms", len(idf)))
}

// Size returns the number of indexed chunks.
func (ix *LexicalIndex) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.texts)
}

// Scores computes the BM25 score of every indexed chunk for the tokenized
// query. Scores are comparable only within this index instance.
func (ix *LexicalIndex) Scores(queryTokens []string) []float64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.scoresLocked(queryTokens)
}

func (ix *LexicalIndex) scoresLocked(queryTokens []string) []float64 {
	scores := make([]float64, len(ix.texts))
	if len(ix.texts) == 0 || len(queryTokens) == 0 {
		return scores
	}

	for i := range ix.texts {
		docLen := float64(ix.docLens[i])
		var score float64
		for _, q := range queryTokens {
			tf, ok := ix.termFreqs[i][q]
			if !ok {
				continue
			}
			idf := ix.idf[q]
			numerator := float64(tf) * (ix.cfg.K1 + 1.0)
			denominator := float64(tf) + ix.cfg.K1*(1.0-ix.cfg.B+ix.cfg.B*(docLen/ix.avgDocLen))
			score += idf * numerator / denominator
		}
		scores[i] = score
	}
	return scores
}

// Search returns the topK highest-scoring chunks with score > 0, in
// descending score order. An empty or never-built index returns no results.
func (ix *LexicalIndex) Search(query string, topK int) []ScoredCandidate {
	queryTokens := Tokenize(query)

	ix.mu.RLock()
	scores := ix.scoresLocked(queryTokens)
	candidates := make([]ScoredCandidate, 0, topK)
	for i, s := range scores {
		if s > 0 {
			candidates = append(candidates, ScoredCandidate{Text: ix.texts[i], Score: s})
		}
	}
	ix.mu.RUnlock()

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if topK > 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates
}
