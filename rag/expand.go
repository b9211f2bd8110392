package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Vijayvaraprasad/rag-qa-system/llm"
)

// ExpanderConfig bounds query expansion calls.
type ExpanderConfig struct {
	Variations int           `json:"variations"`
	MaxCalls   int           `json:"max_calls"`
	CallWindow time.Duration `json:"call_window"`
	LLMTimeout time.Duration `json:"llm_timeout"`
}

func DefaultExpanderConfig() ExpanderConfig {
	return ExpanderConfig{
		Variations: 3,
		MaxCalls:   10,
		CallWindow: time.Minute,
		LLMTimeout: 15 * time.Second,
	}
}

// QueryExpander rewrites a question into several phrasings so retrieval
// can match documents that word things differently. Expansion is strictly
// best-effort: every failure mode collapses back to the original question
// alone.
type QueryExpander struct {
	cfg      ExpanderConfig
	provider llm.Provider
	limiter  *llm.CallLimiter
	logger   *zap.Logger
}

func NewQueryExpander(cfg ExpanderConfig, provider llm.Provider, logger *zap.Logger) *QueryExpander {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Variations <= 0 {
		cfg.Variations = DefaultExpanderConfig().Variations
	}
	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = DefaultExpanderConfig().MaxCalls
	}
	if cfg.CallWindow <= 0 {
		cfg.CallWindow = DefaultExpanderConfig().CallWindow
	}
	return &QueryExpander{
		cfg:      cfg,
		provider: provider,
		limiter:  llm.NewCallLimiter("query_expand", cfg.MaxCalls, cfg.CallWindow),
		logger:   logger.With(zap.String("component", "query_expander")),
	}
}

// Expand returns the original question plus up to Variations rewrites.
// The original is always the first element.
func (e *QueryExpander) Expand(ctx context.Context, question string) []string {
	fallback := []string{question}
	if e.provider == nil {
		return fallback
	}
	if err := e.limiter.Allow(); err != nil {
		e.logger.Warn("expansion rate limited", zap.Error(err))
		return fallback
	}

	prompt := fmt.Sprintf(
		"Rewrite the following question %d different ways, keeping the same meaning. Return one rewrite per line with no numbering.\n\nQuestion: %s",
		e.cfg.Variations, question)

	text, err := llm.CompleteText(ctx, e.provider, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   200,
		Temperature: 0.7,
		Timeout:     e.cfg.LLMTimeout,
	})
	if err != nil {
		e.logger.Warn("expansion failed, using original question", zap.Error(err))
		return fallback
	}

	queries := []string{question}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == question {
			continue
		}
		queries = append(queries, line)
		if len(queries) > e.cfg.Variations {
			break
		}
	}
	return queries
}
