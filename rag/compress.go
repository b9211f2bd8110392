package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Vijayvaraprasad/rag-qa-system/llm"
)

// CompressorConfig bounds context compression calls.
type CompressorConfig struct {
	MaxCalls   int           `json:"max_calls"`
	CallWindow time.Duration `json:"call_window"`
	LLMTimeout time.Duration `json:"llm_timeout"`
}

func DefaultCompressorConfig() CompressorConfig {
	return CompressorConfig{
		MaxCalls:   20,
		CallWindow: time.Minute,
		LLMTimeout: 15 * time.Second,
	}
}

// ContextCompressor strips the sentences of a retrieved passage that do
// not bear on the question, shrinking the prompt the generator sees.
// Compression is strictly best-effort: rate limiting or a failed call
// leaves the passage unchanged.
type ContextCompressor struct {
	cfg      CompressorConfig
	provider llm.Provider
	limiter  *llm.CallLimiter
	logger   *zap.Logger
}

func NewContextCompressor(cfg CompressorConfig, provider llm.Provider, logger *zap.Logger) *ContextCompressor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = DefaultCompressorConfig().MaxCalls
	}
	if cfg.CallWindow <= 0 {
		cfg.CallWindow = DefaultCompressorConfig().CallWindow
	}
	return &ContextCompressor{
		cfg:      cfg,
		provider: provider,
		limiter:  llm.NewCallLimiter("context_compress", cfg.MaxCalls, cfg.CallWindow),
		logger:   logger.With(zap.String("component", "context_compressor")),
	}
}

// Compress returns only the sentences of passage relevant to the
// question, in their original order. On any failure the full passage
// comes back untouched.
func (c *ContextCompressor) Compress(ctx context.Context, question, passage string) string {
	if c.provider == nil {
		return passage
	}
	if err := c.limiter.Allow(); err != nil {
		c.logger.Warn("compression rate limited", zap.Error(err))
		return passage
	}

	prompt := fmt.Sprintf(
		"Extract ONLY the sentences from the context below that are relevant to answering the question. Remove any sentences that do not help answer the question. Keep the extracted sentences in order.\n\nQuestion: %s\n\nContext:\n%s\n\nExtracted context (only relevant sentences):",
		question, passage)

	text, err := llm.CompleteText(ctx, c.provider, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   300,
		Temperature: 0.2,
		Timeout:     c.cfg.LLMTimeout,
	})
	if err != nil {
		c.logger.Warn("compression failed, keeping full passage", zap.Error(err))
		return passage
	}
	return strings.TrimSpace(text)
}

// CompressChunks compresses each chunk independently. Chunks with no
// relevant sentences left are dropped.
func (c *ContextCompressor) CompressChunks(ctx context.Context, question string, chunks []string) []string {
	compressed := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out := c.Compress(ctx, question, chunk)
		if out == "" {
			continue
		}
		compressed = append(compressed, out)
	}
	return compressed
}
