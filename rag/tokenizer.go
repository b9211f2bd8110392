package rag

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// Tokenizer counts tokens for context budgeting.
type Tokenizer interface {
	CountTokens(text string) int
}

// TiktokenCounter counts with the cl100k_base BPE. Construction can fail
// when the encoding tables are unavailable, so callers go through
// NewTokenCounter which falls back to estimation.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func (t *TiktokenCounter) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}

// EstimateCounter approximates tokens as len/4, the usual rule of thumb
// for English prose.
type EstimateCounter struct{}

func (EstimateCounter) CountTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}

// NewTokenCounter returns a tiktoken-backed counter, or the estimator when
// the encoding cannot be loaded.
func NewTokenCounter(logger *zap.Logger) Tokenizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warn("tiktoken unavailable, estimating token counts", zap.Error(err))
		return EstimateCounter{}
	}
	return &TiktokenCounter{encoding: enc}
}
