package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Vijayvaraprasad/rag-qa-system/llm"
)

var simpleMarkers = []string{
	"what", "who", "when", "where", "how do", "how many", "how much", "what is",
}

var moderateMarkers = []string{
	"compare", "contrast", "difference", "similarity", "why", "how does",
}

var complexMarkers = []string{
	"explain", "relate", "implication", "consequence", "cause effect",
	"mechanism", "complex", "analyze", "relationship", "impact",
}

// ClassifyComplexity scores a question lexically and maps the score onto
// a complexity tier. Each marker category contributes its delta at most
// once, however many of its phrases match; long questions push upward.
func ClassifyComplexity(question string) Complexity {
	lower := strings.ToLower(question)
	score := 0.0
	if containsAny(lower, simpleMarkers) {
		score -= 1.0
	}
	if containsAny(lower, moderateMarkers) {
		score += 1.0
	}
	if containsAny(lower, complexMarkers) {
		score += 2.0
	}
	words := len(strings.Fields(question))
	if words > 20 {
		score += 1.0
	}
	if words > 30 {
		score += 1.0
	}

	switch {
	case score <= -0.5:
		return ComplexitySimple
	case score <= 1.5:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// ThresholdProfileFor translates a complexity tier into the verification
// threshold, classifier confidence, and retrieval depth for that tier.
func ThresholdProfileFor(complexity Complexity) ThresholdProfile {
	switch complexity {
	case ComplexitySimple:
		return ThresholdProfile{
			Complexity:     ComplexitySimple,
			Confidence:     0.85,
			Threshold:      0.80,
			RetrievalCount: 5,
			Reasoning:      "direct factual question, strict grounding expected",
		}
	case ComplexityModerate:
		return ThresholdProfile{
			Complexity:     ComplexityModerate,
			Confidence:     0.70,
			Threshold:      0.70,
			RetrievalCount: 8,
			Reasoning:      "explanatory question, balanced grounding",
		}
	default:
		return ThresholdProfile{
			Complexity:     ComplexityComplex,
			Confidence:     0.70,
			Threshold:      0.55,
			RetrievalCount: 12,
			Reasoning:      "analytical question, lenient grounding with deep retrieval",
		}
	}
}

// AdjustThresholdByContext loosens the threshold when retrieval came back
// thin and tightens it slightly when context is abundant.
func AdjustThresholdByContext(threshold float64, chunkCount int) float64 {
	switch {
	case chunkCount < 3:
		threshold -= 0.15
		if threshold < 0.5 {
			threshold = 0.5
		}
	case chunkCount < 5:
		threshold -= 0.10
		if threshold < 0.55 {
			threshold = 0.55
		}
	case chunkCount > 20:
		threshold += 0.05
		if threshold > 0.95 {
			threshold = 0.95
		}
	}
	return threshold
}

// AdjustThresholdByConfidence raises the bar for answers the verifier was
// unsure about and relaxes it for high-confidence ones.
func AdjustThresholdByConfidence(threshold, priorConfidence float64) float64 {
	switch {
	case priorConfidence < 0.5:
		threshold += 0.10
		if threshold > 0.95 {
			threshold = 0.95
		}
	case priorConfidence < 0.7:
		// keep as is
	default:
		threshold -= 0.05
		if threshold < 0.5 {
			threshold = 0.5
		}
	}
	return threshold
}

// LearnedThresholds supplies per-complexity overrides accumulated from
// user feedback. The feedback store implements it.
type LearnedThresholds interface {
	LearnedThreshold(ctx context.Context, complexity Complexity) (float64, bool, error)
}

// ThresholdSelectorConfig configures the selector's optional LLM path.
type ThresholdSelectorConfig struct {
	UseLLM     bool          `json:"use_llm"`
	MaxCalls   int           `json:"max_calls"`
	CallWindow time.Duration `json:"call_window"`
	LLMTimeout time.Duration `json:"llm_timeout"`
}

func DefaultThresholdSelectorConfig() ThresholdSelectorConfig {
	return ThresholdSelectorConfig{
		UseLLM:     false,
		MaxCalls:   15,
		CallWindow: time.Minute,
		LLMTimeout: 10 * time.Second,
	}
}

// ThresholdSelector produces a threshold profile for each question. The
// lexical heuristic is the base path; an LLM classifier can override the
// complexity tier when enabled, and learned feedback thresholds can
// override the tier's numeric threshold. Both extras fail back to the
// heuristic result.
type ThresholdSelector struct {
	cfg      ThresholdSelectorConfig
	provider llm.Provider
	limiter  *llm.CallLimiter
	learned  LearnedThresholds
	logger   *zap.Logger
}

func NewThresholdSelector(cfg ThresholdSelectorConfig, provider llm.Provider, learned LearnedThresholds, logger *zap.Logger) *ThresholdSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = DefaultThresholdSelectorConfig().MaxCalls
	}
	if cfg.CallWindow <= 0 {
		cfg.CallWindow = DefaultThresholdSelectorConfig().CallWindow
	}
	return &ThresholdSelector{
		cfg:      cfg,
		provider: provider,
		limiter:  llm.NewCallLimiter("threshold_classify", cfg.MaxCalls, cfg.CallWindow),
		learned:  learned,
		logger:   logger.With(zap.String("component", "threshold_selector")),
	}
}

// Select classifies the question and returns its threshold profile.
func (s *ThresholdSelector) Select(ctx context.Context, question string) ThresholdProfile {
	complexity := ClassifyComplexity(question)

	if s.cfg.UseLLM && s.provider != nil {
		if c, ok := s.classifyLLM(ctx, question); ok {
			complexity = c
		}
	}

	profile := ThresholdProfileFor(complexity)

	if s.learned != nil {
		learned, ok, err := s.learned.LearnedThreshold(ctx, complexity)
		if err != nil {
			s.logger.Warn("learned threshold lookup failed", zap.Error(err))
		} else if ok {
			profile.Threshold = learned
			profile.Reasoning = profile.Reasoning + "; threshold adjusted from feedback"
		}
	}
	return profile
}

func (s *ThresholdSelector) classifyLLM(ctx context.Context, question string) (Complexity, bool) {
	if err := s.limiter.Allow(); err != nil {
		s.logger.Warn("classifier rate limited, using heuristic", zap.Error(err))
		return "", false
	}

	prompt := fmt.Sprintf(
		"Classify the complexity of this question as exactly one word: simple, moderate, or complex.\n\nQuestion: %s\n\nComplexity:",
		question)

	text, err := llm.CompleteText(ctx, s.provider, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   10,
		Temperature: 0,
		Timeout:     s.cfg.LLMTimeout,
	})
	if err != nil {
		s.logger.Warn("llm classification failed, using heuristic", zap.Error(err))
		return "", false
	}

	answer := strings.ToLower(strings.TrimSpace(text))
	switch {
	case strings.Contains(answer, "simple"):
		return ComplexitySimple, true
	case strings.Contains(answer, "moderate"):
		return ComplexityModerate, true
	case strings.Contains(answer, "complex"):
		return ComplexityComplex, true
	}
	return "", false
}
