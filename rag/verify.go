package rag

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Vijayvaraprasad/rag-qa-system/llm"
)

// VerifierConfig bounds verification calls.
type VerifierConfig struct {
	MaxCalls   int           `json:"max_calls"`
	CallWindow time.Duration `json:"call_window"`
	LLMTimeout time.Duration `json:"llm_timeout"`
}

func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		MaxCalls:   20,
		CallWindow: time.Minute,
		LLMTimeout: 20 * time.Second,
	}
}

// Verifier asks an LLM judge whether an answer is grounded in the
// retrieved context. Verification fails open: when the judge is
// unavailable the answer passes with neutral confidence rather than
// blocking the pipeline.
type Verifier struct {
	cfg      VerifierConfig
	provider llm.Provider
	limiter  *llm.CallLimiter
	logger   *zap.Logger
}

func NewVerifier(cfg VerifierConfig, provider llm.Provider, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = DefaultVerifierConfig().MaxCalls
	}
	if cfg.CallWindow <= 0 {
		cfg.CallWindow = DefaultVerifierConfig().CallWindow
	}
	return &Verifier{
		cfg:      cfg,
		provider: provider,
		limiter:  llm.NewCallLimiter("verify", cfg.MaxCalls, cfg.CallWindow),
		logger:   logger.With(zap.String("component", "verifier")),
	}
}

const verifyPromptTemplate = `You are a strict fact checker. Determine whether the answer is fully supported by the context.

Context:
%s

Question: %s

Answer: %s

Reply in this exact format:
GROUNDED: yes or no
CONFIDENCE: a number between 0.0 and 1.0
REASONING: one sentence`

// Verify judges the answer against the context chunks. The result's
// IsGrounded is the judge's verdict gated by the confidence threshold:
// a "yes" with confidence below the threshold is reported as not grounded.
func (v *Verifier) Verify(ctx context.Context, question, answer string, chunks []string, threshold float64) VerificationResult {
	failOpen := VerificationResult{
		IsGrounded:     true,
		Confidence:     0.5,
		Reasoning:      "verification unavailable, answer passed through",
		VerifiedAnswer: answer,
	}

	if v.provider == nil {
		return failOpen
	}
	if err := v.limiter.Allow(); err != nil {
		v.logger.Warn("verification rate limited", zap.Error(err))
		return failOpen
	}

	prompt := fmt.Sprintf(verifyPromptTemplate, strings.Join(chunks, "\n\n"), question, answer)
	text, err := llm.CompleteText(ctx, v.provider, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   150,
		Temperature: 0,
		Timeout:     v.cfg.LLMTimeout,
	})
	if err != nil {
		v.logger.Warn("verification call failed", zap.Error(err))
		return failOpen
	}

	grounded := parseGrounded(text)
	confidence := parseConfidence(text)
	reasoning := parseReasoning(text)

	return VerificationResult{
		IsGrounded:     grounded && confidence >= threshold,
		Confidence:     confidence,
		Reasoning:      reasoning,
		VerifiedAnswer: answer,
	}
}

// VerifyAndFallback verifies the answer and, when it fails the grounding
// gate, replaces it with an honest refusal that names the confidence.
func (v *Verifier) VerifyAndFallback(ctx context.Context, question, answer string, chunks []string, threshold float64) VerificationResult {
	result := v.Verify(ctx, question, answer, chunks, threshold)
	if !result.IsGrounded {
		result.VerifiedAnswer = fmt.Sprintf(
			"I could not find a sufficiently grounded answer in the indexed documents (confidence %.2f). %s",
			result.Confidence, result.Reasoning)
	}
	return result
}

// parseGrounded scans the first 100 characters of the judge's reply for
// an affirmative verdict.
func parseGrounded(text string) bool {
	head := strings.ToLower(text)
	if len(head) > 100 {
		head = head[:100]
	}
	return strings.Contains(head, "yes")
}

// parseConfidence extracts the number on the first "confidence:" line.
// Unparseable output defaults to 0.5.
func parseConfidence(text string) float64 {
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		idx := strings.Index(lower, "confidence:")
		if idx < 0 {
			continue
		}
		rest := strings.TrimSpace(line[idx+len("confidence:"):])
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			break
		}
		value, err := strconv.ParseFloat(strings.Trim(fields[0], ".,"), 64)
		if err != nil {
			break
		}
		if value < 0 {
			value = 0
		}
		if value > 1 {
			value = 1
		}
		return value
	}
	return 0.5
}

// parseReasoning returns everything after the first "reasoning:" marker,
// or the raw reply when the marker is absent.
func parseReasoning(text string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, "reasoning:")
	if idx < 0 {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[idx+len("reasoning:"):])
}
