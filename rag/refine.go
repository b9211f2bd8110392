package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Vijayvaraprasad/rag-qa-system/llm"
)

// ChunkRetriever fetches context chunks for a query.
type ChunkRetriever interface {
	RetrieveChunks(ctx context.Context, query string, topK int) ([]string, error)
}

// Generator produces an answer from a question and its context.
type Generator interface {
	Generate(ctx context.Context, question string, chunks []string) (string, error)
}

// AnswerVerifier judges whether an answer is grounded in its context.
type AnswerVerifier interface {
	Verify(ctx context.Context, question, answer string, chunks []string, threshold float64) VerificationResult
}

// RefinerConfig bounds the refinement loop.
type RefinerConfig struct {
	MaxIterations    int           `json:"max_iterations"`
	AcceptConfidence float64       `json:"accept_confidence"`
	ChunksPerQuery   int           `json:"chunks_per_query"`
	LLMTimeout       time.Duration `json:"llm_timeout"`
}

func DefaultRefinerConfig() RefinerConfig {
	return RefinerConfig{
		MaxIterations:    3,
		AcceptConfidence: 0.6,
		ChunksPerQuery:   5,
		LLMTimeout:       15 * time.Second,
	}
}

// RecursiveRefiner runs retrieve, generate, verify in a loop, rewriting the
// retrieval query between iterations until the verifier accepts an answer or
// the iteration cap is hit. Generation always receives the original question;
// only retrieval uses the rewritten query. The best answer seen by confidence
// is what comes back when no iteration is accepted.
type RecursiveRefiner struct {
	cfg       RefinerConfig
	retriever ChunkRetriever
	generator Generator
	verifier  AnswerVerifier
	provider  llm.Provider
	logger    *zap.Logger
}

func NewRecursiveRefiner(
	cfg RefinerConfig,
	retriever ChunkRetriever,
	generator Generator,
	verifier AnswerVerifier,
	provider llm.Provider,
	logger *zap.Logger,
) *RecursiveRefiner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultRefinerConfig().MaxIterations
	}
	if cfg.AcceptConfidence <= 0 {
		cfg.AcceptConfidence = DefaultRefinerConfig().AcceptConfidence
	}
	if cfg.ChunksPerQuery <= 0 {
		cfg.ChunksPerQuery = DefaultRefinerConfig().ChunksPerQuery
	}
	return &RecursiveRefiner{
		cfg:       cfg,
		retriever: retriever,
		generator: generator,
		verifier:  verifier,
		provider:  provider,
		logger:    logger.With(zap.String("component", "refiner")),
	}
}

// Refine answers the question through iterative retrieval refinement.
// Converged is true only when an iteration's answer was accepted by the
// verifier before the cap; hitting the cap returns the best attempt with
// Converged false.
func (r *RecursiveRefiner) Refine(ctx context.Context, question string, threshold float64) (*RefineResult, error) {
	result := &RefineResult{}
	query := question
	bestAnswer := ""
	bestChunks := []string{}
	bestConfidence := -1.0

	for iteration := 1; iteration <= r.cfg.MaxIterations; iteration++ {
		chunks, err := r.retriever.RetrieveChunks(ctx, query, r.cfg.ChunksPerQuery)
		if err != nil {
			return nil, fmt.Errorf("iteration %d retrieve: %w", iteration, err)
		}
		if len(chunks) == 0 {
			r.logger.Info("retrieval exhausted, stopping refinement",
				zap.Int("iteration", iteration), zap.String("query", query))
			break
		}

		answer, err := r.generator.Generate(ctx, question, chunks)
		if err != nil {
			return nil, fmt.Errorf("iteration %d generate: %w", iteration, err)
		}

		verdict := r.verifier.Verify(ctx, question, answer, chunks, threshold)

		result.Iterations = iteration
		result.History = append(result.History, IterationRecord{
			Iteration:   iteration,
			QueryUsed:   query,
			ChunksFound: len(chunks),
			Answer:      answer,
			Confidence:  verdict.Confidence,
			IsGrounded:  verdict.IsGrounded,
		})

		if verdict.Confidence > bestConfidence {
			bestConfidence = verdict.Confidence
			bestAnswer = answer
			bestChunks = chunks
		}

		if verdict.IsGrounded && verdict.Confidence >= r.cfg.AcceptConfidence {
			result.FinalAnswer = answer
			result.FinalChunks = chunks
			result.Confidence = verdict.Confidence
			result.Converged = true
			r.logger.Info("refinement converged",
				zap.Int("iteration", iteration),
				zap.Float64("confidence", verdict.Confidence))
			return result, nil
		}

		if iteration < r.cfg.MaxIterations {
			query = r.refineQuery(ctx, question, answer, verdict.Reasoning, query)
		}
	}

	result.FinalAnswer = bestAnswer
	result.FinalChunks = bestChunks
	if bestConfidence >= 0 {
		result.Confidence = bestConfidence
	}
	result.Converged = false
	return result, nil
}

// refineQuery asks the LLM for a better retrieval query given what went
// wrong. A failed rewrite keeps the previous query.
func (r *RecursiveRefiner) refineQuery(ctx context.Context, question, answer, reasoning, previous string) string {
	if r.provider == nil {
		return previous
	}

	prompt := fmt.Sprintf(
		"The answer below was judged insufficiently grounded.\n\nOriginal question: %s\nAttempted answer: %s\nVerifier feedback: %s\n\nWrite one improved search query that would retrieve better supporting documents. Reply with the query only.",
		question, answer, reasoning)

	text, err := llm.CompleteText(ctx, r.provider, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   60,
		Temperature: 0.3,
		Timeout:     r.cfg.LLMTimeout,
	})
	if err != nil {
		r.logger.Warn("query rewrite failed, reusing previous query", zap.Error(err))
		return previous
	}

	rewritten := strings.TrimSpace(strings.Trim(strings.TrimSpace(text), `"`))
	if rewritten == "" {
		return previous
	}
	return rewritten
}
