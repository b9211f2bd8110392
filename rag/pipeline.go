package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Vijayvaraprasad/rag-qa-system/llm"
	"github.com/Vijayvaraprasad/rag-qa-system/llm/rerank"
)

// AnswerCache stores finished answers keyed by question. Implementations
// are expected to swallow backend failures and behave as a miss.
type AnswerCache interface {
	Get(ctx context.Context, question string) (*Answer, bool)
	Set(ctx context.Context, question string, answer *Answer)
}

// Metrics is the observation surface the pipeline reports into.
type Metrics interface {
	ObserveQuery(method string, seconds float64)
	ObserveConfidence(confidence float64)
	CacheHit()
	CacheMiss()
}

// PipelineConfig selects which stages run and how much context the
// generator may see.
type PipelineConfig struct {
	UseExpansion    bool          `json:"use_expansion"`
	UseMultiHop     bool          `json:"use_multi_hop"`
	UseRefinement   bool          `json:"use_refinement"`
	UseRerank       bool          `json:"use_rerank"`
	UseCompression  bool          `json:"use_compression"`
	MaxHops         int           `json:"max_hops"`
	RerankTopN      int           `json:"rerank_top_n"`
	ContextBudget   int           `json:"context_budget"`
	GenerateTimeout time.Duration `json:"generate_timeout"`
	MaxTokens       int           `json:"max_tokens"`
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		UseExpansion:    true,
		UseMultiHop:     true,
		UseRefinement:   true,
		UseRerank:       true,
		MaxHops:         3,
		RerankTopN:      6,
		ContextBudget:   3000,
		GenerateTimeout: 45 * time.Second,
		MaxTokens:       600,
	}
}

// Pipeline is the full question answering flow: classify, retrieve,
// rerank, compress, generate, verify, and optionally refine. Auxiliary stages
// degrade independently so a broken reranker or cache never takes the
// whole flow down.
type Pipeline struct {
	cfg        PipelineConfig
	provider   llm.Provider
	searcher   *HybridSearcher
	multiHop   *MultiHopRetriever
	expander   *QueryExpander
	selector   *ThresholdSelector
	verifier   *Verifier
	refiner    *RecursiveRefiner
	reranker   rerank.Provider
	compressor *ContextCompressor
	cache      AnswerCache
	metrics    Metrics
	tokenizer  Tokenizer
	logger     *zap.Logger
}

// PipelineDeps carries the collaborators Pipeline needs. Cache, metrics,
// reranker, expander, selector, and multi-hop are optional.
type PipelineDeps struct {
	Provider   llm.Provider
	Searcher   *HybridSearcher
	MultiHop   *MultiHopRetriever
	Expander   *QueryExpander
	Selector   *ThresholdSelector
	Verifier   *Verifier
	Reranker   rerank.Provider
	Compressor *ContextCompressor
	Cache      AnswerCache
	Metrics    Metrics
	Tokenizer  Tokenizer
}

func NewPipeline(cfg PipelineConfig, deps PipelineDeps, refinerCfg RefinerConfig, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultPipelineConfig().MaxHops
	}
	if cfg.RerankTopN <= 0 {
		cfg.RerankTopN = DefaultPipelineConfig().RerankTopN
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = DefaultPipelineConfig().ContextBudget
	}
	if deps.Tokenizer == nil {
		deps.Tokenizer = NewTokenCounter(logger)
	}

	p := &Pipeline{
		cfg:        cfg,
		provider:   deps.Provider,
		searcher:   deps.Searcher,
		multiHop:   deps.MultiHop,
		expander:   deps.Expander,
		selector:   deps.Selector,
		verifier:   deps.Verifier,
		reranker:   deps.Reranker,
		compressor: deps.Compressor,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		tokenizer:  deps.Tokenizer,
		logger:     logger.With(zap.String("component", "pipeline")),
	}
	p.refiner = NewRecursiveRefiner(refinerCfg, p, p, deps.Verifier, deps.Provider, logger)
	return p
}

// Ask answers a question end to end.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &llm.Error{
			Code:    llm.ErrInvalidRequest,
			Message: "question must not be empty",
		}
	}

	start := time.Now()

	if p.cache != nil {
		if cached, ok := p.cache.Get(ctx, question); ok {
			if p.metrics != nil {
				p.metrics.CacheHit()
			}
			cached.FromCache = true
			return cached, nil
		}
		if p.metrics != nil {
			p.metrics.CacheMiss()
		}
	}

	profile := p.selectProfile(ctx, question)

	chunks, method, err := p.retrieve(ctx, question, profile)
	if err != nil {
		return nil, err
	}

	chunks = p.rerankChunks(ctx, question, chunks)

	if p.cfg.UseCompression && p.compressor != nil {
		chunks = p.compressor.CompressChunks(ctx, question, chunks)
	}

	threshold := AdjustThresholdByContext(profile.Threshold, len(chunks))

	// Retrieval came back empty: answer without calling the model, there
	// is no context to ground a generation against.
	if len(chunks) == 0 {
		answer := &Answer{
			Question:   question,
			Answer:     "No relevant documents were found for this question.",
			Complexity: profile.Complexity,
			Threshold:  threshold,
			Method:     method,
			CreatedAt:  time.Now().UTC(),
		}
		if p.provider != nil {
			answer.Provider = p.provider.Name()
		}
		if p.metrics != nil {
			p.metrics.ObserveQuery(method, time.Since(start).Seconds())
			p.metrics.ObserveConfidence(0)
		}
		p.logger.Info("no candidates retrieved",
			zap.String("complexity", string(profile.Complexity)),
			zap.String("method", method))
		return answer, nil
	}

	answerText, err := p.Generate(ctx, question, chunks)
	if err != nil {
		return nil, err
	}

	verdict := VerificationResult{IsGrounded: true, Confidence: 0.5, VerifiedAnswer: answerText}
	if p.verifier != nil {
		verdict = p.verifier.VerifyAndFallback(ctx, question, answerText, chunks, threshold)
	}

	answer := &Answer{
		Question:   question,
		Answer:     verdict.VerifiedAnswer,
		Chunks:     chunks,
		Complexity: profile.Complexity,
		Threshold:  threshold,
		Confidence: verdict.Confidence,
		Grounded:   verdict.IsGrounded,
		Method:     method,
		Iterations: 1,
		Converged:  verdict.IsGrounded,
		CreatedAt:  time.Now().UTC(),
	}
	if p.provider != nil {
		answer.Provider = p.provider.Name()
	}

	if !verdict.IsGrounded && p.cfg.UseRefinement {
		refined, rerr := p.refiner.Refine(ctx, question, threshold)
		if rerr != nil {
			p.logger.Warn("refinement failed, keeping direct answer", zap.Error(rerr))
		} else if refined.FinalAnswer != "" {
			answer.Answer = refined.FinalAnswer
			answer.Chunks = refined.FinalChunks
			answer.Confidence = refined.Confidence
			answer.Grounded = refined.Converged
			answer.Iterations = refined.Iterations
			answer.Converged = refined.Converged
			answer.Method = method + "+refined"
		}
	}

	if p.metrics != nil {
		p.metrics.ObserveQuery(answer.Method, time.Since(start).Seconds())
		p.metrics.ObserveConfidence(answer.Confidence)
	}
	if p.cache != nil && answer.Grounded {
		p.cache.Set(ctx, question, answer)
	}

	p.logger.Info("question answered",
		zap.String("complexity", string(answer.Complexity)),
		zap.String("method", answer.Method),
		zap.Float64("confidence", answer.Confidence),
		zap.Bool("grounded", answer.Grounded),
		zap.Duration("elapsed", time.Since(start)))
	return answer, nil
}

func (p *Pipeline) selectProfile(ctx context.Context, question string) ThresholdProfile {
	if p.selector != nil {
		return p.selector.Select(ctx, question)
	}
	return ThresholdProfileFor(ClassifyComplexity(question))
}

// retrieve picks a strategy by complexity: multi-hop chaining for complex
// questions, query expansion over hybrid search for moderate ones, and a
// single hybrid pass for simple ones.
func (p *Pipeline) retrieve(ctx context.Context, question string, profile ThresholdProfile) ([]string, string, error) {
	switch {
	case profile.Complexity == ComplexityComplex && p.cfg.UseMultiHop && p.multiHop != nil:
		result, err := p.multiHop.Retrieve(ctx, question, p.cfg.MaxHops)
		if err != nil {
			return nil, "", fmt.Errorf("multi-hop retrieval: %w", err)
		}
		chunks := result.AllChunks
		if len(chunks) > profile.RetrievalCount {
			chunks = chunks[:profile.RetrievalCount]
		}
		return chunks, "multi_hop", nil

	case p.cfg.UseExpansion && p.expander != nil:
		queries := p.expander.Expand(ctx, question)
		chunks, err := p.searchMany(ctx, queries, profile.RetrievalCount)
		if err != nil {
			return nil, "", err
		}
		method := "hybrid"
		if len(queries) > 1 {
			method = "expanded_hybrid"
		}
		return chunks, method, nil

	default:
		chunks, err := p.RetrieveChunks(ctx, question, profile.RetrievalCount)
		if err != nil {
			return nil, "", err
		}
		return chunks, "hybrid", nil
	}
}

// searchMany runs hybrid search for each query concurrently and interleaves
// the results round-robin, deduplicating by text, so every phrasing
// contributes its top matches.
func (p *Pipeline) searchMany(ctx context.Context, queries []string, topK int) ([]string, error) {
	perQuery := make([][]ScoredCandidate, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			candidates, err := p.searcher.SearchWeighted(gctx, q, 0.6, 0.4, topK)
			if err != nil {
				return fmt.Errorf("hybrid search %q: %w", q, err)
			}
			perQuery[i] = candidates
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var merged []string
	for depth := 0; len(merged) < topK; depth++ {
		progressed := false
		for _, list := range perQuery {
			if depth >= len(list) {
				continue
			}
			progressed = true
			text := list[depth].Text
			if _, ok := seen[text]; ok {
				continue
			}
			seen[text] = struct{}{}
			merged = append(merged, text)
			if len(merged) == topK {
				break
			}
		}
		if !progressed {
			break
		}
	}
	return merged, nil
}

// rerankChunks reorders chunks with the cross-encoder when configured.
// Rerank failures keep the hybrid ordering.
func (p *Pipeline) rerankChunks(ctx context.Context, question string, chunks []string) []string {
	if !p.cfg.UseRerank || p.reranker == nil || len(chunks) < 2 {
		return chunks
	}
	topN := p.cfg.RerankTopN
	if topN > len(chunks) {
		topN = len(chunks)
	}
	results, err := p.reranker.Rerank(ctx, question, chunks, topN)
	if err != nil {
		p.logger.Warn("rerank failed, keeping retrieval order", zap.Error(err))
		return chunks
	}
	if len(results) == 0 {
		return chunks
	}
	reranked := make([]string, 0, len(results))
	for _, r := range results {
		reranked = append(reranked, r.Text)
	}
	return reranked
}

// RetrieveChunks runs a single hybrid pass and returns chunk texts. It is
// the retrieval surface the refiner loops over.
func (p *Pipeline) RetrieveChunks(ctx context.Context, query string, topK int) ([]string, error) {
	candidates, err := p.searcher.SearchWeighted(ctx, query, 0.6, 0.4, topK)
	if err != nil {
		return nil, err
	}
	chunks := make([]string, 0, len(candidates))
	for _, c := range candidates {
		chunks = append(chunks, c.Text)
	}
	return chunks, nil
}

// Generate asks the LLM to answer strictly from the supplied chunks. The
// context block is trimmed to the configured token budget, dropping whole
// chunks from the tail.
func (p *Pipeline) Generate(ctx context.Context, question string, chunks []string) (string, error) {
	contextBlock := p.assembleContext(chunks)

	prompt := fmt.Sprintf(
		"Answer the question ONLY using the context below. If the context does not contain the answer, say you do not know.\n\nContext:\n%s\n\nQuestion: %s\n\nAnswer:",
		contextBlock, question)

	text, err := llm.CompleteText(ctx, p.provider, llm.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: 0.2,
		Timeout:     p.cfg.GenerateTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (p *Pipeline) assembleContext(chunks []string) string {
	var b strings.Builder
	used := 0
	for i, chunk := range chunks {
		cost := p.tokenizer.CountTokens(chunk)
		if used+cost > p.cfg.ContextBudget && used > 0 {
			break
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, chunk)
		used += cost
	}
	return b.String()
}
