// Command ragqa serves the retrieval QA pipeline over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Vijayvaraprasad/rag-qa-system/config"
	"github.com/Vijayvaraprasad/rag-qa-system/feedback"
	"github.com/Vijayvaraprasad/rag-qa-system/ingest"
	"github.com/Vijayvaraprasad/rag-qa-system/internal/cache"
	"github.com/Vijayvaraprasad/rag-qa-system/internal/metrics"
	"github.com/Vijayvaraprasad/rag-qa-system/internal/server"
	"github.com/Vijayvaraprasad/rag-qa-system/llm"
	"github.com/Vijayvaraprasad/rag-qa-system/llm/embedding"
	"github.com/Vijayvaraprasad/rag-qa-system/llm/rerank"
	"github.com/Vijayvaraprasad/rag-qa-system/rag"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("ragqa", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	provider := llm.Resolve(llm.Config{
		Provider: cfg.LLM.Provider,
		OpenAI:   llm.OpenAIConfig{APIKey: cfg.LLM.OpenAIAPIKey},
		Groq:     llm.GroqConfig{APIKey: cfg.LLM.GroqAPIKey},
	}, logger)

	embedder := resolveEmbedder(cfg.Embedding, logger)

	store := rag.NewInMemoryVectorStore(logger)
	lexical := rag.NewLexicalIndex(rag.DefaultLexicalIndexConfig(), logger)
	searcher := rag.NewHybridSearcher(rag.DefaultHybridConfig(), store, embedder, lexical, logger)
	multiHop := rag.NewMultiHopRetriever(rag.DefaultMultiHopConfig(), searcher, logger)
	expander := rag.NewQueryExpander(rag.DefaultExpanderConfig(), provider, logger)
	verifier := rag.NewVerifier(rag.DefaultVerifierConfig(), provider, logger)

	var learned rag.LearnedThresholds
	var fbStore *feedback.Store
	if cfg.Feedback.Enabled {
		var err error
		fbStore, err = feedback.NewStore(feedback.StoreConfig{Path: cfg.Feedback.Path}, logger)
		if err != nil {
			return fmt.Errorf("feedback store: %w", err)
		}
		learned = fbStore
	}
	selector := rag.NewThresholdSelector(rag.DefaultThresholdSelectorConfig(), provider, learned, logger)

	var answerCache rag.AnswerCache
	if cfg.Cache.Enabled {
		rc := cache.NewRedisCache(cache.Config{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		}, logger)
		defer func() { _ = rc.Close() }()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rc.Ping(pingCtx); err != nil {
			logger.Warn("redis unreachable, answer cache disabled", zap.Error(err))
		} else {
			answerCache = rc
		}
		cancel()
	}

	var reranker rerank.Provider
	if cfg.Rerank.Enabled && cfg.Rerank.APIKey != "" {
		reranker = rerank.NewJinaProvider(rerank.JinaConfig{APIKey: cfg.Rerank.APIKey})
	} else {
		reranker = rerank.NewLocalProvider()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	pipelineCfg := rag.DefaultPipelineConfig()
	pipelineCfg.UseExpansion = cfg.Pipeline.UseExpansion
	pipelineCfg.UseMultiHop = cfg.Pipeline.UseMultiHop
	pipelineCfg.UseRefinement = cfg.Pipeline.UseRefinement
	pipelineCfg.UseCompression = cfg.Pipeline.UseCompression
	pipelineCfg.MaxHops = cfg.Pipeline.MaxHops
	pipelineCfg.ContextBudget = cfg.Pipeline.ContextBudget

	refinerCfg := rag.DefaultRefinerConfig()
	refinerCfg.MaxIterations = cfg.Pipeline.MaxIterations

	compressor := rag.NewContextCompressor(rag.DefaultCompressorConfig(), provider, logger)

	pipeline := rag.NewPipeline(pipelineCfg, rag.PipelineDeps{
		Provider:   provider,
		Searcher:   searcher,
		MultiHop:   multiHop,
		Expander:   expander,
		Selector:   selector,
		Verifier:   verifier,
		Reranker:   reranker,
		Compressor: compressor,
		Cache:      answerCache,
		Metrics:    collector,
	}, refinerCfg, logger)

	indexer := ingest.NewIndexer(ingest.DefaultIndexerConfig(),
		ingest.NewChunker(ingest.ChunkerConfig{
			ChunkSize: cfg.Ingest.ChunkSize,
			Overlap:   cfg.Ingest.Overlap,
		}),
		embedder, store, lexical, logger)

	var fbSaver server.FeedbackSaver
	if fbStore != nil {
		fbSaver = fbStore
	}
	srv := server.New(cfg.Server, server.Deps{
		Asker:    pipeline,
		Indexer:  indexer,
		Feedback: fbSaver,
		Provider: provider,
		Metrics:  collector,
		Registry: registry,
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	logger.Info("ragqa started",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("provider", provider.Name()),
		zap.String("embedder", embedder.Name()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func resolveEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) embedding.Provider {
	if cfg.Provider == "openai" && cfg.APIKey != "" {
		return embedding.NewOpenAIProvider(embedding.OpenAIConfig{APIKey: cfg.APIKey}, logger)
	}
	if cfg.Provider == "openai" {
		logger.Warn("openai embeddings requested without an api key, using local embedder")
	}
	return embedding.NewLocalProvider(cfg.Dimensions)
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
