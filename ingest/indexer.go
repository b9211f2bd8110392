package ingest

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Vijayvaraprasad/rag-qa-system/llm/embedding"
	"github.com/Vijayvaraprasad/rag-qa-system/rag"
)

// IndexerConfig bounds embedding parallelism.
type IndexerConfig struct {
	BatchSize   int `json:"batch_size"`
	Concurrency int `json:"concurrency"`
}

func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		BatchSize:   32,
		Concurrency: 4,
	}
}

// Indexer chunks, embeds, and indexes documents into both retrieval
// backends. The lexical index is rebuilt over the full corpus after every
// ingest so BM25 statistics stay consistent.
type Indexer struct {
	cfg      IndexerConfig
	chunker  *Chunker
	embedder embedding.Provider
	store    rag.VectorStore
	lexical  *rag.LexicalIndex
	logger   *zap.Logger

	mu    sync.Mutex
	texts []string
}

func NewIndexer(
	cfg IndexerConfig,
	chunker *Chunker,
	embedder embedding.Provider,
	store rag.VectorStore,
	lexical *rag.LexicalIndex,
	logger *zap.Logger,
) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultIndexerConfig().BatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultIndexerConfig().Concurrency
	}
	return &Indexer{
		cfg:      cfg,
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		lexical:  lexical,
		logger:   logger.With(zap.String("component", "indexer")),
	}
}

// IndexDocuments chunks and embeds the documents and adds them to the
// vector store, then rebuilds the lexical index. Returns the number of
// chunks indexed. Embedding batches run concurrently; any batch failure
// aborts the whole ingest before the stores are touched.
func (ix *Indexer) IndexDocuments(ctx context.Context, docs []Document) (int, error) {
	var chunks []rag.Chunk
	for _, doc := range docs {
		chunks = append(chunks, ix.chunker.Chunk(doc)...)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)

	for start := 0; start < len(chunks); start += ix.cfg.BatchSize {
		end := start + ix.cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vectors, err := ix.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embed batch: got %d vectors for %d chunks", len(vectors), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := ix.store.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("vector store add: %w", err)
	}

	ix.mu.Lock()
	for _, c := range chunks {
		ix.texts = append(ix.texts, c.Text)
	}
	corpus := make([]string, len(ix.texts))
	copy(corpus, ix.texts)
	ix.mu.Unlock()

	ix.lexical.Index(corpus)

	ix.logger.Info("documents indexed",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("corpus_size", len(corpus)))
	return len(chunks), nil
}

// CorpusSize reports the number of chunks ingested so far.
func (ix *Indexer) CorpusSize() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.texts)
}
