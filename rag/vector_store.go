package rag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// VectorStore is the opaque nearest-neighbor index. Distance convention is
// cosine distance in [0,2], lower meaning more similar. Implementations must
// be safe for concurrent queries; the query path never mutates the store.
type VectorStore interface {
	// Add indexes chunks. Every chunk must carry a unit-normalized embedding.
	Add(ctx context.Context, chunks []Chunk) error

	// Query returns up to topK matches ranked by ascending distance.
	Query(ctx context.Context, vector []float64, topK int) ([]VectorMatch, error)

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)
}

// VectorMatch is one ranked nearest-neighbor result.
type VectorMatch struct {
	Chunk    Chunk   `json:"chunk"`
	Distance float64 `json:"distance"`
}

// InMemoryVectorStore is a process-local VectorStore for tests and small
// corpora. Reads take a shared lock only; ingestion-time writes take the
// exclusive lock.
type InMemoryVectorStore struct {
	mu     sync.RWMutex
	chunks []Chunk
	logger *zap.Logger
}

func NewInMemoryVectorStore(logger *zap.Logger) *InMemoryVectorStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryVectorStore{
		chunks: make([]Chunk, 0),
		logger: logger.With(zap.String("component", "vector_store")),
	}
}

func (s *InMemoryVectorStore) Add(ctx context.Context, chunks []Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s has no embedding", c.ID)
		}
	}

	s.mu.Lock()
	s.chunks = append(s.chunks, chunks...)
	total := len(s.chunks)
	s.mu.Unlock()

	s.logger.Info("chunks added",
		zap.Int("count", len(chunks)),
		zap.Int("total", total))
	return nil
}

func (s *InMemoryVectorStore) Query(ctx context.Context, vector []float64, topK int) ([]VectorMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []VectorMatch{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]VectorMatch, 0, len(s.chunks))
	for _, c := range s.chunks {
		if len(c.Embedding) != len(vector) {
			continue
		}
		matches = append(matches, VectorMatch{
			Chunk:    c,
			Distance: 1.0 - dotProduct(vector, c.Embedding),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *InMemoryVectorStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}

// dotProduct assumes unit-normalized inputs, so it equals cosine similarity.
func dotProduct(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
