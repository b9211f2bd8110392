// Package ingest turns raw documents into embedded, indexed chunks.
package ingest

import (
	"strings"

	"github.com/google/uuid"

	"github.com/Vijayvaraprasad/rag-qa-system/rag"
)

// Document is a raw text unit submitted for indexing.
type Document struct {
	Text   string         `json:"text"`
	Source string         `json:"source,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

// ChunkerConfig sets the sliding window in words.
type ChunkerConfig struct {
	ChunkSize int `json:"chunk_size"`
	Overlap   int `json:"overlap"`
}

func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		ChunkSize: 200,
		Overlap:   40,
	}
}

// Chunker splits documents into overlapping word windows. Overlap keeps
// sentences that straddle a boundary retrievable from both sides.
type Chunker struct {
	cfg ChunkerConfig
}

func NewChunker(cfg ChunkerConfig) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkerConfig().ChunkSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 5
	}
	return &Chunker{cfg: cfg}
}

// Chunk splits one document. Each chunk gets a fresh ID and inherits the
// document's source and metadata. Empty documents produce no chunks.
func (c *Chunker) Chunk(doc Document) []rag.Chunk {
	words := strings.Fields(doc.Text)
	if len(words) == 0 {
		return nil
	}

	step := c.cfg.ChunkSize - c.cfg.Overlap
	var chunks []rag.Chunk
	for start := 0; start < len(words); start += step {
		end := start + c.cfg.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, rag.Chunk{
			ID:       uuid.NewString(),
			Text:     strings.Join(words[start:end], " "),
			Source:   doc.Source,
			Metadata: doc.Meta,
		})
		if end == len(words) {
			break
		}
	}
	return chunks
}
