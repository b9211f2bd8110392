package rag

import "time"

// Chunk is the immutable unit of retrievable text. Chunks are created during
// ingestion and never mutated; removal requires a full reindex.
type Chunk struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Source    string         `json:"source,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float64      `json:"embedding,omitempty"`
}

// ScoredCandidate pairs chunk text with a score for one query. Semantic and
// hybrid scores live in [0,1]; raw BM25 scores are unbounded.
type ScoredCandidate struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// HopRecord traces one retrieval round of a multi-hop session.
type HopRecord struct {
	Hop      int      `json:"hop"`
	Query    string   `json:"query"`
	Chunks   []string `json:"chunks"`
	Entities []string `json:"entities"`
}

// MultiHopResult is the outcome of an entity-chained retrieval session.
type MultiHopResult struct {
	// AllChunks is the deduplicated union of chunk texts across hops, in
	// first-retrieved order.
	AllChunks     []string    `json:"all_chunks"`
	TotalChunks   int         `json:"total_chunks"`
	HopsPerformed int         `json:"hops_performed"`
	Chain         []HopRecord `json:"chain"`
	Summary       string      `json:"summary"`
}

// Complexity classifies a question for threshold selection.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// ThresholdProfile is the per-question similarity cutoff and candidate-count
// target derived from complexity classification. It is computed per question
// and never persisted.
type ThresholdProfile struct {
	Complexity     Complexity `json:"complexity"`
	Confidence     float64    `json:"confidence"`
	Threshold      float64    `json:"threshold"`
	RetrievalCount int        `json:"retrieval_count"`
	Reasoning      string     `json:"reasoning"`
}

// VerificationResult reports whether a generated answer is supported by the
// supplied context.
type VerificationResult struct {
	IsGrounded     bool    `json:"is_grounded"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	VerifiedAnswer string  `json:"verified_answer"`
}

// IterationRecord traces one retrieve-generate-verify round of the recursive
// refiner.
type IterationRecord struct {
	Iteration   int     `json:"iteration"`
	QueryUsed   string  `json:"query_used"`
	ChunksFound int     `json:"chunks_found"`
	Answer      string  `json:"answer"`
	Confidence  float64 `json:"confidence"`
	IsGrounded  bool    `json:"is_grounded"`
}

// RefineResult is the outcome of a recursive refinement session. It carries
// the best-confidence iteration seen, which is not necessarily the last one.
type RefineResult struct {
	FinalAnswer string            `json:"final_answer"`
	FinalChunks []string          `json:"final_chunks"`
	Iterations  int               `json:"iterations"`
	Confidence  float64           `json:"confidence"`
	Converged   bool              `json:"converged"`
	History     []IterationRecord `json:"history"`
}

// Answer is the end-to-end pipeline result for one question.
type Answer struct {
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	Chunks     []string   `json:"chunks,omitempty"`
	Complexity Complexity `json:"complexity"`
	Threshold  float64    `json:"threshold"`
	Confidence float64    `json:"confidence"`
	Grounded   bool       `json:"grounded"`
	Method     string     `json:"method"`
	Iterations int        `json:"iterations,omitempty"`
	Converged  bool       `json:"converged,omitempty"`
	Provider   string     `json:"provider,omitempty"`
	FromCache  bool       `json:"from_cache"`
	CreatedAt  time.Time  `json:"created_at"`
}
