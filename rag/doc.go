// Package rag implements the retrieval and refinement core of the QA
// pipeline: hybrid semantic+keyword scoring, query expansion, multi-hop
// entity-chained retrieval, adaptive similarity thresholds, answer
// verification, and recursive retrieve-generate-verify refinement.
//
// The package owns the scoring, merging, chaining, and convergence logic
// that decides what context reaches the generator. The embedding model,
// cross-encoder reranker, nearest-neighbor store, and generative model are
// external collaborators injected as interfaces; every LLM-backed stage
// degrades to a documented safe default when its external call fails, so a
// question always yields an answer.
package rag
