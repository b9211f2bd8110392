package rag

import (
	"context"

	"github.com/Vijayvaraprasad/rag-qa-system/llm"
)

// scriptedProvider replays canned replies in order, repeating the last one
// once the script runs out.
type scriptedProvider struct {
	replies []string
	err     error
	calls   int
	prompts []string
}

func (s *scriptedProvider) Complete(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.calls++
	s.prompts = append(s.prompts, req.Prompt)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.replies) == 0 {
		return &llm.CompletionResponse{Provider: "scripted", Text: ""}, nil
	}
	idx := s.calls - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	return &llm.CompletionResponse{Provider: "scripted", Text: s.replies[idx]}, nil
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) HealthCheck(context.Context) (*llm.HealthStatus, error) {
	return &llm.HealthStatus{Healthy: true}, nil
}
