package llm

import (
	"context"
	"strings"
	"time"
)

// DemoProvider is the keyless fallback backend. It answers deterministically
// from the prompt text so the pipeline stays usable without any API key and
// so tests can run fully offline.
type DemoProvider struct{}

func NewDemoProvider() *DemoProvider { return &DemoProvider{} }

func (p *DemoProvider) Name() string { return "demo" }

func (p *DemoProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, &Error{Code: ErrInvalidRequest, Message: "empty prompt", Provider: p.Name()}
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Code: ErrUpstreamTimeout, Message: err.Error(), Retryable: true, Provider: p.Name()}
	}

	summary := summarize(req.Prompt, 500)
	text := "[demo mode] Based on the provided context:\n\n" + summary +
		"\n\nSet OPENAI_API_KEY or GROQ_API_KEY to enable real model responses."

	return &CompletionResponse{
		Provider:  p.Name(),
		Model:     "demo",
		Text:      text,
		CreatedAt: time.Now(),
	}, nil
}

func (p *DemoProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return &HealthStatus{Healthy: true}, nil
}

// summarize keeps the first maxLen characters of the non-empty lines.
func summarize(text string, maxLen int) string {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if b.Len() >= maxLen {
			break
		}
	}
	s := b.String()
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return s
}
