// Package llm provides a uniform generative text service over multiple
// upstream providers. A provider is selected once at startup by resolution
// order (OpenAI, then Groq, then the offline demo provider); every consumer
// sees the same Complete signature regardless of which backend answered.
package llm

import (
	"context"
	"errors"
	"time"
)

// ErrorCode aligns provider failures with retryability and degradation policy.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "LLM_INVALID_REQUEST"
	ErrUnauthorized        ErrorCode = "LLM_UNAUTHORIZED"
	ErrRateLimited         ErrorCode = "LLM_RATE_LIMITED"
	ErrUpstreamTimeout     ErrorCode = "LLM_UPSTREAM_TIMEOUT"
	ErrUpstreamError       ErrorCode = "LLM_UPSTREAM_ERROR"
	ErrParseFailure        ErrorCode = "LLM_PARSE_FAILURE"
	ErrProviderUnavailable ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
)

type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Provider  string    `json:"provider,omitempty"`
	// RetryAfter is set for rate-limited errors when the wait until the
	// budget window frees up is known.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

func (e *Error) Error() string { return e.Message }

// IsRateLimited reports whether err is a retryable rate-limit condition,
// either from the local call budget or the upstream API.
func IsRateLimited(err error) bool {
	var le *Error
	return errors.As(err, &le) && le.Code == ErrRateLimited
}

// CompletionRequest is a single-turn text completion request.
type CompletionRequest struct {
	Prompt      string        `json:"prompt"`
	System      string        `json:"system,omitempty"`
	Model       string        `json:"model,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

type CompletionResponse struct {
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Text      string    `json:"text"`
	Usage     Usage     `json:"usage,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// HealthStatus is the result of a provider health probe.
type HealthStatus struct {
	Healthy bool          `json:"healthy"`
	Latency time.Duration `json:"latency"`
	Message string        `json:"message,omitempty"`
}

// Provider is the uniform generative text capability consumed by the
// retrieval pipeline. Implementations must honor ctx cancellation and the
// request timeout.
type Provider interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	Name() string
	HealthCheck(ctx context.Context) (*HealthStatus, error)
}

// CompleteText runs a completion and returns just the text.
func CompleteText(ctx context.Context, p Provider, req CompletionRequest) (string, error) {
	resp, err := p.Complete(ctx, &req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
