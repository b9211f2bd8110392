package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GroqConfig configures the Groq backend. Groq exposes an OpenAI-compatible
// chat completions surface under /openai/v1.
type GroqConfig struct {
	APIKey  string        `yaml:"api_key" json:"api_key"`
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Model   string        `yaml:"model" json:"model"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// GroqProvider implements Provider against the Groq API.
type GroqProvider struct {
	cfg    GroqConfig
	client *http.Client
	logger *zap.Logger
}

func NewGroqProvider(cfg GroqConfig, logger *zap.Logger) *GroqProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.groq.com"
	}
	if cfg.Model == "" {
		cfg.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroqProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("provider", "groq")),
	}
}

func (p *GroqProvider) Name() string { return "groq" }

func (p *GroqProvider) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if req == nil || strings.TrimSpace(req.Prompt) == "" {
		return nil, &Error{Code: ErrInvalidRequest, Message: "empty prompt", Provider: p.Name()}
	}

	model := req.Model
	if model == "" {
		model = p.cfg.Model
	}

	messages := make([]openAIMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(openAIRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, &Error{Code: ErrInvalidRequest, Message: err.Error(), Provider: p.Name()}
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/openai/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Code: ErrInvalidRequest, Message: err.Error(), Provider: p.Name()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &Error{Code: ErrUpstreamTimeout, Message: err.Error(), Retryable: true, Provider: p.Name()}
		}
		return nil, &Error{Code: ErrUpstreamError, Message: err.Error(), Retryable: true, Provider: p.Name()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: ErrUpstreamError, Message: err.Error(), Retryable: true, Provider: p.Name()}
	}

	if resp.StatusCode != http.StatusOK {
		msg := extractAPIErrorMessage(data)
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &Error{Code: ErrUnauthorized, Message: msg, Provider: p.Name()}
		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &Error{Code: ErrRateLimited, Message: msg, Retryable: true, Provider: p.Name()}
		case resp.StatusCode >= 500:
			return nil, &Error{Code: ErrUpstreamError, Message: msg, Retryable: true, Provider: p.Name()}
		default:
			return nil, &Error{Code: ErrUpstreamError, Message: msg, Provider: p.Name()}
		}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &Error{Code: ErrParseFailure, Message: err.Error(), Provider: p.Name()}
	}
	if len(parsed.Choices) == 0 {
		return nil, &Error{Code: ErrParseFailure, Message: "response contained no choices", Provider: p.Name()}
	}

	return &CompletionResponse{
		Provider: p.Name(),
		Model:    parsed.Model,
		Text:     parsed.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
		CreatedAt: time.Now(),
	}, nil
}

func (p *GroqProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	start := time.Now()
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/openai/v1/models"
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &HealthStatus{Healthy: false, Latency: latency, Message: err.Error()}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		return &HealthStatus{Healthy: false, Latency: latency, Message: msg}, fmt.Errorf("groq health check failed: %s", msg)
	}
	return &HealthStatus{Healthy: true, Latency: latency}, nil
}
