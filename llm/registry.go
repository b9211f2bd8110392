package llm

import (
	"os"

	"go.uber.org/zap"
)

// Config selects and configures the generative backend.
type Config struct {
	// Provider forces a backend ("openai", "groq", "demo"). Empty means
	// resolve by key availability: OpenAI, then Groq, then demo.
	Provider string       `yaml:"provider" json:"provider"`
	OpenAI   OpenAIConfig `yaml:"openai" json:"openai"`
	Groq     GroqConfig   `yaml:"groq" json:"groq"`
}

// Resolve picks the provider once at startup. The returned handle is what
// every pipeline stage receives by injection; nothing else in the process
// branches on which backend is active.
func Resolve(cfg Config, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Groq.APIKey == "" {
		cfg.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.OpenAI, logger)
	case "groq":
		return NewGroqProvider(cfg.Groq, logger)
	case "demo":
		return NewDemoProvider()
	}

	if cfg.OpenAI.APIKey != "" {
		logger.Info("resolved llm provider", zap.String("provider", "openai"))
		return NewOpenAIProvider(cfg.OpenAI, logger)
	}
	if cfg.Groq.APIKey != "" {
		logger.Info("resolved llm provider", zap.String("provider", "groq"))
		return NewGroqProvider(cfg.Groq, logger)
	}

	logger.Warn("no llm api key configured, falling back to demo provider")
	return NewDemoProvider()
}
