// Package config loads the service configuration from YAML with
// environment overrides for secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// RateLimit is requests per second allowed per client IP.
	RateLimit float64 `yaml:"rate_limit"`
	RateBurst int     `yaml:"rate_burst"`
}

type LLMConfig struct {
	// Provider forces a backend: openai, groq, or demo. Empty selects by
	// available API keys.
	Provider     string `yaml:"provider"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	GroqAPIKey   string `yaml:"groq_api_key"`
}

type EmbeddingConfig struct {
	// Provider is openai or local.
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
}

type RerankConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
}

type PipelineConfig struct {
	UseExpansion   bool `yaml:"use_expansion"`
	UseMultiHop    bool `yaml:"use_multi_hop"`
	UseRefinement  bool `yaml:"use_refinement"`
	UseCompression bool `yaml:"use_compression"`
	MaxHops        int  `yaml:"max_hops"`
	MaxIterations  int  `yaml:"max_iterations"`
	ContextBudget  int  `yaml:"context_budget"`
}

type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type FeedbackConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type IngestConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

type LogConfig struct {
	// Level is debug, info, warn, or error.
	Level string `yaml:"level"`
	// Development switches to the console encoder.
	Development bool `yaml:"development"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Cache     CacheConfig     `yaml:"cache"`
	Feedback  FeedbackConfig  `yaml:"feedback"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Log       LogConfig       `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       5,
			RateBurst:       10,
		},
		Embedding: EmbeddingConfig{
			Provider: "local",
		},
		Pipeline: PipelineConfig{
			UseExpansion:  true,
			UseMultiHop:   true,
			UseRefinement: true,
			MaxHops:       3,
			MaxIterations: 3,
			ContextBudget: 3000,
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
			TTL:  time.Hour,
		},
		Feedback: FeedbackConfig{
			Enabled: true,
			Path:    "feedback.db",
		},
		Ingest: IngestConfig{
			ChunkSize: 200,
			Overlap:   40,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path on top of the defaults. An empty path returns the
// defaults with environment overrides applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets deployment secrets override file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAIAPIKey = v
		if c.Embedding.APIKey == "" {
			c.Embedding.APIKey = v
		}
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.LLM.GroqAPIKey = v
	}
	if v := os.Getenv("JINA_API_KEY"); v != "" {
		c.Rerank.APIKey = v
		c.Rerank.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Addr = v
		c.Cache.Enabled = true
	}
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("server.rate_limit must be positive")
	}
	if c.Pipeline.MaxHops < 1 {
		return fmt.Errorf("pipeline.max_hops must be at least 1")
	}
	if c.Pipeline.MaxIterations < 1 {
		return fmt.Errorf("pipeline.max_iterations must be at least 1")
	}
	if c.Ingest.Overlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.overlap must be smaller than ingest.chunk_size")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	return nil
}
