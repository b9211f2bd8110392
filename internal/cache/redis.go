// Package cache provides the Redis-backed answer cache. Every failure mode
// degrades to a cache miss so an unreachable Redis never blocks answering.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Vijayvaraprasad/rag-qa-system/rag"
)

const keyPrefix = "ragqa:answer:"

// Config points at Redis and sets the answer TTL.
type Config struct {
	Addr     string        `json:"addr"`
	Password string        `json:"password"`
	DB       int           `json:"db"`
	TTL      time.Duration `json:"ttl"`
}

func DefaultConfig() Config {
	return Config{
		Addr: "localhost:6379",
		TTL:  time.Hour,
	}
}

// RedisCache implements the pipeline's answer cache on Redis. Keys are the
// SHA-256 of the normalized question, so trivial casing and whitespace
// differences share an entry.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(cfg Config, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger.With(zap.String("component", "answer_cache")),
	}
}

// Key returns the cache key for a question.
func Key(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return keyPrefix + hex.EncodeToString(sum[:])
}

func (c *RedisCache) Get(ctx context.Context, question string) (*rag.Answer, bool) {
	data, err := c.client.Get(ctx, Key(question)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("cache get failed", zap.Error(err))
		return nil, false
	}

	var answer rag.Answer
	if err := json.Unmarshal(data, &answer); err != nil {
		c.logger.Warn("cache entry corrupt, dropping", zap.Error(err))
		c.client.Del(ctx, Key(question))
		return nil, false
	}
	return &answer, true
}

func (c *RedisCache) Set(ctx context.Context, question string, answer *rag.Answer) {
	data, err := json.Marshal(answer)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, Key(question), data, c.ttl).Err(); err != nil {
		c.logger.Warn("cache set failed", zap.Error(err))
	}
}

// Ping reports whether Redis is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client connections.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
