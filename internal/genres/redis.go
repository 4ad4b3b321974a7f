package genres

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/promptlist/internal/shared"
	"github.com/redis/go-redis/v9"
)

// KeyGenreSeeds is the Redis key holding the JSON encoded vocabulary.
const KeyGenreSeeds = "promptlist:cache:genre_seeds"

// RedisCache is a [SharedCache] backed by Redis.
//
// The first Redis error opens the breaker and every later call becomes a no-op.
type RedisCache struct {
	client *redis.Client
	logger *log.Logger

	mu       sync.RWMutex
	disabled bool
}

// NewRedisCache connects to cfg.RedisAddr. An unreachable server yields a disabled cache, not an error.
func NewRedisCache(cfg shared.CacheConfig, logger *log.Logger) *RedisCache {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	logger = shared.WithLogger(logger, "component", "cache")

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, genre seeds cached in-process only", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return &RedisCache{logger: logger, disabled: true}
	}

	logger.Info("redis genre cache initialized", "addr", cfg.RedisAddr)
	return &RedisCache{client: client, logger: logger}
}

// Available reports whether the cache is operational.
func (c *RedisCache) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// Load reads the vocabulary and its remaining TTL.
//
// A key without an expiry reports a zero TTL.
func (c *RedisCache) Load(ctx context.Context) ([]string, time.Duration, bool) {
	if !c.Available() {
		return nil, 0, false
	}

	pipe := c.client.Pipeline()
	get := pipe.Get(ctx, KeyGenreSeeds)
	ttl := pipe.TTL(ctx, KeyGenreSeeds)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		c.trip(err, "get")
		return nil, 0, false
	}

	data, err := get.Bytes()
	if err != nil {
		return nil, 0, false
	}

	var seeds []string
	if err := json.Unmarshal(data, &seeds); err != nil {
		c.logger.Debug("discarding unreadable cached genre seeds", "error", err)
		return nil, 0, false
	}
	return seeds, max(ttl.Val(), 0), true
}

// Store writes the vocabulary with ttl.
func (c *RedisCache) Store(ctx context.Context, seeds []string, ttl time.Duration) {
	if !c.Available() {
		return
	}

	data, err := json.Marshal(seeds)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, KeyGenreSeeds, data, ttl).Err(); err != nil {
		c.trip(err, "set")
	}
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func (c *RedisCache) trip(err error, operation string) {
	c.mu.Lock()
	c.disabled = true
	c.mu.Unlock()
	c.logger.Warn("disabling redis genre cache", "operation", operation, "error", err)
}
