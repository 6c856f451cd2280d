package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores entries in Redis under a key prefix so several editor
// instances share search results
type RedisCache struct {
	redis  *redis.Client
	prefix string
	logger Logger
}

// NewRedisCache wraps an existing client
func NewRedisCache(client *redis.Client, prefix string, logger Logger) *RedisCache {
	return &RedisCache{
		redis:  client,
		prefix: prefix,
		logger: logger,
	}
}

// Get retrieves a value; a missing key is a miss, not an error
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.redis.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		c.logger.Debug("redis GET key not found", "key", key)
		return nil, false, nil
	}
	if err != nil {
		c.logger.Error("redis GET failed", "key", key, "error", err)
		return nil, false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores a value with expiration
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.redis.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.logger.Error("redis SET failed", "key", key, "error", err)
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	c.logger.Debug("redis SET", "key", key, "expiry", ttl)
	return nil
}

// Delete removes a value
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.redis.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

// Client returns the underlying client for other Redis-backed components
func (c *RedisCache) Client() *redis.Client {
	return c.redis
}

// Close closes the underlying client
func (c *RedisCache) Close() error {
	return c.redis.Close()
}
