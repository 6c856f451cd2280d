// Package ratelimit counts requests per key in fixed windows, either in
// Redis (shared by every editor instance) or in process memory.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Logger interface for logging
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
}

// Result contains the result of a rate limit check
type Result struct {
	Allowed    bool          // Whether the request is allowed
	Count      int64         // Requests counted in the current window, this one included
	Limit      int64         // The limit that was checked
	RetryAfter time.Duration // Time until the window resets (0 if allowed)
}

// Limiter checks and counts one request against key
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (Result, error)
}

// fixedWindowScript increments KEYS[1] and starts its window on the first
// hit. Returns {count, pttl}.
const fixedWindowScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
  ttl = tonumber(ARGV[1])
end
return {count, ttl}
`

// RedisLimiter runs the window check atomically in a Lua script
type RedisLimiter struct {
	redis  *redis.Client
	script *redis.Script
	prefix string
	logger Logger
}

// NewRedisLimiter creates a limiter on an existing client
func NewRedisLimiter(client *redis.Client, prefix string, logger Logger) *RedisLimiter {
	return &RedisLimiter{
		redis:  client,
		script: redis.NewScript(fixedWindowScript),
		prefix: prefix,
		logger: logger,
	}
}

// Allow counts one request against key
func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (Result, error) {
	full := r.prefix + key
	raw, err := r.script.Run(ctx, r.redis, []string{full}, window.Milliseconds()).Int64Slice()
	if err != nil {
		r.logger.Error("rate limit check failed", "key", full, "error", err)
		return Result{}, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(raw) != 2 {
		return Result{}, fmt.Errorf("unexpected script result: %v", raw)
	}

	result := evaluate(raw[0], limit, time.Duration(raw[1])*time.Millisecond)
	if !result.Allowed {
		r.logger.Warn("rate limit exceeded", "key", full, "current", result.Count, "limit", limit, "retry_after", result.RetryAfter)
	}
	return result, nil
}

// Reset clears a rate limit counter
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.redis.Del(ctx, r.prefix+key).Err()
}

type window struct {
	count   int64
	resetAt time.Time
}

// MemoryLimiter keeps windows in process memory; expired windows are
// dropped lazily
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]window
	now     func() time.Time
	logger  Logger
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter(logger Logger) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]window),
		now:     time.Now,
		logger:  logger,
	}
}

// Allow counts one request against key
func (m *MemoryLimiter) Allow(ctx context.Context, key string, limit int64, period time.Duration) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = window{resetAt: now.Add(period)}
		m.sweep(now)
	}
	w.count++
	m.windows[key] = w

	result := evaluate(w.count, limit, w.resetAt.Sub(now))
	if !result.Allowed {
		m.logger.Warn("rate limit exceeded", "key", key, "current", result.Count, "limit", limit, "retry_after", result.RetryAfter)
	}
	return result, nil
}

// sweep drops expired windows; callers hold mu
func (m *MemoryLimiter) sweep(now time.Time) {
	for key, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, key)
		}
	}
}

func evaluate(count, limit int64, remaining time.Duration) Result {
	result := Result{Allowed: count <= limit, Count: count, Limit: limit}
	if !result.Allowed {
		result.RetryAfter = remaining
	}
	return result
}
