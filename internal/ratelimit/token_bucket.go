// Package ratelimit throttles outbound generation calls with a token bucket
// kept in Redis, so every worker process shares one budget per engine.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cast"
)

var ErrLimited = errors.New("generation rate limit exceeded")

type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// LimitedError is returned by Acquire when the bucket is empty. It matches
// ErrLimited with errors.Is.
type LimitedError struct {
	Subject    string
	RetryAfter time.Duration
}

func (e *LimitedError) Error() string {
	return fmt.Sprintf("%s for %s, retry after %s", ErrLimited, e.Subject, e.RetryAfter)
}

func (e *LimitedError) Is(target error) bool {
	return target == ErrLimited
}

const tokenBucketScript = `
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local refill_per_ms = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local requested = tonumber(ARGV[4])
local ttl_ms = tonumber(ARGV[5])

local data = redis.call("HMGET", key, "tokens", "timestamp")
local tokens = tonumber(data[1]) or capacity
local timestamp = tonumber(data[2]) or now_ms

local elapsed = math.max(0, now_ms - timestamp)
tokens = math.min(capacity, tokens + (elapsed * refill_per_ms))

local allowed = 0
local retry_after_ms = 0
if tokens >= requested then
  tokens = tokens - requested
  allowed = 1
else
  retry_after_ms = math.ceil((requested - tokens) / refill_per_ms)
end

redis.call("HMSET", key, "tokens", tokens, "timestamp", now_ms)
redis.call("PEXPIRE", key, ttl_ms)

return {allowed, math.floor(tokens), retry_after_ms}
`

type RedisTokenBucket struct {
	client      redis.UniversalClient
	capacity    int64
	refillPerMS float64
	ttl         time.Duration
	keyPrefix   string
	now         func() time.Time
	script      *redis.Script
}

// NewRedisTokenBucket allows capacity calls per window for each subject.
func NewRedisTokenBucket(client redis.UniversalClient, capacity int, window time.Duration, keyPrefix string) (*RedisTokenBucket, error) {
	switch {
	case client == nil:
		return nil, fmt.Errorf("redis client is required")
	case capacity <= 0:
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	case window <= 0:
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}

	if strings.TrimSpace(keyPrefix) == "" {
		keyPrefix = "pixelgen:ratelimit"
	}
	windowMS := max(window.Milliseconds(), 1)

	return &RedisTokenBucket{
		client:      client,
		capacity:    int64(capacity),
		refillPerMS: float64(capacity) / float64(windowMS),
		ttl:         2 * window,
		keyPrefix:   keyPrefix,
		now:         time.Now,
		script:      redis.NewScript(tokenBucketScript),
	}, nil
}

func (l *RedisTokenBucket) Allow(ctx context.Context, subject string) (Decision, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "anonymous"
	}

	key := l.keyPrefix + ":" + subject
	raw, err := l.script.Run(
		ctx,
		l.client,
		[]string{key},
		l.capacity,
		l.refillPerMS,
		l.now().UTC().UnixMilli(),
		1,
		l.ttl.Milliseconds(),
	).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("run token bucket script: %w", err)
	}

	values, ok := raw.([]any)
	if !ok || len(values) != 3 {
		return Decision{}, fmt.Errorf("invalid token bucket response %v", raw)
	}

	var parsed [3]int64
	for i, v := range values {
		if parsed[i], err = cast.ToInt64E(v); err != nil {
			return Decision{}, fmt.Errorf("parse token bucket value %d: %w", i, err)
		}
	}

	return Decision{
		Allowed:    parsed[0] == 1,
		Remaining:  parsed[1],
		RetryAfter: time.Duration(parsed[2]) * time.Millisecond,
	}, nil
}

// Acquire takes one token for subject or returns a *LimitedError.
func (l *RedisTokenBucket) Acquire(ctx context.Context, subject string) error {
	decision, err := l.Allow(ctx, subject)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return &LimitedError{Subject: subject, RetryAfter: decision.RetryAfter}
	}
	return nil
}
