package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	pkgredis "github.com/prohmpiriya/community-portal/pkg/redis"
	"github.com/prohmpiriya/community-portal/pkg/response"
)

// Limiter decides whether the caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	// Tokens refilled per second per key
	RequestsPerSecond int
	// Token bucket capacity
	BurstSize int
	// Redis client; when nil the in-process bucket is used
	RedisClient *pkgredis.Client
	// Key prefix for Redis
	KeyPrefix string
	// Cleanup interval for local rate limiter
	CleanupInterval time.Duration
	// Entry TTL for local rate limiter
	EntryTTL time.Duration
}

// DefaultRateLimitConfig returns defaults sized for the registration endpoint
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		KeyPrefix:         "portal:ratelimit:",
		CleanupInterval:   time.Minute,
		EntryTTL:          time.Minute,
	}
}

type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastUpdate time.Time
}

// LocalRateLimiter is an in-memory token bucket per key
type LocalRateLimiter struct {
	config  RateLimitConfig
	entries sync.Map
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once

	allowed  atomic.Uint64
	rejected atomic.Uint64
}

// NewLocalRateLimiter creates a local limiter and starts its janitor
func NewLocalRateLimiter(config RateLimitConfig) *LocalRateLimiter {
	rl := &LocalRateLimiter{
		config: config,
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	if config.CleanupInterval > 0 {
		go rl.cleanup()
	}
	return rl
}

// Allow takes one token for key if available
func (rl *LocalRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := rl.now()

	v, _ := rl.entries.LoadOrStore(key, &bucket{
		tokens:     float64(rl.config.BurstSize),
		lastUpdate: now,
	})
	b := v.(*bucket)

	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens = min(float64(rl.config.BurstSize), b.tokens+elapsed*float64(rl.config.RequestsPerSecond))
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		rl.allowed.Add(1)
		return true, nil
	}

	rl.rejected.Add(1)
	return false, nil
}

// Stats returns allowed and rejected counts
func (rl *LocalRateLimiter) Stats() (allowed, rejected uint64) {
	return rl.allowed.Load(), rl.rejected.Load()
}

func (rl *LocalRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := rl.now().Add(-rl.config.EntryTTL)
			rl.entries.Range(func(key, value interface{}) bool {
				b := value.(*bucket)
				b.mu.Lock()
				if b.lastUpdate.Before(cutoff) {
					rl.entries.Delete(key)
				}
				b.mu.Unlock()
				return true
			})
		case <-rl.stop:
			return
		}
	}
}

// Stop stops the janitor goroutine
func (rl *LocalRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

const tokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

tokens = math.min(burst, tokens + (now - last_update) * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, 60)
return allowed
`

// RedisRateLimiter shares the token bucket across instances through a Lua script
type RedisRateLimiter struct {
	config RateLimitConfig
}

// NewRedisRateLimiter creates a Redis-backed limiter
func NewRedisRateLimiter(config RateLimitConfig) *RedisRateLimiter {
	return &RedisRateLimiter{config: config}
}

const tokenBucketScriptName = "token_bucket"

// Allow takes one token for key from Redis. The script is loaded on first use
// and reloaded if the server has flushed its script cache.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	client := rl.config.RedisClient
	keys := []string{rl.config.KeyPrefix + key}
	now := float64(time.Now().UnixNano()) / 1e9
	args := []interface{}{rl.config.RequestsPerSecond, rl.config.BurstSize, now}

	allowed, err := client.EvalShaByName(ctx, tokenBucketScriptName, keys, args...).Int64()
	if errors.Is(err, pkgredis.ErrScriptNotLoaded) || goredis.HasErrorPrefix(err, "NOSCRIPT") {
		if _, err := client.LoadScript(ctx, tokenBucketScriptName, tokenBucketScript); err != nil {
			return false, fmt.Errorf("rate limit script: %w", err)
		}
		allowed, err = client.EvalShaByName(ctx, tokenBucketScriptName, keys, args...).Int64()
	}
	if err != nil {
		return false, fmt.Errorf("rate limit script: %w", err)
	}
	return allowed == 1, nil
}

// NewLimiter picks the Redis limiter when a client is configured
func NewLimiter(config RateLimitConfig) Limiter {
	if config.RedisClient != nil {
		return NewRedisRateLimiter(config)
	}
	return NewLocalRateLimiter(config)
}

// RateLimitKey identifies the caller by actor id, falling back to client IP
func RateLimitKey(c *gin.Context) string {
	if id, ok := GetUserID(c); ok && id != "" {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimiter throttles requests per caller. Limiter errors fail open.
func RateLimiter(limiter Limiter, requestsPerSecond int) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, err := limiter.Allow(c.Request.Context(), RateLimitKey(c))
		if err != nil {
			allowed = true
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(requestsPerSecond))

		if !allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				response.TooManyRequests("Rate limit exceeded. Please retry after 1 second(s)."))
			return
		}

		c.Next()
	}
}
