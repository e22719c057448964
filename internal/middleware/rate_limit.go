package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Bucket identifies a rate-limit class of routes.
type Bucket string

const (
	BucketDefault    Bucket = "default"
	BucketGeneration Bucket = "recipe-generation"
	BucketStatus     Bucket = "recipe-status"
	BucketChat       Bucket = "chat"
)

// BucketConfig is one fixed-window counter definition.
type BucketConfig struct {
	Window time.Duration
	Limit  int
}

// RateLimitConfig holds the per-bucket caps plus the floor granted to any
// authenticated identity regardless of bucket.
type RateLimitConfig struct {
	Buckets          map[Bucket]BucketConfig
	AuthenticatedCap int
}

// DefaultRateLimitConfig returns the production caps. Status polling gets a
// much higher allowance than generation submission since polls are cheap.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Buckets: map[Bucket]BucketConfig{
			BucketDefault:    {Window: time.Minute, Limit: 60},
			BucketGeneration: {Window: time.Minute, Limit: 15},
			BucketStatus:     {Window: time.Minute, Limit: 120},
			BucketChat:       {Window: time.Minute, Limit: 30},
		},
		AuthenticatedCap: 30,
	}
}

// TieredRateLimiter enforces fixed-window limits per bucket and identity.
// Counters live in Redis so the limits hold across API instances; when Redis
// is unreachable it falls back to a per-process counter, trading
// cross-instance accuracy for availability.
type TieredRateLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	logger *zap.Logger

	mu    sync.Mutex
	local map[string]*localWindow
}

type localWindow struct {
	windowStart time.Time
	count       int
}

// NewTieredRateLimiter creates a rate limiter. redisClient may be nil, in
// which case only the local counter is used.
func NewTieredRateLimiter(redisClient *redis.Client, config RateLimitConfig, logger *zap.Logger) *TieredRateLimiter {
	if config.Buckets == nil {
		config = DefaultRateLimitConfig()
	}
	return &TieredRateLimiter{
		redis:  redisClient,
		config: config,
		logger: logger,
		local:  make(map[string]*localWindow),
	}
}

// Middleware classifies the request into a bucket by path prefix and
// enforces that bucket's window for the caller's identity.
func (rl *TieredRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		bucket := classify(c.Request.Method, c.Request.URL.Path)
		identity, authenticated := rl.identity(c)

		cfg := rl.config.Buckets[bucket]
		if cfg.Limit <= 0 {
			cfg = rl.config.Buckets[BucketDefault]
		}
		limit := cfg.Limit
		if authenticated && rl.config.AuthenticatedCap > limit {
			limit = rl.config.AuthenticatedCap
		}

		count, resetTime := rl.increment(c.Request.Context(), bucket, identity, cfg.Window)

		remaining := limit - int(count)
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if int(count) > limit {
			retryAfter := int(time.Until(resetTime).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "TOO_MANY_REQUESTS",
					"message": fmt.Sprintf("rate limit of %d requests per %v exceeded", limit, cfg.Window),
				},
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// increment bumps the fixed-window counter and returns the new count and the
// window's reset time. Redis failures degrade to the local counter.
func (rl *TieredRateLimiter) increment(ctx context.Context, bucket Bucket, identity string, window time.Duration) (int64, time.Time) {
	now := time.Now()
	windowStart := now.Truncate(window)
	resetTime := windowStart.Add(window)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", bucket, identity, windowStart.Unix())

	if rl.redis != nil {
		pipe := rl.redis.Pipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, window)
		if _, err := pipe.Exec(ctx); err == nil {
			return incr.Val(), resetTime
		} else if rl.logger != nil {
			rl.logger.Warn("rate limit store unreachable, using local counter", zap.Error(err))
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	w, ok := rl.local[key]
	if !ok || !w.windowStart.Equal(windowStart) {
		w = &localWindow{windowStart: windowStart}
		rl.local[key] = w
		// Drop counters from expired windows so the map stays bounded.
		for k, old := range rl.local {
			if now.Sub(old.windowStart) > window*2 {
				delete(rl.local, k)
			}
		}
	}
	w.count++
	return int64(w.count), resetTime
}

func (rl *TieredRateLimiter) identity(c *gin.Context) (string, bool) {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id.String(), true
		}
		return fmt.Sprintf("%v", v), true
	}
	return c.ClientIP(), false
}

// classify maps a request to its rate-limit bucket by path prefix.
func classify(method, path string) Bucket {
	switch {
	case strings.HasPrefix(path, "/api/v1/recipes/status"),
		strings.HasPrefix(path, "/api/v1/recipes/queue-status"):
		return BucketStatus
	case strings.HasPrefix(path, "/api/v1/chat"):
		return BucketChat
	case method == http.MethodPost && path == "/api/v1/recipes",
		method == http.MethodPost && strings.HasSuffix(path, "/image"):
		return BucketGeneration
	default:
		return BucketDefault
	}
}
