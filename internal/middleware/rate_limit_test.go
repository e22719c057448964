package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souschef-ai/backend/pkg/logger"
)

func newLimitedRouter(cfg RateLimitConfig, authed bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if authed {
		r.Use(func(c *gin.Context) {
			c.Set("user_id", uuid.MustParse("11111111-1111-1111-1111-111111111111"))
			c.Next()
		})
	}
	// nil Redis client exercises the per-process fallback counter, which is
	// also what a Redis outage degrades to.
	rl := NewTieredRateLimiter(nil, cfg, logger.NewNop())
	r.Use(rl.Middleware())
	r.POST("/api/v1/recipes", func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"request_id": uuid.NewString()})
	})
	r.GET("/api/v1/recipes/status/:requestId", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "queued"})
	})
	return r
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "203.0.113.7:51000"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterRejectsOverCap(t *testing.T) {
	cfg := RateLimitConfig{
		Buckets: map[Bucket]BucketConfig{
			BucketDefault:    {Window: time.Minute, Limit: 100},
			BucketGeneration: {Window: time.Minute, Limit: 15},
		},
	}
	r := newLimitedRouter(cfg, false)

	for i := 1; i <= 15; i++ {
		w := do(r, http.MethodPost, "/api/v1/recipes")
		require.Equal(t, http.StatusAccepted, w.Code, "request %d should be accepted", i)
	}

	w := do(r, http.MethodPost, "/api/v1/recipes")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var body struct {
		RetryAfter int `json:"retry_after"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Positive(t, body.RetryAfter)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiterAuthenticatedOverride(t *testing.T) {
	cfg := RateLimitConfig{
		Buckets: map[Bucket]BucketConfig{
			BucketDefault:    {Window: time.Minute, Limit: 100},
			BucketGeneration: {Window: time.Minute, Limit: 2},
		},
		AuthenticatedCap: 5,
	}
	r := newLimitedRouter(cfg, true)

	// An authenticated identity gets at least the authenticated cap even on
	// a low-cap bucket.
	for i := 1; i <= 5; i++ {
		w := do(r, http.MethodPost, "/api/v1/recipes")
		require.Equal(t, http.StatusAccepted, w.Code, "request %d should be accepted", i)
	}
	w := do(r, http.MethodPost, "/api/v1/recipes")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestRateLimiterBucketsAreIndependent(t *testing.T) {
	cfg := RateLimitConfig{
		Buckets: map[Bucket]BucketConfig{
			BucketDefault:    {Window: time.Minute, Limit: 100},
			BucketGeneration: {Window: time.Minute, Limit: 1},
			BucketStatus:     {Window: time.Minute, Limit: 100},
		},
	}
	r := newLimitedRouter(cfg, false)

	require.Equal(t, http.StatusAccepted, do(r, http.MethodPost, "/api/v1/recipes").Code)
	require.Equal(t, http.StatusTooManyRequests, do(r, http.MethodPost, "/api/v1/recipes").Code)

	// Exhausting the generation bucket must not affect status polling.
	w := do(r, http.MethodGet, "/api/v1/recipes/status/abc")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, BucketGeneration, classify(http.MethodPost, "/api/v1/recipes"))
	assert.Equal(t, BucketGeneration, classify(http.MethodPost, "/api/v1/recipes/123/image"))
	assert.Equal(t, BucketStatus, classify(http.MethodGet, "/api/v1/recipes/status/abc"))
	assert.Equal(t, BucketStatus, classify(http.MethodGet, "/api/v1/recipes/queue-status"))
	assert.Equal(t, BucketChat, classify(http.MethodPost, "/api/v1/chat"))
	assert.Equal(t, BucketDefault, classify(http.MethodGet, "/api/v1/recipes/saved"))
}
