package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/souschef-ai/backend/config"
	"github.com/souschef-ai/backend/internal/cancel"
	"github.com/souschef-ai/backend/internal/metrics"
	"github.com/souschef-ai/backend/internal/queue"
	"github.com/souschef-ai/backend/internal/testdb"
	"github.com/souschef-ai/backend/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
)

func TestNewServesHealthAndMetrics(t *testing.T) {
	db := testdb.OpenSQLite(t)

	cfg := &config.Config{
		ServerHost:     "localhost",
		ServerPort:     "8080",
		JWTSecret:      "test-secret",
		FrontendOrigin: "http://localhost:5173",
		JobMaxAttempts: 3,
	}

	srv := New(cfg, Deps{
		DB:       db,
		Queue:    queue.NewMemoryQueue(),
		Registry: cancel.NewMemoryRegistry(0, 0, logger.NewNop()),
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Logger:   logger.NewNop(),
	})
	require.NotNil(t, srv)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Unauthenticated requests to protected endpoints are rejected.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/recipes/queue-status", nil)
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
