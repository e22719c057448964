package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_USER", "souschef")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "souschef_dev")
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("CANCEL_RETENTION", "10m")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DBHost)
	assert.Equal(t, "5433", cfg.DBPort)
	assert.Equal(t, "souschef", cfg.DBUser)
	assert.Equal(t, "secret", cfg.DBPassword)
	assert.Equal(t, "souschef_dev", cfg.DBName)
	assert.Equal(t, "test-secret", cfg.JWTSecret)
	assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	assert.Equal(t, 8, cfg.WorkerConcurrency)
	assert.Equal(t, 10*time.Minute, cfg.CancelRetention)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, 4, cfg.WorkerConcurrency)
	assert.Equal(t, 3, cfg.JobMaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.CancelRetention)
	assert.True(t, cfg.EmbedWorker)
}

func TestSecretFileFallback(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/jwt"
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))
	t.Setenv("JWT_SECRET_FILE", path)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
}

func TestValidateConfigRejectsBadWorkerSettings(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "0")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WORKER_CONCURRENCY")
}
