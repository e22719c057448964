package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// JWT configuration
	JWTSecret string

	// LLM configuration
	LLMAPIKey string
	LLMAPIURL string

	// Image generation configuration
	ImageAPIKey string
	ImageAPIURL string

	// CORS
	FrontendOrigin string

	// Queue / worker configuration
	WorkerConcurrency int
	JobMaxAttempts    int
	EmbedWorker       bool

	// Cancellation registry retention window
	CancelRetention time.Duration

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig creates a new Config instance from environment variables, with
// Docker-secret file fallbacks for sensitive values (FOO, FOO_FILE, or a file
// named foo in the secrets directory).
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getSecret("DB_USER", "postgres"),
		DBPassword: getSecret("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "souschef"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getSecret("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisURL:      getEnv("REDIS_URL", ""),

		JWTSecret: getSecret("JWT_SECRET", ""),

		LLMAPIKey: getSecret("DEEPSEEK_API_KEY", ""),
		LLMAPIURL: getEnv("DEEPSEEK_API_URL", "https://api.deepseek.com/v1/chat/completions"),

		ImageAPIKey: getSecret("OPENAI_API_KEY", ""),
		ImageAPIURL: getEnv("OPENAI_IMAGES_API_URL", "https://api.openai.com/v1/images/generations"),

		FrontendOrigin: getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),

		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 4),
		JobMaxAttempts:    getEnvInt("JOB_MAX_ATTEMPTS", 3),
		EmbedWorker:       getEnv("EMBED_WORKER", "true") == "true",

		CancelRetention: getEnvDuration("CANCEL_RETENTION", 15*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", defaultLogFormat()),
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultLogFormat() string {
	if IsProduction() {
		return "json"
	}
	return "console"
}

// getEnv returns the value of the environment variable or the fallback
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getSecret resolves a sensitive value: the env var itself, then a KEY_FILE
// path, then a file named after the key in the secrets directory
func getSecret(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if path := os.Getenv(key + "_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	if data, err := os.ReadFile(filepath.Join(secretsDir, strings.ToLower(key))); err == nil {
		return strings.TrimSpace(string(data))
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
