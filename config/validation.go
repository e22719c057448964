package config

import (
	"fmt"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that required configuration is present for the
// current environment. Development and test fill in local defaults, so only
// hard requirements are enforced there.
func ValidateConfig(cfg *Config) error {
	if cfg.JWTSecret == "" && (IsProduction() || IsCI()) {
		return ValidationError{Field: "JWT_SECRET", Message: "required"}
	}
	if IsProduction() {
		if cfg.DBPassword == "" {
			return ValidationError{Field: "DB_PASSWORD", Message: "required in production"}
		}
		if cfg.LLMAPIKey == "" {
			return ValidationError{Field: "DEEPSEEK_API_KEY", Message: "required in production"}
		}
	}
	if cfg.WorkerConcurrency < 1 {
		return ValidationError{Field: "WORKER_CONCURRENCY", Message: "must be at least 1"}
	}
	if cfg.JobMaxAttempts < 1 {
		return ValidationError{Field: "JOB_MAX_ATTEMPTS", Message: "must be at least 1"}
	}
	if cfg.CancelRetention <= 0 {
		return ValidationError{Field: "CANCEL_RETENTION", Message: "must be positive"}
	}
	return nil
}
