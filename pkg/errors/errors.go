// Package errors provides structured error handling for the application.
// Every error that reaches a client is normalized to an AppError so raw
// upstream failures are never serialized into responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents an error code
type ErrorCode string

const (
	// Client errors (4xx)
	CodeBadRequest       ErrorCode = "BAD_REQUEST"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeQuotaExceeded    ErrorCode = "QUOTA_EXCEEDED"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"

	// Server errors (5xx)
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeUpstreamFailure ErrorCode = "UPSTREAM_FAILURE"
)

// AppError represents an application error with structured information
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status code for the error
func (e *AppError) StatusCode() int {
	switch e.Code {
	case CodeBadRequest, CodeValidationFailed:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeQuotaExceeded:
		return http.StatusPaymentRequired
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithCause attaches a cause error
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// New creates a new application error
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewValidation creates a validation error
func NewValidation(message string) *AppError {
	return New(CodeValidationFailed, message)
}

// NewUnauthorized creates an unauthorized error
func NewUnauthorized(message string) *AppError {
	return New(CodeUnauthorized, message)
}

// NewNotFound creates a not found error
func NewNotFound(message string) *AppError {
	return New(CodeNotFound, message)
}

// NewQuotaExceeded creates a payment-required error for exhausted quotas
func NewQuotaExceeded(message string) *AppError {
	return New(CodeQuotaExceeded, message)
}

// NewUpstream wraps a failure from an external platform (LLM, image API, etc.)
func NewUpstream(message string, cause error) *AppError {
	return New(CodeUpstreamFailure, message).WithCause(cause)
}

// NewInternal wraps an unexpected internal failure
func NewInternal(message string, cause error) *AppError {
	return New(CodeInternal, message).WithCause(cause)
}

// AsAppError extracts an *AppError from err, falling back to an internal error
// so handlers always have a status and a safe message to serialize.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternal("unexpected error", err)
}
