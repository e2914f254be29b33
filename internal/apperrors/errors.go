// Package apperrors defines the error taxonomy shared by the generation
// pipeline and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error kind.
type Code string

const (
	CodeValidation        Code = "VALIDATION_FAILED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeForbidden         Code = "FORBIDDEN"
	CodeConflict          Code = "CONFLICT"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeRateLimited       Code = "RATE_LIMITED"
	CodeBadRequest        Code = "BAD_REQUEST"
	CodeProviderError     Code = "PROVIDER_ERROR"
	CodeMalformedResponse Code = "MALFORMED_RESPONSE"
	CodeBatchFailed       Code = "BATCH_FAILED"
	CodeUpstreamFormat    Code = "UPSTREAM_FORMAT"
	CodeInternal          Code = "INTERNAL_ERROR"
)

// AppError is an error with a stable code and optional details.
type AppError struct {
	Code     Code                   `json:"code"`
	Message  string                 `json:"message"`
	Details  string                 `json:"details,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
	Cause    error                  `json:"-"`
	// Status overrides the status derived from Code when non-zero.
	Status   int                    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// StatusCode returns the HTTP status for the error code.
func (e *AppError) StatusCode() int {
	if e.Status != 0 {
		return e.Status
	}
	switch e.Code {
	case CodeValidation, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeBatchFailed:
		return http.StatusUnprocessableEntity
	case CodeProviderError, CodeMalformedResponse, CodeUpstreamFormat:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WithMetadata attaches a key/value pair to the error.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// WithStatus pins the HTTP status regardless of the code.
func (e *AppError) WithStatus(status int) *AppError {
	e.Status = status
	return e
}

// WithCause records the underlying error.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// New creates an AppError.
func New(code Code, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

func NewValidationError(details string) *AppError {
	return New(CodeValidation, "Validation failed", details)
}

func NewNotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource), "")
}

func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "Access forbidden"
	}
	return New(CodeForbidden, message, "")
}

func NewConflictError(message string) *AppError {
	return New(CodeConflict, message, "")
}

func NewUpstreamFormatError(details string) *AppError {
	return New(CodeUpstreamFormat, "AI response does not match the expected structure", details)
}

func NewBatchError(count int, cause error) *AppError {
	return New(CodeBatchFailed, "No recipe in the batch could be normalized", fmt.Sprintf("%d entries rejected", count)).WithCause(cause)
}

func NewInternalError(message string, cause error) *AppError {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return New(CodeInternal, message, "").WithCause(cause)
}

// As returns the AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}
