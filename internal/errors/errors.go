package errors

import (
	"fmt"
)

// ErrorCode identifies the failure class of an AppError. Codes are stable
// strings so they can appear in logs and HTTP responses.
type ErrorCode string

const (
	ErrCodeInvalidConfig      ErrorCode = "INVALID_CONFIG"
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	ErrCodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	ErrCodeDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"
	ErrCodeFormatFailed       ErrorCode = "FORMAT_FAILED"
	ErrCodeGroupingFailed     ErrorCode = "GROUPING_FAILED"
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeRateLimit          ErrorCode = "RATE_LIMIT"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// AppError is the error type returned across pipeline boundaries. It carries
// a machine-readable code, an operator-facing message, and optional detail
// fields that end up in structured logs.
type AppError struct {
	Code        ErrorCode
	Message     string
	Cause       error
	Details     map[string]interface{}
	Retryable   bool
	UserMessage string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a key/value pair for structured logging. It returns the
// receiver so calls can be chained.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithUserMessage sets the text shown to API clients instead of the internal
// message.
func (e *AppError) WithUserMessage(msg string) *AppError {
	e.UserMessage = msg
	return e
}

// New creates an AppError without an underlying cause.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap annotates an existing error with a code and message.
func Wrap(cause error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

// WrapRetryable is Wrap for failures that are worth retrying, such as
// transient storage contention.
func WrapRetryable(cause error, code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause, Retryable: true}
}

// GetCode returns the error's code, or ErrCodeInternalError when err is not
// an AppError.
func GetCode(err error) ErrorCode {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return ErrCodeInternalError
}

// IsRetryable reports whether err was marked retryable.
func IsRetryable(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Retryable
	}
	return false
}

// GetUserMessage returns the client-facing text for err, falling back to a
// generic message so internals never leak to API clients.
func GetUserMessage(err error) string {
	if appErr, ok := err.(*AppError); ok && appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return "An unexpected error occurred"
}

// Domain constructors used by the ingestion pipeline.

// NewFormatError reports a payload that could not be normalized.
func NewFormatError(reason string, cause error) *AppError {
	return Wrap(cause, ErrCodeFormatFailed, fmt.Sprintf("message formatting failed: %s", reason)).
		WithDetail("reason", reason).
		WithUserMessage("Message payload could not be processed")
}

// NewDatabaseError reports a failed storage operation.
func NewDatabaseError(operation string, cause error) *AppError {
	return Wrap(cause, ErrCodeDatabaseQuery, fmt.Sprintf("database %s failed", operation)).
		WithDetail("operation", operation).
		WithUserMessage("Database operation failed")
}

// NewGroupingError reports a message that could not be assigned to a
// conversation.
func NewGroupingError(messageID string, cause error) *AppError {
	return Wrap(cause, ErrCodeGroupingFailed, "conversation grouping failed").
		WithDetail("message_id", messageID).
		WithUserMessage("Message could not be grouped")
}

// NewRateLimitError reports a client that exceeded the webhook rate limit.
func NewRateLimitError(limit int, window string) *AppError {
	return New(ErrCodeRateLimit, "rate limit exceeded").
		WithDetail("limit", limit).
		WithDetail("window", window).
		WithUserMessage("Too many requests, please try again later")
}
