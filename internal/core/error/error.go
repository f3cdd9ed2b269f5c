package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "not found"
)

// Code classifies a failure for callers that need more than an HTTP status.
type Code string

const (
	CodeParseFailed      Code = "PARSE_FAILED"
	CodeMissingField     Code = "MISSING_FIELD"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeValidationFailed Code = "VALIDATION_FAILED"
	CodeExecutionFailed  Code = "EXECUTION_FAILED"
	CodeProviderFailed   Code = "PROVIDER_FAILED"
	CodeToolNotFound     Code = "TOOL_NOT_FOUND"
	CodePreviewRequired  Code = "PREVIEW_REQUIRED"
	CodePreviewExpired   Code = "PREVIEW_EXPIRED"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternal         Code = "INTERNAL"
)

// Error wraps an underlying error with an HTTP status, a machine code and a
// safe user-facing message.
type Error struct {
	Err     error
	Status  int
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the provided information.
func New(err error, status int, message string) *Error {
	return &Error{
		Err:     err,
		Status:  status,
		Code:    CodeInternal,
		Message: message,
	}
}

// NewCoded creates a new Error carrying a machine code.
func NewCoded(err error, status int, code Code, message string) *Error {
	return &Error{
		Err:     err,
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or the Error itself.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to Error or the wrapped error in a chain.
func (e *Error) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**Error); ok {
		*t = e
		return true
	}
	return false
}

// CodeOf extracts the machine code from an error chain, or CodeInternal when
// the chain carries no Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// StatusOf extracts the HTTP status from an error chain, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}
