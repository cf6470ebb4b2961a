package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType represents different types of errors a store provider can report
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents a provider error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error (code %d): %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a typed error without a status code
func New(errorType ErrorType, message string, cause error) *Error {
	return &Error{Type: errorType, Message: message, Err: cause}
}

// FromStatus maps an HTTP status code to a typed error.
// It returns nil for 2xx codes.
func FromStatus(statusCode int, message string) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	return &Error{
		Type:    TypeForStatus(statusCode),
		Message: message,
		Code:    statusCode,
	}
}

// TypeForStatus returns the error type an HTTP status code belongs to
func TypeForStatus(statusCode int) ErrorType {
	switch {
	case statusCode == 0:
		return ErrorTypeNetwork
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return ErrorTypeAuth
	case statusCode == http.StatusNotFound, statusCode == http.StatusGone:
		return ErrorTypeNotFound
	case statusCode >= 500:
		return ErrorTypeServerError
	default:
		return ErrorTypeUnknown
	}
}

// Classify returns the error type for any error returned by a provider
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeUnknown
	}

	var typed *Error
	if stderrors.As(err, &typed) {
		return typed.Type
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeNetwork
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return ErrorTypeNetwork
	}

	return ErrorTypeUnknown
}

// IsRetryable checks if an error type is expected to go away on its own
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeUnknown:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing:
		return false
	default:
		return false
	}
}
