package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the category of error that occurred during a fetch operation
type ErrorType string

const (
	// ErrorTypeNetwork indicates a transport-level error (DNS, connection refused, timeout, cancellation)
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeHTTP indicates the API answered with a non-2xx status
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeMalformed indicates the response was received but lacks expected fields
	ErrorTypeMalformed ErrorType = "malformed"
)

// FetchError represents a structured error from a fetch operation
type FetchError struct {
	Type       ErrorType
	Retryable  bool
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Type, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// NewNetworkError creates a network error
func NewNetworkError(cause error) *FetchError {
	return &FetchError{
		Type:      ErrorTypeNetwork,
		Retryable: true,
		Message:   "network request failed",
		Cause:     cause,
	}
}

// NewHTTPError creates an error for a non-success HTTP status
func NewHTTPError(statusCode int, message string) *FetchError {
	return &FetchError{
		Type:       ErrorTypeHTTP,
		Retryable:  statusCode == http.StatusTooManyRequests || statusCode >= 500,
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewMalformedError creates an error for a response missing expected data
func NewMalformedError(message string) *FetchError {
	return &FetchError{
		Type:      ErrorTypeMalformed,
		Retryable: false,
		Message:   message,
	}
}

// ClassifyHTTPError classifies an HTTP status code into an appropriate FetchError
func ClassifyHTTPError(statusCode int) *FetchError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewHTTPError(statusCode, "rate limit exceeded")
	case statusCode == http.StatusForbidden:
		return NewHTTPError(statusCode, "project id rejected")
	case statusCode == http.StatusNotFound:
		return NewHTTPError(statusCode, "resource not found")
	case statusCode >= 500:
		return NewHTTPError(statusCode, "server returned an error")
	case statusCode >= 400:
		return NewHTTPError(statusCode, fmt.Sprintf("client error: HTTP %d", statusCode))
	default:
		return NewHTTPError(statusCode, fmt.Sprintf("unexpected status code: %d", statusCode))
	}
}

// KindOf returns the category of err. Errors that are not a FetchError are
// treated as network failures.
func KindOf(err error) ErrorType {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Type
	}
	return ErrorTypeNetwork
}
