// Package errors provides shared error types for the documentation clients.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// FetchError indicates a remote documentation page could not be retrieved,
// either because the transport failed or the server answered with a
// non-success status.
type FetchError struct {
	URL        string // the page that was requested
	StatusCode int    // 0 when no response was received
	Status     string // HTTP status text, e.g. "503 Service Unavailable"
	Err        error  // underlying transport error, if any
}

func (e *FetchError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
	case e.Status != "":
		return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Status)
	default:
		return fmt.Sprintf("failed to fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewStatusError creates a FetchError for a non-success HTTP response.
func NewStatusError(url string, statusCode int) *FetchError {
	status := http.StatusText(statusCode)
	if status != "" {
		status = fmt.Sprintf("%d %s", statusCode, status)
	}
	return &FetchError{
		URL:        url,
		StatusCode: statusCode,
		Status:     status,
	}
}

// NewTransportError creates a FetchError for a request that never got a response.
func NewTransportError(url string, err error) *FetchError {
	return &FetchError{
		URL: url,
		Err: err,
	}
}

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field   string // field name that failed validation
	Value   string // the invalid value (may be empty for sensitive data)
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsFetch returns true if err is or wraps a FetchError.
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsValidation returns true if err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
