package oracle

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrUnknownModel is returned for a model name outside the supported set.
	ErrUnknownModel = errors.New("oracle: unknown model")

	// ErrUnknownBackend is returned for a backend name outside the supported set.
	ErrUnknownBackend = errors.New("oracle: unknown backend")

	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("oracle: model file not found")

	// ErrClosed is returned when classifying with a closed classifier.
	ErrClosed = errors.New("oracle: classifier closed")

	// ErrBadOutput is returned when the network output cannot be read as scores.
	ErrBadOutput = errors.New("oracle: unexpected network output")
)

// APIError represents an error response from a remote inference service.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Message is the response body or error message.
	Message string

	// URL is the endpoint that failed.
	URL string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("oracle [remote %s]: API error %d: %s", e.URL, e.StatusCode, e.Message)
}

// IsServerError returns true if this is a server-side error (HTTP 5xx).
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}
