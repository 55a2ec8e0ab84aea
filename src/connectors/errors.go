package connectors

import (
	"errors"
	"fmt"
)

// ErrMaxRetries marks a request that kept failing at the transport level
// after every attempt.
var ErrMaxRetries = errors.New("max retries exceeded")

// APIError is a failed exchange call. StatusCode is 0 for transport failures.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// IsNotFound reports a 404 from the exchange.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
