package llm

import (
	"errors"
	"fmt"
)

// StatusError reports a request that reached the LLM backend but was rejected
// with a non-success HTTP status (rate limits, auth failures, server errors).
//
// Provider implementations wrap API-level failures in a StatusError so callers
// can classify them separately from network-level failures, which are returned
// as plain wrapped errors.
type StatusError struct {
	// Code is the HTTP status code reported by the backend.
	Code int

	// Message is the backend's error description, possibly truncated.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("llm: backend returned status %d", e.Code)
	}
	return fmt.Sprintf("llm: backend returned status %d: %s", e.Code, e.Message)
}

// AsStatusError unwraps err looking for a *StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
