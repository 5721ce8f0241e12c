package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned when a Request lacks a required field
var ErrInvalidRequest = errors.New("invalid upstream request")

// StatusError is returned when the commerce API answers with a status >= 400
type StatusError struct {
	StatusCode int
	// Payload is the parsed "errors" (or "error") field, nil when the body had no recognizable shape
	Payload any
	// Body is the raw response body
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Detail())
}

// Detail returns the upstream error text as a caller would want to see it
func (e *StatusError) Detail() string {
	switch p := e.Payload.(type) {
	case nil:
		if e.Body == "" {
			return fmt.Sprintf("status %d", e.StatusCode)
		}
		return e.Body
	case string:
		return p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return e.Body
		}
		return string(b)
	}
}

// MalformedError is returned when a successful response body cannot be parsed
type MalformedError struct {
	StatusCode int
	Err        error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed upstream response (status %d): %v", e.StatusCode, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}

// UnreachableError is returned when no response was received
type UnreachableError struct {
	Timeout bool
	Err     error
}

func (e *UnreachableError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("upstream timed out: %v", e.Err)
	}
	return fmt.Sprintf("upstream unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error {
	return e.Err
}
