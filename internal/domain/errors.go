package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures into stable caller-visible categories
type ErrorKind string

const (
	KindInvalidRequest      ErrorKind = "invalid_request"
	KindUnauthenticated     ErrorKind = "unauthenticated"
	KindForbidden           ErrorKind = "forbidden"
	KindNotFound            ErrorKind = "not_found"
	KindConflict            ErrorKind = "conflict"
	KindNotConnected        ErrorKind = "not_connected"
	KindUpstreamRejected    ErrorKind = "upstream_rejected"
	KindUpstreamMalformed   ErrorKind = "upstream_malformed"
	KindUpstreamUnreachable ErrorKind = "upstream_unreachable"
)

// ErrConflict is wrapped by stores when a unique key is already taken
var ErrConflict = errors.New("unique constraint violation")

// Error is a classified failure. Message is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a classified error
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a classified error carrying the underlying cause
func WrapError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain,
// or the empty kind for unclassified errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
