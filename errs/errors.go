// Package errs defines the error-kind taxonomy shared by the routing
// table, codec, and protocol driver.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a CoreError for errors.Is-style branching.
type Kind int

const (
	// InvalidMessage covers malformed frames, unknown type tags,
	// signature verification failures, and truncated bodies.
	InvalidMessage Kind = iota
	// ArgumentOutOfRange covers non-positive configuration values at
	// construction time.
	ArgumentOutOfRange
	// ArgumentInvalid covers a nil peer or local-self passed to
	// add/remove.
	ArgumentInvalid
	// Timeout covers an expired ping or lookup round.
	Timeout
	// Cancelled covers cooperative cancellation via context.Context.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case InvalidMessage:
		return "invalid message"
	case ArgumentOutOfRange:
		return "argument out of range"
	case ArgumentInvalid:
		return "invalid argument"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown error kind"
	}
}

// CoreError is the single error type raised by this module's packages.
// Callers branch on Kind via errors.As, not on message text.
type CoreError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, &errs.CoreError{Kind: errs.InvalidMessage})
// work by comparing Kind against a sentinel wrapped in a bare
// CoreError.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs a CoreError for the given kind and operation.
func New(kind Kind, op string, err error) *CoreError {
	return &CoreError{Kind: kind, Op: op, Err: err}
}

// AsKind reports whether err is (or wraps) a *CoreError of the given
// Kind. Tests and call sites use this instead of string matching.
func AsKind(err error, kind Kind) bool {
	var ce *CoreError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Kind == kind
}
