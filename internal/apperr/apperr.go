// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and HTTP mapping.
type Kind int

const (
	// Internal is an unexpected persistence or transaction failure. It is
	// logged with full context and surfaced as an opaque failure.
	Internal Kind = iota
	// Validation marks malformed or semantically invalid input.
	Validation
	// NotFound marks a referenced entity that does not exist.
	NotFound
	// Conflict marks a state-machine violation, e.g. approving an already
	// approved authorization or reversing an unpaid installment.
	Conflict
	// Auth marks a failed credential or role check.
	Auth
)

// Error carries a kind, a caller-safe message and an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind of err; unknown errors are Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Is reports whether err carries the given kind.
func Is(err error, k Kind) bool { return err != nil && KindOf(err) == k }

func Validationf(format string, args ...any) error {
	return &Error{Kind: Validation, Msg: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) error {
	return &Error{Kind: NotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) error {
	return &Error{Kind: Conflict, Msg: fmt.Sprintf(format, args...)}
}

func Authf(format string, args ...any) error {
	return &Error{Kind: Auth, Msg: fmt.Sprintf(format, args...)}
}

// Internalf wraps an unexpected cause with an opaque message.
func Internalf(err error, format string, args ...any) error {
	return &Error{Kind: Internal, Msg: fmt.Sprintf(format, args...), Err: err}
}
