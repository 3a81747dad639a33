// Package apperr defines the error kinds shared by services and adapters.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so that presentation layers can translate it
// without inspecting messages.
type Kind string

const (
	KindValidation     Kind = "validation_failed"
	KindNotFound       Kind = "not_found"
	KindAlreadyExists  Kind = "already_exists"
	KindAuthentication Kind = "authentication_failed"
	KindInternal       Kind = "internal"
)

// Sentinels for errors.Is comparisons. They match any *Error of the same kind.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrAlreadyExists  = &Error{Kind: KindAlreadyExists}
	ErrAuthentication = &Error{Kind: KindAuthentication}
)

// Error is a kinded error with a caller-facing message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func AlreadyExists(format string, args ...any) *Error {
	return New(KindAlreadyExists, format, args...)
}

func Authentication(format string, args ...any) *Error {
	return New(KindAuthentication, format, args...)
}

// KindOf returns the kind of err, or KindInternal for unkinded errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-facing message of a kinded error. Unkinded
// errors get a generic message so internals are not leaked.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
	return "an internal error occurred"
}

// Payload carries an error across a serialized request-reply boundary.
type Payload struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// ToPayload converts err for transport. Internal errors lose their detail.
func ToPayload(err error) *Payload {
	if err == nil {
		return nil
	}
	return &Payload{Kind: KindOf(err), Message: Message(err)}
}

// Err rebuilds the kinded error on the receiving side.
func (p *Payload) Err() error {
	if p == nil {
		return nil
	}
	return &Error{Kind: p.Kind, Message: p.Message}
}
