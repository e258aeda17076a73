// Package apperr defines the error taxonomy shared by every module.
//
// Callers wrap a sentinel with context (fmt.Errorf("%w: ...", ErrNotFound))
// and match it with errors.Is. When an error has to cross a request-reply
// boundary it is flattened into a Failure and rebuilt on the other side.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a taxonomy member on the wire.
type Kind string

// Taxonomy kinds.
const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidTransition Kind = "invalid_transition"
	KindInvalid           Kind = "invalid"
	KindUnauthorized      Kind = "unauthorized"
	KindConflict          Kind = "conflict"
)

// Sentinel errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalid           = errors.New("invalid input")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConflict          = errors.New("conflict")
)

var sentinels = map[Kind]error{
	KindNotFound:          ErrNotFound,
	KindForbidden:         ErrForbidden,
	KindInvalidTransition: ErrInvalidTransition,
	KindInvalid:           ErrInvalid,
	KindUnauthorized:      ErrUnauthorized,
	KindConflict:          ErrConflict,
}

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...any) error {
	return wrap(ErrNotFound, format, args...)
}

// Forbidden wraps ErrForbidden with a formatted message.
func Forbidden(format string, args ...any) error {
	return wrap(ErrForbidden, format, args...)
}

// InvalidTransition wraps ErrInvalidTransition with a formatted message.
func InvalidTransition(format string, args ...any) error {
	return wrap(ErrInvalidTransition, format, args...)
}

// Invalid wraps ErrInvalid with a formatted message.
func Invalid(format string, args ...any) error {
	return wrap(ErrInvalid, format, args...)
}

// Unauthorized wraps ErrUnauthorized with a formatted message.
func Unauthorized(format string, args ...any) error {
	return wrap(ErrUnauthorized, format, args...)
}

// Conflict wraps ErrConflict with a formatted message.
func Conflict(format string, args ...any) error {
	return wrap(ErrConflict, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// KindOf reports the taxonomy kind of err, or "" when err is not part of it.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for kind, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return ""
}

// Failure is the wire form of a taxonomy error.
type Failure struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// ToFailure splits err into a wire failure (taxonomy errors) or an internal
// error that should travel as a transport error.
func ToFailure(err error) (*Failure, error) {
	if err == nil {
		return nil, nil
	}
	kind := KindOf(err)
	if kind == "" {
		return nil, err
	}
	return &Failure{Kind: kind, Message: err.Error()}, nil
}

// Err rebuilds the error so that errors.Is matches the original sentinel.
func (f *Failure) Err() error {
	if f == nil {
		return nil
	}
	sentinel, ok := sentinels[f.Kind]
	if !ok {
		return errors.New(f.Message)
	}
	return &remoteError{sentinel: sentinel, msg: f.Message}
}

type remoteError struct {
	sentinel error
	msg      string
}

func (e *remoteError) Error() string { return e.msg }

func (e *remoteError) Unwrap() error { return e.sentinel }
