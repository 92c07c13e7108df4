package service

import (
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// Kind classifies a service failure. Handlers map it to a response status.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindForbidden
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	default:
		return "internal"
	}
}

// Error is the typed failure returned by every service operation.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error   { return newError(KindNotFound, format, args...) }
func Conflict(format string, args ...any) *Error   { return newError(KindConflict, format, args...) }
func Forbidden(format string, args ...any) *Error  { return newError(KindForbidden, format, args...) }
func BadRequest(format string, args ...any) *Error { return newError(KindBadRequest, format, args...) }

// Internal wraps an unexpected failure.
func Internal(err error, msg string) *Error {
	return &Error{Kind: KindInternal, Msg: msg, Err: err}
}

// KindOf reports the kind of err; untyped errors are internal.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// storeError passes typed errors through, turns repository.ErrNotFound into
// NotFound with the given message, and everything else into Internal.
func storeError(err error, notFound string, args ...any) error {
	var se *Error
	switch {
	case errors.As(err, &se):
		return se
	case errors.Is(err, repository.ErrNotFound):
		return NotFound(notFound, args...)
	default:
		return Internal(err, "storage failure")
	}
}
