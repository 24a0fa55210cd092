package services

import (
	"errors"
	"fmt"
)

// Error kinds. Handlers map them to HTTP statuses.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrDuplicate          = errors.New("duplicate")
	ErrInvalidState       = errors.New("invalid state")
	ErrBusy               = errors.New("busy")
)

// Error is a failure with a message safe to show to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...interface{}) *Error {
	return newError(ErrInvalidInput, format, args...)
}

func notFound(format string, args ...interface{}) *Error {
	return newError(ErrNotFound, format, args...)
}

func forbidden(format string, args ...interface{}) *Error {
	return newError(ErrForbidden, format, args...)
}

func conflict(format string, args ...interface{}) *Error {
	return newError(ErrConflict, format, args...)
}

func invalidState(format string, args ...interface{}) *Error {
	return newError(ErrInvalidState, format, args...)
}
