package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error is a failure that should reach the HTTP client as-is.
// Err optionally carries a sentinel so callers can match with errors.Is.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a client-facing error
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Wrap creates a client-facing error that also matches err
func Wrap(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

// BadRequest, Forbidden and NotFound are shorthands for the common cases
func BadRequest(message string) *Error { return New(http.StatusBadRequest, message) }

func Forbidden(message string) *Error { return New(http.StatusForbidden, message) }

func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

// StatusOf maps any error to the status and message a handler should send.
// Errors that are not *Error are internal and never leak their text.
func StatusOf(err error) (int, string) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Status, e.Message
	}
	return http.StatusInternalServerError, "Internal server error"
}

// Sentinel creates a plain error value for matching with Is
func Sentinel(text string) error { return stderrors.New(text) }

// Is and As forward to the standard library so callers need one import
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
