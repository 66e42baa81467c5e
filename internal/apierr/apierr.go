// Package apierr defines the outcome taxonomy shared by the router, the
// HTTP facade and the client: every failed request is exactly one of
// NotFound, BadRequest, Unauthorized or Internal.
package apierr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	// CodeNotFound means an unknown module or version was read.
	CodeNotFound Code = "NOT_FOUND"
	// CodeBadRequest means a malformed path, a blank version on write, or an
	// unsupported method.
	CodeBadRequest Code = "BAD_REQUEST"
	// CodeUnauthorized means the write credential did not match.
	CodeUnauthorized Code = "UNAUTHORIZED"
	// CodeInternal covers every unexpected failure, such as an I/O fault.
	CodeInternal Code = "INTERNAL"
)

// HTTPStatus maps the code onto its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// CodeForStatus is the inverse of HTTPStatus, used by the client to
// classify responses.
func CodeForStatus(status int) Code {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	default:
		return CodeInternal
	}
}

// Error is a typed outcome with an optional underlying cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Internal message for logs
	Cause   error  // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the code from err's chain. Errors that carry no code are
// internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Sentinels for use with errors.Is.
var (
	ErrNotFound     = New(CodeNotFound, "not found")
	ErrBadRequest   = New(CodeBadRequest, "bad request")
	ErrUnauthorized = New(CodeUnauthorized, "unauthorized")
	ErrInternal     = New(CodeInternal, "internal error")
)
