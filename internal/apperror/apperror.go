// Package apperror defines the error kinds the API reports to clients and the
// HTTP status each of them maps to.
package apperror

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindValidation    Kind = "validation"
	KindAuth          Kind = "auth"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindStorage       Kind = "storage"
	KindUnknown       Kind = "unknown"
)

const internalMessage = "Internal Server Error"

// Error carries a client-facing message. Err keeps the underlying cause for
// logs and is never written to a response.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

func Auth(msg string) *Error {
	return &Error{Kind: KindAuth, Status: http.StatusUnauthorized, Message: msg}
}

func Authorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Status: http.StatusForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Status: http.StatusConflict, Message: msg}
}

func Storage(status int, msg string, cause error) *Error {
	return &Error{Kind: KindStorage, Status: status, Message: msg, Err: cause}
}

func Unknown(cause error) *Error {
	return &Error{Kind: KindUnknown, Status: http.StatusInternalServerError, Message: internalMessage, Err: cause}
}

// From returns err as an *Error, treating anything unrecognised as unknown.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unknown(err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
