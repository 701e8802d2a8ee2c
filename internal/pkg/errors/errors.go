package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrNotFound     = stderrors.New("not found")
	ErrUnauthorized = stderrors.New("unauthorized")
	ErrInvalid      = stderrors.New("invalid")
	ErrConflict     = stderrors.New("conflict")
	ErrExpired      = stderrors.New("expired")
	ErrUploadFailed = stderrors.New("upload failed")
	ErrTooMany      = stderrors.New("too many requests")
	ErrInternal     = stderrors.New("internal")

	// ErrBadCredentials is an ErrUnauthorized raised by a password mismatch at login.
	ErrBadCredentials = fmt.Errorf("%w: bad credentials", ErrUnauthorized)
)

// kindError pairs an error kind with the message shown to the client.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() error {
	return e.kind
}

func New(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

func Newf(kind error, format string, args ...interface{}) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Message returns the client-facing message carried by err, or fallback.
func Message(err error, fallback string) string {
	var ke *kindError
	if stderrors.As(err, &ke) && ke.msg != "" {
		return ke.msg
	}
	return fallback
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func IsNotFound(err error) bool {
	return stderrors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return stderrors.Is(err, ErrConflict)
}
