package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure surfaced by the portal services.
type ErrorKind string

const (
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindNotFound            ErrorKind = "NotFound"
	KindValidation          ErrorKind = "ValidationError"
	KindCapacityExceeded    ErrorKind = "CapacityExceeded"
	KindAlreadyRegistered   ErrorKind = "AlreadyRegistered"
	KindNotOpen             ErrorKind = "NotOpen"
	KindEventAlreadyStarted ErrorKind = "EventAlreadyStarted"
	KindStateConflict       ErrorKind = "StateConflict"
	KindSelfActionForbidden ErrorKind = "SelfActionForbidden"
	KindInternal            ErrorKind = "Internal"
)

// Error is the {kind, message} result returned across the service boundary.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Field names the offending input for validation failures
	Field string `json:"field,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches another *Error of the same kind, so errors.Is(err, ErrNotOpen) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(format string, args ...interface{}) *Error {
	return newError(KindUnauthorized, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func Validation(field, format string, args ...interface{}) *Error {
	e := newError(KindValidation, format, args...)
	e.Field = field
	return e
}

func CapacityExceeded(format string, args ...interface{}) *Error {
	return newError(KindCapacityExceeded, format, args...)
}

func AlreadyRegistered(format string, args ...interface{}) *Error {
	return newError(KindAlreadyRegistered, format, args...)
}

func NotOpen(format string, args ...interface{}) *Error {
	return newError(KindNotOpen, format, args...)
}

func EventAlreadyStarted(format string, args ...interface{}) *Error {
	return newError(KindEventAlreadyStarted, format, args...)
}

func StateConflict(format string, args ...interface{}) *Error {
	return newError(KindStateConflict, format, args...)
}

func SelfActionForbidden(format string, args ...interface{}) *Error {
	return newError(KindSelfActionForbidden, format, args...)
}

// Internal never carries the underlying cause; callers log it separately.
func Internal() *Error {
	return &Error{Kind: KindInternal, Message: "an internal error occurred"}
}

// Kind sentinels for errors.Is checks
var (
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrValidation          = &Error{Kind: KindValidation}
	ErrCapacityExceeded    = &Error{Kind: KindCapacityExceeded}
	ErrAlreadyRegistered   = &Error{Kind: KindAlreadyRegistered}
	ErrNotOpen             = &Error{Kind: KindNotOpen}
	ErrEventAlreadyStarted = &Error{Kind: KindEventAlreadyStarted}
	ErrStateConflict       = &Error{Kind: KindStateConflict}
	ErrSelfActionForbidden = &Error{Kind: KindSelfActionForbidden}
	ErrInternal            = &Error{Kind: KindInternal}
)

// KindOf returns the kind of err. Anything that is not a *Error is Internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsError returns err as a *Error, mapping foreign errors to Internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal()
}
