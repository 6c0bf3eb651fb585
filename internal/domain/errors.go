package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed operation for the transport layer.
type ErrorKind string

const (
	KindNotFound        ErrorKind = "NotFound"
	KindForbidden       ErrorKind = "Forbidden"
	KindInvalidState    ErrorKind = "InvalidState"
	KindDuplicatePeriod ErrorKind = "DuplicatePeriod"
	KindConflict        ErrorKind = "Conflict"
	KindInvalidRange    ErrorKind = "InvalidRange"
	KindSelfReference   ErrorKind = "SelfReference"
	KindCycleDetected   ErrorKind = "CycleDetected"
	KindValidation      ErrorKind = "ValidationError"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrInvalidState    = &Error{Kind: KindInvalidState}
	ErrDuplicatePeriod = &Error{Kind: KindDuplicatePeriod}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrInvalidRange    = &Error{Kind: KindInvalidRange}
	ErrSelfReference   = &Error{Kind: KindSelfReference}
	ErrCycleDetected   = &Error{Kind: KindCycleDetected}
	ErrValidation      = &Error{Kind: KindValidation}
)

// Error is the typed failure returned by every core operation.
type Error struct {
	Kind    ErrorKind
	Message string
	// Fields maps an input field to the rule it failed, for ValidationError.
	Fields map[string]string
	Err    error
}

func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Message == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind carried by err, or "" for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func NotFoundf(format string, args ...interface{}) *Error {
	return Errorf(KindNotFound, format, args...)
}

func Forbiddenf(format string, args ...interface{}) *Error {
	return Errorf(KindForbidden, format, args...)
}

func InvalidStatef(format string, args ...interface{}) *Error {
	return Errorf(KindInvalidState, format, args...)
}
