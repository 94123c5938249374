// Package apperr is the error taxonomy shared by services and handlers.
package apperr

import (
	"context"
	"errors"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindStepUpRequired  Kind = "step_up_required"
	KindStepUpInvalid   Kind = "step_up_invalid"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindValidation      Kind = "validation"
	KindTransient       Kind = "transient"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

func Unauthenticated(code, message string) *Error {
	return New(KindUnauthenticated, code, message)
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Transient(message string, err error) *Error {
	return Wrap(KindTransient, "service_unavailable", message, err)
}

// Validation builds a validation error with per-field detail.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: "validation_error", Message: message, Fields: fields}
}

// KindOf returns the kind of err. Deadlines and cancellations are transient;
// anything unclassified is treated as transient as well so it is logged and
// never leaked.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindTransient
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsTimeout reports whether err came from an exceeded deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func Status(kind Kind) int {
	switch kind {
	case KindUnauthenticated, KindStepUpRequired, KindStepUpInvalid:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
