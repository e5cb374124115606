/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies engine failures so callers can decide how to react.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindStructural   ErrorKind = "structural"
	KindPrecondition ErrorKind = "precondition"
	KindNotFound     ErrorKind = "not_found"
	KindIO           ErrorKind = "io"
)

// Error provides structured error information for tool and CLI responses
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Details []string  `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new structured error
func NewError(kind ErrorKind, message string, details ...string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

func Validation(message string, details ...string) *Error {
	return NewError(KindValidation, message, details...)
}

func Structural(message string, details ...string) *Error {
	return NewError(KindStructural, message, details...)
}

func Precondition(message string, details ...string) *Error {
	return NewError(KindPrecondition, message, details...)
}

func NotFound(message string, details ...string) *Error {
	return NewError(KindNotFound, message, details...)
}

// IO wraps a filesystem failure.
func IO(message string, cause error) *Error {
	return &Error{Kind: KindIO, Message: message, Cause: cause}
}

// KindOf reports the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
