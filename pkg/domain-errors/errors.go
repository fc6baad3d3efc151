// Package domainerrors defines the error taxonomy shared by services and transports.
//
// Services return *Error values carrying a Code; the HTTP layer maps the code to
// a status and envelope. Infrastructure facts (not found, conflict) travel as
// sentinel errors from pkg/platform/sentinel and are translated by services.
package domainerrors

import (
	"errors"
	"strings"
)

// Code classifies a domain error. The string value is the machine-readable
// code sent to clients.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeInvalidInput       Code = "invalid_input"
	CodeValidation         Code = "validation_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInternal           Code = "internal_error"
)

// Error is a coded domain error. Fields holds per-field messages for
// validation failures, in the order they were detected.
type Error struct {
	Code    Code
	Message string
	Fields  []string
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

// New returns an error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying cause. The cause stays
// reachable through errors.Is / errors.As but is never rendered to clients.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation returns a CodeValidation error listing every failed field check.
func Validation(fields ...string) error {
	msg := "validation failed"
	if len(fields) == 1 {
		msg = fields[0]
	}
	return &Error{
		Code:    CodeValidation,
		Message: msg,
		Fields:  append([]string(nil), fields...),
	}
}

// HasCode reports whether any error in err's chain is a domain error with code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the code of the first domain error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldsOf returns the field messages attached to a validation error.
func FieldsOf(err error) []string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// MessageOf returns the client-safe message for err. Internal errors never
// expose their cause.
func MessageOf(err error) string {
	var de *Error
	if !errors.As(err, &de) || de.Code == CodeInternal {
		return "internal server error"
	}
	return strings.TrimSpace(de.Message)
}
