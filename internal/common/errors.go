package common

import (
	"errors"
	"fmt"
)

type Code string

const (
	CodeValidation           Code = "validation_error"
	CodeDuplicateEmail       Code = "duplicate_email"
	CodeInvalidCredentials   Code = "invalid_credentials"
	CodeNotApproved          Code = "not_approved"
	CodeInvalidToken         Code = "invalid_token"
	CodeUnauthorized         Code = "unauthorized"
	CodeForbidden            Code = "forbidden"
	CodeInvalidTransition    Code = "invalid_transition"
	CodeInternshipNotActive  Code = "internship_not_active"
	CodeDuplicateApplication Code = "duplicate_application"
	CodeNotFound             Code = "not_found"
	CodeRateLimited          Code = "rate_limited"
	CodeStoreUnavailable     Code = "store_unavailable"
	CodeInternal             Code = "internal"
)

// Error is the single error type crossing service boundaries. Code selects
// the HTTP mapping; Err keeps the underlying cause for logs only.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NewValidationError(message string, fields map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: message, Fields: fields}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}
