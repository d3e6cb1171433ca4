// Package errors defines structured error types shared by the ledger layers.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of failure.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrInvalidEmail is returned when an address does not look like an email
	ErrInvalidEmail ErrorCode = "INVALID_EMAIL"
	// ErrInvalidQuery is returned when a filter names an unknown field or relation
	ErrInvalidQuery ErrorCode = "INVALID_QUERY"

	// ErrNotFound is returned when a record is not found
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrEmptyCollection is returned by first/last on an empty table
	ErrEmptyCollection ErrorCode = "EMPTY_COLLECTION"

	// ErrSchemaIntegrity is returned when the serialized store does not match
	// the canonical table set. Nothing is written when it happens.
	ErrSchemaIntegrity ErrorCode = "SCHEMA_INTEGRITY"
	// ErrStorageError is returned when a storage operation fails
	ErrStorageError ErrorCode = "STORAGE_ERROR"

	// ErrInsufficientBalance is returned when a debit would overdraw a balance
	ErrInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"
	// ErrUnauthorized is returned when authentication is missing or invalid
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrInternal is returned when an unexpected error occurs
	ErrInternal ErrorCode = "INTERNAL_ERROR"
)

// ErrorWithStatus is an error that carries an error code and an HTTP status.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// Error is a concrete error type with a code, a message and optional details.
type Error struct {
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{code: code, message: message}
}

// WithDetail adds a single detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *Error) Wrap(err error) *Error {
	e.wrappedErr = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *Error) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *Error) Unwrap() error {
	return e.wrappedErr
}

// Is reports whether target is an ErrorCode or an *Error with the same code.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case ErrorCode:
		return t == e.code
	case *Error:
		return t.code == e.code
	}
	return false
}

// StatusCode maps the error code to an HTTP status.
func (e *Error) StatusCode() int {
	switch e.code {
	case ErrValidationFailed, ErrInvalidEmail, ErrInvalidQuery:
		return http.StatusBadRequest
	case ErrNotFound, ErrEmptyCollection:
		return http.StatusNotFound
	case ErrInsufficientBalance:
		return http.StatusConflict
	case ErrUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error makes ErrorCode usable as an errors.Is target.
func (c ErrorCode) Error() string {
	return string(c)
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return errors.Is(err, code)
}

// Predefined error constructors for common cases

// NotFound creates a not found error for a key.
func NotFound(resource, key string) *Error {
	return New(ErrNotFound, fmt.Sprintf("%s not found: %s", resource, key)).WithDetail("key", key)
}

// EmptyCollection creates an error for first/last on an empty table.
func EmptyCollection(table string) *Error {
	return New(ErrEmptyCollection, fmt.Sprintf("%s is empty", table))
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(ErrValidationFailed, message)
}

// InvalidEmail creates an invalid email error.
func InvalidEmail(address string) *Error {
	return New(ErrInvalidEmail, fmt.Sprintf("invalid email: %q", address)).WithDetail("email", address)
}

// InvalidQuery creates an error for a filter on an unknown field or relation.
func InvalidQuery(format string, args ...any) *Error {
	return New(ErrInvalidQuery, fmt.Sprintf(format, args...))
}

// SchemaIntegrity creates a fatal schema mismatch error.
func SchemaIntegrity(message string) *Error {
	return New(ErrSchemaIntegrity, message)
}

// InsufficientBalance creates an error for a debit larger than the balance.
func InsufficientBalance(email, balance, requested string) *Error {
	return New(ErrInsufficientBalance, fmt.Sprintf("%s has %s points, %s requested", email, balance, requested)).
		WithDetail("email", email)
}

// Unauthorized creates an authentication error.
func Unauthorized(message string) *Error {
	return New(ErrUnauthorized, message)
}

// Internal creates an internal error wrapping err.
func Internal(message string, err error) *Error {
	return New(ErrInternal, message).Wrap(err)
}
