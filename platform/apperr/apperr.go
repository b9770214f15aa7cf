// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer
// maps them to appropriate HTTP status codes and the response envelope.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a document was not found.
	KindNotFound
	// KindValidation indicates invalid input data or a malformed identifier.
	KindValidation
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindUnacknowledged indicates the store did not acknowledge a write.
	KindUnacknowledged
	// KindSerialization indicates a document could not be made transport-safe.
	KindSerialization
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Code is the machine-readable reason sent to clients next to the message.
type Code string

const (
	CodeValidation              Code = "ValidationError"
	CodeInvalidIdentifierFormat Code = "InvalidIdentifierFormat"
	CodeMissingIdentifier       Code = "MissingIdentifier"
	CodeUnknownCollection       Code = "UnknownCollection"
	CodeUnknownSearchField      Code = "UnknownSearchField"
	CodeNotFound                Code = "NotFound"
	CodeUnacknowledged          Code = "Unacknowledged"
	CodeSerialization           Code = "SerializationError"
	CodeUnauthorized            Code = "Unauthorized"
	CodeUnknown                 Code = "Unknown"
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Op      string // Operation that failed (optional)
	Err     error  // Underlying error (optional)
	Details any    // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindUnacknowledged:
		return http.StatusServiceUnavailable
	case KindSerialization, KindInternal, KindUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new domain error with the given kind, code and message.
func New(kind Kind, code Code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, code Code, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: err}
}

// WithOp sets the operation on the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails sets additional details on the error.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

// Validation creates a generic validation error.
func Validation(message string) *Error {
	return New(KindValidation, CodeValidation, message)
}

// InvalidIdentifier reports an identifier the store cannot parse.
func InvalidIdentifier(id string) *Error {
	return New(KindValidation, CodeInvalidIdentifierFormat, fmt.Sprintf("invalid identifier format: %q", id))
}

// MissingIdentifier reports an operation that needs an identifier but got none.
func MissingIdentifier() *Error {
	return New(KindValidation, CodeMissingIdentifier, "identifier is required")
}

// Unacknowledged reports a write the store did not acknowledge.
func Unacknowledged(message string) *Error {
	return New(KindUnacknowledged, CodeUnacknowledged, message)
}

// Serialization reports a value that cannot be made transport-safe.
func Serialization(message string) *Error {
	return New(KindSerialization, CodeSerialization, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, CodeUnauthorized, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, CodeUnknown, message)
}

// Unknown wraps any other failure, passing its message through.
func Unknown(err error) *Error {
	if err == nil {
		return New(KindUnknown, CodeUnknown, "unknown error")
	}
	return Wrap(KindUnknown, CodeUnknown, err.Error(), err)
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// Ensure converts any error into an *Error, wrapping foreign errors as Unknown.
func Ensure(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		return e
	}
	return Unknown(err)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error chain holds no *Error.
func GetKind(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return CodeUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}

// HasCode checks if err is an *Error with the given code.
func HasCode(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}
