// Package errors defines the typed error codes shared by the order services
// and the HTTP layer. Each code maps to a status, a public message and a
// retry hint via MetadataFor.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNoTenant     Code = "NO_TENANT"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// order lifecycle
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeQuantityTooSmall   Code = "QUANTITY_TOO_SMALL"
	CodeSelfDealing        Code = "SELF_DEALING"
	CodeListingUnavailable Code = "LISTING_UNAVAILABLE"
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type flag uint8

const (
	retryable flag = 1 << iota
	withDetails
)

func md(status int, msg string, flags flag) Metadata {
	return Metadata{
		HTTPStatus:     status,
		PublicMessage:  msg,
		Retryable:      flags&retryable != 0,
		DetailsAllowed: flags&withDetails != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:   md(http.StatusBadRequest, "validation failed", withDetails),
	CodeUnauthorized: md(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:    md(http.StatusForbidden, "access denied", 0),
	CodeNoTenant:     md(http.StatusForbidden, "user has no tenant", 0),
	CodeNotFound:     md(http.StatusNotFound, "resource not found", 0),
	CodeConflict:     md(http.StatusConflict, "conflict detected", retryable),
	CodeIdempotency:  md(http.StatusConflict, "idempotency key reused", withDetails),
	CodeInternal:     md(http.StatusInternalServerError, "internal server error", retryable),
	CodeDependency:   md(http.StatusServiceUnavailable, "dependency unavailable", retryable|withDetails),

	CodeInvalidTransition:  md(http.StatusUnprocessableEntity, "state transition disallowed", withDetails),
	CodeQuantityTooSmall:   md(http.StatusUnprocessableEntity, "quantity below minimum order quantity", withDetails),
	CodeSelfDealing:        md(http.StatusUnprocessableEntity, "buyer and supplier must differ", 0),
	CodeListingUnavailable: md(http.StatusConflict, "listing unavailable", 0),
	CodeInsufficientStock:  md(http.StatusConflict, "insufficient stock", withDetails),
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error carries a Code, an operator-facing message and optional details
// that are only exposed when the code allows it.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap attaches code and message to err. A nil err behaves like New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

// Newf is New with fmt formatting.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	return As(err).Code()
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// IsRetryable reports whether clients may retry the failed request unchanged.
func IsRetryable(err error) bool {
	return err != nil && MetadataFor(CodeOf(err)).Retryable
}
