package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable error identifier returned to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// CodeDuplicateApplication is returned when a freelancer already holds a
	// live engagement on the project.
	CodeDuplicateApplication Code = "DUPLICATE_APPLICATION"
	// CodeSettlementPartialFailure marks a settlement whose transaction was
	// rolled back mid-way; details carry the failing step.
	CodeSettlementPartialFailure Code = "SETTLEMENT_PARTIAL_FAILURE"
)

// Metadata controls how a code is rendered on the wire. ExposeMessage lets
// the caller's message replace PublicMessage.
type Metadata struct {
	HTTPStatus     int
	PublicMessage  string
	ExposeMessage  bool
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:               {http.StatusBadRequest, "validation failed", true, true},
	CodeUnauthorized:             {http.StatusUnauthorized, "authentication required", true, false},
	CodeForbidden:                {http.StatusForbidden, "access denied", true, false},
	CodeNotFound:                 {http.StatusNotFound, "resource not found", true, false},
	CodeConflict:                 {http.StatusConflict, "conflict detected", true, false},
	CodeStateConflict:            {http.StatusUnprocessableEntity, "state transition disallowed", true, true},
	CodeIdempotency:              {http.StatusConflict, "idempotency key reused", true, true},
	CodeRateLimit:                {http.StatusTooManyRequests, "rate limit exceeded", true, false},
	CodeInternal:                 {http.StatusInternalServerError, "internal server error", false, false},
	CodeDependency:               {http.StatusServiceUnavailable, "dependency unavailable", false, true},
	CodeDuplicateApplication:     {http.StatusConflict, "an active engagement already exists for this project", true, false},
	CodeSettlementPartialFailure: {http.StatusInternalServerError, "settlement could not be completed", false, true},
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error every layer above the repositories returns.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
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

// WithDetails attaches client-facing details. They are only rendered when the
// code's metadata allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

// PublicMessage is the message clients see for this error.
func (e *Error) PublicMessage() string {
	meta := MetadataFor(e.Code())
	if meta.ExposeMessage && e.Message() != "" {
		return e.Message()
	}
	return meta.PublicMessage
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

// As returns the outermost typed error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given typed code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// Normalize returns err as a typed error, wrapping untyped errors as internal.
func Normalize(err error) *Error {
	if err == nil {
		return New(CodeInternal, "unknown error")
	}
	if typed := As(err); typed != nil {
		return typed
	}
	return Wrap(CodeInternal, err, "unexpected error")
}
