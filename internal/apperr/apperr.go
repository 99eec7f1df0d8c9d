// Package apperr defines the error kinds surfaced by the receipts services.
// Each error carries a Code that callers can branch on and a Message that is
// safe to show to the user; the wrapped cause is kept for logging only.
package apperr

import (
	"errors"
	"net/http"
)

// Code identifies a class of failure. Codes are strings so they serialise
// naturally into JSON error bodies and log lines.
type Code string

const (
	// CodeNotFound indicates a record or an underlying file does not exist.
	CodeNotFound Code = "NOT_FOUND"

	// CodeValidation indicates malformed input, such as an unknown display
	// version or a crop rectangle outside the image.
	CodeValidation Code = "VALIDATION_FAILED"

	// CodeExtraction indicates the AI adapter failed or returned unparseable output.
	CodeExtraction Code = "EXTRACTION_FAILED"

	// CodeProcessing indicates the image transform engine failed.
	CodeProcessing Code = "PROCESSING_FAILED"

	// CodeInvalidState indicates the operation is not allowed for the record's
	// current state.
	CodeInvalidState Code = "INVALID_STATE"

	// CodeStorage indicates a disk or bucket I/O failure.
	CodeStorage Code = "STORAGE_ERROR"

	// CodeCreation indicates a receipt could not be created.
	CodeCreation Code = "CREATION_FAILED"

	// CodeGeneration indicates the strategy model failed to produce a reply.
	CodeGeneration Code = "GENERATION_FAILED"
)

// Error is the concrete error type returned across package boundaries.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap returns an *Error that keeps err as its cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func NotFound(message string) *Error     { return New(CodeNotFound, message) }
func Validation(message string) *Error   { return New(CodeValidation, message) }
func InvalidState(message string) *Error { return New(CodeInvalidState, message) }

// CodeOf returns the code of the outermost *Error in err's chain, or "" when
// there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// MessageOf returns the user-facing message of err. Errors that are not
// *Error get a generic message so internal detail never leaks.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps err to the status code the HTTP layer should answer with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
