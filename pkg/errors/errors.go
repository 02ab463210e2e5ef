// Package errors provides structured error types for astview.
//
// Errors carry a machine-readable [Code] so the CLI, the HTTP server and the
// terminal viewer can react to the same failure in the same way: the server
// maps codes to status codes, the viewers show [UserMessage].
//
// # Error Codes
//
//   - LOAD_*: the AST collection could not be obtained (fatal to a view)
//   - INVALID_*: input validation failures
//   - *_NOT_FOUND: missing resources
//   - RENDER_FAILED: a frame could not be produced; the previous frame stays
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidEngine, "unknown engine %q", name)
//	if errors.Is(err, errors.ErrCodeInvalidEngine) {
//	    // Handle validation error
//	}
//
//	err := errors.Wrap(errors.ErrCodeLoad, origErr, "fetch %s", url)
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code represents a machine-readable error code.
type Code string

const (
	// Collection loading
	ErrCodeLoad            Code = "LOAD_FAILED"
	ErrCodeEmptyCollection Code = "EMPTY_COLLECTION"

	// Input validation
	ErrCodeInvalidInput     Code = "INVALID_INPUT"
	ErrCodeInvalidFormat    Code = "INVALID_FORMAT"
	ErrCodeInvalidEngine    Code = "INVALID_ENGINE"
	ErrCodeInvalidDimension Code = "INVALID_DIMENSION"
	ErrCodeInvalidSource    Code = "INVALID_SOURCE"
	ErrCodeInvalidPath      Code = "INVALID_PATH"

	// Missing resources
	ErrCodeNotFound        Code = "NOT_FOUND"
	ErrCodeSessionNotFound Code = "SESSION_NOT_FOUND"
	ErrCodeIndexOutOfRange Code = "INDEX_OUT_OF_RANGE"
	ErrCodeSessionExpired  Code = "SESSION_EXPIRED"

	// Rendering
	ErrCodeRender Code = "RENDER_FAILED"

	// Network
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error wrapping cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether the outermost *Error in err's chain has code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the code of the outermost *Error, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsLoad reports whether err means the collection could not be obtained.
func IsLoad(err error) bool {
	code := GetCode(err)
	return code == ErrCodeLoad || code == ErrCodeEmptyCollection
}

// UserMessage returns the message without the code prefix. For an *Error
// with a cause the cause is appended, since it is usually what the user
// needs to fix.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %s", e.Message, UserMessage(e.Cause))
		}
		return e.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the status code the server responds with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeInvalidInput, ErrCodeInvalidFormat, ErrCodeInvalidEngine,
		ErrCodeInvalidDimension, ErrCodeInvalidSource, ErrCodeInvalidPath:
		return http.StatusBadRequest
	case ErrCodeNotFound, ErrCodeSessionNotFound, ErrCodeIndexOutOfRange:
		return http.StatusNotFound
	case ErrCodeSessionExpired:
		return http.StatusGone
	case ErrCodeLoad, ErrCodeEmptyCollection, ErrCodeNetwork:
		return http.StatusBadGateway
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
