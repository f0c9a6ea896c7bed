// Package errors provides coded domain errors shared by the server, the remote
// store client and the sync coordinator.
//
// Codes use the remote store's wire vocabulary ("unavailable",
// "auth/wrong-password", ...). The server writes them as {code, message}
// bodies, the client decodes them back, and the coordinator turns them into
// user-facing text with Message.
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    ...
//	}
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
	New    = errors.New
)

// Code is a machine-readable error code.
type Code string

// Error codes.
const (
	CodeUnavailable         Code = "unavailable"
	CodeDeadlineExceeded    Code = "deadline-exceeded"
	CodeInternal            Code = "internal"
	CodePermissionDenied    Code = "permission-denied"
	CodeUnauthenticated     Code = "unauthenticated"
	CodeNotFound            Code = "not-found"
	CodeInvalidArgument     Code = "invalid-argument"
	CodeUserNotFound        Code = "auth/user-not-found"
	CodeWrongPassword       Code = "auth/wrong-password"
	CodeEmailInUse          Code = "auth/email-already-in-use"
	CodeWeakPassword        Code = "auth/weak-password"
	CodeInvalidEmail        Code = "auth/invalid-email"
	CodeTooManyRequests     Code = "auth/too-many-requests"
	CodeNetworkFailed       Code = "auth/network-request-failed"
	CodeOperationNotAllowed Code = "auth/operation-not-allowed"
)

// HTTPStatus returns the status code the server answers with for c.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeEmailInUse:
		return http.StatusConflict
	case CodeUnauthenticated, CodeWrongPassword:
		return http.StatusUnauthorized
	case CodePermissionDenied, CodeOperationNotAllowed:
		return http.StatusForbidden
	case CodeInvalidArgument, CodeWeakPassword, CodeInvalidEmail:
		return http.StatusBadRequest
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeUnavailable, CodeNetworkFailed:
		return http.StatusServiceUnavailable
	case CodeDeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// CodeFromStatus guesses a code for a response that carried no error body.
func CodeFromStatus(status int) Code {
	switch status {
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusConflict:
		return CodeEmailInUse
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return CodeInvalidArgument
	case http.StatusTooManyRequests:
		return CodeTooManyRequests
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return CodeUnavailable
	case http.StatusGatewayTimeout, http.StatusRequestTimeout:
		return CodeDeadlineExceeded
	default:
		return CodeInternal
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy carrying details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, cause: e.cause}
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, cause: err}
}

// Sentinel errors for use with errors.Is().
var (
	ErrUnavailable         = &Error{Code: CodeUnavailable, Message: "service unavailable"}
	ErrDeadlineExceeded    = &Error{Code: CodeDeadlineExceeded, Message: "deadline exceeded"}
	ErrInternal            = &Error{Code: CodeInternal, Message: "internal error"}
	ErrPermissionDenied    = &Error{Code: CodePermissionDenied, Message: "permission denied"}
	ErrUnauthenticated     = &Error{Code: CodeUnauthenticated, Message: "authentication required"}
	ErrNotFound            = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidArgument     = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
	ErrUserNotFound        = &Error{Code: CodeUserNotFound, Message: "user not found"}
	ErrWrongPassword       = &Error{Code: CodeWrongPassword, Message: "wrong password"}
	ErrEmailInUse          = &Error{Code: CodeEmailInUse, Message: "email already in use"}
	ErrWeakPassword        = &Error{Code: CodeWeakPassword, Message: "password too weak"}
	ErrInvalidEmail        = &Error{Code: CodeInvalidEmail, Message: "invalid email"}
	ErrTooManyRequests     = &Error{Code: CodeTooManyRequests, Message: "too many requests"}
	ErrNetworkFailed       = &Error{Code: CodeNetworkFailed, Message: "network request failed"}
	ErrOperationNotAllowed = &Error{Code: CodeOperationNotAllowed, Message: "operation not allowed"}
)

// Newf creates an error with the given code and formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not-found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// InvalidArgument creates a validation error.
func InvalidArgument(msg string) *Error {
	return &Error{Code: CodeInvalidArgument, Message: msg}
}

// InvalidArgumentWithDetails creates a validation error with field details.
func InvalidArgumentWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: msg, Details: details}
}

// Internal wraps err as an internal error.
func Internal(msg string, err error) *Error {
	return &Error{Code: CodeInternal, Message: msg, cause: err}
}

// Unavailable wraps err as a transient transport failure.
func Unavailable(msg string, err error) *Error {
	return &Error{Code: CodeUnavailable, Message: msg, cause: err}
}

// CodeOf extracts the code of err. Context errors map to their transient codes;
// anything else without a code is internal.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeDeadlineExceeded
	case errors.Is(err, context.Canceled):
		return CodeUnavailable
	}
	return CodeInternal
}

// retryable lists the transient codes worth another attempt.
var retryable = map[Code]bool{
	CodeUnavailable:      true,
	CodeDeadlineExceeded: true,
	CodeInternal:         true,
}

// Retryable reports whether err carries one of the transient codes.
// Plain errors without a code are not retried.
func Retryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return retryable[e.Code]
}
