// Package errors provides standardized domain errors with codes for the
// GiggleGlide engine.
//
// Usage:
//
//	// In services - return typed errors
//	if state.Offline() {
//	    return errors.NetworkUnavailable("device is offline")
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrNetworkUnavailable) {
//	    // fall back to the local cache
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the engine.
const (
	// CodeNetworkUnavailable marks recoverable connectivity failures. The
	// read path falls back to the local cache; the sync path surfaces it as
	// "cannot sync now".
	CodeNetworkUnavailable Code = "NETWORK_UNAVAILABLE"
	// CodeStoreUnavailable is fatal to the current call. Without local
	// storage the engine cannot guarantee the seen-marker invariant.
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"
	// CodeRemoteRejected marks an entry the server permanently refuses.
	CodeRemoteRejected Code = "REMOTE_REJECTED"
	CodeNotFound       Code = "NOT_FOUND"
	CodeValidation     Code = "VALIDATION"
	CodeInternal       Code = "INTERNAL"
)

// Retryable reports whether an operation failing with this code may succeed
// on a later attempt without intervention.
func (c Code) Retryable() bool {
	return c == CodeNetworkUnavailable
}

// Error is a domain error with a code, message, and optional cause.
type Error struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"` // per-field validation messages
	cause   error             // unexported, for wrapping
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

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNetworkUnavailable = &Error{Code: CodeNetworkUnavailable, Message: "network unavailable"}
	ErrStoreUnavailable   = &Error{Code: CodeStoreUnavailable, Message: "local store unavailable"}
	ErrRemoteRejected     = &Error{Code: CodeRemoteRejected, Message: "rejected by remote service"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation         = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal           = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// NetworkUnavailable creates a network unavailable error.
func NetworkUnavailable(msg string) *Error {
	return &Error{Code: CodeNetworkUnavailable, Message: msg}
}

// NetworkUnavailablef creates a network unavailable error with formatted message.
func NetworkUnavailablef(format string, args ...any) *Error {
	return &Error{Code: CodeNetworkUnavailable, Message: fmt.Sprintf(format, args...)}
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(msg string) *Error {
	return &Error{Code: CodeStoreUnavailable, Message: msg}
}

// RemoteRejected creates a remote rejected error.
func RemoteRejected(msg string) *Error {
	return &Error{Code: CodeRemoteRejected, Message: msg}
}

// RemoteRejectedf creates a remote rejected error with formatted message.
func RemoteRejectedf(format string, args ...any) *Error {
	return &Error{Code: CodeRemoteRejected, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// ValidationWithDetails creates a validation error carrying per-field messages.
func ValidationWithDetails(msg string, details map[string]string) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Internal creates an internal error.
func Internal(msg string) *Error {
	return &Error{Code: CodeInternal, Message: msg}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
