package store

import "fmt"

// Error is a storage error with a stable code.
type Error struct {
	Code    string // machine-readable code
	Message string // user-facing message
	Err     error  // underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Err:     err,
	}
}

// Sentinel errors.
var (
	ErrNotFound = &Error{
		Code:    "NOT_FOUND",
		Message: "record not found",
	}

	ErrAlreadyExists = &Error{
		Code:    "ALREADY_EXISTS",
		Message: "record already exists",
	}

	ErrInvalidInput = &Error{
		Code:    "INVALID_INPUT",
		Message: "invalid input",
	}

	// ErrUnavailable indicates the store could not be opened or has been
	// closed. Callers must treat it as fatal to the current operation.
	ErrUnavailable = &Error{
		Code:    "UNAVAILABLE",
		Message: "store unavailable",
	}
)
