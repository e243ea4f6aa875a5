package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Mocho error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrStoreRead      ErrorCode = "STORE_READ"      // 503
	ErrStoreWrite     ErrorCode = "STORE_WRITE"     // 503
)

// MochoError represents a structured error with code, status, and details.
type MochoError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	// Err is the underlying cause, if any. Never shown to MCP or web clients.
	Err error
}

// Error implements the error interface.
func (e *MochoError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *MochoError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *MochoError {
	return &MochoError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing item.
func NewNotFound(identifier string) *MochoError {
	return &MochoError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *MochoError {
	return &MochoError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *MochoError {
	return &MochoError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewCancelled creates a 499 error when an operation's context is cancelled.
func NewCancelled(operation string) *MochoError {
	return &MochoError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewStoreRead creates a 503 error when the record store cannot be read or
// holds data that does not decode.
func NewStoreRead(key string, err error) *MochoError {
	return &MochoError{
		Code:    ErrStoreRead,
		Status:  503,
		Message: fmt.Sprintf("could not load %s; using defaults", key),
		Details: map[string]any{"key": key},
		Err:     err,
	}
}

// NewStoreWrite creates a 503 error when the record could not be saved.
// The caller keeps its in-memory state and may retry the action.
func NewStoreWrite(key string, err error) *MochoError {
	return &MochoError{
		Code:    ErrStoreWrite,
		Status:  503,
		Message: "could not save; your change is kept for this session, try again",
		Details: map[string]any{"key": key},
		Err:     err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *MochoError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &MochoError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is checks if an error is (or wraps) a MochoError with the given code.
func Is(err error, code ErrorCode) bool {
	var mErr *MochoError
	if stderrors.As(err, &mErr) {
		return mErr.Code == code
	}
	return false
}

// As returns the MochoError in err's chain, wrapping anything else as internal.
func As(err error) *MochoError {
	var mErr *MochoError
	if stderrors.As(err, &mErr) {
		return mErr
	}
	return NewInternal(err)
}
