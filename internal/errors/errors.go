package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode represents a Santa error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnauthorized   ErrorCode = "UNAUTHORIZED"    // 401
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrConflict       ErrorCode = "CONFLICT"        // 409
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrUnavailable    ErrorCode = "UNAVAILABLE"     // 503
)

// SantaError represents a structured error with code, status, and details.
type SantaError struct {
	Code    ErrorCode      `json:"code"`
	Status  int            `json:"status"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *SantaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SantaError {
	return &SantaError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewValidation creates a 400 error listing per-field problems.
// fields maps a field name to a human-readable message.
func NewValidation(fields map[string]string) *SantaError {
	msgs := make([]string, 0, len(fields))
	for _, name := range sortedKeys(fields) {
		msgs = append(msgs, fields[name])
	}
	return &SantaError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: strings.Join(msgs, "; "),
		Details: map[string]any{"fields": fields},
	}
}

// NewUnauthorized creates a 401 error for a failed admin check.
func NewUnauthorized(msg string) *SantaError {
	return &SantaError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing record.
func NewNotFound(kind string, identifier any) *SantaError {
	id := fmt.Sprint(identifier)
	return &SantaError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"identifier": id},
	}
}

// NewConflict creates a 409 error for general conflicts.
func NewConflict(msg string) *SantaError {
	return &SantaError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SantaError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SantaError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// NewUnavailable creates a 503 error when the wish store cannot be reached.
func NewUnavailable(err error) *SantaError {
	msg := "wish store unavailable"
	if err != nil {
		msg = fmt.Sprintf("wish store unavailable: %v", err)
	}
	return &SantaError{
		Code:    ErrUnavailable,
		Status:  503,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a SantaError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SantaError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As extracts a SantaError from err, wrapping unknown errors as INTERNAL.
func As(err error) *SantaError {
	var sErr *SantaError
	if stderrors.As(err, &sErr) {
		return sErr
	}
	return NewInternal(err)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
