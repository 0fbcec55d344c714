package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a window that did not end as committed or
// rolled_back.
//
// Runtime errors include:
//   - Quota exceeded: the window recorded more nodes than allowed
//   - Restore failed: a cancelled node could not be put back
//   - Operation failed: the operation returned an error or panicked
//
// RuntimeError includes structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// WindowID identifies the affected window.
	WindowID string

	// Operation names the operation that ran in the window.
	Operation string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeQuotaExceeded indicates the window exceeded max nodes.
	ErrCodeQuotaExceeded RuntimeErrorCode = "QUOTA_EXCEEDED"

	// ErrCodeRestoreFailed indicates a rollback could not complete. The
	// world may be partially rolled back.
	ErrCodeRestoreFailed RuntimeErrorCode = "RESTORE_FAILED"

	// ErrCodeOperationFailed indicates the operation itself failed.
	ErrCodeOperationFailed RuntimeErrorCode = "OPERATION_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.WindowID != "" && e.Operation != "" {
		return fmt.Sprintf("%s: %s (window=%s, op=%s)", e.Code, e.Message, e.WindowID, e.Operation)
	}
	if e.WindowID != "" {
		return fmt.Sprintf("%s: %s (window=%s)", e.Code, e.Message, e.WindowID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsQuotaError returns true if the error is a quota exceeded error.
// Matches both RuntimeError with ErrCodeQuotaExceeded and NodesExceededError.
// Uses errors.As to handle wrapped errors.
func IsQuotaError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeQuotaExceeded {
		return true
	}
	var ne *NodesExceededError
	return errors.As(err, &ne)
}

// IsRestoreError returns true if the error is a restore failure.
func IsRestoreError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeRestoreFailed
}

// IsOperationError returns true if the error is an operation failure.
func IsOperationError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeOperationFailed
}

// NewQuotaError creates a RuntimeError for quota exceeded.
func NewQuotaError(windowID, op string, cause *NodesExceededError) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeQuotaExceeded,
		Message:   fmt.Sprintf("window exceeded max nodes (%d > %d)", cause.Nodes, cause.Limit),
		WindowID:  windowID,
		Operation: op,
		Details: map[string]string{
			"nodes":     fmt.Sprintf("%d", cause.Nodes),
			"max_nodes": fmt.Sprintf("%d", cause.Limit),
		},
		Err: cause,
	}
}

// NewRestoreError creates a RuntimeError for a failed rollback.
func NewRestoreError(windowID, op string, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeRestoreFailed,
		Message:   err.Error(),
		WindowID:  windowID,
		Operation: op,
		Err:       err,
	}
}

// NewOperationError creates a RuntimeError for a failed operation.
func NewOperationError(windowID, op string, err error) *RuntimeError {
	return &RuntimeError{
		Code:      ErrCodeOperationFailed,
		Message:   err.Error(),
		WindowID:  windowID,
		Operation: op,
		Err:       err,
	}
}
