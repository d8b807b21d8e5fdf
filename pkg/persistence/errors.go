// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowVersionNotFound indicates a flow version was not found by the given identifier.
	ErrFlowVersionNotFound = errors.New("flow version not found")

	// ErrFlowVersionLocked indicates a write to a LOCKED flow version.
	ErrFlowVersionLocked = errors.New("flow version is locked")

	// ErrInvalidTableField indicates a table field record cannot be stored.
	ErrInvalidTableField = errors.New("invalid table field")
)

// FlowVersionError wraps flow version errors with additional context.
type FlowVersionError struct {
	Op            string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	FlowVersionID string // Flow version ID if applicable
	FlowID        string // Flow ID if applicable
	Err           error  // Underlying error
}

func (e *FlowVersionError) Error() string {
	target := "flow version " + e.FlowVersionID
	if e.FlowID != "" {
		target = "flow " + e.FlowID
	}

	return fmt.Sprintf("%s operation failed for %s: %v", e.Op, target, e.Err)
}

func (e *FlowVersionError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for flow version errors.
func (e *FlowVersionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowVersionError creates a new flow version error with context.
func NewFlowVersionError(op, flowVersionID string, err error) *FlowVersionError {
	return &FlowVersionError{
		Op:            op,
		FlowVersionID: flowVersionID,
		Err:           err,
	}
}

// NewFlowError creates a new flow version error for operations spanning a flow.
func NewFlowError(op, flowID string, err error) *FlowVersionError {
	return &FlowVersionError{
		Op:     op,
		FlowID: flowID,
		Err:    err,
	}
}

// IsFlowVersionNotFound checks if an error indicates a flow version was not found.
func IsFlowVersionNotFound(err error) bool {
	return errors.Is(err, ErrFlowVersionNotFound)
}

// IsFlowVersionLocked checks if an error indicates a locked flow version.
func IsFlowVersionLocked(err error) bool {
	return errors.Is(err, ErrFlowVersionLocked)
}
