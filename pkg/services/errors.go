// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"

	"github.com/dukex/flowmigrate/pkg/migrations"
	"github.com/dukex/flowmigrate/pkg/persistence"
	"github.com/dukex/flowmigrate/pkg/schema"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrFlowVersionNil  = errors.New("flow version cannot be nil")
	ErrTriggerRequired = errors.New("flow version must have a trigger")
	ErrInvalidTrigger  = errors.New("flow version trigger must be a trigger step")

	// Business Logic Conflicts (409 Conflict).
	ErrCannotModifyLocked = persistence.ErrFlowVersionLocked

	// ErrFlowVersionNotFound is returned when a flow version is not found.
	ErrFlowVersionNotFound = persistence.ErrFlowVersionNotFound
)

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrFlowVersionNil) ||
		errors.Is(err, ErrTriggerRequired) ||
		errors.Is(err, ErrInvalidTrigger) ||
		errors.Is(err, schema.ErrInvalidEnvelope)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return persistence.IsFlowVersionLocked(err)
}

// IsUnprocessableError checks if a document was readable but cannot be migrated (HTTP 422).
func IsUnprocessableError(err error) bool {
	return errors.Is(err, migrations.ErrMalformedStep) ||
		errors.Is(err, migrations.ErrUnknownStepType) ||
		errors.Is(err, migrations.ErrUnsupportedSchemaVersion)
}

// IsUpstreamError checks if an error came from the external lookup (HTTP 502).
func IsUpstreamError(err error) bool {
	return errors.Is(err, migrations.ErrExternalLookup)
}
