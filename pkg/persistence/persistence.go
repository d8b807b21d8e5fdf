// Package persistence provides the storage abstraction for flow versions and table fields.
package persistence

import (
	"context"

	"github.com/dukex/flowmigrate/pkg/models"
)

// Persistence is a storage backend for flow versions and the table field
// records migrations resolve against.
type Persistence interface {
	FlowVersionRepository() FlowVersionRepository
	TableFieldRepository() TableFieldRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// FlowVersionRepository stores flow version documents as-is, at whatever
// schema version they were written.
type FlowVersionRepository interface {
	GetAll(ctx context.Context) ([]*models.FlowVersion, error)

	// GetByID returns nil and no error when the version does not exist.
	GetByID(ctx context.Context, id string) (*models.FlowVersion, error)

	ListByFlowID(ctx context.Context, flowID string) ([]*models.FlowVersion, error)
	Save(ctx context.Context, version *models.FlowVersion) error
	Delete(ctx context.Context, id string) error
}

// TableFieldRepository resolves legacy table field ids. It satisfies
// migrations.TableFieldLookup.
type TableFieldRepository interface {
	FindByLegacyIDs(ctx context.Context, ids []int64) ([]*models.TableField, error)
	Save(ctx context.Context, field *models.TableField) error
}
