// Package migrations evolves persisted flow versions across schema versions.
package migrations

import (
	"context"
	"errors"

	"github.com/dukex/flowmigrate/pkg/flowtree"
	"github.com/dukex/flowmigrate/pkg/models"
)

var (
	// ErrMalformedStep indicates a legacy step lacks the shape a migration targets.
	ErrMalformedStep = errors.New("malformed step")

	// ErrExternalLookup indicates the external lookup adapter failed.
	ErrExternalLookup = errors.New("external lookup failed")

	// ErrVersionMismatch indicates a migration produced a version other than the one it declares.
	ErrVersionMismatch = errors.New("migration produced unexpected schema version")

	// ErrUnsupportedSchemaVersion indicates a document whose version is neither latest nor migratable.
	ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")

	// ErrBrokenChain indicates the registry order does not follow the version chain.
	ErrBrokenChain = errors.New("broken migration chain")

	// ErrUnknownStepType is re-exported from flowtree for callers that only import migrations.
	ErrUnknownStepType = flowtree.ErrUnknownStepType
)

// Migration transforms a flow version from TargetSchemaVersion to NextSchemaVersion.
// Implementations must not modify the version they receive.
type Migration interface {
	Name() string
	TargetSchemaVersion() string
	NextSchemaVersion() string
	Migrate(ctx context.Context, version *models.FlowVersion) (*models.FlowVersion, error)
}

// TableFieldLookup resolves legacy numeric table field ids. Ids with no record
// are simply absent from the result.
type TableFieldLookup interface {
	FindByLegacyIDs(ctx context.Context, ids []int64) ([]*models.TableField, error)
}

type migration struct {
	name string
	from string
	to   string
	fn   func(ctx context.Context, version *models.FlowVersion) (*models.FlowVersion, error)
}

func (m *migration) Name() string                { return m.name }
func (m *migration) TargetSchemaVersion() string { return m.from }
func (m *migration) NextSchemaVersion() string   { return m.to }

func (m *migration) Migrate(ctx context.Context, version *models.FlowVersion) (*models.FlowVersion, error) {
	migrated, err := m.fn(ctx, version)
	if err != nil {
		return nil, err
	}

	migrated.SchemaVersion = m.to

	return migrated, nil
}

// stepMigration builds a migration that rewrites every step through transform.
func stepMigration(name, from, to string, transform flowtree.StepTransformer) *migration {
	return &migration{
		name: name,
		from: from,
		to:   to,
		fn: func(_ context.Context, version *models.FlowVersion) (*models.FlowVersion, error) {
			return flowtree.TransferFlow(version, transform)
		},
	}
}

// inputOf returns the step's input map, or nil.
func inputOf(settings map[string]any) map[string]any {
	input, _ := settings[models.SettingsInput].(map[string]any)

	return input
}
