package migrations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/otelhelper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Pipeline applies an ordered chain of migrations in a single linear pass.
type Pipeline struct {
	migrations []Migration
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTracer sets the tracer used for per-migration spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// NewPipeline validates that the migrations form a contiguous version chain
// and returns a pipeline over them.
func NewPipeline(migrations []Migration, opts ...Option) (*Pipeline, error) {
	err := ValidateChain(migrations)
	if err != nil {
		return nil, err
	}

	pipeline := &Pipeline{
		migrations: migrations,
		logger:     slog.Default(),
		tracer:     otel.Tracer("flowmigrate/migrations"),
	}

	for _, opt := range opts {
		opt(pipeline)
	}

	return pipeline, nil
}

// ValidateChain checks that every migration's postcondition is the next
// migration's precondition and that no precondition repeats.
func ValidateChain(migrations []Migration) error {
	if len(migrations) == 0 {
		return fmt.Errorf("%w: no migrations registered", ErrBrokenChain)
	}

	seen := make(map[string]string, len(migrations))

	for i, m := range migrations {
		if m.NextSchemaVersion() == m.TargetSchemaVersion() {
			return fmt.Errorf("%w: %s does not advance version %q", ErrBrokenChain, m.Name(), m.TargetSchemaVersion())
		}

		if other, dup := seen[m.TargetSchemaVersion()]; dup {
			return fmt.Errorf("%w: %s and %s both start at version %q", ErrBrokenChain, other, m.Name(), m.TargetSchemaVersion())
		}

		seen[m.TargetSchemaVersion()] = m.Name()

		if i+1 < len(migrations) && m.NextSchemaVersion() != migrations[i+1].TargetSchemaVersion() {
			return fmt.Errorf("%w: %s produces %q but %s expects %q", ErrBrokenChain,
				m.Name(), m.NextSchemaVersion(), migrations[i+1].Name(), migrations[i+1].TargetSchemaVersion())
		}
	}

	if _, loops := seen[migrations[len(migrations)-1].NextSchemaVersion()]; loops {
		return fmt.Errorf("%w: latest version %q is also a precondition", ErrBrokenChain, migrations[len(migrations)-1].NextSchemaVersion())
	}

	return nil
}

// Latest returns the schema version every successful Apply ends at.
func (p *Pipeline) Latest() string {
	return p.migrations[len(p.migrations)-1].NextSchemaVersion()
}

// Migrations returns the registered migrations in order.
func (p *Pipeline) Migrations() []Migration {
	return append([]Migration{}, p.migrations...)
}

// Supports reports whether a document at schemaVersion can be brought to Latest.
func (p *Pipeline) Supports(schemaVersion string) bool {
	if schemaVersion == p.Latest() {
		return true
	}

	for _, m := range p.migrations {
		if m.TargetSchemaVersion() == schemaVersion {
			return true
		}
	}

	return false
}

// Result describes one Apply call.
type Result struct {
	Version *models.FlowVersion
	From    string
	Applied []string
}

// Apply brings version to the latest schema version. Every migration whose
// precondition equals the current version fires, in registry order. When no
// migration fires, version itself is returned. Any failure aborts the whole
// pass and no partially migrated document is returned.
func (p *Pipeline) Apply(ctx context.Context, version *models.FlowVersion) (*models.FlowVersion, error) {
	result, err := p.ApplyWithResult(ctx, version)
	if err != nil {
		return nil, err
	}

	return result.Version, nil
}

// ApplyWithResult is Apply that also reports which migrations ran.
func (p *Pipeline) ApplyWithResult(ctx context.Context, version *models.FlowVersion) (*Result, error) {
	if version == nil {
		return nil, fmt.Errorf("%w: nil flow version", ErrMalformedStep)
	}

	result := &Result{From: version.SchemaVersion, Applied: make([]string, 0)}
	current := version

	for _, m := range p.migrations {
		if current.SchemaVersion != m.TargetSchemaVersion() {
			continue
		}

		migrated, err := p.run(ctx, m, current)
		if err != nil {
			return nil, err
		}

		current = migrated
		result.Applied = append(result.Applied, m.Name())
	}

	if current.SchemaVersion != p.Latest() {
		return nil, fmt.Errorf("%w: flow version %s is at %q, latest is %q",
			ErrUnsupportedSchemaVersion, version.ID, current.SchemaVersion, p.Latest())
	}

	result.Version = current

	return result, nil
}

func (p *Pipeline) run(ctx context.Context, m Migration, version *models.FlowVersion) (*models.FlowVersion, error) {
	ctx, span := otelhelper.StartSpan(ctx, p.tracer, "migration."+m.Name(),
		otelhelper.MigrationAttributes(version.FlowID, version.ID, m.Name(), m.TargetSchemaVersion(), m.NextSchemaVersion())...,
	)
	defer span.End()

	migrated, err := m.Migrate(ctx, version)
	if err != nil {
		otelhelper.SetError(span, err)
		p.logger.ErrorContext(ctx, "Migration failed",
			"migration", m.Name(),
			"flow_version_id", version.ID,
			"error", err,
		)

		return nil, fmt.Errorf("migration %s: %w", m.Name(), err)
	}

	if migrated.SchemaVersion != m.NextSchemaVersion() {
		err := fmt.Errorf("%w: %s produced %q, want %q", ErrVersionMismatch, m.Name(), migrated.SchemaVersion, m.NextSchemaVersion())
		otelhelper.SetError(span, err)

		return nil, err
	}

	p.logger.DebugContext(ctx, "Migration applied",
		"migration", m.Name(),
		"flow_version_id", version.ID,
		"from", m.TargetSchemaVersion(),
		"to", m.NextSchemaVersion(),
	)

	return migrated, nil
}
