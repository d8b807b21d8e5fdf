package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowmigrate/pkg/eventbus"
	"github.com/dukex/flowmigrate/pkg/events"
	"github.com/dukex/flowmigrate/pkg/migrations"
	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/persistence"
)

// FlowVersion loads, migrates and stores flow versions.
type FlowVersion struct {
	persistence persistence.Persistence
	pipeline    *migrations.Pipeline
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

// NewFlowVersion creates a new flow version service. publisher may be nil,
// in which case no events are emitted.
func NewFlowVersion(
	persistence persistence.Persistence,
	pipeline *migrations.Pipeline,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
) *FlowVersion {
	return &FlowVersion{
		persistence: persistence,
		pipeline:    pipeline,
		publisher:   publisher,
		logger:      logger.With("module", "flow_version_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *FlowVersion) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := s.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Pipeline returns the migration pipeline the service applies.
func (s *FlowVersion) Pipeline() *migrations.Pipeline {
	return s.pipeline
}

// List returns stored flow versions as they are persisted, optionally
// restricted to one flow.
func (s *FlowVersion) List(ctx context.Context, flowID string) ([]*models.FlowVersion, error) {
	repo := s.persistence.FlowVersionRepository()

	if flowID != "" {
		versions, err := repo.ListByFlowID(ctx, flowID)
		if err != nil {
			return nil, persistence.NewFlowError("List", flowID, err)
		}

		return versions, nil
	}

	versions, err := repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flow versions: %w", err)
	}

	return versions, nil
}

// FetchByID loads a flow version and returns it migrated to the latest
// schema version. The stored document is left untouched.
func (s *FlowVersion) FetchByID(ctx context.Context, id string) (*models.FlowVersion, error) {
	stored, err := s.load(ctx, "FetchByID", id)
	if err != nil {
		return nil, err
	}

	migrated, err := s.pipeline.Apply(ctx, stored)
	if err != nil {
		return nil, persistence.NewFlowVersionError("FetchByID", id, err)
	}

	return migrated, nil
}

// Create migrates a submitted document to the latest schema version and stores it.
// A document carrying the ID of a stored LOCKED version is rejected.
func (s *FlowVersion) Create(ctx context.Context, version *models.FlowVersion) (*models.FlowVersion, error) {
	err := s.validateDocument(version)
	if err != nil {
		return nil, err
	}

	if version.ID != "" {
		existing, err := s.persistence.FlowVersionRepository().GetByID(ctx, version.ID)
		if err != nil {
			return nil, persistence.NewFlowVersionError("Create", version.ID, err)
		}

		if existing != nil && existing.IsLocked() {
			return nil, persistence.NewFlowVersionError("Create", version.ID, ErrCannotModifyLocked)
		}
	}

	migrated, err := s.pipeline.Apply(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate new flow version: %w", err)
	}

	if migrated == version {
		migrated = version.Clone()
	}

	if migrated.State == "" {
		migrated.State = models.FlowVersionStateDraft
	}

	err = s.persistence.FlowVersionRepository().Save(ctx, migrated)
	if err != nil {
		return nil, fmt.Errorf("failed to save flow version: %w", err)
	}

	return migrated, nil
}

// Migrate brings a stored flow version to the latest schema version and
// persists it. Versions already at the latest schema version are not written.
func (s *FlowVersion) Migrate(ctx context.Context, id string) (*migrations.Result, error) {
	stored, err := s.load(ctx, "Migrate", id)
	if err != nil {
		return nil, err
	}

	return s.migrateStored(ctx, stored)
}

// MigrateDocument migrates a document without storing it.
func (s *FlowVersion) MigrateDocument(ctx context.Context, version *models.FlowVersion) (*migrations.Result, error) {
	err := s.validateDocument(version)
	if err != nil {
		return nil, err
	}

	return s.pipeline.ApplyWithResult(ctx, version)
}

// Delete removes a flow version. LOCKED versions cannot be deleted.
func (s *FlowVersion) Delete(ctx context.Context, id string) error {
	stored, err := s.load(ctx, "Delete", id)
	if err != nil {
		return err
	}

	if stored.IsLocked() {
		return persistence.NewFlowVersionError("Delete", id, ErrCannotModifyLocked)
	}

	err = s.persistence.FlowVersionRepository().Delete(ctx, id)
	if err != nil {
		return persistence.NewFlowVersionError("Delete", id, err)
	}

	return nil
}

// BackfillFailure records one version the backfill could not migrate.
type BackfillFailure struct {
	FlowVersionID string `json:"flowVersionId"`
	SchemaVersion string `json:"schemaVersion"`
	Error         string `json:"error"`
}

// BackfillReport summarizes a MigrateAll run.
type BackfillReport struct {
	Scanned  int               `json:"scanned"`
	Migrated int               `json:"migrated"`
	Failed   int               `json:"failed"`
	Failures []BackfillFailure `json:"failures"`
}

// MigrateAll migrates and persists every stored flow version that is behind
// the latest schema version. A failing version is recorded and skipped.
func (s *FlowVersion) MigrateAll(ctx context.Context) (*BackfillReport, error) {
	versions, err := s.persistence.FlowVersionRepository().GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list flow versions: %w", err)
	}

	report := &BackfillReport{Failures: make([]BackfillFailure, 0)}

	for _, version := range versions {
		err := ctx.Err()
		if err != nil {
			return report, err
		}

		report.Scanned++

		result, err := s.migrateStored(ctx, version)
		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, BackfillFailure{
				FlowVersionID: version.ID,
				SchemaVersion: version.SchemaVersion,
				Error:         err.Error(),
			})

			s.logger.ErrorContext(ctx, "Backfill failed for flow version",
				"flow_version_id", version.ID,
				"schema_version", version.SchemaVersion,
				"error", err,
			)
			s.publish(ctx, version.ID, events.NewFlowVersionMigrationFailed(version, err))

			continue
		}

		if len(result.Applied) > 0 {
			report.Migrated++
		}
	}

	s.logger.InfoContext(ctx, "Backfill completed",
		"scanned", report.Scanned,
		"migrated", report.Migrated,
		"failed", report.Failed,
	)

	return report, nil
}

func (s *FlowVersion) load(ctx context.Context, op, id string) (*models.FlowVersion, error) {
	stored, err := s.persistence.FlowVersionRepository().GetByID(ctx, id)
	if err != nil {
		return nil, persistence.NewFlowVersionError(op, id, err)
	}

	if stored == nil {
		return nil, persistence.NewFlowVersionError(op, id, ErrFlowVersionNotFound)
	}

	return stored, nil
}

func (s *FlowVersion) migrateStored(ctx context.Context, stored *models.FlowVersion) (*migrations.Result, error) {
	result, err := s.pipeline.ApplyWithResult(ctx, stored)
	if err != nil {
		return nil, persistence.NewFlowVersionError("Migrate", stored.ID, err)
	}

	if len(result.Applied) == 0 {
		return result, nil
	}

	err = s.persistence.FlowVersionRepository().Save(ctx, result.Version)
	if err != nil {
		return nil, persistence.NewFlowVersionError("Migrate", stored.ID, err)
	}

	s.logger.InfoContext(ctx, "Flow version migrated",
		"flow_version_id", stored.ID,
		"from", result.From,
		"to", result.Version.SchemaVersion,
		"applied", result.Applied,
	)

	s.publish(ctx, stored.ID, events.NewFlowVersionMigrated(result.Version, result.From, result.Applied))

	return result, nil
}

func (s *FlowVersion) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.Publish(ctx, key, event)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to publish flow version event",
			"flow_version_id", key,
			"event_type", event.GetType(),
			"error", err,
		)
	}
}

// validateDocument rejects documents the pipeline cannot start on. Unknown
// step types are left for the pipeline to report.
func (s *FlowVersion) validateDocument(version *models.FlowVersion) error {
	if version == nil {
		return ErrFlowVersionNil
	}

	if version.Trigger == nil {
		return ErrTriggerRequired
	}

	if _, known := version.Trigger.Type.Shape(); known && !version.Trigger.Type.IsTrigger() {
		return fmt.Errorf("%w: got %s", ErrInvalidTrigger, version.Trigger.Type)
	}

	if !s.pipeline.Supports(version.SchemaVersion) {
		return fmt.Errorf("%w: %q, latest is %q",
			migrations.ErrUnsupportedSchemaVersion, version.SchemaVersion, s.pipeline.Latest())
	}

	return nil
}
