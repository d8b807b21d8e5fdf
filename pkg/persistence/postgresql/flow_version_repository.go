package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const flowVersionColumns = `
			id
		  , flow_id
		  , display_name
		  , schema_version
		  , state
		  , trigger_step
		  , connection_ids
		  , agent_ids
		  , notes
		  , valid
		  , updated_by
		  , created_at
		  , updated_at`

// FlowVersionRepository handles flow version database operations. Documents
// are stored at the schema version they were written with.
type FlowVersionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewFlowVersionRepository creates a new flow version repository.
func NewFlowVersionRepository(db *sql.DB, logger *slog.Logger) *FlowVersionRepository {
	return &FlowVersionRepository{db: db, logger: logger}
}

// GetAll returns all flow versions, oldest first.
func (r *FlowVersionRepository) GetAll(ctx context.Context) ([]*models.FlowVersion, error) {
	query := `SELECT ` + flowVersionColumns + `
		FROM flow_versions
		WHERE deleted_at IS NULL
		ORDER BY created_at, id
	`

	return r.queryMany(ctx, query)
}

// ListByFlowID returns every version of a flow, oldest first.
func (r *FlowVersionRepository) ListByFlowID(ctx context.Context, flowID string) ([]*models.FlowVersion, error) {
	query := `SELECT ` + flowVersionColumns + `
		FROM flow_versions
		WHERE flow_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id
	`

	return r.queryMany(ctx, query, flowID)
}

// GetByID returns a flow version by its ID, or nil when it does not exist.
func (r *FlowVersionRepository) GetByID(ctx context.Context, id string) (*models.FlowVersion, error) {
	if uuid.Validate(id) != nil {
		return nil, nil
	}

	query := `SELECT ` + flowVersionColumns + `
		FROM flow_versions
		WHERE id = $1 AND deleted_at IS NULL
	`

	version, err := r.scanFlowVersion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to scan flow version: %w", err)
	}

	return version, nil
}

// Save inserts or replaces a flow version.
func (r *FlowVersionRepository) Save(ctx context.Context, version *models.FlowVersion) error {
	now := time.Now().UTC()

	if version.Created.IsZero() {
		version.Created = now
	}

	version.Updated = now

	if version.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow version ID: %w", err)
		}

		version.ID = id.String()
	}

	if version.State == "" {
		version.State = models.FlowVersionStateDraft
	}

	triggerJSON, err := json.Marshal(version.Trigger)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger: %w", err)
	}

	notes := version.Notes
	if notes == nil {
		notes = []models.Note{}
	}

	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}

	query := `
		INSERT INTO flow_versions (id, flow_id, display_name, schema_version, state, trigger_step,
connection_ids, agent_ids, notes, valid, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			flow_id = EXCLUDED.flow_id,
			display_name = EXCLUDED.display_name,
			schema_version = EXCLUDED.schema_version,
			state = EXCLUDED.state,
			trigger_step = EXCLUDED.trigger_step,
			connection_ids = EXCLUDED.connection_ids,
			agent_ids = EXCLUDED.agent_ids,
			notes = EXCLUDED.notes,
			valid = EXCLUDED.valid,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`

	_, err = r.db.ExecContext(ctx, query,
		version.ID,
		version.FlowID,
		version.DisplayName,
		version.SchemaVersion,
		version.State,
		triggerJSON,
		pq.Array(nonNil(version.ConnectionIDs)),
		pq.Array(nonNil(version.AgentIDs)),
		notesJSON,
		version.Valid,
		sql.NullString{String: version.UpdatedBy, Valid: version.UpdatedBy != ""},
		version.Created,
		version.Updated,
	)
	if err != nil {
		return fmt.Errorf("failed to save flow version: %w", err)
	}

	return nil
}

// Delete soft deletes a flow version by setting deleted_at timestamp.
func (r *FlowVersionRepository) Delete(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return nil
	}

	query := `UPDATE flow_versions SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow version: %w", err)
	}

	return nil
}

func (r *FlowVersionRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.FlowVersion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow versions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	versions := make([]*models.FlowVersion, 0)

	for rows.Next() {
		version, err := r.scanFlowVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow version: %w", err)
		}

		versions = append(versions, version)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating flow versions: %w", err)
	}

	return versions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *FlowVersionRepository) scanFlowVersion(row scanner) (*models.FlowVersion, error) {
	var (
		version     models.FlowVersion
		triggerJSON []byte
		notesJSON   []byte
		updatedBy   sql.NullString
	)

	err := row.Scan(
		&version.ID,
		&version.FlowID,
		&version.DisplayName,
		&version.SchemaVersion,
		&version.State,
		&triggerJSON,
		(*pq.StringArray)(&version.ConnectionIDs),
		(*pq.StringArray)(&version.AgentIDs),
		&notesJSON,
		&version.Valid,
		&updatedBy,
		&version.Created,
		&version.Updated,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(triggerJSON, &version.Trigger)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger: %w", err)
	}

	err = json.Unmarshal(notesJSON, &version.Notes)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal notes: %w", err)
	}

	version.UpdatedBy = updatedBy.String
	version.ConnectionIDs = nonNil(version.ConnectionIDs)
	version.AgentIDs = nonNil(version.AgentIDs)
	version.Created = version.Created.UTC()
	version.Updated = version.Updated.UTC()

	return &version, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}

	return values
}
