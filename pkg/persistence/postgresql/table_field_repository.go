package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/persistence"
	"github.com/lib/pq"
)

// TableFieldRepository handles table field database operations.
type TableFieldRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTableFieldRepository creates a new table field repository.
func NewTableFieldRepository(db *sql.DB, logger *slog.Logger) *TableFieldRepository {
	return &TableFieldRepository{db: db, logger: logger}
}

// FindByLegacyIDs returns the fields whose legacy id is in ids, ordered by id.
func (r *TableFieldRepository) FindByLegacyIDs(ctx context.Context, ids []int64) ([]*models.TableField, error) {
	fields := make([]*models.TableField, 0, len(ids))
	if len(ids) == 0 {
		return fields, nil
	}

	query := `
		SELECT
			id
		  , external_id
		  , table_id
		  , name
		FROM table_fields
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query table fields: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var field models.TableField

		err := rows.Scan(&field.ID, &field.ExternalID, &field.TableID, &field.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table field: %w", err)
		}

		fields = append(fields, &field)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating table fields: %w", err)
	}

	return fields, nil
}

// Save inserts or replaces a table field keyed by its legacy id.
func (r *TableFieldRepository) Save(ctx context.Context, field *models.TableField) error {
	if field.ID <= 0 || field.ExternalID == "" {
		return fmt.Errorf("%w: id %d, external id %q", persistence.ErrInvalidTableField, field.ID, field.ExternalID)
	}

	query := `
		INSERT INTO table_fields (id, external_id, table_id, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			table_id = EXCLUDED.table_id,
			name = EXCLUDED.name
	`

	_, err := r.db.ExecContext(ctx, query, field.ID, field.ExternalID, field.TableID, field.Name)
	if err != nil {
		return fmt.Errorf("failed to save table field: %w", err)
	}

	return nil
}
