package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"slices"
	"strconv"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/persistence"
)

const tableFieldsDir = "table_fields"

// TableFieldRepository stores each table field as root/table_fields/<legacy id>.json.
type TableFieldRepository struct {
	root string
}

// NewTableFieldRepository creates a new table field repository.
func NewTableFieldRepository(root string) *TableFieldRepository {
	return &TableFieldRepository{root: root}
}

// FindByLegacyIDs returns the stored fields among ids, ordered by id.
func (r *TableFieldRepository) FindByLegacyIDs(_ context.Context, ids []int64) ([]*models.TableField, error) {
	unique := slices.Clone(ids)
	slices.Sort(unique)
	unique = slices.Compact(unique)

	fields := make([]*models.TableField, 0, len(unique))

	for _, id := range unique {
		body, err := os.ReadFile(r.filePath(id))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return nil, fmt.Errorf("failed to fetch table field %d: %w", id, err)
		}

		var field models.TableField

		err = json.Unmarshal(body, &field)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal table field %d: %w", id, err)
		}

		fields = append(fields, &field)
	}

	return fields, nil
}

// Save writes a table field keyed by its legacy id.
func (r *TableFieldRepository) Save(_ context.Context, field *models.TableField) error {
	if field.ID <= 0 || field.ExternalID == "" {
		return fmt.Errorf("%w: id %d, external id %q", persistence.ErrInvalidTableField, field.ID, field.ExternalID)
	}

	err := os.MkdirAll(path.Join(r.root, tableFieldsDir), 0750)
	if err != nil {
		return fmt.Errorf("failed to create table fields directory: %w", err)
	}

	data, err := json.MarshalIndent(field, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal table field %d: %w", field.ID, err)
	}

	return os.WriteFile(r.filePath(field.ID), data, 0600)
}

func (r *TableFieldRepository) filePath(id int64) string {
	return path.Join(r.root, tableFieldsDir, strconv.FormatInt(id, 10)+".json")
}
