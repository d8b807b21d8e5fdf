// Package file provides file-based persistence implementation for flow versions and table fields.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dukex/flowmigrate/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root            string
	flowVersionRepo *FlowVersionRepository
	tableFieldRepo  *TableFieldRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:            cleanRoot,
		flowVersionRepo: NewFlowVersionRepository(cleanRoot),
		tableFieldRepo:  NewTableFieldRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// FlowVersionRepository returns the flow version repository implementation for file persistence.
func (fp *Persistence) FlowVersionRepository() persistence.FlowVersionRepository {
	return fp.flowVersionRepo
}

// TableFieldRepository returns the table field repository implementation for file persistence.
func (fp *Persistence) TableFieldRepository() persistence.TableFieldRepository {
	return fp.tableFieldRepo
}
