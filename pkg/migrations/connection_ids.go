package migrations

import (
	"context"

	"github.com/dukex/flowmigrate/pkg/flowtree"
	"github.com/dukex/flowmigrate/pkg/models"
)

// NewAddConnectionIDs populates the envelope's connectionIds from the auth
// references found in the tree. The tree itself is not touched.
func NewAddConnectionIDs() Migration {
	return &migration{
		name: "add-connection-ids",
		from: "1",
		to:   "2",
		fn: func(_ context.Context, version *models.FlowVersion) (*models.FlowVersion, error) {
			ids, err := flowtree.ExtractConnectionIDs(version)
			if err != nil {
				return nil, err
			}

			migrated := version.Clone()
			migrated.ConnectionIDs = ids

			return migrated, nil
		},
	}
}
