package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/google/uuid"
)

const flowVersionsDir = "flow_versions"

// FlowVersionRepository stores each flow version as root/flow_versions/<id>.json.
type FlowVersionRepository struct {
	root string
}

// NewFlowVersionRepository creates a new flow version repository.
func NewFlowVersionRepository(root string) *FlowVersionRepository {
	return &FlowVersionRepository{root: root}
}

// GetAll returns every stored flow version, oldest first.
func (r *FlowVersionRepository) GetAll(ctx context.Context) ([]*models.FlowVersion, error) {
	jsonFiles, err := fs.Glob(os.DirFS(path.Join(r.root, flowVersionsDir)), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list flow version files: %w", err)
	}

	versions := make([]*models.FlowVersion, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		id := strings.TrimSuffix(file, ".json")

		version, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load flow version %s: %w", id, err)
		}

		if version != nil {
			versions = append(versions, version)
		}
	}

	sort.SliceStable(versions, func(i, j int) bool {
		if versions[i].Created.Equal(versions[j].Created) {
			return versions[i].ID < versions[j].ID
		}

		return versions[i].Created.Before(versions[j].Created)
	})

	return versions, nil
}

// ListByFlowID returns every version of flowID, oldest first.
func (r *FlowVersionRepository) ListByFlowID(ctx context.Context, flowID string) ([]*models.FlowVersion, error) {
	all, err := r.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	versions := make([]*models.FlowVersion, 0)

	for _, version := range all {
		if version.FlowID == flowID {
			versions = append(versions, version)
		}
	}

	return versions, nil
}

// GetByID retrieves a flow version by its ID from the file system.
func (r *FlowVersionRepository) GetByID(_ context.Context, id string) (*models.FlowVersion, error) {
	if !validFileID(id) {
		return nil, nil
	}

	filePath := filepath.Clean(path.Join(r.root, flowVersionsDir, id+".json"))

	body, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to fetch flow version %s: %w", id, err)
	}

	var version models.FlowVersion

	err = json.Unmarshal(body, &version)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow version %s: %w", id, err)
	}

	return &version, nil
}

// Save saves a flow version to the file system.
func (r *FlowVersionRepository) Save(_ context.Context, version *models.FlowVersion) error {
	err := os.MkdirAll(path.Join(r.root, flowVersionsDir), 0750)
	if err != nil {
		return fmt.Errorf("failed to create flow versions directory: %w", err)
	}

	if version.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate flow version ID: %w", err)
		}

		version.ID = id.String()
	}

	if !validFileID(version.ID) {
		return fmt.Errorf("invalid flow version ID %q", version.ID)
	}

	now := time.Now().UTC()
	if version.Created.IsZero() {
		version.Created = now
	}

	version.Updated = now

	if version.State == "" {
		version.State = models.FlowVersionStateDraft
	}

	data, err := json.MarshalIndent(version, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal flow version %s: %w", version.ID, err)
	}

	filePath := path.Join(r.root, flowVersionsDir, version.ID+".json")

	return os.WriteFile(filePath, data, 0600)
}

// Delete removes a flow version by its ID.
func (r *FlowVersionRepository) Delete(_ context.Context, id string) error {
	if !validFileID(id) {
		return nil
	}

	filePath := path.Join(r.root, flowVersionsDir, id+".json")

	err := os.Remove(filePath)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to delete flow version %s: %w", id, err)
	}

	return nil
}

// validFileID rejects ids that would escape the collection directory.
func validFileID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}
