// Package web provides HTTP request and response types for the flow version API.
package web

import (
	"github.com/dukex/flowmigrate/pkg/migrations"
	"github.com/dukex/flowmigrate/pkg/models"
)

// CreateFlowVersionRequest represents the request body for storing a flow version.
// SchemaVersion may be any version the pipeline supports; the stored copy is
// always at the latest version. ID is optional and keeps an imported document's
// identifier.
type CreateFlowVersionRequest struct {
	ID            string                  `json:"id"            validate:"omitempty,uuid"`
	FlowID        string                  `json:"flowId"        validate:"required"`
	DisplayName   string                  `json:"displayName"   validate:"required,min=1"`
	SchemaVersion string                  `json:"schemaVersion"`
	Trigger       *models.Step            `json:"trigger"       validate:"required"`
	ConnectionIDs []string                `json:"connectionIds"`
	AgentIDs      []string                `json:"agentIds"`
	Notes         []models.Note           `json:"notes"`
	Valid         bool                    `json:"valid"`
	State         models.FlowVersionState `json:"state"         validate:"omitempty,oneof=DRAFT LOCKED"`
	UpdatedBy     string                  `json:"updatedBy"`
}

// ToModel builds the flow version the request describes.
func (r CreateFlowVersionRequest) ToModel() *models.FlowVersion {
	return &models.FlowVersion{
		ID:            r.ID,
		FlowID:        r.FlowID,
		DisplayName:   r.DisplayName,
		SchemaVersion: r.SchemaVersion,
		Trigger:       r.Trigger,
		ConnectionIDs: r.ConnectionIDs,
		AgentIDs:      r.AgentIDs,
		Notes:         r.Notes,
		Valid:         r.Valid,
		State:         r.State,
		UpdatedBy:     r.UpdatedBy,
	}
}

// MigrationResponse reports the outcome of a migration pass.
type MigrationResponse struct {
	FlowVersion *models.FlowVersion `json:"flowVersion"`
	From        string              `json:"from"`
	To          string              `json:"to"`
	Applied     []string            `json:"applied"`
}

// TransformMigrationResult transforms a pipeline result into a MigrationResponse.
func TransformMigrationResult(result *migrations.Result) MigrationResponse {
	return MigrationResponse{
		FlowVersion: result.Version,
		From:        result.From,
		To:          result.Version.SchemaVersion,
		Applied:     result.Applied,
	}
}

// MigrationInfo describes one registered migration.
type MigrationInfo struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

// TransformMigrations lists the registered migrations in pipeline order.
func TransformMigrations(chain []migrations.Migration) []MigrationInfo {
	infos := make([]MigrationInfo, 0, len(chain))

	for _, m := range chain {
		infos = append(infos, MigrationInfo{
			Name: m.Name(),
			From: m.TargetSchemaVersion(),
			To:   m.NextSchemaVersion(),
		})
	}

	return infos
}
