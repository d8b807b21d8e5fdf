// Package events defines the notifications emitted when flow versions change schema.
package events

import (
	"time"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every flow version event.
const Topic = "flowmigrate.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	FlowVersionMigratedEvent        EventType = "flow_version.migrated"
	FlowVersionMigrationFailedEvent EventType = "flow_version.migration_failed"
)

type BaseEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	FlowID        string         `json:"flow_id"`
	FlowVersionID string         `json:"flow_version_id"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// FlowVersionMigrated is published after a migrated flow version is persisted.
type FlowVersionMigrated struct {
	BaseEvent

	FromSchemaVersion string   `json:"from_schema_version"`
	ToSchemaVersion   string   `json:"to_schema_version"`
	Applied           []string `json:"applied"`
	ConnectionIDs     []string `json:"connection_ids"`
	AgentIDs          []string `json:"agent_ids"`
}

func (e FlowVersionMigrated) GetType() EventType {
	return FlowVersionMigratedEvent
}

// FlowVersionMigrationFailed is published when a stored flow version cannot
// be brought to the latest schema version.
type FlowVersionMigrationFailed struct {
	BaseEvent

	SchemaVersion string `json:"schema_version"`
	Error         string `json:"error"`
}

func (e FlowVersionMigrationFailed) GetType() EventType {
	return FlowVersionMigrationFailedEvent
}

func newBaseEvent(eventType EventType, version *models.FlowVersion) BaseEvent {
	return BaseEvent{
		ID:            uuid.NewString(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		FlowID:        version.FlowID,
		FlowVersionID: version.ID,
	}
}

// NewFlowVersionMigrated builds the event for a version migrated from fromSchemaVersion.
func NewFlowVersionMigrated(version *models.FlowVersion, fromSchemaVersion string, applied []string) FlowVersionMigrated {
	return FlowVersionMigrated{
		BaseEvent:         newBaseEvent(FlowVersionMigratedEvent, version),
		FromSchemaVersion: fromSchemaVersion,
		ToSchemaVersion:   version.SchemaVersion,
		Applied:           applied,
		ConnectionIDs:     version.ConnectionIDs,
		AgentIDs:          version.AgentIDs,
	}
}

// NewFlowVersionMigrationFailed builds the failure event for version.
func NewFlowVersionMigrationFailed(version *models.FlowVersion, err error) FlowVersionMigrationFailed {
	return FlowVersionMigrationFailed{
		BaseEvent:     newBaseEvent(FlowVersionMigrationFailedEvent, version),
		SchemaVersion: version.SchemaVersion,
		Error:         err.Error(),
	}
}
