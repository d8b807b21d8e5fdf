package models

import "time"

// FlowVersionState is the lifecycle state of a flow version.
type FlowVersionState string

const (
	FlowVersionStateDraft  FlowVersionState = "DRAFT"  // Editable in the builder
	FlowVersionStateLocked FlowVersionState = "LOCKED" // Published, read-only
)

// SchemaVersionUnversioned tags documents from before schema versioning existed.
const SchemaVersionUnversioned = ""

// Note is a free-form annotation a user pinned on the flow canvas.
type Note struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Color   string `json:"color,omitempty"`
}

// FlowVersion is the persisted envelope around a flow's step tree.
type FlowVersion struct {
	ID            string           `json:"id"`
	FlowID        string           `json:"flowId"`
	DisplayName   string           `json:"displayName"`
	Trigger       *Step            `json:"trigger"                 validate:"required"`
	SchemaVersion string           `json:"schemaVersion,omitempty"`
	ConnectionIDs []string         `json:"connectionIds"`
	AgentIDs      []string         `json:"agentIds"`
	Notes         []Note           `json:"notes"`
	Valid         bool             `json:"valid"`
	State         FlowVersionState `json:"state"                   validate:"omitempty,oneof=DRAFT LOCKED"`
	UpdatedBy     string           `json:"updatedBy,omitempty"`
	Created       time.Time        `json:"created"`
	Updated       time.Time        `json:"updated"`
}

// Clone returns a deep copy of the version including its step tree.
func (v *FlowVersion) Clone() *FlowVersion {
	if v == nil {
		return nil
	}

	clone := *v
	clone.Trigger = v.Trigger.Clone()

	if v.ConnectionIDs != nil {
		clone.ConnectionIDs = append([]string{}, v.ConnectionIDs...)
	}

	if v.AgentIDs != nil {
		clone.AgentIDs = append([]string{}, v.AgentIDs...)
	}

	if v.Notes != nil {
		clone.Notes = append([]Note{}, v.Notes...)
	}

	return &clone
}

// IsLocked reports whether the version is published and read-only.
func (v *FlowVersion) IsLocked() bool {
	return v.State == FlowVersionStateLocked
}
