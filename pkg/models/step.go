// Package models defines the flow document model that schema migrations operate on.
package models

import "fmt"

// StepType discriminates the concrete variant of a step.
type StepType string

// Trigger step types.
const (
	TriggerTypeEmpty   StepType = "EMPTY"
	TriggerTypePiece   StepType = "PIECE_TRIGGER"
	TriggerTypeWebhook StepType = "WEBHOOK"
)

// Action step types.
const (
	ActionTypeCode        StepType = "CODE"
	ActionTypePiece       StepType = "PIECE"
	ActionTypeLoopOnItems StepType = "LOOP_ON_ITEMS"
	ActionTypeRouter      StepType = "ROUTER"

	// ActionTypeBranch is the deprecated two-way conditional replaced by ActionTypeRouter.
	ActionTypeBranch StepType = "BRANCH"
)

// StepShape describes which nested pointers a step type owns besides nextAction.
type StepShape int

const (
	ShapeLeaf StepShape = iota
	ShapeRouter
	ShapeLoop
	ShapeBranch
)

var stepShapes = map[StepType]StepShape{
	TriggerTypeEmpty:      ShapeLeaf,
	TriggerTypePiece:      ShapeLeaf,
	TriggerTypeWebhook:    ShapeLeaf,
	ActionTypeCode:        ShapeLeaf,
	ActionTypePiece:       ShapeLeaf,
	ActionTypeLoopOnItems: ShapeLoop,
	ActionTypeRouter:      ShapeRouter,
	ActionTypeBranch:      ShapeBranch,
}

// Shape returns the linkage shape of the step type. The second value is false
// for types outside the known set.
func (t StepType) Shape() (StepShape, bool) {
	shape, ok := stepShapes[t]

	return shape, ok
}

// IsTrigger reports whether the type can only appear at the root of a flow.
func (t StepType) IsTrigger() bool {
	return t == TriggerTypeEmpty || t == TriggerTypePiece || t == TriggerTypeWebhook
}

// IsPieceBacked reports whether the step executes a piece action or trigger.
func (t StepType) IsPieceBacked() bool {
	return t == ActionTypePiece || t == TriggerTypePiece
}

// StepTypes returns every known step type.
func StepTypes() []StepType {
	types := make([]StepType, 0, len(stepShapes))
	for t := range stepShapes {
		types = append(types, t)
	}

	return types
}

// Well-known settings keys.
const (
	SettingsInput              = "input"
	SettingsInputUIInfo        = "inputUiInfo"
	SettingsPieceName          = "pieceName"
	SettingsPieceVersion       = "pieceVersion"
	SettingsActionName         = "actionName"
	SettingsTriggerName        = "triggerName"
	SettingsPropertySettings   = "propertySettings"
	SettingsSampleDataSettings = "sampleDataSettings"
	SettingsBranches           = "branches"
	SettingsExecutionType      = "executionType"
	SettingsConditions         = "conditions"

	InputAuth    = "auth"
	InputAgentID = "agentId"
	InputTools   = "tools"
	InputValues  = "values"
)

// Built-in pieces referenced by migrations.
const (
	AgentPieceName  = "@pieces/agent"
	TablesPieceName = "@pieces/tables"
)

// Step is a node of the legacy linked flow tree. Which pointers are meaningful
// depends on Type: see StepType.Shape.
type Step struct {
	Name        string         `json:"name"                      validate:"required"`
	DisplayName string         `json:"displayName"`
	Type        StepType       `json:"type"                      validate:"required"`
	Valid       bool           `json:"valid"`
	Settings    map[string]any `json:"settings"`
	NextAction  *Step          `json:"nextAction,omitempty"`

	// Router branches. Slots are positional and may be nil.
	Children []*Step `json:"children,omitempty"`

	// Loop body.
	FirstLoopAction *Step `json:"firstLoopAction,omitempty"`

	// Legacy BRANCH sub-trees.
	OnSuccessAction *Step `json:"onSuccessAction,omitempty"`
	OnFailureAction *Step `json:"onFailureAction,omitempty"`
}

// Input returns the step's input map or nil when the step has none.
func (s *Step) Input() map[string]any {
	input, _ := s.Settings[SettingsInput].(map[string]any)

	return input
}

// PieceName returns the piece bound to a piece-backed step, or "".
func (s *Step) PieceName() string {
	if !s.Type.IsPieceBacked() {
		return ""
	}

	name, _ := s.Settings[SettingsPieceName].(string)

	return name
}

// ActionName returns settings.actionName, or "".
func (s *Step) ActionName() string {
	name, _ := s.Settings[SettingsActionName].(string)

	return name
}

// IsPieceAction reports whether the step is a PIECE action bound to pieceName.
func (s *Step) IsPieceAction(pieceName string) bool {
	return s.Type == ActionTypePiece && s.PieceName() == pieceName
}

func (s *Step) String() string {
	return fmt.Sprintf("%s(%s)", s.Name, s.Type)
}

// Clone returns a deep copy of the step and everything it owns.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}

	clone := &Step{
		Name:            s.Name,
		DisplayName:     s.DisplayName,
		Type:            s.Type,
		Valid:           s.Valid,
		Settings:        CloneMap(s.Settings),
		NextAction:      s.NextAction.Clone(),
		FirstLoopAction: s.FirstLoopAction.Clone(),
		OnSuccessAction: s.OnSuccessAction.Clone(),
		OnFailureAction: s.OnFailureAction.Clone(),
	}

	if s.Children != nil {
		clone.Children = make([]*Step, len(s.Children))
		for i, child := range s.Children {
			clone.Children[i] = child.Clone()
		}
	}

	return clone
}
