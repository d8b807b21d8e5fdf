// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/google/uuid"
)

// CreateTestStep creates a CODE step with default values that can be overridden.
func CreateTestStep(name string, overrides ...func(*models.Step)) *models.Step {
	step := &models.Step{
		Name:        name,
		DisplayName: "Test " + name,
		Type:        models.ActionTypeCode,
		Valid:       true,
		Settings: map[string]any{
			models.SettingsInput: map[string]any{},
			"sourceCode":         map[string]any{"code": "export const code = async () => true"},
		},
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// CreateTestTrigger creates an EMPTY trigger followed by next.
func CreateTestTrigger(next *models.Step, overrides ...func(*models.Step)) *models.Step {
	trigger := &models.Step{
		Name:        "trigger",
		DisplayName: "Select Trigger",
		Type:        models.TriggerTypeEmpty,
		Valid:       false,
		Settings:    map[string]any{},
		NextAction:  next,
	}

	for _, override := range overrides {
		override(trigger)
	}

	return trigger
}

// CreateTestFlowVersion wraps trigger in a DRAFT flow version at schemaVersion.
func CreateTestFlowVersion(trigger *models.Step, schemaVersion string) *models.FlowVersion {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	return &models.FlowVersion{
		ID:            uuid.New().String(),
		FlowID:        uuid.New().String(),
		DisplayName:   "Test Flow",
		Trigger:       trigger,
		SchemaVersion: schemaVersion,
		ConnectionIDs: []string{},
		AgentIDs:      []string{},
		Notes:         []models.Note{},
		Valid:         true,
		State:         models.FlowVersionStateDraft,
		Created:       now,
		Updated:       now,
	}
}

// Chain links steps through nextAction and returns the first one.
func Chain(steps ...*models.Step) *models.Step {
	for i := 0; i < len(steps)-1; i++ {
		steps[i].NextAction = steps[i+1]
	}

	if len(steps) == 0 {
		return nil
	}

	return steps[0]
}

// WithPiece turns the step into a PIECE action of pieceName/actionName.
func WithPiece(pieceName, pieceVersion, actionName string) func(*models.Step) {
	return func(s *models.Step) {
		s.Type = models.ActionTypePiece
		s.Settings[models.SettingsPieceName] = pieceName
		s.Settings[models.SettingsPieceVersion] = pieceVersion
		s.Settings[models.SettingsActionName] = actionName
		delete(s.Settings, "sourceCode")
	}
}

// WithPieceTrigger turns the step into a PIECE_TRIGGER of pieceName.
func WithPieceTrigger(pieceName, pieceVersion, triggerName string) func(*models.Step) {
	return func(s *models.Step) {
		s.Type = models.TriggerTypePiece
		s.Settings[models.SettingsPieceName] = pieceName
		s.Settings[models.SettingsPieceVersion] = pieceVersion
		s.Settings[models.SettingsTriggerName] = triggerName
		if _, ok := s.Settings[models.SettingsInput]; !ok {
			s.Settings[models.SettingsInput] = map[string]any{}
		}
	}
}

// WithInput sets the step's input map.
func WithInput(input map[string]any) func(*models.Step) {
	return func(s *models.Step) {
		s.Settings[models.SettingsInput] = input
	}
}

// WithSetting sets a single settings key.
func WithSetting(key string, value any) func(*models.Step) {
	return func(s *models.Step) {
		s.Settings[key] = value
	}
}

// WithRouter turns the step into a ROUTER owning children.
func WithRouter(children ...*models.Step) func(*models.Step) {
	return func(s *models.Step) {
		s.Type = models.ActionTypeRouter
		s.Children = children
		s.Settings = map[string]any{
			models.SettingsExecutionType: "EXECUTE_FIRST_MATCH",
			models.SettingsBranches:      []any{},
		}
	}
}

// WithLoop turns the step into a LOOP_ON_ITEMS owning body.
func WithLoop(body *models.Step) func(*models.Step) {
	return func(s *models.Step) {
		s.Type = models.ActionTypeLoopOnItems
		s.FirstLoopAction = body
		s.Settings = map[string]any{"items": "{{trigger.items}}"}
	}
}

// WithBranch turns the step into a legacy BRANCH with the given sub-trees.
func WithBranch(onSuccess, onFailure *models.Step) func(*models.Step) {
	return func(s *models.Step) {
		s.Type = models.ActionTypeBranch
		s.OnSuccessAction = onSuccess
		s.OnFailureAction = onFailure
		s.Settings = map[string]any{
			models.SettingsConditions: []any{
				[]any{
					map[string]any{
						"firstValue":  "{{trigger.status}}",
						"secondValue": "ok",
						"operator":    "TEXT_EXACTLY_MATCHES",
					},
				},
			},
			models.SettingsInputUIInfo: map[string]any{},
		}
	}
}
