package migrations

import (
	"fmt"

	"github.com/dukex/flowmigrate/pkg/models"
)

// Router settings values.
const (
	RouterExecuteFirstMatch = "EXECUTE_FIRST_MATCH"
	BranchTypeCondition     = "CONDITION"
	BranchTypeFallback      = "FALLBACK"
)

// NewBranchToRouter converts every legacy BRANCH step into a two-slot ROUTER:
// a condition branch holding the old success path and a fallback branch
// holding the old failure path.
func NewBranchToRouter() Migration {
	return stepMigration("branch-to-router", models.SchemaVersionUnversioned, "1", branchToRouter)
}

func branchToRouter(step *models.Step) (*models.Step, error) {
	if step.Type != models.ActionTypeBranch {
		return step, nil
	}

	conditions, err := translateConditions(step.Settings[models.SettingsConditions])
	if err != nil {
		return nil, err
	}

	settings := map[string]any{
		models.SettingsExecutionType: RouterExecuteFirstMatch,
		models.SettingsBranches: []any{
			map[string]any{
				"branchType": BranchTypeCondition,
				"branchName": "Branch 1",
				"conditions": conditions,
			},
			map[string]any{
				"branchType": BranchTypeFallback,
				"branchName": "Otherwise",
			},
		},
	}

	if uiInfo, ok := step.Settings[models.SettingsInputUIInfo]; ok {
		settings[models.SettingsInputUIInfo] = uiInfo
	}

	return &models.Step{
		Name:        step.Name,
		DisplayName: step.DisplayName,
		Type:        models.ActionTypeRouter,
		Valid:       step.Valid,
		Settings:    settings,
		NextAction:  step.NextAction,
		Children:    []*models.Step{step.OnSuccessAction, step.OnFailureAction},
	}, nil
}

// translateConditions converts the legacy OR-of-AND condition groups into the
// router's condition shape.
func translateConditions(raw any) ([]any, error) {
	groups, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: branch conditions must be a list, got %T", ErrMalformedStep, raw)
	}

	translated := make([]any, 0, len(groups))

	for i, group := range groups {
		conditions, ok := group.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: branch condition group %d must be a list, got %T", ErrMalformedStep, i, group)
		}

		andGroup := make([]any, 0, len(conditions))

		for j, item := range conditions {
			condition, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: branch condition %d.%d must be an object, got %T", ErrMalformedStep, i, j, item)
			}

			operator, _ := condition["operator"].(string)
			if operator == "" {
				return nil, fmt.Errorf("%w: branch condition %d.%d has no operator", ErrMalformedStep, i, j)
			}

			caseSensitive, _ := condition["caseSensitive"].(bool)

			translatedCondition := map[string]any{
				"firstValue":    condition["firstValue"],
				"operator":      operator,
				"caseSensitive": caseSensitive,
			}

			if second, ok := condition["secondValue"]; ok {
				translatedCondition["secondValue"] = second
			}

			andGroup = append(andGroup, translatedCondition)
		}

		translated = append(translated, andGroup)
	}

	return translated, nil
}
