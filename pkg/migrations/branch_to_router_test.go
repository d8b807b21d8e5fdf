package migrations_test

import (
	"testing"

	"github.com/dukex/flowmigrate/pkg/flowtree"
	"github.com/dukex/flowmigrate/pkg/migrations"
	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBranchToRouter_ConvertsBranch(t *testing.T) {
	onSuccess := testutil.CreateTestStep("on_success")
	onFailure := testutil.CreateTestStep("on_failure")
	after := testutil.CreateTestStep("after")

	branch := testutil.CreateTestStep("branch", testutil.WithBranch(onSuccess, onFailure))
	branch.NextAction = after

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(branch), "")

	migrated, err := migrations.NewBranchToRouter().Migrate(t.Context(), version)
	require.NoError(t, err)

	assert.Equal(t, "1", migrated.SchemaVersion)

	router := migrated.Trigger.NextAction
	require.NotNil(t, router)
	assert.Equal(t, models.ActionTypeRouter, router.Type)
	assert.Equal(t, "branch", router.Name)
	assert.Nil(t, router.OnSuccessAction)
	assert.Nil(t, router.OnFailureAction)
	require.Len(t, router.Children, 2)
	assert.Equal(t, "on_success", router.Children[0].Name)
	assert.Equal(t, "on_failure", router.Children[1].Name)
	require.NotNil(t, router.NextAction)
	assert.Equal(t, "after", router.NextAction.Name)

	assert.Equal(t, migrations.RouterExecuteFirstMatch, router.Settings[models.SettingsExecutionType])
	assert.Contains(t, router.Settings, models.SettingsInputUIInfo)

	branches, ok := router.Settings[models.SettingsBranches].([]any)
	require.True(t, ok)
	require.Len(t, branches, 2)

	condition := branches[0].(map[string]any)
	assert.Equal(t, migrations.BranchTypeCondition, condition["branchType"])
	assert.Equal(t, []any{
		[]any{
			map[string]any{
				"firstValue":    "{{trigger.status}}",
				"secondValue":   "ok",
				"operator":      "TEXT_EXACTLY_MATCHES",
				"caseSensitive": false,
			},
		},
	}, condition["conditions"])

	fallback := branches[1].(map[string]any)
	assert.Equal(t, migrations.BranchTypeFallback, fallback["branchType"])

	assert.Equal(t, models.ActionTypeBranch, version.Trigger.NextAction.Type, "input must not be modified")
}

func TestBranchToRouter_EmptyPaths(t *testing.T) {
	branch := testutil.CreateTestStep("branch", testutil.WithBranch(nil, nil))
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(branch), "")

	migrated, err := migrations.NewBranchToRouter().Migrate(t.Context(), version)
	require.NoError(t, err)

	router := migrated.Trigger.NextAction
	require.Len(t, router.Children, 2)
	assert.Nil(t, router.Children[0])
	assert.Nil(t, router.Children[1])

	steps, err := flowtree.CollectVersionSteps(migrated)
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestBranchToRouter_NestedBranches(t *testing.T) {
	inner := testutil.CreateTestStep("inner", testutil.WithBranch(testutil.CreateTestStep("deep"), nil))
	loop := testutil.CreateTestStep("loop", testutil.WithLoop(inner))
	outer := testutil.CreateTestStep("outer", testutil.WithBranch(loop, nil))

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(outer), "")

	migrated, err := migrations.NewBranchToRouter().Migrate(t.Context(), version)
	require.NoError(t, err)

	steps, err := flowtree.CollectVersionSteps(migrated)
	require.NoError(t, err)

	for _, step := range steps {
		assert.NotEqual(t, models.ActionTypeBranch, step.Type, "step %s", step.Name)
	}

	innerRouter := mustFind(t, migrated, "inner")
	require.NotNil(t, innerRouter)
	assert.Equal(t, models.ActionTypeRouter, innerRouter.Type)
	assert.Equal(t, "deep", innerRouter.Children[0].Name)
}

func TestBranchToRouter_MalformedConditions(t *testing.T) {
	tests := []struct {
		name       string
		conditions any
	}{
		{name: "missing", conditions: nil},
		{name: "group is not a list", conditions: []any{"nope"}},
		{name: "condition is not an object", conditions: []any{[]any{42}}},
		{name: "no operator", conditions: []any{[]any{map[string]any{"firstValue": "a"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			branch := testutil.CreateTestStep("branch",
				testutil.WithBranch(nil, nil),
				testutil.WithSetting(models.SettingsConditions, tt.conditions),
			)
			version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(branch), "")

			migrated, err := migrations.NewBranchToRouter().Migrate(t.Context(), version)
			require.ErrorIs(t, err, migrations.ErrMalformedStep)
			assert.Contains(t, err.Error(), `step "branch"`)
			assert.Nil(t, migrated)
		})
	}
}
