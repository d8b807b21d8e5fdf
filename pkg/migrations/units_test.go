package migrations_test

import (
	"errors"
	"testing"

	"github.com/dukex/flowmigrate/pkg/flowtree"
	"github.com/dukex/flowmigrate/pkg/migrations"
	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func agentStep(name string, input map[string]any) *models.Step {
	return testutil.CreateTestStep(name,
		testutil.WithPiece(models.AgentPieceName, "0.1.0", "run_agent"),
		testutil.WithInput(input),
	)
}

func tablesStep(name, action string, values any) *models.Step {
	return testutil.CreateTestStep(name,
		testutil.WithPiece(models.TablesPieceName, "0.1.0", action),
		testutil.WithInput(map[string]any{"table": "orders", models.InputValues: values}),
	)
}

func TestAddConnectionIDs(t *testing.T) {
	slack := testutil.CreateTestStep("notify",
		testutil.WithPiece("@pieces/slack", "0.5.0", "send_message"),
		testutil.WithInput(map[string]any{models.InputAuth: "{{connections['b']}}"}),
	)
	gmail := testutil.CreateTestStep("mail",
		testutil.WithPiece("@pieces/gmail", "0.2.0", "send_email"),
		testutil.WithInput(map[string]any{models.InputAuth: "{{connections['a']}}"}),
	)
	trigger := testutil.CreateTestTrigger(testutil.Chain(slack, gmail),
		testutil.WithPieceTrigger("@pieces/webhook", "0.1.0", "catch"),
	)
	trigger.Settings[models.SettingsInput] = map[string]any{models.InputAuth: "{{connections['a']}}"}

	version := testutil.CreateTestFlowVersion(trigger, "1")

	migrated, err := migrations.NewAddConnectionIDs().Migrate(t.Context(), version)
	require.NoError(t, err)

	assert.Equal(t, "2", migrated.SchemaVersion)
	assert.Equal(t, []string{"a", "b"}, migrated.ConnectionIDs)
	assert.Empty(t, version.ConnectionIDs)
}

func TestPinPieceVersion_OnlyTouchesNamedPiece(t *testing.T) {
	agent := agentStep("agent", map[string]any{models.InputAgentID: "ag-1"})
	other := testutil.CreateTestStep("other", testutil.WithPiece("@pieces/slack", "0.5.0", "send_message"))
	code := testutil.CreateTestStep("code")

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(testutil.Chain(agent, other, code)), "2")

	m := migrations.NewPinPieceVersion("2", "3", models.AgentPieceName, "0.2.0")
	assert.Equal(t, "pin-@pieces/agent@0.2.0", m.Name())

	migrated, err := m.Migrate(t.Context(), version)
	require.NoError(t, err)

	assert.Equal(t, "3", migrated.SchemaVersion)
	assert.Equal(t, "0.2.0", mustFind(t, migrated, "agent").Settings[models.SettingsPieceVersion])
	assert.Equal(t, "0.5.0", mustFind(t, migrated, "other").Settings[models.SettingsPieceVersion])
	assert.NotContains(t, mustFind(t, migrated, "code").Settings, models.SettingsPieceVersion)
	assert.Equal(t, "0.1.0", mustFind(t, version, "agent").Settings[models.SettingsPieceVersion])
}

func TestPinAgentPieceWithAgentIDs(t *testing.T) {
	first := agentStep("first", map[string]any{models.InputAgentID: "ag-1"})
	looped := agentStep("looped", map[string]any{models.InputAgentID: "ag-2"})
	loop := testutil.CreateTestStep("loop", testutil.WithLoop(looped))
	noID := agentStep("no_id", map[string]any{})

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(testutil.Chain(first, loop, noID)), "4")

	migrated, err := migrations.NewPinAgentPieceWithAgentIDs("4", "5", "0.3.0").Migrate(t.Context(), version)
	require.NoError(t, err)

	assert.Equal(t, "5", migrated.SchemaVersion)
	assert.Equal(t, []string{"ag-1", "ag-2"}, migrated.AgentIDs)
	assert.Equal(t, "0.3.0", mustFind(t, migrated, "looped").Settings[models.SettingsPieceVersion])
}

func TestPropertySettings(t *testing.T) {
	step := testutil.CreateTestStep("notify",
		testutil.WithPiece("@pieces/slack", "0.5.0", "send_message"),
		testutil.WithInput(map[string]any{"channel": "C1", "text": "{{trigger.body}}"}),
		testutil.WithSetting(models.SettingsInputUIInfo, map[string]any{
			"sampleDataFileId": "file-1",
			"lastTestDate":     "2024-01-01T00:00:00Z",
			"customizedInputs": map[string]any{"text": true},
		}),
	)
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(step), "5")

	migrated, err := migrations.NewPropertySettings().Migrate(t.Context(), version)
	require.NoError(t, err)

	settings := mustFind(t, migrated, "notify").Settings
	assert.NotContains(t, settings, models.SettingsInputUIInfo)
	assert.Equal(t, map[string]any{
		"sampleDataFileId": "file-1",
		"lastTestDate":     "2024-01-01T00:00:00Z",
	}, settings[models.SettingsSampleDataSettings])
	assert.Equal(t, map[string]any{
		"channel": map[string]any{"type": migrations.PropertyTypeManual},
		"text":    map[string]any{"type": migrations.PropertyTypeDynamic},
	}, settings[models.SettingsPropertySettings])

	triggerSettings := migrated.Trigger.Settings
	assert.Equal(t, map[string]any{}, triggerSettings[models.SettingsSampleDataSettings])
	assert.Equal(t, map[string]any{}, triggerSettings[models.SettingsPropertySettings])

	assert.Contains(t, mustFind(t, version, "notify").Settings, models.SettingsInputUIInfo)
}

func TestTableFieldExternalIDs_RemapsResolvedKeys(t *testing.T) {
	lookup := emptyLookup()
	lookup.On("FindByLegacyIDs", mock.Anything, []int64{12, 13, 14}).Return([]*models.TableField{
		{ID: 12, ExternalID: "fld_name", TableID: "orders", Name: "name"},
		{ID: 14, ExternalID: "fld_total", TableID: "orders", Name: "total"},
	}, nil).Once()

	create := tablesStep("create", migrations.TablesActionCreateRecord, map[string]any{
		"12":    "Ada",
		"13":    "kept",
		"notes": "not an id",
	})
	update := tablesStep("update", migrations.TablesActionUpdateRecord, map[string]any{"14": 10, "12": "Grace"})
	find := tablesStep("find", "find_records", map[string]any{"12": "untouched"})

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(testutil.Chain(create, update, find)), "6")

	migrated, err := migrations.NewTableFieldExternalIDs(lookup).Migrate(t.Context(), version)
	require.NoError(t, err)

	assert.Equal(t, "7", migrated.SchemaVersion)
	assert.Equal(t, map[string]any{
		"fld_name": "Ada",
		"13":       "kept",
		"notes":    "not an id",
	}, mustFind(t, migrated, "create").Settings[models.SettingsInput].(map[string]any)[models.InputValues])
	assert.Equal(t, map[string]any{
		"fld_total": 10,
		"fld_name":  "Grace",
	}, mustFind(t, migrated, "update").Settings[models.SettingsInput].(map[string]any)[models.InputValues])
	assert.Equal(t, map[string]any{"12": "untouched"},
		mustFind(t, migrated, "find").Settings[models.SettingsInput].(map[string]any)[models.InputValues])

	assert.Contains(t, create.Settings[models.SettingsInput].(map[string]any)[models.InputValues], "12")
	lookup.AssertExpectations(t)
}

func TestTableFieldExternalIDs_KeepsLegacyKeyOnCollision(t *testing.T) {
	lookup := emptyLookup()
	lookup.On("FindByLegacyIDs", mock.Anything, []int64{12}).Return([]*models.TableField{
		{ID: 12, ExternalID: "fld_name"},
	}, nil).Once()

	step := tablesStep("create", migrations.TablesActionCreateRecord, map[string]any{"12": "legacy", "fld_name": "current"})
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(step), "6")

	migrated, err := migrations.NewTableFieldExternalIDs(lookup).Migrate(t.Context(), version)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"12": "legacy", "fld_name": "current"},
		mustFind(t, migrated, "create").Settings[models.SettingsInput].(map[string]any)[models.InputValues])
}

func TestTableFieldExternalIDs_SkipsLookupWithoutIDs(t *testing.T) {
	lookup := emptyLookup()

	step := tablesStep("create", migrations.TablesActionCreateRecord, map[string]any{"fld_name": "Ada"})
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(step), "6")

	migrated, err := migrations.NewTableFieldExternalIDs(lookup).Migrate(t.Context(), version)
	require.NoError(t, err)

	assert.Equal(t, "7", migrated.SchemaVersion)
	assert.Equal(t, "6", version.SchemaVersion)
	lookup.AssertNotCalled(t, "FindByLegacyIDs", mock.Anything, mock.Anything)
}

func TestTableFieldExternalIDs_LookupFailure(t *testing.T) {
	lookupErr := errors.New("timeout")
	lookup := emptyLookup()
	lookup.On("FindByLegacyIDs", mock.Anything, []int64{7}).Return(nil, lookupErr).Once()

	step := tablesStep("create", migrations.TablesActionCreateRecord, map[string]any{"7": "x"})
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(step), "6")

	migrated, err := migrations.NewTableFieldExternalIDs(lookup).Migrate(t.Context(), version)
	require.ErrorIs(t, err, migrations.ErrExternalLookup)
	require.ErrorIs(t, err, lookupErr)
	assert.Nil(t, migrated)
}

func TestTableFieldExternalIDs_MalformedValues(t *testing.T) {
	step := tablesStep("create", migrations.TablesActionCreateRecord, "not an object")
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(step), "6")

	_, err := migrations.NewTableFieldExternalIDs(emptyLookup()).Migrate(t.Context(), version)
	require.ErrorIs(t, err, migrations.ErrMalformedStep)
}

func TestAgentTools(t *testing.T) {
	agent := agentStep("agent", map[string]any{
		models.InputAgentID: "ag-1",
		models.InputTools: []any{
			map[string]any{
				"type":     migrations.AgentToolTypePiece,
				"toolName": "post_message",
				"pieceMetadata": map[string]any{
					"pieceName":            "@pieces/slack",
					"pieceVersion":         "0.5.0",
					"actionName":           "send_message",
					"connectionExternalId": "slack-conn",
					"predefinedInput":      map[string]any{"channel": "C1"},
				},
			},
			map[string]any{
				"type":     migrations.AgentToolTypeFlow,
				"toolName": "escalate",
				"flowId":   "flow-2",
				"extra":    "dropped",
			},
		},
	})
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(agent), "7")

	migrated, err := migrations.NewAgentTools().Migrate(t.Context(), version)
	require.NoError(t, err)

	assert.Equal(t, "8", migrated.SchemaVersion)

	tools := mustFind(t, migrated, "agent").Settings[models.SettingsInput].(map[string]any)[models.InputTools]
	assert.Equal(t, []any{
		map[string]any{
			"type":     migrations.AgentToolTypePiece,
			"toolName": "post_message",
			"pieceMetadata": map[string]any{
				"pieceName":    "@pieces/slack",
				"pieceVersion": "0.5.0",
				"actionName":   "send_message",
				"predefinedInput": map[string]any{
					"channel":        "C1",
					models.InputAuth: "{{connections['slack-conn']}}",
				},
			},
		},
		map[string]any{
			"type":     migrations.AgentToolTypeFlow,
			"toolName": "escalate",
			"flowId":   "flow-2",
		},
	}, tools)

	connections, err := flowtree.ExtractConnectionIDs(migrated)
	require.NoError(t, err)
	assert.Empty(t, connections, "tool auth is nested below input.auth")
}

func TestAgentTools_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		tools any
	}{
		{name: "not a list", tools: "tools"},
		{name: "not an object", tools: []any{"tool"}},
		{name: "unknown type", tools: []any{map[string]any{"type": "MCP"}}},
		{name: "flow without id", tools: []any{map[string]any{"type": migrations.AgentToolTypeFlow}}},
		{name: "piece without metadata", tools: []any{map[string]any{"type": migrations.AgentToolTypePiece}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent := agentStep("agent", map[string]any{models.InputTools: tt.tools})
			version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(agent), "7")

			_, err := migrations.NewAgentTools().Migrate(t.Context(), version)
			require.ErrorIs(t, err, migrations.ErrMalformedStep)
		})
	}
}

func TestAgentTools_IgnoresOtherPieces(t *testing.T) {
	step := testutil.CreateTestStep("other",
		testutil.WithPiece("@pieces/slack", "0.5.0", "send_message"),
		testutil.WithInput(map[string]any{models.InputTools: "whatever"}),
	)
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(step), "7")

	migrated, err := migrations.NewAgentTools().Migrate(t.Context(), version)
	require.NoError(t, err)
	assert.Equal(t, "whatever", mustFind(t, migrated, "other").Settings[models.SettingsInput].(map[string]any)[models.InputTools])
}

func mustFind(t *testing.T, version *models.FlowVersion, name string) *models.Step {
	t.Helper()

	steps, err := flowtree.CollectVersionSteps(version)
	require.NoError(t, err)

	for _, step := range steps {
		if step.Name == name {
			return step
		}
	}

	require.FailNow(t, "step not found", "step %s", name)

	return nil
}
