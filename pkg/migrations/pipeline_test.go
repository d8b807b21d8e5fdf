package migrations_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/flowmigrate/pkg/migrations"
	"github.com/dukex/flowmigrate/pkg/mocks"
	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeMigration struct {
	name    string
	from    string
	to      string
	produce string
	err     error
	calls   int
}

func (f *fakeMigration) Name() string                { return f.name }
func (f *fakeMigration) TargetSchemaVersion() string { return f.from }
func (f *fakeMigration) NextSchemaVersion() string   { return f.to }

func (f *fakeMigration) Migrate(_ context.Context, version *models.FlowVersion) (*models.FlowVersion, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	migrated := version.Clone()
	migrated.SchemaVersion = f.to

	if f.produce != "" {
		migrated.SchemaVersion = f.produce
	}

	return migrated, nil
}

func fakeChain(versions ...string) []migrations.Migration {
	chain := make([]migrations.Migration, 0, len(versions)-1)
	for i := 0; i < len(versions)-1; i++ {
		chain = append(chain, &fakeMigration{name: "m" + versions[i+1], from: versions[i], to: versions[i+1]})
	}

	return chain
}

func emptyLookup() *mocks.MockTableFieldRepository {
	return &mocks.MockTableFieldRepository{}
}

func TestDefaultMigrations_ChainIsComplete(t *testing.T) {
	chain := migrations.DefaultMigrations(emptyLookup())
	require.NotEmpty(t, chain)

	preconditions := make(map[string]bool, len(chain))
	for _, m := range chain {
		preconditions[m.TargetSchemaVersion()] = true
	}

	for i, m := range chain[:len(chain)-1] {
		assert.True(t, preconditions[m.NextSchemaVersion()], "%s produces dangling version %q", m.Name(), m.NextSchemaVersion())
		assert.Equal(t, m.NextSchemaVersion(), chain[i+1].TargetSchemaVersion(), "registry order must follow the version chain")
	}

	assert.Equal(t, models.SchemaVersionUnversioned, chain[0].TargetSchemaVersion())
	assert.Equal(t, migrations.LatestSchemaVersion, chain[len(chain)-1].NextSchemaVersion())
	assert.False(t, preconditions[migrations.LatestSchemaVersion], "latest version must not be a precondition")

	require.NoError(t, migrations.ValidateChain(chain))
}

func TestValidateChain(t *testing.T) {
	tests := []struct {
		name       string
		migrations []migrations.Migration
		valid      bool
	}{
		{name: "contiguous", migrations: fakeChain("", "1", "2", "3"), valid: true},
		{name: "empty", migrations: nil},
		{name: "gap", migrations: []migrations.Migration{
			&fakeMigration{name: "a", from: "", to: "1"},
			&fakeMigration{name: "b", from: "2", to: "3"},
		}},
		{name: "out of order", migrations: []migrations.Migration{
			&fakeMigration{name: "b", from: "1", to: "2"},
			&fakeMigration{name: "a", from: "", to: "1"},
		}},
		{name: "does not advance", migrations: []migrations.Migration{
			&fakeMigration{name: "a", from: "1", to: "1"},
		}},
		{name: "cycle", migrations: []migrations.Migration{
			&fakeMigration{name: "a", from: "1", to: "2"},
			&fakeMigration{name: "b", from: "2", to: "1"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := migrations.ValidateChain(tt.migrations)
			if tt.valid {
				assert.NoError(t, err)

				return
			}

			assert.ErrorIs(t, err, migrations.ErrBrokenChain)
		})
	}
}

func TestNewPipeline_RejectsBrokenChain(t *testing.T) {
	pipeline, err := migrations.NewPipeline([]migrations.Migration{
		&fakeMigration{name: "a", from: "", to: "1"},
		&fakeMigration{name: "b", from: "5", to: "6"},
	})

	require.ErrorIs(t, err, migrations.ErrBrokenChain)
	assert.Nil(t, pipeline)
}

func TestPipeline_Apply_RunsEveryMatchingUnitOnce(t *testing.T) {
	chain := fakeChain("", "1", "2", "3")
	pipeline, err := migrations.NewPipeline(chain)
	require.NoError(t, err)

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(nil), "1")

	result, err := pipeline.ApplyWithResult(t.Context(), version)
	require.NoError(t, err)

	assert.Equal(t, "3", result.Version.SchemaVersion)
	assert.Equal(t, "1", result.From)
	assert.Equal(t, []string{"m2", "m3"}, result.Applied)
	assert.Equal(t, 0, chain[0].(*fakeMigration).calls)
	assert.Equal(t, 1, chain[1].(*fakeMigration).calls)
	assert.Equal(t, 1, chain[2].(*fakeMigration).calls)
	assert.Equal(t, "1", version.SchemaVersion, "input must not be modified")
}

func TestPipeline_Apply_LatestIsReturnedAsIs(t *testing.T) {
	pipeline, err := migrations.DefaultPipeline(emptyLookup())
	require.NoError(t, err)

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(nil), migrations.LatestSchemaVersion)

	migrated, err := pipeline.Apply(t.Context(), version)
	require.NoError(t, err)
	assert.Same(t, version, migrated)
}

func TestPipeline_Apply_UnsupportedVersion(t *testing.T) {
	pipeline, err := migrations.DefaultPipeline(emptyLookup())
	require.NoError(t, err)

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(nil), "42")

	migrated, err := pipeline.Apply(t.Context(), version)
	require.ErrorIs(t, err, migrations.ErrUnsupportedSchemaVersion)
	assert.Nil(t, migrated)
	assert.False(t, pipeline.Supports("42"))
	assert.True(t, pipeline.Supports(""))
	assert.True(t, pipeline.Supports(migrations.LatestSchemaVersion))
}

func TestPipeline_Apply_AbortsOnFailure(t *testing.T) {
	boom := errors.New("boom")
	failing := &fakeMigration{name: "m2", from: "1", to: "2", err: boom}
	last := &fakeMigration{name: "m3", from: "2", to: "3"}

	pipeline, err := migrations.NewPipeline([]migrations.Migration{
		&fakeMigration{name: "m1", from: "", to: "1"},
		failing,
		last,
	})
	require.NoError(t, err)

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(nil), "")
	original := version.Clone()

	migrated, err := pipeline.Apply(t.Context(), version)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "migration m2")
	assert.Nil(t, migrated)
	assert.Equal(t, 0, last.calls)
	assert.Equal(t, original, version)
}

func TestPipeline_Apply_VersionMismatch(t *testing.T) {
	pipeline, err := migrations.NewPipeline([]migrations.Migration{
		&fakeMigration{name: "m1", from: "", to: "1", produce: "7"},
		&fakeMigration{name: "m2", from: "1", to: "2"},
	})
	require.NoError(t, err)

	_, err = pipeline.Apply(t.Context(), testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(nil), ""))
	require.ErrorIs(t, err, migrations.ErrVersionMismatch)
}

func TestPipeline_Apply_NilVersion(t *testing.T) {
	pipeline, err := migrations.NewPipeline(fakeChain("", "1"))
	require.NoError(t, err)

	_, err = pipeline.Apply(t.Context(), nil)
	require.Error(t, err)
}

func TestPipeline_Migrations_ReturnsCopy(t *testing.T) {
	pipeline, err := migrations.NewPipeline(fakeChain("", "1", "2"))
	require.NoError(t, err)

	listed := pipeline.Migrations()
	listed[0] = nil

	assert.NotNil(t, pipeline.Migrations()[0])
	assert.Equal(t, "2", pipeline.Latest())
}

func TestPipeline_Apply_LookupFailureAbortsPass(t *testing.T) {
	lookup := emptyLookup()
	lookup.On("FindByLegacyIDs", mock.Anything, []int64{12}).Return(nil, errors.New("connection refused")).Once()

	pipeline, err := migrations.DefaultPipeline(lookup)
	require.NoError(t, err)

	tables := testutil.CreateTestStep("insert",
		testutil.WithPiece(models.TablesPieceName, "0.1.0", migrations.TablesActionCreateRecord),
		testutil.WithInput(map[string]any{"values": map[string]any{"12": "x"}}),
	)
	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(tables), "")

	migrated, err := pipeline.Apply(t.Context(), version)
	require.ErrorIs(t, err, migrations.ErrExternalLookup)
	assert.Nil(t, migrated)
	assert.Equal(t, "", version.SchemaVersion)
	lookup.AssertExpectations(t)
}
