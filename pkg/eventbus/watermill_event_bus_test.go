package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowmigrate/pkg/channels/gochannel"
	"github.com/dukex/flowmigrate/pkg/eventbus"
	"github.com/dukex/flowmigrate/pkg/events"
	"github.com/dukex/flowmigrate/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		_ = bus.Close()
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.FlowVersionMigrated, 1)

	require.NoError(t, bus.Handle(events.FlowVersionMigratedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.FlowVersionMigrated)

		return nil
	}))

	require.NoError(t, bus.Subscribe(t.Context()))

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(nil), "8")
	version.AgentIDs = []string{"ag-1"}

	err := bus.Publish(t.Context(), version.ID, events.NewFlowVersionMigrated(version, "5", []string{"property-settings"}))
	require.NoError(t, err)

	select {
	case event := <-received:
		assert.Equal(t, version.ID, event.FlowVersionID)
		assert.Equal(t, "5", event.FromSchemaVersion)
		assert.Equal(t, "8", event.ToSchemaVersion)
		assert.Equal(t, []string{"property-settings"}, event.Applied)
		assert.Equal(t, []string{"ag-1"}, event.AgentIDs)
	case <-time.After(5 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_IgnoresUnhandledTypes(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan any, 1)

	require.NoError(t, bus.Handle(events.FlowVersionMigratedEvent, func(_ context.Context, event any) error {
		received <- event

		return nil
	}))

	require.NoError(t, bus.Subscribe(t.Context()))

	version := testutil.CreateTestFlowVersion(testutil.CreateTestTrigger(nil), "42")
	require.NoError(t, bus.Publish(t.Context(), version.ID, events.NewFlowVersionMigrationFailed(version, assert.AnError)))

	select {
	case event := <-received:
		t.Fatalf("unexpected event %v", event)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	assert.NotEqual(t, bus.GenerateID(), bus.GenerateID())
}
