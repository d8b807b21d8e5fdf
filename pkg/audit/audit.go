// Package audit records flow version migration events in the structured log.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowmigrate/pkg/eventbus"
	"github.com/dukex/flowmigrate/pkg/events"
)

// Logger consumes flow version events and writes one audit record per event.
type Logger struct {
	subscriber eventbus.EventSubscriber
	logger     *slog.Logger
}

func NewLogger(subscriber eventbus.EventSubscriber, logger *slog.Logger) *Logger {
	return &Logger{
		subscriber: subscriber,
		logger:     logger.With("module", "audit"),
	}
}

// Start registers the event handlers and begins consuming. Consumption stops
// when ctx is cancelled or the event bus is closed.
func (l *Logger) Start(ctx context.Context) error {
	err := l.subscriber.Handle(events.FlowVersionMigratedEvent, l.handleMigrated)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s events: %w", events.FlowVersionMigratedEvent, err)
	}

	err = l.subscriber.Handle(events.FlowVersionMigrationFailedEvent, l.handleMigrationFailed)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s events: %w", events.FlowVersionMigrationFailedEvent, err)
	}

	err = l.subscriber.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", events.Topic, err)
	}

	l.logger.InfoContext(ctx, "Audit log subscribed", "topic", events.Topic)

	return nil
}

func (l *Logger) handleMigrated(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.FlowVersionMigrated)
	if !ok {
		return fmt.Errorf("invalid event type for %s: %T", events.FlowVersionMigratedEvent, eventData)
	}

	l.logger.InfoContext(ctx, "Flow version migrated",
		"event_id", event.ID,
		"event_type", event.Type,
		"flow_id", event.FlowID,
		"flow_version_id", event.FlowVersionID,
		"from", event.FromSchemaVersion,
		"to", event.ToSchemaVersion,
		"applied", event.Applied,
		"timestamp", event.Timestamp,
	)

	return nil
}

func (l *Logger) handleMigrationFailed(ctx context.Context, eventData any) error {
	event, ok := eventData.(*events.FlowVersionMigrationFailed)
	if !ok {
		return fmt.Errorf("invalid event type for %s: %T", events.FlowVersionMigrationFailedEvent, eventData)
	}

	l.logger.WarnContext(ctx, "Flow version migration failed",
		"event_id", event.ID,
		"event_type", event.Type,
		"flow_id", event.FlowID,
		"flow_version_id", event.FlowVersionID,
		"schema_version", event.SchemaVersion,
		"error", event.Error,
		"timestamp", event.Timestamp,
	)

	return nil
}
