package otelhelper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/flowmigrate/pkg/otelhelper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanAndSetError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := otelhelper.StartSpan(context.Background(), tracer, "migration.test",
		attribute.String(otelhelper.MigrationNameKey, "test"),
	)
	otelhelper.SetError(span, errors.New("boom"))
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "migration.test", ended[0].Name())
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "boom", ended[0].Status().Description)
	assert.Contains(t, ended[0].Attributes(), attribute.String(otelhelper.MigrationNameKey, "test"))
}

func TestMigrationAttributes(t *testing.T) {
	attrs := otelhelper.MigrationAttributes("flow-1", "fv-1", "add-connection-ids", "1", "2")

	assert.Equal(t, []attribute.KeyValue{
		attribute.String(otelhelper.FlowVersionIDKey, "fv-1"),
		attribute.String(otelhelper.MigrationNameKey, "add-connection-ids"),
		attribute.String(otelhelper.SchemaVersionKey, "1"),
		attribute.String(otelhelper.NextSchemaVersionKey, "2"),
		attribute.String(otelhelper.FlowIDKey, "flow-1"),
	}, attrs)

	assert.Len(t, otelhelper.MigrationAttributes("", "fv-1", "m", "", "1"), 4)
}
