// Package otelhelper provides distributed tracing helpers for flow migrations.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Common attribute keys.
	FlowIDKey            = "flowmigrate.flow.id"
	FlowVersionIDKey     = "flowmigrate.flow_version.id"
	MigrationNameKey     = "flowmigrate.migration.name"
	SchemaVersionKey     = "flowmigrate.schema_version"
	NextSchemaVersionKey = "flowmigrate.schema_version.next"
	ServiceIDKey         = "flowmigrate.service.id"
)

// MigrationAttributes describes one migration step applied to a flow version.
func MigrationAttributes(flowID, flowVersionID, migration, from, to string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(FlowVersionIDKey, flowVersionID),
		attribute.String(MigrationNameKey, migration),
		attribute.String(SchemaVersionKey, from),
		attribute.String(NextSchemaVersionKey, to),
	}

	if flowID != "" {
		attrs = append(attrs, attribute.String(FlowIDKey, flowID))
	}

	return attrs
}

// NewTracer installs a global OTLP/HTTP tracer provider for serviceName and
// returns its tracer plus a shutdown func that flushes pending spans.
// nolint:ireturn // Returning interface is intentional for OpenTelemetry tracing
func NewTracer(ctx context.Context, serviceName string) (trace.Tracer, func(context.Context) error, error) {
	provider, err := newTracerProvider(ctx, serviceName)
	if err != nil {
		return nil, nil, err
	}

	return provider.Tracer(serviceName), provider.Shutdown, nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func newTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}
