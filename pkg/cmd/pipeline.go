// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowmigrate/pkg/migrations"
	"github.com/dukex/flowmigrate/pkg/persistence"
	"github.com/dukex/flowmigrate/pkg/persistence/rediscache"
	"go.opentelemetry.io/otel/trace"
)

// NewTableFieldLookup returns the table field repository of p, fronted by a
// Redis read-through cache when redisURL is set. The returned close func
// releases the Redis client.
func NewTableFieldLookup(
	ctx context.Context,
	logger *slog.Logger,
	p persistence.Persistence,
	redisURL string,
) (migrations.TableFieldLookup, func() error, error) {
	repo := p.TableFieldRepository()

	if redisURL == "" {
		return repo, func() error { return nil }, nil
	}

	client, err := rediscache.NewClient(ctx, redisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.InfoContext(ctx, "Caching table field lookups in redis")

	return rediscache.NewLookup(client, repo, logger), client.Close, nil
}

// NewPipeline builds the default migration pipeline. tracer may be nil.
func NewPipeline(lookup migrations.TableFieldLookup, logger *slog.Logger, tracer trace.Tracer) (*migrations.Pipeline, error) {
	opts := []migrations.Option{migrations.WithLogger(logger)}
	if tracer != nil {
		opts = append(opts, migrations.WithTracer(tracer))
	}

	pipeline, err := migrations.DefaultPipeline(lookup, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build migration pipeline: %w", err)
	}

	return pipeline, nil
}
