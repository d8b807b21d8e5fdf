package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukex/flowmigrate/pkg/cmd"
	"github.com/dukex/flowmigrate/pkg/log"
	"github.com/dukex/flowmigrate/pkg/migrations"
	"github.com/dukex/flowmigrate/pkg/persistence"
	cli "github.com/urfave/cli/v3"
)

// runtime holds what every subcommand opens from the global flags.
type runtime struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	pipeline    *migrations.Pipeline
	closers     []func() error
}

func openRuntime(ctx context.Context, command *cli.Command) (*runtime, error) {
	root := command.Root()

	log.Setup(root.String("log-level"), root.String("log-format"))
	logger := log.WithModule(command.Name)

	p, err := cmd.NewPersistence(ctx, logger, root.String("database-url"))
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		logger:      logger,
		persistence: p,
		closers:     []func() error{func() error { return p.Close(ctx) }},
	}

	lookup, closeLookup, err := cmd.NewTableFieldLookup(ctx, logger, p, root.String("redis-url"))
	if err != nil {
		return nil, errors.Join(err, rt.Close())
	}

	rt.closers = append(rt.closers, closeLookup)

	rt.pipeline, err = cmd.NewPipeline(lookup, logger, nil)
	if err != nil {
		return nil, errors.Join(err, rt.Close())
	}

	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}

	return errors.Join(errs...)
}
