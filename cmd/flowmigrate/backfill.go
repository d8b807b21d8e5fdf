package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/flowmigrate/pkg/cmd"
	"github.com/dukex/flowmigrate/pkg/services"
	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"
)

func BackfillCommand() *cli.Command {
	return &cli.Command{
		Name:    "backfill",
		Aliases: []string{"b"},
		Usage:   "Migrate and persist every stored flow version behind the latest schema version",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "schedule",
				Usage: "Cron expression; when set, backfill repeatedly until interrupted",
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			rt, err := openRuntime(ctx, command)
			if err != nil {
				return err
			}

			defer func() {
				if err := rt.Close(); err != nil {
					rt.logger.ErrorContext(ctx, "Failed to release resources", "error", err)
				}
			}()

			bus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), serviceName, rt.logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := bus.Close(); err != nil {
					rt.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			service := services.NewFlowVersion(rt.persistence, rt.pipeline, bus, rt.logger)

			schedule := command.String("schedule")
			if schedule == "" {
				return backfillOnce(ctx, command, service)
			}

			return backfillOnSchedule(ctx, command, service, rt.logger, schedule)
		},
	}
}

func backfillOnce(ctx context.Context, command *cli.Command, service *services.FlowVersion) error {
	report, err := service.MigrateAll(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(command.Root().Writer)
	encoder.SetIndent("", "  ")

	err = encoder.Encode(report)
	if err != nil {
		return err
	}

	if report.Failed > 0 {
		return fmt.Errorf("backfill failed for %d of %d flow versions", report.Failed, report.Scanned)
	}

	return nil
}

func backfillOnSchedule(
	ctx context.Context,
	command *cli.Command,
	service *services.FlowVersion,
	logger *slog.Logger,
	schedule string,
) error {
	_, err := cron.ParseStandard(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	scheduler := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err = scheduler.AddFunc(schedule, func() {
		err := backfillOnce(ctx, command, service)
		if err != nil {
			logger.ErrorContext(ctx, "Scheduled backfill failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule backfill: %w", err)
	}

	logger.InfoContext(ctx, "Backfill scheduled", "schedule", schedule)

	scheduler.Start()
	<-ctx.Done()
	<-scheduler.Stop().Done()

	return nil
}
