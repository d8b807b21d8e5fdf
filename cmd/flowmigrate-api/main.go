package main

import (
	"context"
	"os"

	"github.com/dukex/flowmigrate/pkg/audit"
	"github.com/dukex/flowmigrate/pkg/cmd"
	"github.com/dukex/flowmigrate/pkg/log"
	"github.com/dukex/flowmigrate/pkg/otelhelper"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort = 9091
	serviceName = "flowmigrate-api"
)

func main() {
	command := &cli.Command{
		Name:                  serviceName,
		Usage:                 "Serve and migrate flow versions over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a directory)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL used to cache table field lookups (disabled when empty)",
				Sources: cli.EnvVars("REDIS_URL"),
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
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (text, json)",
				Value:   "text",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))
			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing flowmigrate API")

			if command.Bool("tracing") {
				_, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
				if err != nil {
					return err
				}

				defer func() {
					if err := shutdown(context.WithoutCancel(ctx)); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			lookup, closeLookup, err := cmd.NewTableFieldLookup(ctx, logger, persistence, command.String("redis-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := closeLookup(); err != nil {
					logger.ErrorContext(ctx, "Failed to close table field cache", "error", err)
				}
			}()

			pipeline, err := cmd.NewPipeline(lookup, logger, nil)
			if err != nil {
				return err
			}

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.String("kafka-brokers"), serviceName, logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			err = audit.NewLogger(eventBus, logger).Start(ctx)
			if err != nil {
				return err
			}

			api := NewAPI(logger, persistence, pipeline, eventBus)

			logger.InfoContext(ctx, "Starting API server",
				"port", command.Int("port"),
				"latest_schema_version", pipeline.Latest(),
			)

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
