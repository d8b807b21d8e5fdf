package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dukex/flowmigrate/pkg/models"
	"github.com/dukex/flowmigrate/pkg/schema"
	"github.com/dukex/flowmigrate/pkg/services"
	cli "github.com/urfave/cli/v3"
)

func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate one flow version document",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "in",
				Aliases: []string{"i"},
				Usage:   "Input document path, - for stdin",
				Value:   "-",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output document path, - for stdout",
				Value:   "-",
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

			document, err := readDocument(command.String("in"), command.Root().Reader)
			if err != nil {
				return err
			}

			err = schema.ValidateEnvelope(document)
			if err != nil {
				return err
			}

			var version models.FlowVersion

			err = json.Unmarshal(document, &version)
			if err != nil {
				return fmt.Errorf("failed to decode flow version: %w", err)
			}

			service := services.NewFlowVersion(rt.persistence, rt.pipeline, nil, rt.logger)

			result, err := service.MigrateDocument(ctx, &version)
			if err != nil {
				return err
			}

			rt.logger.InfoContext(ctx, "Flow version migrated",
				"flow_version_id", version.ID,
				"from", result.From,
				"to", result.Version.SchemaVersion,
				"applied", result.Applied,
			)

			return writeDocument(command.String("out"), command.Root().Writer, result.Version)
		},
	}
}

func readDocument(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}

		return io.ReadAll(stdin)
	}

	document, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return document, nil
}

func writeDocument(path string, stdout io.Writer, version *models.FlowVersion) error {
	data, err := json.MarshalIndent(version, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode flow version: %w", err)
	}

	data = append(data, '\n')

	if path == "-" {
		_, err = stdout.Write(data)

		return err
	}

	return os.WriteFile(path, data, 0600)
}
