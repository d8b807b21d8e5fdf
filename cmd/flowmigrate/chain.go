package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/dukex/flowmigrate/pkg/migrations"
	cli "github.com/urfave/cli/v3"
)

func ChainCommand() *cli.Command {
	return &cli.Command{
		Name:  "chain",
		Usage: "List registered migrations in the order they apply",
		Action: func(_ context.Context, command *cli.Command) error {
			// The chain is listed without touching persistence.
			chain := migrations.DefaultMigrations(nil)

			err := migrations.ValidateChain(chain)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FROM\tTO\tNAME")

			for _, m := range chain {
				from := m.TargetSchemaVersion()
				if from == "" {
					from = "(unversioned)"
				}

				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", from, m.NextSchemaVersion(), m.Name())
			}

			return w.Flush()
		},
	}
}
