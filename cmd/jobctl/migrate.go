package main

import (
	"fmt"

	"github.com/phrazzld/tasks-api/internal/platform/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <up|down|version>",
		Short:     "Apply, roll back or report the database schema",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := e.backend(cmd.Context())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			switch args[0] {
			case "up":
				return postgres.MigrateUp(ctx, b.db, e.logger)
			case "down":
				return postgres.MigrateDown(ctx, b.db, e.logger)
			default:
				v, err := postgres.MigrationVersion(ctx, b.db, e.logger)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
				return nil
			}
		},
	}
}
