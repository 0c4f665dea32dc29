package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/tasks-api/internal/platform/postgres"
)

// handleMigrations executes the migration command requested with -migrate.
func handleMigrations(ctx context.Context, db *sql.DB, cmd string, logger *slog.Logger) error {
	logger.Info("Executing migrations", "command", cmd)

	switch cmd {
	case "up":
		return postgres.MigrateUp(ctx, db, logger)
	case "down":
		return postgres.MigrateDown(ctx, db, logger)
	case "version":
		v, err := postgres.MigrationVersion(ctx, db, logger)
		if err != nil {
			return err
		}
		fmt.Printf("schema version: %d\n", v)
		return nil
	default:
		return fmt.Errorf("unknown migration command %q (want up, down or version)", cmd)
	}
}
