package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/eivindbakke/merkelapp/internal/config"
	"github.com/eivindbakke/merkelapp/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Most commands migrate automatically on startup; this command exists for
checking the schema state and for migrating explicitly after an upgrade.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	status, _ := cmd.Flags().GetBool("status")

	dbPath := config.DatabasePath()

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if status {
		version, versionErr := store.SchemaVersion(ctx)
		if versionErr != nil {
			return fmt.Errorf("failed to read schema version: %w", versionErr)
		}

		slog.Info("📊 Database Migration Status")
		slog.Info("Database", "path", dbPath)
		slog.Info("Schema version", "current", version, "latest", storage.ExpectedSchemaVersion)
		if version < storage.ExpectedSchemaVersion {
			slog.Warn("Database schema is behind; run 'merkelapp migrate' to update")
		}
		return nil
	}

	slog.Info("🗄️  Running database migrations...")
	slog.Info("Database", "path", dbPath)

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("✅ Database migrations completed successfully!")

	return nil
}
