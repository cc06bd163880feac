package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/meridianbi/meridian/internal/cli"
	"github.com/meridianbi/meridian/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run warehouse schema migrations",
		Long: `Initialize or update the warehouse schema to the latest version.

Other commands migrate automatically; this exists for provisioning a
warehouse ahead of the first scheduled run.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	dbPath, err := resolveDBPath()
	if err != nil {
		return err
	}

	slog.Info("Starting warehouse migration", "database", dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open warehouse: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Warehouse schema is at version %d", storage.ExpectedSchemaVersion)))
	return nil
}
