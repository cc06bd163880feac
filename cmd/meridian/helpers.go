package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/meridianbi/meridian/internal/storage"
)

// resolveDBPath returns the warehouse path from config, falling back to the
// standard data directory.
func resolveDBPath() (string, error) {
	if dbPath := viper.GetString("database.path"); dbPath != "" {
		return dbPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "meridian", "warehouse.db"), nil
}

// openStorage opens the warehouse and brings the schema up to date.
// Migrations are idempotent, so every command can call this safely.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath, err := resolveDBPath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open warehouse: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate warehouse: %w", err)
	}

	return store, nil
}
