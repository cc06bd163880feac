package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Raw layer: order lines and pipeline runs",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS raw_order_lines (
					content_hash TEXT PRIMARY KEY,
					order_id TEXT NOT NULL,
					sku TEXT NOT NULL,
					channel TEXT NOT NULL,
					order_date DATETIME,
					quantity INTEGER NOT NULL DEFAULT 0,
					amount REAL NOT NULL DEFAULT 0,
					city TEXT,
					state TEXT,
					customer_segment TEXT,
					product_category TEXT,
					fulfillment TEXT,
					is_b2b INTEGER NOT NULL DEFAULT 0,
					customer_key TEXT NOT NULL,
					quality TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_order_lines_date ON raw_order_lines(order_date)`,
				`CREATE INDEX idx_order_lines_customer ON raw_order_lines(customer_key)`,
				`CREATE INDEX idx_order_lines_channel ON raw_order_lines(channel)`,

				`CREATE TABLE IF NOT EXISTS pipeline_runs (
					id TEXT PRIMARY KEY,
					status TEXT NOT NULL,
					as_of_date DATETIME,
					started_at DATETIME NOT NULL,
					finished_at DATETIME,
					order_lines INTEGER DEFAULT 0,
					customers INTEGER DEFAULT 0,
					cohort_rows INTEGER DEFAULT 0,
					partner_rows INTEGER DEFAULT 0,
					quality_fails INTEGER DEFAULT 0,
					error TEXT
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Mart layer: customer RFM, cohort periods, partner daily",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS mart_customer_rfm (
					customer_key TEXT PRIMARY KEY,
					run_id TEXT NOT NULL,
					total_orders INTEGER NOT NULL,
					total_revenue REAL NOT NULL,
					first_order_date DATETIME NOT NULL,
					last_order_date DATETIME NOT NULL,
					recency_days INTEGER NOT NULL,
					frequency INTEGER NOT NULL,
					monetary REAL NOT NULL,
					avg_order_value REAL NOT NULL,
					lifespan_days INTEGER NOT NULL,
					revenue_per_day REAL NOT NULL,
					lifecycle_stage TEXT NOT NULL,
					churn_probability REAL NOT NULL,
					predicted_clv REAL NOT NULL,
					recency_score INTEGER NOT NULL,
					frequency_score INTEGER NOT NULL,
					monetary_score INTEGER NOT NULL,
					rfm_segment TEXT NOT NULL
				)`,
				`CREATE INDEX idx_customer_rfm_segment ON mart_customer_rfm(rfm_segment)`,

				`CREATE TABLE IF NOT EXISTS mart_cohort_periods (
					cohort_month DATETIME NOT NULL,
					period_number INTEGER NOT NULL,
					run_id TEXT NOT NULL,
					active_customers INTEGER NOT NULL,
					period_orders INTEGER NOT NULL,
					period_revenue REAL NOT NULL,
					cohort_size INTEGER NOT NULL,
					cohort_initial_revenue REAL NOT NULL,
					retention_rate REAL NOT NULL,
					revenue_retention_rate REAL NOT NULL,
					revenue_growth_rate REAL,
					ltv_at_period REAL NOT NULL,
					PRIMARY KEY (cohort_month, period_number)
				)`,

				`CREATE TABLE IF NOT EXISTS mart_partner_daily (
					channel TEXT NOT NULL,
					metric_date DATETIME NOT NULL,
					customer_segment TEXT NOT NULL,
					run_id TEXT NOT NULL,
					orders INTEGER NOT NULL,
					units INTEGER NOT NULL,
					revenue REAL NOT NULL,
					avg_order_value REAL NOT NULL,
					quality_ratio REAL NOT NULL,
					rolling_short_revenue REAL NOT NULL,
					rolling_long_revenue REAL NOT NULL,
					rolling_short_aov REAL NOT NULL,
					rolling_long_aov REAL NOT NULL,
					trend TEXT NOT NULL,
					health_score REAL NOT NULL,
					recommendation TEXT NOT NULL,
					PRIMARY KEY (channel, metric_date, customer_segment)
				)`,
				`CREATE INDEX idx_partner_daily_date ON mart_partner_daily(metric_date)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Quality results table",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS quality_results (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					run_id TEXT NOT NULL,
					check_name TEXT NOT NULL,
					table_name TEXT NOT NULL,
					check_type TEXT NOT NULL,
					status TEXT NOT NULL,
					severity TEXT NOT NULL,
					value REAL NOT NULL,
					threshold REAL NOT NULL,
					message TEXT,
					checked_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_quality_results_run ON quality_results(run_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "Unified sales mart with enrichment dimensions",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS mart_unified_sales (
					content_hash TEXT PRIMARY KEY,
					run_id TEXT NOT NULL,
					order_id TEXT NOT NULL,
					sku TEXT NOT NULL,
					channel TEXT NOT NULL,
					order_date DATETIME,
					quantity INTEGER NOT NULL DEFAULT 0,
					amount REAL NOT NULL DEFAULT 0,
					city TEXT,
					state TEXT,
					customer_segment TEXT,
					product_category TEXT,
					fulfillment TEXT,
					is_b2b INTEGER NOT NULL DEFAULT 0,
					customer_key TEXT NOT NULL,
					quality TEXT NOT NULL,
					value_tier TEXT NOT NULL,
					season TEXT,
					city_tier TEXT NOT NULL,
					fulfillment_model TEXT NOT NULL,
					performance_score REAL NOT NULL
				)`,
				`CREATE INDEX idx_unified_sales_date ON mart_unified_sales(order_date)`,
				`CREATE INDEX idx_unified_sales_customer ON mart_unified_sales(customer_key)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies any pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
