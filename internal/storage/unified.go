package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meridianbi/meridian/internal/model"
)

// ReplaceUnifiedSales replaces the unified sales mart: the canonical order
// lines with their enrichment dimensions attached. Dashboard consumers read
// this table instead of re-deriving the dimensions from the raw layer.
func (s *SQLiteStorage) ReplaceUnifiedSales(ctx context.Context, runID string, lines []model.OrderLine) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(runID, "runID"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mart_unified_sales`); err != nil {
		return fmt.Errorf("failed to clear unified sales mart: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mart_unified_sales (
			content_hash, run_id, order_id, sku, channel, order_date, quantity,
			amount, city, state, customer_segment, product_category,
			fulfillment, is_b2b, customer_key, quality,
			value_tier, season, city_tier, fulfillment_model, performance_score
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range lines {
		line := &lines[i]

		var orderDate any
		if !line.OrderDate.IsZero() {
			orderDate = line.OrderDate.UTC()
		}

		if _, err := stmt.ExecContext(ctx,
			line.ContentHash, runID, line.OrderID, line.SKU,
			string(line.Channel), orderDate, line.Quantity,
			line.Amount, line.City, line.State, line.CustomerSegment,
			line.ProductCategory, line.Fulfillment, line.IsB2B,
			line.CustomerKey, string(line.Quality),
			line.ValueTier, line.Season, line.CityTier,
			line.FulfillmentModel, line.PerformanceScore,
		); err != nil {
			return fmt.Errorf("failed to save unified sale %s: %w", line.OrderID, err)
		}
	}

	return tx.Commit()
}

// GetUnifiedSales returns the unified sales mart ordered by content hash.
func (s *SQLiteStorage) GetUnifiedSales(ctx context.Context) ([]model.OrderLine, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content_hash, order_id, sku, channel, order_date, quantity,
			amount, city, state, customer_segment, product_category,
			fulfillment, is_b2b, customer_key, quality,
			value_tier, season, city_tier, fulfillment_model, performance_score
		FROM mart_unified_sales
		ORDER BY content_hash
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unified sales mart: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []model.OrderLine
	for rows.Next() {
		var (
			line      model.OrderLine
			channel   string
			quality   string
			orderDate sql.NullTime
		)
		if err := rows.Scan(
			&line.ContentHash, &line.OrderID, &line.SKU, &channel,
			&orderDate, &line.Quantity,
			&line.Amount, &line.City, &line.State, &line.CustomerSegment,
			&line.ProductCategory, &line.Fulfillment, &line.IsB2B,
			&line.CustomerKey, &quality,
			&line.ValueTier, &line.Season, &line.CityTier,
			&line.FulfillmentModel, &line.PerformanceScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan unified sale: %w", err)
		}
		line.Channel = model.Channel(channel)
		line.Quality = model.QualityFlag(quality)
		if orderDate.Valid {
			line.OrderDate = orderDate.Time.UTC()
		} else {
			line.OrderDate = time.Time{}
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unified sales: %w", err)
	}
	return lines, nil
}
