package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/meridianbi/meridian/internal/model"
)

// SaveOrderLines persists order lines into the raw layer. Lines are
// deduplicated by content hash, so re-ingesting an unchanged extract is a
// no-op and the raw layer stays reproducible across runs.
//
// The hash covers order id, sku, date, amount, quantity, and channel only,
// so a line item repeated verbatim within one order collapses into a single
// raw row. The extracts carry no line ordinal that could tell such rows
// apart; the collapse is accepted rather than papered over with a synthetic
// key.
func (s *SQLiteStorage) SaveOrderLines(ctx context.Context, lines []model.OrderLine) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOrderLines(lines); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO raw_order_lines (
			content_hash, order_id, sku, channel, order_date, quantity, amount,
			city, state, customer_segment, product_category, fulfillment,
			is_b2b, customer_key, quality
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
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
			line.ContentHash,
			line.OrderID,
			line.SKU,
			string(line.Channel),
			orderDate,
			line.Quantity,
			line.Amount,
			line.City,
			line.State,
			line.CustomerSegment,
			line.ProductCategory,
			line.Fulfillment,
			line.IsB2B,
			line.CustomerKey,
			string(line.Quality),
		); err != nil {
			return fmt.Errorf("failed to save order line %s: %w", line.OrderID, err)
		}
	}

	return tx.Commit()
}

// GetOrderLines returns the full raw layer ordered by content hash so every
// run sees the rows in the same order regardless of insertion history.
func (s *SQLiteStorage) GetOrderLines(ctx context.Context) ([]model.OrderLine, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT content_hash, order_id, sku, channel, order_date, quantity, amount,
			city, state, customer_segment, product_category, fulfillment,
			is_b2b, customer_key, quality
		FROM raw_order_lines
		ORDER BY content_hash
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
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
			&line.ContentHash,
			&line.OrderID,
			&line.SKU,
			&channel,
			&orderDate,
			&line.Quantity,
			&line.Amount,
			&line.City,
			&line.State,
			&line.CustomerSegment,
			&line.ProductCategory,
			&line.Fulfillment,
			&line.IsB2B,
			&line.CustomerKey,
			&quality,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
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
		return nil, fmt.Errorf("failed to iterate order lines: %w", err)
	}
	return lines, nil
}

// GetOrderLineCount returns the raw-layer row count.
func (s *SQLiteStorage) GetOrderLineCount(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM raw_order_lines`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count order lines: %w", err)
	}
	return count, nil
}
