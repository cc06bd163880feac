package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/meridianbi/meridian/internal/common"
	"github.com/meridianbi/meridian/internal/model"
)

// RecordRun inserts a new pipeline run row.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run *model.PipelineRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	var asOf any
	if !run.AsOfDate.IsZero() {
		asOf = run.AsOfDate.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, status, as_of_date, started_at)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.Status, asOf, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// UpdateRun updates a run's terminal state and row counts.
func (s *SQLiteStorage) UpdateRun(ctx context.Context, run *model.PipelineRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	var asOf any
	if !run.AsOfDate.IsZero() {
		asOf = run.AsOfDate.UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE pipeline_runs
		SET status = ?, as_of_date = ?, finished_at = ?, order_lines = ?,
			customers = ?, cohort_rows = ?, partner_rows = ?, quality_fails = ?,
			error = ?
		WHERE id = ?
	`, run.Status, asOf, run.FinishedAt.UTC(), run.OrderLines,
		run.Customers, run.CohortRows, run.PartnerRows, run.QualityFails,
		run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: run %s", common.ErrNotFound, run.ID)
	}
	return nil
}

// GetLatestRun returns the most recently started run, or ErrNotFound.
func (s *SQLiteStorage) GetLatestRun(ctx context.Context) (*model.PipelineRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		run        model.PipelineRun
		asOf       sql.NullTime
		finishedAt sql.NullTime
		runErr     sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, status, as_of_date, started_at, finished_at, order_lines,
			customers, cohort_rows, partner_rows, quality_fails, error
		FROM pipeline_runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`).Scan(&run.ID, &run.Status, &asOf, &run.StartedAt, &finishedAt,
		&run.OrderLines, &run.Customers, &run.CohortRows, &run.PartnerRows,
		&run.QualityFails, &runErr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no pipeline runs", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	run.StartedAt = run.StartedAt.UTC()
	if asOf.Valid {
		run.AsOfDate = asOf.Time.UTC()
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time.UTC()
	}
	if runErr.Valid {
		run.Error = runErr.String
	}
	return &run, nil
}

// SaveQualityResults appends quality check outcomes for a run.
func (s *SQLiteStorage) SaveQualityResults(ctx context.Context, results []model.QualityResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(results) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO quality_results (
			run_id, check_name, table_name, check_type, status, severity,
			value, threshold, message, checked_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range results {
		r := &results[i]
		if _, err := stmt.ExecContext(ctx,
			r.RunID, r.CheckName, r.TableName, r.CheckType, r.Status,
			r.Severity, r.Value, r.Threshold, r.Message, r.CheckedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to save quality result %s: %w", r.CheckName, err)
		}
	}

	return tx.Commit()
}

// GetQualityResults returns all quality results for a run.
func (s *SQLiteStorage) GetQualityResults(ctx context.Context, runID string) ([]model.QualityResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(runID, "runID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, check_name, table_name, check_type, status, severity,
			value, threshold, message, checked_at
		FROM quality_results
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quality results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.QualityResult
	for rows.Next() {
		var (
			r   model.QualityResult
			msg sql.NullString
		)
		if err := rows.Scan(
			&r.RunID, &r.CheckName, &r.TableName, &r.CheckType, &r.Status,
			&r.Severity, &r.Value, &r.Threshold, &msg, &r.CheckedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quality result: %w", err)
		}
		if msg.Valid {
			r.Message = msg.String
		}
		r.CheckedAt = r.CheckedAt.UTC()
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quality results: %w", err)
	}
	return out, nil
}
