package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meridianbi/meridian/internal/model"
)

// Mart tables are full snapshots: each Replace call clears the table and
// writes the new run's rows inside one transaction, so readers either see
// the previous complete snapshot or the new one.

// ReplaceCustomerRFM replaces the customer analytics mart.
func (s *SQLiteStorage) ReplaceCustomerRFM(ctx context.Context, runID string, rows []model.CustomerRFM) error {
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM mart_customer_rfm`); err != nil {
		return fmt.Errorf("failed to clear customer mart: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mart_customer_rfm (
			customer_key, run_id, total_orders, total_revenue,
			first_order_date, last_order_date, recency_days, frequency,
			monetary, avg_order_value, lifespan_days, revenue_per_day,
			lifecycle_stage, churn_probability, predicted_clv,
			recency_score, frequency_score, monetary_score, rfm_segment
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range rows {
		m := &rows[i].Metrics
		score := &rows[i].Score
		if _, err := stmt.ExecContext(ctx,
			m.CustomerKey, runID, m.TotalOrders, m.TotalRevenue,
			m.FirstOrderDate.UTC(), m.LastOrderDate.UTC(), m.RecencyDays, m.Frequency,
			m.Monetary, m.AvgOrderValue, m.LifespanDays, m.RevenuePerDay,
			string(m.LifecycleStage), m.ChurnProbability, m.PredictedCLV,
			score.Recency, score.Frequency, score.Monetary, score.Segment,
		); err != nil {
			return fmt.Errorf("failed to save customer %s: %w", m.CustomerKey, err)
		}
	}

	return tx.Commit()
}

// GetCustomerRFM returns the customer analytics mart ordered by customer key.
func (s *SQLiteStorage) GetCustomerRFM(ctx context.Context) ([]model.CustomerRFM, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_key, total_orders, total_revenue,
			first_order_date, last_order_date, recency_days, frequency,
			monetary, avg_order_value, lifespan_days, revenue_per_day,
			lifecycle_stage, churn_probability, predicted_clv,
			recency_score, frequency_score, monetary_score, rfm_segment
		FROM mart_customer_rfm
		ORDER BY customer_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer mart: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CustomerRFM
	for rows.Next() {
		var (
			row   model.CustomerRFM
			stage string
		)
		if err := rows.Scan(
			&row.Metrics.CustomerKey, &row.Metrics.TotalOrders, &row.Metrics.TotalRevenue,
			&row.Metrics.FirstOrderDate, &row.Metrics.LastOrderDate, &row.Metrics.RecencyDays, &row.Metrics.Frequency,
			&row.Metrics.Monetary, &row.Metrics.AvgOrderValue, &row.Metrics.LifespanDays, &row.Metrics.RevenuePerDay,
			&stage, &row.Metrics.ChurnProbability, &row.Metrics.PredictedCLV,
			&row.Score.Recency, &row.Score.Frequency, &row.Score.Monetary, &row.Score.Segment,
		); err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		row.Metrics.LifecycleStage = model.LifecycleStage(stage)
		row.Metrics.FirstOrderDate = row.Metrics.FirstOrderDate.UTC()
		row.Metrics.LastOrderDate = row.Metrics.LastOrderDate.UTC()
		row.Score.CustomerKey = row.Metrics.CustomerKey
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customer rows: %w", err)
	}
	return out, nil
}

// ReplaceCohortPeriods replaces the cohort analysis mart.
func (s *SQLiteStorage) ReplaceCohortPeriods(ctx context.Context, runID string, rows []model.CohortPeriod) error {
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM mart_cohort_periods`); err != nil {
		return fmt.Errorf("failed to clear cohort mart: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mart_cohort_periods (
			cohort_month, period_number, run_id, active_customers,
			period_orders, period_revenue, cohort_size, cohort_initial_revenue,
			retention_rate, revenue_retention_rate, revenue_growth_rate, ltv_at_period
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range rows {
		cp := &rows[i]
		var growth any
		if cp.RevenueGrowthRate != nil {
			growth = *cp.RevenueGrowthRate
		}
		if _, err := stmt.ExecContext(ctx,
			cp.CohortMonth.UTC(), cp.PeriodNumber, runID, cp.ActiveCustomers,
			cp.PeriodOrders, cp.PeriodRevenue, cp.CohortSize, cp.CohortInitialRevenue,
			cp.RetentionRate, cp.RevenueRetentionRate, growth, cp.LTVAtPeriod,
		); err != nil {
			return fmt.Errorf("failed to save cohort period %s/%d: %w",
				cp.CohortMonth.Format("2006-01"), cp.PeriodNumber, err)
		}
	}

	return tx.Commit()
}

// GetCohortPeriods returns the cohort mart ordered by cohort month, period.
func (s *SQLiteStorage) GetCohortPeriods(ctx context.Context) ([]model.CohortPeriod, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cohort_month, period_number, active_customers, period_orders,
			period_revenue, cohort_size, cohort_initial_revenue,
			retention_rate, revenue_retention_rate, revenue_growth_rate, ltv_at_period
		FROM mart_cohort_periods
		ORDER BY cohort_month, period_number
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cohort mart: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CohortPeriod
	for rows.Next() {
		var (
			cp     model.CohortPeriod
			growth sql.NullFloat64
		)
		if err := rows.Scan(
			&cp.CohortMonth, &cp.PeriodNumber, &cp.ActiveCustomers, &cp.PeriodOrders,
			&cp.PeriodRevenue, &cp.CohortSize, &cp.CohortInitialRevenue,
			&cp.RetentionRate, &cp.RevenueRetentionRate, &growth, &cp.LTVAtPeriod,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cohort row: %w", err)
		}
		cp.CohortMonth = cp.CohortMonth.UTC()
		if growth.Valid {
			g := growth.Float64
			cp.RevenueGrowthRate = &g
		}
		out = append(out, cp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cohort rows: %w", err)
	}
	return out, nil
}

// ReplacePartnerDaily replaces the partner daily rollup mart.
func (s *SQLiteStorage) ReplacePartnerDaily(ctx context.Context, runID string, rows []model.PartnerDailyMetric) error {
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

	if _, err := tx.ExecContext(ctx, `DELETE FROM mart_partner_daily`); err != nil {
		return fmt.Errorf("failed to clear partner mart: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO mart_partner_daily (
			channel, metric_date, customer_segment, run_id, orders, units,
			revenue, avg_order_value, quality_ratio,
			rolling_short_revenue, rolling_long_revenue,
			rolling_short_aov, rolling_long_aov,
			trend, health_score, recommendation
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range rows {
		pm := &rows[i]
		if _, err := stmt.ExecContext(ctx,
			string(pm.Channel), pm.Date.UTC(), pm.CustomerSegment, runID, pm.Orders, pm.Units,
			pm.Revenue, pm.AvgOrderValue, pm.QualityRatio,
			pm.RollingShortRev, pm.RollingLongRev,
			pm.RollingShortAOV, pm.RollingLongAOV,
			string(pm.Trend), pm.HealthScore, pm.Recommendation,
		); err != nil {
			return fmt.Errorf("failed to save partner metric %s/%s: %w",
				pm.Channel, pm.Date.Format("2006-01-02"), err)
		}
	}

	return tx.Commit()
}

// GetPartnerDaily returns the partner mart ordered by channel, segment, date.
func (s *SQLiteStorage) GetPartnerDaily(ctx context.Context) ([]model.PartnerDailyMetric, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT channel, metric_date, customer_segment, orders, units,
			revenue, avg_order_value, quality_ratio,
			rolling_short_revenue, rolling_long_revenue,
			rolling_short_aov, rolling_long_aov,
			trend, health_score, recommendation
		FROM mart_partner_daily
		ORDER BY channel, customer_segment, metric_date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query partner mart: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.PartnerDailyMetric
	for rows.Next() {
		var (
			pm      model.PartnerDailyMetric
			channel string
			trend   string
		)
		if err := rows.Scan(
			&channel, &pm.Date, &pm.CustomerSegment, &pm.Orders, &pm.Units,
			&pm.Revenue, &pm.AvgOrderValue, &pm.QualityRatio,
			&pm.RollingShortRev, &pm.RollingLongRev,
			&pm.RollingShortAOV, &pm.RollingLongAOV,
			&trend, &pm.HealthScore, &pm.Recommendation,
		); err != nil {
			return nil, fmt.Errorf("failed to scan partner row: %w", err)
		}
		pm.Channel = model.Channel(channel)
		pm.Trend = model.TrendClass(trend)
		pm.Date = pm.Date.UTC()
		out = append(out, pm)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate partner rows: %w", err)
	}
	return out, nil
}
