// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/meridianbi/meridian/internal/model"
)

// Storage defines the contract for the warehouse persistence layer.
//
// Order lines form the raw layer and accumulate across ingests (deduplicated
// by content hash). Mart tables are full snapshots: each Replace call clears
// the table and writes the new run's rows in one transaction.
type Storage interface {
	// Order line operations (raw layer).
	SaveOrderLines(ctx context.Context, lines []model.OrderLine) error
	GetOrderLines(ctx context.Context) ([]model.OrderLine, error)
	GetOrderLineCount(ctx context.Context) (int, error)

	// Mart operations (full-snapshot semantics).
	ReplaceUnifiedSales(ctx context.Context, runID string, lines []model.OrderLine) error
	GetUnifiedSales(ctx context.Context) ([]model.OrderLine, error)
	ReplaceCustomerRFM(ctx context.Context, runID string, rows []model.CustomerRFM) error
	GetCustomerRFM(ctx context.Context) ([]model.CustomerRFM, error)
	ReplaceCohortPeriods(ctx context.Context, runID string, rows []model.CohortPeriod) error
	GetCohortPeriods(ctx context.Context) ([]model.CohortPeriod, error)
	ReplacePartnerDaily(ctx context.Context, runID string, rows []model.PartnerDailyMetric) error
	GetPartnerDaily(ctx context.Context) ([]model.PartnerDailyMetric, error)

	// Run bookkeeping and quality results.
	RecordRun(ctx context.Context, run *model.PipelineRun) error
	UpdateRun(ctx context.Context, run *model.PipelineRun) error
	GetLatestRun(ctx context.Context) (*model.PipelineRun, error)
	SaveQualityResults(ctx context.Context, results []model.QualityResult) error
	GetQualityResults(ctx context.Context, runID string) ([]model.QualityResult, error)

	// Schema management.
	Migrate(ctx context.Context) error
	Close() error
}
