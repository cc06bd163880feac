// Package pipeline implements the batch analytics pipeline: enrichment,
// customer RFM scoring, cohort retention, partner rollups, and quality
// checks, executed in strict dependency order over the full raw layer.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/meridianbi/meridian/internal/common"
	"github.com/meridianbi/meridian/internal/config"
	"github.com/meridianbi/meridian/internal/model"
	"github.com/meridianbi/meridian/internal/service"
)

// Pipeline runs the full batch computation against a storage backend.
type Pipeline struct {
	store service.Storage
	cfg   config.Pipeline
}

// New creates a pipeline with the given storage and configuration.
func New(store service.Storage, cfg config.Pipeline) *Pipeline {
	return &Pipeline{store: store, cfg: cfg}
}

// stageNames drive progress reporting; stages run in exactly this order.
var stageNames = []string{
	"Enriching order lines",
	"Aggregating customers",
	"Scoring RFM segments",
	"Building cohorts",
	"Rolling up partners",
	"Persisting marts",
}

// Run executes every stage and materializes the marts. A run is atomic at
// stage granularity: either all stages complete and the marts are a full
// fresh snapshot, or the run is recorded as failed and must be rerun from
// scratch.
func (p *Pipeline) Run(ctx context.Context) (*model.PipelineRun, error) {
	run := &model.PipelineRun{
		ID:        uuid.NewString(),
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := p.store.RecordRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	slog.Info("Starting pipeline run", "run_id", run.ID)

	result, err := p.execute(ctx, run)
	if err != nil {
		run.Status = model.RunStatusFailed
		run.Error = err.Error()
		run.FinishedAt = time.Now().UTC()
		if updateErr := p.store.UpdateRun(ctx, run); updateErr != nil {
			slog.Error("Failed to record run failure", "run_id", run.ID, "error", updateErr)
		}
		return run, err
	}

	run.Status = model.RunStatusCompleted
	run.FinishedAt = time.Now().UTC()
	run.OrderLines = result.orderLines
	run.Customers = result.customers
	run.CohortRows = result.cohortRows
	run.PartnerRows = result.partnerRows
	run.QualityFails = result.qualityFails
	if err := p.store.UpdateRun(ctx, run); err != nil {
		return run, fmt.Errorf("failed to finalize run: %w", err)
	}

	slog.Info("Pipeline run completed",
		"run_id", run.ID,
		"as_of", run.AsOfDate.Format("2006-01-02"),
		"order_lines", run.OrderLines,
		"customers", run.Customers,
		"cohort_rows", run.CohortRows,
		"partner_rows", run.PartnerRows,
		"quality_fails", run.QualityFails,
		"duration", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))

	return run, nil
}

type runResult struct {
	orderLines   int
	customers    int
	cohortRows   int
	partnerRows  int
	qualityFails int
}

func (p *Pipeline) execute(ctx context.Context, run *model.PipelineRun) (*runResult, error) {
	bar := newStageBar()
	advance := func(stage string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		bar.Describe(stage)
		return nil
	}
	finish := func() {
		if err := bar.Add(1); err != nil {
			slog.Debug("Failed to update progress bar", "error", err)
		}
	}

	lines, err := p.store.GetOrderLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load order lines: %w", err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: run ingest first", common.ErrNoOrderLines)
	}

	asOf := p.cfg.AsOfDate
	if asOf.IsZero() {
		asOf = latestOrderDate(lines)
		slog.Info("No as-of date configured, using latest order date",
			"as_of", asOf.Format("2006-01-02"))
	}
	run.AsOfDate = asOf

	if err := advance(stageNames[0]); err != nil {
		return nil, err
	}
	enriched := Enrich(lines, p.cfg)
	finish()

	if err := advance(stageNames[1]); err != nil {
		return nil, err
	}
	metrics := BuildCustomerMetrics(enriched, asOf, p.cfg)
	finish()

	if err := advance(stageNames[2]); err != nil {
		return nil, err
	}
	scores := ScoreRFM(metrics)
	customers := make([]model.CustomerRFM, len(metrics))
	for i := range metrics {
		customers[i] = model.CustomerRFM{Metrics: metrics[i], Score: scores[i]}
	}
	finish()

	if err := advance(stageNames[3]); err != nil {
		return nil, err
	}
	cohorts := BuildCohortPeriods(enriched, metrics)
	finish()

	if err := advance(stageNames[4]); err != nil {
		return nil, err
	}
	partners := BuildPartnerDaily(enriched, p.cfg)
	finish()

	if err := advance(stageNames[5]); err != nil {
		return nil, err
	}
	quality := RunQualityChecks(run.ID, enriched, cohorts, partners, p.cfg, time.Now().UTC())

	if err := p.store.ReplaceUnifiedSales(ctx, run.ID, enriched); err != nil {
		return nil, fmt.Errorf("failed to persist unified sales mart: %w", err)
	}
	if err := p.store.ReplaceCustomerRFM(ctx, run.ID, customers); err != nil {
		return nil, fmt.Errorf("failed to persist customer mart: %w", err)
	}
	if err := p.store.ReplaceCohortPeriods(ctx, run.ID, cohorts); err != nil {
		return nil, fmt.Errorf("failed to persist cohort mart: %w", err)
	}
	if err := p.store.ReplacePartnerDaily(ctx, run.ID, partners); err != nil {
		return nil, fmt.Errorf("failed to persist partner mart: %w", err)
	}
	if err := p.store.SaveQualityResults(ctx, quality); err != nil {
		return nil, fmt.Errorf("failed to persist quality results: %w", err)
	}
	finish()

	return &runResult{
		orderLines:   len(lines),
		customers:    len(customers),
		cohortRows:   len(cohorts),
		partnerRows:  len(partners),
		qualityFails: CountFailures(quality),
	}, nil
}

func latestOrderDate(lines []model.OrderLine) time.Time {
	var latest time.Time
	for i := range lines {
		if lines[i].Quality != model.QualityValid {
			continue
		}
		if lines[i].OrderDate.After(latest) {
			latest = lines[i].OrderDate
		}
	}
	return latest
}

func newStageBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(len(stageNames),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Running pipeline...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
