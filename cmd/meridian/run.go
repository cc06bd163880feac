package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meridianbi/meridian/internal/cli"
	"github.com/meridianbi/meridian/internal/config"
	"github.com/meridianbi/meridian/internal/pipeline"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full analytics pipeline",
		Long: `Execute every pipeline stage in order against the raw layer and
materialize fresh mart snapshots: customer RFM segments, cohort
retention, partner daily rollups, and data-quality results.

Stages run strictly sequentially; each stage fully materializes its
output before the next begins. A failed stage fails the whole run.`,
		RunE: runPipeline,
	}
	return cmd
}

func runPipeline(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.FromViper()
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := pipeline.New(store, cfg).Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline run failed: %w", err)
	}

	summary := fmt.Sprintf(
		"As-of date: %s\nOrder lines: %d\nCustomers: %d\nCohort rows: %d\nPartner rows: %d\nDuration: %s",
		run.AsOfDate.Format("2006-01-02"),
		run.OrderLines,
		run.Customers,
		run.CohortRows,
		run.PartnerRows,
		run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
	)
	if run.QualityFails > 0 {
		summary += "\n\n" + cli.FormatWarning(fmt.Sprintf("%d quality checks failed, see 'meridian quality'", run.QualityFails))
	} else {
		summary += "\n\n" + cli.FormatSuccess("All quality checks passed")
	}

	fmt.Println(cli.RenderBox("Pipeline Run Complete", summary))
	return nil
}
