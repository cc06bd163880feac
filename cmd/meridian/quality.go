package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meridianbi/meridian/internal/cli"
	"github.com/meridianbi/meridian/internal/common"
	"github.com/meridianbi/meridian/internal/model"
)

func qualityCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quality",
		Short: "Show data-quality results for the latest run",
		Long: `Print every data-quality check recorded by the most recent pipeline
run. Exits nonzero when any check failed, so schedulers can alert on it.`,
		RunE: runQuality,
	}
}

func runQuality(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	run, err := store.GetLatestRun(ctx)
	if err != nil {
		return err
	}

	results, err := store.GetQualityResults(ctx, run.ID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println(cli.FormatWarning("No quality results recorded for the latest run"))
		return nil
	}

	rows := make([][]string, 0, len(results))
	fails := 0
	for i := range results {
		r := &results[i]
		status := r.Status
		switch r.Status {
		case model.QualityPass:
			status = cli.FormatSuccess(r.Status)
		case model.QualityWarn:
			status = cli.FormatWarning(r.Status)
		case model.QualityFail:
			status = cli.FormatError(r.Status)
			fails++
		}
		rows = append(rows, []string{
			r.CheckName,
			r.TableName,
			r.CheckType,
			status,
			r.Severity,
			r.Message,
		})
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Quality Results for run %s (%s)", run.ID, run.Status)))
	fmt.Println(cli.RenderTable(
		[]string{"Check", "Table", "Type", "Status", "Severity", "Message"},
		rows,
	))

	if fails > 0 {
		return fmt.Errorf("%w: %d of %d checks failed", common.ErrQualityFailed, fails, len(results))
	}
	return nil
}
