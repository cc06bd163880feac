package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meridianbi/meridian/internal/cli"
	"github.com/meridianbi/meridian/internal/ingest"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [files...]",
		Short: "Ingest source CSV extracts into the raw layer",
		Long: `Parse one or more channel-specific CSV extracts and load them into
the raw order-line layer.

Rows are mapped onto the canonical schema with try-parse semantics:
fields that fail to parse are nulled and the row is flagged INVALID,
rows missing their order id or SKU are dropped, and nothing aborts
the batch. Lines are deduplicated by content hash, so re-ingesting an
unchanged extract is a no-op.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().StringP("source", "s", "", "source format (amazon, international, merchant)")
	cmd.Flags().Bool("dry-run", false, "parse and report without saving")

	_ = viper.BindPFlag("ingest.source", cmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("ingest.dry_run", cmd.Flags().Lookup("dry-run"))

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	source := viper.GetString("ingest.source")
	if source == "" {
		return fmt.Errorf("--source is required (amazon, international, merchant)")
	}
	dryRun := viper.GetBool("ingest.dry_run")

	mapper, err := ingest.MapperFor(source)
	if err != nil {
		return err
	}

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	totalKept, totalDropped, totalInvalid := 0, 0, 0
	for _, path := range args {
		result, err := ingest.ReadFile(ctx, path, mapper)
		if err != nil {
			return err
		}

		totalKept += len(result.Lines)
		totalDropped += result.Dropped
		totalInvalid += result.Invalid

		if dryRun {
			continue
		}
		if err := store.SaveOrderLines(ctx, result.Lines); err != nil {
			return fmt.Errorf("failed to save order lines from %s: %w", path, err)
		}
	}

	summary := fmt.Sprintf("Rows kept: %d\nRows dropped: %d\nRows flagged INVALID: %d",
		totalKept, totalDropped, totalInvalid)
	if dryRun {
		summary += "\n\nDry run: nothing was saved."
	}
	fmt.Println(cli.RenderBox(fmt.Sprintf("Ingested %s extracts", source), summary))

	if !dryRun {
		count, err := store.GetOrderLineCount(ctx)
		if err != nil {
			return err
		}
		slog.Info("Raw layer updated", "total_order_lines", count)
	}

	return nil
}
