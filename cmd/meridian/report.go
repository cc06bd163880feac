package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meridianbi/meridian/internal/cli"
	"github.com/meridianbi/meridian/internal/model"
	"github.com/meridianbi/meridian/internal/service"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "View mart summaries",
		Long: `Summarize the materialized marts: RFM segment distribution, cohort
retention, and partner health.`,
		RunE: runReport,
	}

	cmd.Flags().StringP("mart", "m", "customers", "mart to summarize (customers, cohorts, partners)")
	_ = viper.BindPFlag("report.mart", cmd.Flags().Lookup("mart"))

	return cmd
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	switch mart := viper.GetString("report.mart"); mart {
	case "customers":
		return reportCustomers(cmd, store)
	case "cohorts":
		return reportCohorts(cmd, store)
	case "partners":
		return reportPartners(cmd, store)
	default:
		return fmt.Errorf("unknown mart %q (customers, cohorts, partners)", mart)
	}
}

func reportCustomers(cmd *cobra.Command, store service.Storage) error {
	customers, err := store.GetCustomerRFM(cmd.Context())
	if err != nil {
		return err
	}
	if len(customers) == 0 {
		fmt.Println(cli.FormatWarning("Customer mart is empty, run 'meridian run' first"))
		return nil
	}

	type segStats struct {
		count   int
		revenue float64
		clv     float64
	}
	segments := make(map[string]*segStats)
	for i := range customers {
		c := &customers[i]
		s, ok := segments[c.Score.Segment]
		if !ok {
			s = &segStats{}
			segments[c.Score.Segment] = s
		}
		s.count++
		s.revenue += c.Metrics.TotalRevenue
		s.clv += c.Metrics.PredictedCLV
	}

	names := make([]string, 0, len(segments))
	for name := range segments {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return segments[names[i]].revenue > segments[names[j]].revenue
	})

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		s := segments[name]
		rows = append(rows, []string{
			name,
			fmt.Sprintf("%d", s.count),
			fmt.Sprintf("%.2f", s.revenue),
			fmt.Sprintf("%.2f", s.clv/float64(s.count)),
		})
	}

	fmt.Println(cli.FormatTitle(fmt.Sprintf("Customer Segments (%d customers)", len(customers))))
	fmt.Println(cli.RenderTable(
		[]string{"Segment", "Customers", "Revenue", "Avg Predicted CLV"},
		rows,
	))
	return nil
}

func reportCohorts(cmd *cobra.Command, store service.Storage) error {
	cohorts, err := store.GetCohortPeriods(cmd.Context())
	if err != nil {
		return err
	}
	if len(cohorts) == 0 {
		fmt.Println(cli.FormatWarning("Cohort mart is empty, run 'meridian run' first"))
		return nil
	}

	rows := make([][]string, 0, len(cohorts))
	for i := range cohorts {
		cp := &cohorts[i]
		growth := "n/a"
		if cp.RevenueGrowthRate != nil {
			growth = fmt.Sprintf("%+.1f%%", *cp.RevenueGrowthRate*100)
		}
		rows = append(rows, []string{
			cp.CohortMonth.Format("2006-01"),
			fmt.Sprintf("%d", cp.PeriodNumber),
			fmt.Sprintf("%d/%d", cp.ActiveCustomers, cp.CohortSize),
			fmt.Sprintf("%.1f%%", cp.RetentionRate*100),
			fmt.Sprintf("%.2f", cp.PeriodRevenue),
			growth,
			fmt.Sprintf("%.2f", cp.LTVAtPeriod),
		})
	}

	fmt.Println(cli.FormatTitle("Cohort Retention"))
	fmt.Println(cli.RenderTable(
		[]string{"Cohort", "Period", "Active", "Retention", "Revenue", "Growth", "LTV"},
		rows,
	))
	return nil
}

func reportPartners(cmd *cobra.Command, store service.Storage) error {
	partners, err := store.GetPartnerDaily(cmd.Context())
	if err != nil {
		return err
	}
	if len(partners) == 0 {
		fmt.Println(cli.FormatWarning("Partner mart is empty, run 'meridian run' first"))
		return nil
	}

	// Latest row per (channel, segment); rows arrive date-ascending.
	type partnerKey struct {
		channel model.Channel
		segment string
	}
	latest := make(map[partnerKey]*model.PartnerDailyMetric)
	for i := range partners {
		p := &partners[i]
		latest[partnerKey{p.Channel, p.CustomerSegment}] = p
	}

	keys := make([]partnerKey, 0, len(latest))
	for k := range latest {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channel != keys[j].channel {
			return keys[i].channel < keys[j].channel
		}
		return keys[i].segment < keys[j].segment
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		p := latest[k]
		rows = append(rows, []string{
			string(p.Channel),
			p.CustomerSegment,
			p.Date.Format("2006-01-02"),
			fmt.Sprintf("%.2f", p.Revenue),
			fmt.Sprintf("%.2f", p.RollingLongRev),
			string(p.Trend),
			fmt.Sprintf("%.1f", p.HealthScore),
			p.Recommendation,
		})
	}

	fmt.Println(cli.FormatTitle("Partner Health (latest day per partner)"))
	fmt.Println(cli.RenderTable(
		[]string{"Channel", "Segment", "Date", "Revenue", "Rolling Avg", "Trend", "Health", "Recommendation"},
		rows,
	))
	return nil
}
