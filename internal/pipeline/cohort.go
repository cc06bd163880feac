package pipeline

import (
	"sort"
	"time"

	"github.com/meridianbi/meridian/internal/model"
)

// BuildCohortPeriods buckets customers by first-purchase month and tracks
// per-period retention relative to cohort size. Cohort assignment is fixed
// for the duration of a run; each run recomputes it from scratch.
func BuildCohortPeriods(lines []model.OrderLine, metrics []model.CustomerMetrics) []model.CohortPeriod {
	cohortOf := make(map[string]time.Time, len(metrics))
	for i := range metrics {
		cohortOf[metrics[i].CustomerKey] = truncateMonth(metrics[i].FirstOrderDate)
	}

	type cell struct {
		customers map[string]struct{}
		orderIDs  map[string]struct{}
		revenue   float64
	}
	cells := make(map[time.Time]map[int]*cell)

	for i := range lines {
		line := &lines[i]
		if line.Quality != model.QualityValid || line.OrderDate.IsZero() {
			continue
		}
		cohort, ok := cohortOf[line.CustomerKey]
		if !ok {
			continue
		}
		period := monthsBetween(cohort, truncateMonth(line.OrderDate))
		if period < 0 {
			continue
		}

		periods, ok := cells[cohort]
		if !ok {
			periods = make(map[int]*cell)
			cells[cohort] = periods
		}
		c, ok := periods[period]
		if !ok {
			c = &cell{
				customers: make(map[string]struct{}),
				orderIDs:  make(map[string]struct{}),
			}
			periods[period] = c
		}
		c.customers[line.CustomerKey] = struct{}{}
		c.orderIDs[line.OrderID] = struct{}{}
		c.revenue += line.Amount
	}

	cohorts := make([]time.Time, 0, len(cells))
	for cohort := range cells {
		cohorts = append(cohorts, cohort)
	}
	sort.Slice(cohorts, func(i, j int) bool { return cohorts[i].Before(cohorts[j]) })

	var out []model.CohortPeriod
	for _, cohort := range cohorts {
		periods := cells[cohort]

		periodNumbers := make([]int, 0, len(periods))
		for p := range periods {
			periodNumbers = append(periodNumbers, p)
		}
		sort.Ints(periodNumbers)

		// Period 0 exists by construction: every customer's first order
		// falls in their cohort month.
		initial := periods[0]
		cohortSize := len(initial.customers)
		initialRevenue := initial.revenue

		cumulative := 0.0
		for _, p := range periodNumbers {
			c := periods[p]
			cumulative += c.revenue

			retention := float64(len(c.customers)) / float64(cohortSize)

			revenueRetention := 0.0
			if initialRevenue > 0 {
				revenueRetention = c.revenue / initialRevenue
			}

			// Growth is undefined (null) rather than a division by zero
			// when the prior period is absent or had no revenue.
			var growth *float64
			if prev, ok := periods[p-1]; ok && prev.revenue > 0 {
				g := (c.revenue - prev.revenue) / prev.revenue
				growth = &g
			}

			out = append(out, model.CohortPeriod{
				CohortMonth:          cohort,
				PeriodNumber:         p,
				ActiveCustomers:      len(c.customers),
				PeriodOrders:         len(c.orderIDs),
				PeriodRevenue:        c.revenue,
				CohortSize:           cohortSize,
				CohortInitialRevenue: initialRevenue,
				RetentionRate:        retention,
				RevenueRetentionRate: revenueRetention,
				RevenueGrowthRate:    growth,
				LTVAtPeriod:          cumulative / float64(cohortSize),
			})
		}
	}
	return out
}

func truncateMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// monthsBetween counts whole calendar months from a to b. Both arguments
// are expected to be month-truncated.
func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
