package model

import "time"

// CohortPeriod is one (cohort, period) cell of the retention analysis.
// PeriodNumber counts whole months elapsed since the cohort's first-order
// month; period 0 defines CohortSize and CohortInitialRevenue.
type CohortPeriod struct {
	CohortMonth          time.Time
	PeriodNumber         int
	ActiveCustomers      int
	PeriodOrders         int
	CohortSize           int
	PeriodRevenue        float64
	CohortInitialRevenue float64
	// RetentionRate can exceed 1.0 when customer-key collisions inflate a
	// later period. That inflation is surfaced by the quality checks rather
	// than clamped here.
	RetentionRate        float64
	RevenueRetentionRate float64
	// RevenueGrowthRate compares this period's revenue against the previous
	// period of the same cohort. Nil when the prior period had zero revenue.
	RevenueGrowthRate *float64
	LTVAtPeriod       float64
}
