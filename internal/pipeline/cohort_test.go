package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianbi/meridian/internal/config"
	"github.com/meridianbi/meridian/internal/model"
)

func TestBuildCohortPeriods_Scenario(t *testing.T) {
	// Two customers start in January; only A returns in February.
	lines := []model.OrderLine{
		validLine("A", "O1", day(2024, 1, 5), 100),
		validLine("B", "O2", day(2024, 1, 20), 50),
		validLine("A", "O3", day(2024, 2, 10), 150),
	}
	metrics := BuildCustomerMetrics(lines, day(2024, 3, 1), config.Default())

	periods := BuildCohortPeriods(lines, metrics)
	require.Len(t, periods, 2)

	p0 := periods[0]
	assert.Equal(t, day(2024, 1, 1), p0.CohortMonth)
	assert.Equal(t, 0, p0.PeriodNumber)
	assert.Equal(t, 2, p0.CohortSize)
	assert.Equal(t, 2, p0.ActiveCustomers)
	assert.InDelta(t, 1.0, p0.RetentionRate, 0.001)
	assert.InDelta(t, 150.0, p0.PeriodRevenue, 0.001)
	assert.InDelta(t, 1.0, p0.RevenueRetentionRate, 0.001)
	assert.Nil(t, p0.RevenueGrowthRate, "period 0 has no prior period")
	assert.InDelta(t, 75.0, p0.LTVAtPeriod, 0.001)

	p1 := periods[1]
	assert.Equal(t, 1, p1.PeriodNumber)
	assert.Equal(t, 1, p1.ActiveCustomers)
	assert.InDelta(t, 0.5, p1.RetentionRate, 0.001)
	assert.InDelta(t, 150.0, p1.PeriodRevenue, 0.001)
	assert.InDelta(t, 1.0, p1.RevenueRetentionRate, 0.001)
	require.NotNil(t, p1.RevenueGrowthRate)
	assert.InDelta(t, 0.0, *p1.RevenueGrowthRate, 0.001)
	assert.InDelta(t, 150.0, p1.LTVAtPeriod, 0.001, "cumulative 300 over cohort size 2")
}

func TestBuildCohortPeriods_GrowthNilAfterGap(t *testing.T) {
	// January cohort orders in period 0 and period 2 but not period 1.
	// Growth for period 2 must be null, not computed against zero.
	lines := []model.OrderLine{
		validLine("A", "O1", day(2024, 1, 5), 100),
		validLine("A", "O2", day(2024, 3, 5), 200),
	}
	metrics := BuildCustomerMetrics(lines, day(2024, 4, 1), config.Default())

	periods := BuildCohortPeriods(lines, metrics)
	require.Len(t, periods, 2)

	p2 := periods[1]
	assert.Equal(t, 2, p2.PeriodNumber)
	assert.Nil(t, p2.RevenueGrowthRate, "no prior-period revenue to grow against")
	assert.InDelta(t, 2.0, p2.RevenueRetentionRate, 0.001)
}

func TestBuildCohortPeriods_MultipleCohortsSorted(t *testing.T) {
	lines := []model.OrderLine{
		validLine("A", "O1", day(2024, 2, 5), 100),
		validLine("B", "O2", day(2024, 1, 10), 80),
	}
	metrics := BuildCustomerMetrics(lines, day(2024, 3, 1), config.Default())

	periods := BuildCohortPeriods(lines, metrics)
	require.Len(t, periods, 2)
	assert.Equal(t, day(2024, 1, 1), periods[0].CohortMonth)
	assert.Equal(t, day(2024, 2, 1), periods[1].CohortMonth)
	for _, p := range periods {
		assert.Equal(t, 0, p.PeriodNumber)
		assert.Equal(t, 1, p.CohortSize)
	}
}

func TestBuildCohortPeriods_SkipsInvalidAndUnknownCustomers(t *testing.T) {
	invalid := validLine("A", "O2", day(2024, 1, 6), 999)
	invalid.Quality = model.QualityInvalid

	lines := []model.OrderLine{
		validLine("A", "O1", day(2024, 1, 5), 100),
		invalid,
		// No metrics row exists for this key, so the line has no cohort.
		validLine("ghost", "O3", day(2024, 1, 7), 100),
	}
	metrics := []model.CustomerMetrics{{CustomerKey: "A", FirstOrderDate: day(2024, 1, 5)}}

	periods := BuildCohortPeriods(lines, metrics)
	require.Len(t, periods, 1)
	assert.InDelta(t, 100.0, periods[0].PeriodRevenue, 0.001)
	assert.Equal(t, 1, periods[0].PeriodOrders)
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		a, b time.Time
		want int
	}{
		{day(2024, 1, 1), day(2024, 1, 1), 0},
		{day(2024, 1, 1), day(2024, 3, 1), 2},
		{day(2023, 11, 1), day(2024, 2, 1), 3},
		{day(2024, 3, 1), day(2024, 1, 1), -2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, monthsBetween(tt.a, tt.b), "%v to %v", tt.a, tt.b)
	}
}
