package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianbi/meridian/internal/model"
	"github.com/meridianbi/meridian/internal/storage"
	"github.com/meridianbi/meridian/internal/testutil"
)

func customerRow(key string) model.CustomerRFM {
	return model.CustomerRFM{
		Metrics: model.CustomerMetrics{
			CustomerKey:    key,
			TotalOrders:    3,
			TotalRevenue:   450,
			FirstOrderDate: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			LastOrderDate:  time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
			RecencyDays:    20,
			Frequency:      3,
			Monetary:       450,
			AvgOrderValue:  150,
			LifespanDays:   36,
			RevenuePerDay:  12.5,
			LifecycleStage: model.LifecycleActive,
		},
		Score: model.RFMScore{
			CustomerKey: key,
			Recency:     4,
			Frequency:   3,
			Monetary:    4,
			Segment:     "Loyal Customers",
		},
	}
}

func TestReplaceCustomerRFM_SnapshotSemantics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	first := []model.CustomerRFM{customerRow("a"), customerRow("b"), customerRow("c")}
	require.NoError(t, db.Storage.ReplaceCustomerRFM(ctx, "run-1", first))

	got, err := db.Storage.GetCustomerRFM(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	row := got[0]
	assert.Equal(t, "a", row.Metrics.CustomerKey)
	assert.Equal(t, "a", row.Score.CustomerKey)
	assert.Equal(t, 20, row.Metrics.RecencyDays)
	assert.Equal(t, model.LifecycleActive, row.Metrics.LifecycleStage)
	assert.Equal(t, "Loyal Customers", row.Score.Segment)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), row.Metrics.FirstOrderDate)

	// A second replace fully supersedes the first snapshot.
	require.NoError(t, db.Storage.ReplaceCustomerRFM(ctx, "run-2", []model.CustomerRFM{customerRow("z")}))

	got, err = db.Storage.GetCustomerRFM(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "z", got[0].Metrics.CustomerKey)
}

func TestReplaceCustomerRFM_RequiresRunID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	err := db.Storage.ReplaceCustomerRFM(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, storage.ErrEmptyString)
}

func TestReplaceCohortPeriods_GrowthNullRoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	growth := 0.25
	rows := []model.CohortPeriod{
		{
			CohortMonth:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodNumber:         0,
			ActiveCustomers:      2,
			PeriodOrders:         2,
			PeriodRevenue:        150,
			CohortSize:           2,
			CohortInitialRevenue: 150,
			RetentionRate:        1.0,
			RevenueRetentionRate: 1.0,
			LTVAtPeriod:          75,
		},
		{
			CohortMonth:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			PeriodNumber:         1,
			ActiveCustomers:      1,
			PeriodOrders:         1,
			PeriodRevenue:        187.5,
			CohortSize:           2,
			CohortInitialRevenue: 150,
			RetentionRate:        0.5,
			RevenueRetentionRate: 1.25,
			RevenueGrowthRate:    &growth,
			LTVAtPeriod:          168.75,
		},
	}
	require.NoError(t, db.Storage.ReplaceCohortPeriods(ctx, "run-1", rows))

	got, err := db.Storage.GetCohortPeriods(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Nil(t, got[0].RevenueGrowthRate, "period 0 growth persists as null")
	require.NotNil(t, got[1].RevenueGrowthRate)
	assert.InDelta(t, 0.25, *got[1].RevenueGrowthRate, 0.001)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[1].CohortMonth)
	assert.InDelta(t, 1.25, got[1].RevenueRetentionRate, 0.001)
}

func TestReplacePartnerDaily_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rows := []model.PartnerDailyMetric{
		{
			Date:            time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
			Channel:         model.ChannelAmazon,
			CustomerSegment: "B2C",
			Orders:          2,
			Units:           4,
			Revenue:         200,
			AvgOrderValue:   100,
			QualityRatio:    1.0,
			RollingShortRev: 200,
			RollingLongRev:  200,
			RollingShortAOV: 100,
			RollingLongAOV:  100,
			Trend:           model.TrendOn,
			HealthScore:     55,
			Recommendation:  model.RecommendInvestigate,
		},
	}
	require.NoError(t, db.Storage.ReplacePartnerDaily(ctx, "run-1", rows))

	got, err := db.Storage.GetPartnerDaily(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)

	pm := got[0]
	assert.Equal(t, model.ChannelAmazon, pm.Channel)
	assert.Equal(t, "B2C", pm.CustomerSegment)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), pm.Date)
	assert.Equal(t, model.TrendOn, pm.Trend)
	assert.InDelta(t, 55.0, pm.HealthScore, 0.001)
	assert.Equal(t, model.RecommendInvestigate, pm.Recommendation)

	// Empty replace clears the mart.
	require.NoError(t, db.Storage.ReplacePartnerDaily(ctx, "run-2", nil))
	got, err = db.Storage.GetPartnerDaily(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
