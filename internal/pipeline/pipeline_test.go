package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianbi/meridian/internal/common"
	"github.com/meridianbi/meridian/internal/config"
	"github.com/meridianbi/meridian/internal/model"
	"github.com/meridianbi/meridian/internal/testutil"
)

func seedLines(t *testing.T, db *testutil.TestDB) {
	t.Helper()

	lines := []model.OrderLine{
		{
			OrderID: "ORD-1", SKU: "SKU-1", Channel: model.ChannelAmazon,
			OrderDate: day(2024, 1, 5), Quantity: 1, Amount: 100,
			City: "Mumbai", State: "Maharashtra", CustomerSegment: "B2C",
			Quality: model.QualityValid,
		},
		{
			OrderID: "ORD-2", SKU: "SKU-1", Channel: model.ChannelAmazon,
			OrderDate: day(2024, 2, 10), Quantity: 2, Amount: 1500,
			City: "Mumbai", State: "Maharashtra", CustomerSegment: "B2C",
			Quality: model.QualityValid,
		},
		{
			OrderID: "ORD-3", SKU: "SKU-2", Channel: model.ChannelMerchant,
			OrderDate: day(2024, 1, 20), Quantity: 1, Amount: 50,
			City: "Jaipur", CustomerSegment: "B2C",
			Quality: model.QualityValid,
		},
		{
			OrderID: "ORD-4", SKU: "SKU-3", Channel: model.ChannelInternational,
			OrderDate: day(2024, 2, 15), Quantity: 3, Amount: 600,
			CustomerSegment: "LOGANATHAN",
			Quality:         model.QualityValid,
		},
	}
	for i := range lines {
		lines[i].CustomerKey = lines[i].DeriveCustomerKey()
		lines[i].ContentHash = lines[i].GenerateContentHash()
	}

	require.NoError(t, db.Storage.SaveOrderLines(context.Background(), lines))
}

func TestPipeline_Run(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedLines(t, db)
	ctx := context.Background()

	cfg := config.Default()
	cfg.AsOfDate = day(2024, 3, 1)

	run, err := New(db.Storage, cfg).Run(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, day(2024, 3, 1), run.AsOfDate)
	assert.Equal(t, 4, run.OrderLines)
	assert.Equal(t, 3, run.Customers, "two Amazon lines share one derived key")
	assert.NotZero(t, run.CohortRows)
	assert.NotZero(t, run.PartnerRows)

	customers, err := db.Storage.GetCustomerRFM(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 3)
	for _, c := range customers {
		assert.NotEmpty(t, c.Score.Segment)
		assert.GreaterOrEqual(t, c.Score.Recency, 1)
		assert.LessOrEqual(t, c.Score.Recency, 5)
	}

	unified, err := db.Storage.GetUnifiedSales(ctx)
	require.NoError(t, err)
	require.Len(t, unified, 4, "every order line lands in the unified mart")
	for _, u := range unified {
		assert.NotEmpty(t, u.ValueTier)
		assert.NotEmpty(t, u.CityTier)
		assert.NotEmpty(t, u.FulfillmentModel)
		assert.GreaterOrEqual(t, u.PerformanceScore, 0.0)
		assert.LessOrEqual(t, u.PerformanceScore, 100.0)
	}

	cohorts, err := db.Storage.GetCohortPeriods(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, cohorts)

	partners, err := db.Storage.GetPartnerDaily(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, partners)
	for _, p := range partners {
		assert.GreaterOrEqual(t, p.HealthScore, 0.0)
		assert.LessOrEqual(t, p.HealthScore, 100.0)
		assert.NotEmpty(t, p.Recommendation)
	}

	latest, err := db.Storage.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)

	results, err := db.Storage.GetQualityResults(ctx, run.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestPipeline_RunIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedLines(t, db)
	ctx := context.Background()

	cfg := config.Default()
	cfg.AsOfDate = day(2024, 3, 1)
	p := New(db.Storage, cfg)

	first, err := p.Run(ctx)
	require.NoError(t, err)
	second, err := p.Run(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Customers, second.Customers)
	assert.Equal(t, first.CohortRows, second.CohortRows)
	assert.Equal(t, first.PartnerRows, second.PartnerRows)

	// Marts are full snapshots; rerunning must not duplicate rows.
	customers, err := db.Storage.GetCustomerRFM(ctx)
	require.NoError(t, err)
	assert.Len(t, customers, second.Customers)
}

func TestPipeline_RunWithoutIngestFails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	run, err := New(db.Storage, config.Default()).Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrNoOrderLines)
	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusFailed, run.Status)

	latest, err := db.Storage.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusFailed, latest.Status)
}

func TestPipeline_DefaultsAsOfToLatestOrderDate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedLines(t, db)

	run, err := New(db.Storage, config.Default()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, day(2024, 2, 15), run.AsOfDate)
}
