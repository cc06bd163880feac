package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianbi/meridian/internal/model"
	"github.com/meridianbi/meridian/internal/testutil"
)

func enrichedLine(orderID string, amount float64) model.OrderLine {
	line := makeLine(orderID, "SKU-1", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), amount)
	line.ValueTier = "high_value"
	line.Season = "winter"
	line.CityTier = "tier_1"
	line.FulfillmentModel = "fba"
	line.PerformanceScore = 92.5
	return line
}

func TestReplaceUnifiedSales_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	want := enrichedLine("ORD-1", 1200)
	require.NoError(t, db.Storage.ReplaceUnifiedSales(ctx, "run-1", []model.OrderLine{want}))

	lines, err := db.Storage.GetUnifiedSales(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)

	got := lines[0]
	assert.Equal(t, want.OrderID, got.OrderID)
	assert.Equal(t, want.ContentHash, got.ContentHash)
	assert.Equal(t, want.CustomerKey, got.CustomerKey)
	assert.Equal(t, want.OrderDate, got.OrderDate)
	assert.Equal(t, "high_value", got.ValueTier)
	assert.Equal(t, "winter", got.Season)
	assert.Equal(t, "tier_1", got.CityTier)
	assert.Equal(t, "fba", got.FulfillmentModel)
	assert.InDelta(t, 92.5, got.PerformanceScore, 0.001)
}

func TestReplaceUnifiedSales_SnapshotSemantics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	first := []model.OrderLine{enrichedLine("ORD-1", 100), enrichedLine("ORD-2", 200)}
	require.NoError(t, db.Storage.ReplaceUnifiedSales(ctx, "run-1", first))

	// The next run's snapshot fully supersedes the previous one.
	second := []model.OrderLine{enrichedLine("ORD-3", 300)}
	require.NoError(t, db.Storage.ReplaceUnifiedSales(ctx, "run-2", second))

	lines, err := db.Storage.GetUnifiedSales(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "ORD-3", lines[0].OrderID)
}
