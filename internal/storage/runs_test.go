package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianbi/meridian/internal/common"
	"github.com/meridianbi/meridian/internal/model"
	"github.com/meridianbi/meridian/internal/storage"
	"github.com/meridianbi/meridian/internal/testutil"
)

func TestRunLifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	run := &model.PipelineRun{
		ID:        "run-1",
		Status:    model.RunStatusRunning,
		StartedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Storage.RecordRun(ctx, run))

	latest, err := db.Storage.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", latest.ID)
	assert.Equal(t, model.RunStatusRunning, latest.Status)
	assert.True(t, latest.AsOfDate.IsZero(), "as-of date is null until the run resolves it")
	assert.True(t, latest.FinishedAt.IsZero())

	run.Status = model.RunStatusCompleted
	run.AsOfDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	run.FinishedAt = time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC)
	run.OrderLines = 100
	run.Customers = 42
	run.CohortRows = 6
	run.PartnerRows = 12
	run.QualityFails = 1
	require.NoError(t, db.Storage.UpdateRun(ctx, run))

	latest, err = db.Storage.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, latest.Status)
	assert.Equal(t, run.AsOfDate, latest.AsOfDate)
	assert.Equal(t, run.FinishedAt, latest.FinishedAt)
	assert.Equal(t, 100, latest.OrderLines)
	assert.Equal(t, 42, latest.Customers)
	assert.Equal(t, 6, latest.CohortRows)
	assert.Equal(t, 12, latest.PartnerRows)
	assert.Equal(t, 1, latest.QualityFails)
}

func TestGetLatestRun_OrdersByStart(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	older := &model.PipelineRun{
		ID: "run-old", Status: model.RunStatusCompleted,
		StartedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	newer := &model.PipelineRun{
		ID: "run-new", Status: model.RunStatusRunning,
		StartedAt: time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.Storage.RecordRun(ctx, newer))
	require.NoError(t, db.Storage.RecordRun(ctx, older))

	latest, err := db.Storage.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-new", latest.ID, "insertion order must not matter")
}

func TestGetLatestRun_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, err := db.Storage.GetLatestRun(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateRun_UnknownRun(t *testing.T) {
	db := testutil.SetupTestDB(t)
	run := &model.PipelineRun{ID: "ghost", Status: model.RunStatusFailed}
	err := db.Storage.UpdateRun(context.Background(), run)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecordRun_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	err := db.Storage.RecordRun(ctx, nil)
	assert.ErrorIs(t, err, storage.ErrNilParameter)

	err = db.Storage.RecordRun(ctx, &model.PipelineRun{Status: model.RunStatusRunning})
	assert.ErrorIs(t, err, storage.ErrInvalidRun)
}

func TestQualityResults_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	checkedAt := time.Date(2024, 3, 1, 10, 5, 0, 0, time.UTC)
	results := []model.QualityResult{
		{
			RunID: "run-1", CheckName: "completeness_amazon",
			TableName: "raw_order_lines", CheckType: "COMPLETENESS",
			Status: model.QualityPass, Severity: model.SeverityLow,
			Value: 0.99, Threshold: 0.95,
			Message: "99/100 valid rows", CheckedAt: checkedAt,
		},
		{
			RunID: "run-1", CheckName: "retention_inflation",
			TableName: "mart_cohort_periods", CheckType: "CONSISTENCY",
			Status: model.QualityWarn, Severity: model.SeverityMedium,
			Value: 2, Threshold: 0,
			Message: "2 periods with retention above 1.0", CheckedAt: checkedAt,
		},
	}
	require.NoError(t, db.Storage.SaveQualityResults(ctx, results))

	got, err := db.Storage.GetQualityResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, results[0].CheckName, got[0].CheckName, "insertion order is preserved")
	assert.Equal(t, model.QualityWarn, got[1].Status)
	assert.InDelta(t, 0.99, got[0].Value, 0.001)
	assert.Equal(t, checkedAt, got[0].CheckedAt)

	// Other runs see nothing.
	other, err := db.Storage.GetQualityResults(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSaveQualityResults_EmptyIsNoOp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	assert.NoError(t, db.Storage.SaveQualityResults(context.Background(), nil))
}
