package pipeline

import (
	"fmt"
	"time"

	"github.com/meridianbi/meridian/internal/config"
	"github.com/meridianbi/meridian/internal/model"
)

// RunQualityChecks evaluates the run's outputs against the configured
// thresholds. Checks report, they never mutate: known artifacts like
// retention inflation from customer-key collisions surface as WARN rows
// instead of being clamped away.
func RunQualityChecks(
	runID string,
	lines []model.OrderLine,
	cohorts []model.CohortPeriod,
	partners []model.PartnerDailyMetric,
	cfg config.Pipeline,
	now time.Time,
) []model.QualityResult {
	var results []model.QualityResult

	add := func(r model.QualityResult) {
		r.RunID = runID
		r.CheckedAt = now
		results = append(results, r)
	}

	// Completeness: valid-row ratio per channel.
	type channelCount struct{ total, valid int }
	byChannel := make(map[model.Channel]*channelCount)
	negativeAmounts := 0
	for i := range lines {
		line := &lines[i]
		c, ok := byChannel[line.Channel]
		if !ok {
			c = &channelCount{}
			byChannel[line.Channel] = c
		}
		c.total++
		if line.Quality == model.QualityValid {
			c.valid++
		}
		if line.Amount < 0 {
			negativeAmounts++
		}
	}
	for _, channel := range []model.Channel{model.ChannelAmazon, model.ChannelInternational, model.ChannelMerchant} {
		c, ok := byChannel[channel]
		if !ok {
			continue
		}
		ratio := float64(c.valid) / float64(c.total)
		status := model.QualityPass
		severity := model.SeverityLow
		if ratio < cfg.QualityAlertThreshold {
			status = model.QualityFail
			severity = model.SeverityMedium
			if ratio < cfg.QualityAlertThreshold-0.05 {
				severity = model.SeverityHigh
			}
		}
		add(model.QualityResult{
			CheckName: fmt.Sprintf("completeness_%s", channel),
			TableName: "raw_order_lines",
			CheckType: "COMPLETENESS",
			Status:    status,
			Severity:  severity,
			Value:     ratio,
			Threshold: cfg.QualityAlertThreshold,
			Message:   fmt.Sprintf("%d/%d valid rows for channel %s", c.valid, c.total, channel),
		})
	}

	// Validity: amounts are non-negative by construction; any violation
	// means the ingestion contract broke.
	amountStatus := model.QualityPass
	amountSeverity := model.SeverityLow
	if negativeAmounts > 0 {
		amountStatus = model.QualityFail
		amountSeverity = model.SeverityHigh
	}
	add(model.QualityResult{
		CheckName: "amount_validity",
		TableName: "raw_order_lines",
		CheckType: "VALIDITY",
		Status:    amountStatus,
		Severity:  amountSeverity,
		Value:     float64(negativeAmounts),
		Threshold: 0,
		Message:   fmt.Sprintf("%d rows with negative amount", negativeAmounts),
	})

	// Cohort invariants: period 0 must cover the whole cohort, and
	// retention above 1.0 is a known identity-collision artifact.
	periodZeroViolations := 0
	inflatedPeriods := 0
	for i := range cohorts {
		cp := &cohorts[i]
		if cp.PeriodNumber == 0 {
			if cp.ActiveCustomers != cp.CohortSize || cp.RetentionRate != 1.0 {
				periodZeroViolations++
			}
		}
		if cp.RetentionRate > 1.0 {
			inflatedPeriods++
		}
	}
	pzStatus := model.QualityPass
	pzSeverity := model.SeverityLow
	if periodZeroViolations > 0 {
		pzStatus = model.QualityFail
		pzSeverity = model.SeverityHigh
	}
	add(model.QualityResult{
		CheckName: "cohort_period_zero",
		TableName: "mart_cohort_periods",
		CheckType: "CONSISTENCY",
		Status:    pzStatus,
		Severity:  pzSeverity,
		Value:     float64(periodZeroViolations),
		Threshold: 0,
		Message:   fmt.Sprintf("%d cohorts where period 0 does not equal cohort size", periodZeroViolations),
	})

	inflationStatus := model.QualityPass
	inflationSeverity := model.SeverityLow
	if inflatedPeriods > 0 {
		inflationStatus = model.QualityWarn
		inflationSeverity = model.SeverityMedium
	}
	add(model.QualityResult{
		CheckName: "retention_inflation",
		TableName: "mart_cohort_periods",
		CheckType: "CONSISTENCY",
		Status:    inflationStatus,
		Severity:  inflationSeverity,
		Value:     float64(inflatedPeriods),
		Threshold: 0,
		Message:   fmt.Sprintf("%d periods with retention above 1.0 (customer-key collisions)", inflatedPeriods),
	})

	// Health score range on the partner mart.
	outOfRange := 0
	for i := range partners {
		if partners[i].HealthScore < 0 || partners[i].HealthScore > 100 {
			outOfRange++
		}
	}
	rangeStatus := model.QualityPass
	rangeSeverity := model.SeverityLow
	if outOfRange > 0 {
		rangeStatus = model.QualityFail
		rangeSeverity = model.SeverityHigh
	}
	add(model.QualityResult{
		CheckName: "health_score_range",
		TableName: "mart_partner_daily",
		CheckType: "VALIDITY",
		Status:    rangeStatus,
		Severity:  rangeSeverity,
		Value:     float64(outOfRange),
		Threshold: 0,
		Message:   fmt.Sprintf("%d partner rows with health score outside [0, 100]", outOfRange),
	})

	return results
}

// CountFailures returns the number of FAIL results.
func CountFailures(results []model.QualityResult) int {
	fails := 0
	for i := range results {
		if results[i].Status == model.QualityFail {
			fails++
		}
	}
	return fails
}
