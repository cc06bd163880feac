package pipeline

import (
	"sort"
	"time"

	"github.com/meridianbi/meridian/internal/config"
	"github.com/meridianbi/meridian/internal/model"
)

// Health sub-score caps. Each component is capped independently before the
// components are summed; the total never exceeds 100.
const (
	healthRevenueCap = 25.0
	healthVolumeCap  = 25.0
	healthQualityCap = 25.0
	healthTrendCap   = 25.0

	ordersPerVolumePoint = 2.5
)

// BuildPartnerDaily rolls order lines up into one row per (channel, date,
// customer segment) with trailing-window statistics.
//
// The rolling windows cover the N preceding existing rows of the partition
// ordered by date, not N calendar days: days with no orders produce no row
// and are skipped over, which is deliberate.
func BuildPartnerDaily(lines []model.OrderLine, cfg config.Pipeline) []model.PartnerDailyMetric {
	type bucketKey struct {
		date    time.Time
		channel model.Channel
		segment string
	}
	type bucket struct {
		orderIDs map[string]struct{}
		units    int
		revenue  float64
		total    int
		valid    int
	}

	buckets := make(map[bucketKey]*bucket)
	for i := range lines {
		line := &lines[i]
		if line.OrderDate.IsZero() {
			continue
		}
		key := bucketKey{
			date:    truncateDay(line.OrderDate),
			channel: line.Channel,
			segment: line.CustomerSegment,
		}
		b, ok := buckets[key]
		if !ok {
			b = &bucket{orderIDs: make(map[string]struct{})}
			buckets[key] = b
		}
		b.total++
		if line.Quality != model.QualityValid {
			continue
		}
		b.valid++
		b.orderIDs[line.OrderID] = struct{}{}
		b.units += line.Quantity
		b.revenue += line.Amount
	}

	metrics := make([]model.PartnerDailyMetric, 0, len(buckets))
	for key, b := range buckets {
		orders := len(b.orderIDs)
		aov := 0.0
		if orders > 0 {
			aov = b.revenue / float64(orders)
		}
		metrics = append(metrics, model.PartnerDailyMetric{
			Date:            key.date,
			Channel:         key.channel,
			CustomerSegment: key.segment,
			Orders:          orders,
			Units:           b.units,
			Revenue:         b.revenue,
			AvgOrderValue:   aov,
			QualityRatio:    float64(b.valid) / float64(b.total),
		})
	}

	sort.Slice(metrics, func(i, j int) bool {
		a, b := &metrics[i], &metrics[j]
		if a.Channel != b.Channel {
			return a.Channel < b.Channel
		}
		if a.CustomerSegment != b.CustomerSegment {
			return a.CustomerSegment < b.CustomerSegment
		}
		return a.Date.Before(b.Date)
	})

	// Trailing-window statistics per (channel, segment) partition.
	start := 0
	for i := 1; i <= len(metrics); i++ {
		if i < len(metrics) &&
			metrics[i].Channel == metrics[start].Channel &&
			metrics[i].CustomerSegment == metrics[start].CustomerSegment {
			continue
		}
		applyRollingWindows(metrics[start:i], cfg)
		start = i
	}

	for i := range metrics {
		m := &metrics[i]
		m.Trend = classifyTrend(m.Revenue, m.RollingLongRev, cfg.TrendThreshold)
		m.HealthScore = healthScore(m, cfg)
		m.Recommendation = recommendationFor(m.HealthScore)
	}

	return metrics
}

// applyRollingWindows computes the trailing inclusive N-row averages for one
// date-ordered partition.
func applyRollingWindows(partition []model.PartnerDailyMetric, cfg config.Pipeline) {
	for i := range partition {
		partition[i].RollingShortRev, partition[i].RollingShortAOV =
			trailingAverages(partition, i, cfg.RollingShortWindow)
		partition[i].RollingLongRev, partition[i].RollingLongAOV =
			trailingAverages(partition, i, cfg.RollingLongWindow)
	}
}

func trailingAverages(partition []model.PartnerDailyMetric, i, window int) (rev, aov float64) {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	count := i - start + 1
	var revSum, aovSum float64
	for j := start; j <= i; j++ {
		revSum += partition[j].Revenue
		aovSum += partition[j].AvgOrderValue
	}
	return revSum / float64(count), aovSum / float64(count)
}

func classifyTrend(revenue, rollingAvg, threshold float64) model.TrendClass {
	if rollingAvg <= 0 {
		return model.TrendOn
	}
	ratio := revenue / rollingAvg
	switch {
	case ratio > 1+threshold:
		return model.TrendAbove
	case ratio < 1-threshold:
		return model.TrendBelow
	default:
		return model.TrendOn
	}
}

// healthScore sums four independently capped sub-scores: revenue against
// the high-value threshold, order volume, data quality, and trend position.
func healthScore(m *model.PartnerDailyMetric, cfg config.Pipeline) float64 {
	revenueScore := m.Revenue / cfg.HighValueThreshold * healthRevenueCap
	if revenueScore > healthRevenueCap {
		revenueScore = healthRevenueCap
	}

	volumeScore := float64(m.Orders) * ordersPerVolumePoint
	if volumeScore > healthVolumeCap {
		volumeScore = healthVolumeCap
	}

	qualityScore := m.QualityRatio * healthQualityCap
	if qualityScore > healthQualityCap {
		qualityScore = healthQualityCap
	}

	var trendScore float64
	switch m.Trend {
	case model.TrendAbove:
		trendScore = healthTrendCap
	case model.TrendOn:
		trendScore = healthTrendCap * 0.6
	case model.TrendBelow:
		trendScore = healthTrendCap * 0.2
	}

	return revenueScore + volumeScore + qualityScore + trendScore
}

func recommendationFor(health float64) string {
	switch {
	case health >= 80:
		return model.RecommendScaleUp
	case health >= 60:
		return model.RecommendMaintain
	case health >= 40:
		return model.RecommendInvestigate
	default:
		return model.RecommendUrgentReview
	}
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
