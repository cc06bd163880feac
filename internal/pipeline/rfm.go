package pipeline

import (
	"sort"
	"time"

	"github.com/meridianbi/meridian/internal/config"
	"github.com/meridianbi/meridian/internal/model"
)

const daysPerMonth = 30

// BuildCustomerMetrics groups valid order lines by customer key and computes
// recency/frequency/monetary metrics against the fixed as-of date. Output is
// ordered by customer key so reruns over the same input are byte-identical.
func BuildCustomerMetrics(lines []model.OrderLine, asOf time.Time, cfg config.Pipeline) []model.CustomerMetrics {
	type agg struct {
		first    time.Time
		last     time.Time
		orderIDs map[string]struct{}
		revenue  float64
		rows     int
	}

	groups := make(map[string]*agg)
	for i := range lines {
		line := &lines[i]
		if line.Quality != model.QualityValid || line.CustomerKey == "" || line.OrderDate.IsZero() {
			continue
		}

		g, ok := groups[line.CustomerKey]
		if !ok {
			g = &agg{
				first:    line.OrderDate,
				last:     line.OrderDate,
				orderIDs: make(map[string]struct{}),
			}
			groups[line.CustomerKey] = g
		}
		if line.OrderDate.Before(g.first) {
			g.first = line.OrderDate
		}
		if line.OrderDate.After(g.last) {
			g.last = line.OrderDate
		}
		g.orderIDs[line.OrderID] = struct{}{}
		g.revenue += line.Amount
		g.rows++
	}

	metrics := make([]model.CustomerMetrics, 0, len(groups))
	for key, g := range groups {
		frequency := len(g.orderIDs)
		recencyDays := int(asOf.Sub(g.last).Hours() / 24)
		lifespanDays := int(g.last.Sub(g.first).Hours() / 24)

		avgOrderValue := g.revenue / float64(frequency)

		// Zero-length lifespan falls back to raw average order value
		// instead of propagating a division by zero.
		revenuePerDay := avgOrderValue
		if lifespanDays > 0 {
			revenuePerDay = g.revenue / float64(lifespanDays)
		}

		churnProbability := float64(recencyDays) / float64(cfg.ChurnHorizonDays)
		if churnProbability > 1 {
			churnProbability = 1
		}
		if churnProbability < 0 {
			churnProbability = 0
		}

		monthsActive := lifespanDays / daysPerMonth
		if monthsActive < 1 {
			monthsActive = 1
		}
		purchaseRate := float64(frequency) / float64(monthsActive)
		predictedCLV := avgOrderValue * purchaseRate * float64(cfg.CLVHorizonMonths)

		metrics = append(metrics, model.CustomerMetrics{
			CustomerKey:      key,
			TotalOrders:      frequency,
			TotalRevenue:     g.revenue,
			FirstOrderDate:   g.first,
			LastOrderDate:    g.last,
			RecencyDays:      recencyDays,
			Frequency:        frequency,
			Monetary:         g.revenue,
			AvgOrderValue:    avgOrderValue,
			LifespanDays:     lifespanDays,
			RevenuePerDay:    revenuePerDay,
			LifecycleStage:   lifecycleStage(recencyDays, g.first, asOf, cfg),
			ChurnProbability: churnProbability,
			PredictedCLV:     predictedCLV,
		})
	}

	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].CustomerKey < metrics[j].CustomerKey
	})
	return metrics
}

func lifecycleStage(recencyDays int, first, asOf time.Time, cfg config.Pipeline) model.LifecycleStage {
	switch {
	case recencyDays > cfg.ChurnHorizonDays:
		return model.LifecycleChurned
	case recencyDays > cfg.ChurnHorizonDays/2:
		return model.LifecycleAtRisk
	case asOf.Sub(first).Hours()/24 <= daysPerMonth:
		return model.LifecycleNew
	default:
		return model.LifecycleActive
	}
}

// SegmentRule is one (predicate, label) pair of the segment decision table.
type SegmentRule struct {
	Match func(r, f, m int) bool
	Name  string
}

// SegmentRules is the ordered decision table for RFM segment assignment.
// Rules are evaluated top to bottom and the first match wins; conditions
// overlap, so the order is load-bearing.
var SegmentRules = []SegmentRule{
	{Name: "Champions", Match: func(r, f, m int) bool { return r >= 4 && f >= 4 && m >= 4 }},
	{Name: "Loyal Customers", Match: func(r, f, _ int) bool { return r >= 3 && f >= 4 }},
	{Name: "Potential Loyalists", Match: func(r, f, m int) bool { return r >= 4 && f >= 2 && m >= 2 }},
	{Name: "New Customers", Match: func(r, f, _ int) bool { return r >= 4 && f <= 2 }},
	{Name: "Promising", Match: func(r, _, m int) bool { return r >= 3 && m <= 2 }},
	{Name: "Need Attention", Match: func(r, f, m int) bool { return r >= 2 && f >= 2 && m >= 2 }},
	{Name: "About To Sleep", Match: func(r, f, _ int) bool { return r >= 2 && f <= 2 }},
	{Name: "At Risk", Match: func(r, f, m int) bool { return r <= 2 && f >= 3 && m >= 3 }},
	{Name: "Lost", Match: func(r, f, m int) bool { return r <= 2 && f <= 2 && m <= 2 }},
}

// SegmentFallback labels customers no rule matched.
const SegmentFallback = "Others"

// SegmentFor walks the decision table and returns the first matching label.
func SegmentFor(r, f, m int) string {
	for _, rule := range SegmentRules {
		if rule.Match(r, f, m) {
			return rule.Name
		}
	}
	return SegmentFallback
}

// ScoreRFM assigns quintile scores per metric and the resulting segment.
// Scoring is rank-based: customers are ordered by the metric with ties
// broken by customer key, then split into five as-equal-as-possible buckets.
// Recency is inverted so the smallest recency lands in tier 5. Input order
// follows BuildCustomerMetrics (sorted by key); output matches it.
func ScoreRFM(metrics []model.CustomerMetrics) []model.RFMScore {
	n := len(metrics)
	scores := make([]model.RFMScore, n)
	if n == 0 {
		return scores
	}

	for i := range metrics {
		scores[i] = model.RFMScore{CustomerKey: metrics[i].CustomerKey}
	}

	rank := func(less func(i, j int) bool, assign func(idx, tile int), invert bool) {
		order := make([]int, n)
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return less(order[a], order[b]) })
		for pos, idx := range order {
			tile := pos*5/n + 1
			if invert {
				tile = 6 - tile
			}
			assign(idx, tile)
		}
	}

	// Recency ascending: the earliest positions (smallest recency) take the
	// highest tier.
	rank(func(i, j int) bool {
		if metrics[i].RecencyDays != metrics[j].RecencyDays {
			return metrics[i].RecencyDays < metrics[j].RecencyDays
		}
		return metrics[i].CustomerKey < metrics[j].CustomerKey
	}, func(idx, tile int) { scores[idx].Recency = tile }, true)

	rank(func(i, j int) bool {
		if metrics[i].Frequency != metrics[j].Frequency {
			return metrics[i].Frequency < metrics[j].Frequency
		}
		return metrics[i].CustomerKey < metrics[j].CustomerKey
	}, func(idx, tile int) { scores[idx].Frequency = tile }, false)

	rank(func(i, j int) bool {
		if metrics[i].Monetary != metrics[j].Monetary {
			return metrics[i].Monetary < metrics[j].Monetary
		}
		return metrics[i].CustomerKey < metrics[j].CustomerKey
	}, func(idx, tile int) { scores[idx].Monetary = tile }, false)

	for i := range scores {
		scores[i].Segment = SegmentFor(scores[i].Recency, scores[i].Frequency, scores[i].Monetary)
	}

	return scores
}
