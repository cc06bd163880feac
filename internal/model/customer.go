package model

import "time"

// LifecycleStage buckets a customer by how recently they ordered.
type LifecycleStage string

// Lifecycle stages, from most to least engaged.
const (
	LifecycleNew     LifecycleStage = "new"
	LifecycleActive  LifecycleStage = "active"
	LifecycleAtRisk  LifecycleStage = "at_risk"
	LifecycleChurned LifecycleStage = "churned"
)

// CustomerMetrics is one row per derived customer key, recomputed wholesale
// from the full order-line set on every run.
type CustomerMetrics struct {
	FirstOrderDate   time.Time
	LastOrderDate    time.Time
	CustomerKey      string
	LifecycleStage   LifecycleStage
	TotalOrders      int
	Frequency        int
	RecencyDays      int
	LifespanDays     int
	TotalRevenue     float64
	Monetary         float64
	AvgOrderValue    float64
	RevenuePerDay    float64
	ChurnProbability float64
	PredictedCLV     float64
}

// RFMScore holds the quintile tier per metric plus the assigned segment.
// Recency is inverted: tier 5 means the smallest recency (most recent).
type RFMScore struct {
	CustomerKey string
	Segment     string
	Recency     int
	Frequency   int
	Monetary    int
}

// CustomerRFM pairs metrics with their score for mart persistence.
type CustomerRFM struct {
	Metrics CustomerMetrics
	Score   RFMScore
}
