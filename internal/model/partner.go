package model

import "time"

// TrendClass compares a day's revenue against its own rolling average.
type TrendClass string

// Trend classifications.
const (
	TrendAbove TrendClass = "above_trend"
	TrendOn    TrendClass = "on_trend"
	TrendBelow TrendClass = "below_trend"
)

// Recommendation labels assigned from the overall health score band.
const (
	RecommendScaleUp      = "scale_up"
	RecommendMaintain     = "maintain"
	RecommendInvestigate  = "investigate"
	RecommendUrgentReview = "urgent_review"
)

// PartnerDailyMetric is one row per (channel, date, customer segment).
//
// Rolling averages are trailing windows over the N preceding existing rows
// of the same (channel, segment) partition ordered by date. Days with no
// orders are simply absent; the windows do not zero-fill calendar gaps.
type PartnerDailyMetric struct {
	Date             time.Time
	Channel          Channel
	CustomerSegment  string
	Trend            TrendClass
	Recommendation   string
	Orders           int
	Units            int
	Revenue          float64
	AvgOrderValue    float64
	QualityRatio     float64
	RollingShortRev  float64
	RollingLongRev   float64
	RollingShortAOV  float64
	RollingLongAOV   float64
	HealthScore      float64
}
