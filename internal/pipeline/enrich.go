package pipeline

import (
	"strings"
	"time"

	"github.com/meridianbi/meridian/internal/config"
	"github.com/meridianbi/meridian/internal/model"
)

// Value tiers.
const (
	TierHighValue   = "high_value"
	TierMediumValue = "medium_value"
	TierLowValue    = "low_value"
)

// Performance sub-score caps. Each component is capped independently before
// summation; the order matters at the boundaries.
const (
	perfRevenueCap     = 40.0
	perfUnitsCap       = 20.0
	perfQualityScore   = 25.0
	perfHighValueBonus = 15.0
)

// Enrich attaches derived dimensions to every order line: value tier,
// season, city tier, fulfillment model, and a composite performance score.
// Input order is preserved and the input slice is not mutated.
func Enrich(lines []model.OrderLine, cfg config.Pipeline) []model.OrderLine {
	tier1 := citySet(cfg.Tier1Cities)
	tier2 := citySet(cfg.Tier2Cities)

	out := make([]model.OrderLine, len(lines))
	for i, line := range lines {
		line.ValueTier = valueTier(line.Amount, cfg)
		line.Season = season(line.OrderDate)
		line.CityTier = cityTier(line.City, tier1, tier2)
		line.FulfillmentModel = fulfillmentModel(line)
		line.PerformanceScore = performanceScore(line, cfg)
		out[i] = line
	}
	return out
}

func valueTier(amount float64, cfg config.Pipeline) string {
	switch {
	case amount >= cfg.HighValueThreshold:
		return TierHighValue
	case amount >= cfg.MediumValueThreshold:
		return TierMediumValue
	default:
		return TierLowValue
	}
}

func season(date time.Time) string {
	if date.IsZero() {
		return ""
	}
	switch date.Month() {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "fall"
	}
}

func citySet(cities []string) map[string]struct{} {
	set := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		set[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return set
}

func cityTier(city string, tier1, tier2 map[string]struct{}) string {
	normalized := strings.ToLower(strings.TrimSpace(city))
	if normalized == "" {
		return "unknown"
	}
	if _, ok := tier1[normalized]; ok {
		return "tier_1"
	}
	if _, ok := tier2[normalized]; ok {
		return "tier_2"
	}
	return "tier_3"
}

func fulfillmentModel(line model.OrderLine) string {
	switch line.Channel {
	case model.ChannelAmazon:
		if strings.EqualFold(line.Fulfillment, "merchant") {
			return "fbm"
		}
		return "fba"
	case model.ChannelInternational:
		return "export"
	default:
		return "direct"
	}
}

// performanceScore computes a 0-100 composite from independently capped
// sub-scores: revenue contribution (<=40), unit volume (<=20), data quality
// (25 for VALID rows), and a high-value bonus (15).
func performanceScore(line model.OrderLine, cfg config.Pipeline) float64 {
	revenueScore := line.Amount / cfg.HighValueThreshold * perfRevenueCap
	if revenueScore > perfRevenueCap {
		revenueScore = perfRevenueCap
	}

	unitsScore := float64(line.Quantity) * 5
	if unitsScore > perfUnitsCap {
		unitsScore = perfUnitsCap
	}

	qualityScore := 0.0
	if line.Quality == model.QualityValid {
		qualityScore = perfQualityScore
	}

	bonus := 0.0
	if line.Amount >= cfg.HighValueThreshold {
		bonus = perfHighValueBonus
	}

	return revenueScore + unitsScore + qualityScore + bonus
}
