// Package config holds the explicit pipeline configuration. Every stage
// receives a Pipeline value; nothing reads viper after startup.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/meridianbi/meridian/internal/common"
)

// Pipeline collects every externally settable threshold and window size.
type Pipeline struct {
	// AsOfDate is the fixed reference date recency is computed against.
	// Zero means "use the latest order date in the input".
	AsOfDate time.Time

	Tier1Cities []string
	Tier2Cities []string

	HighValueThreshold    float64
	MediumValueThreshold  float64
	TrendThreshold        float64
	QualityAlertThreshold float64

	RollingShortWindow int
	RollingLongWindow  int
	ChurnHorizonDays   int
	CLVHorizonMonths   int
}

// Default returns the stock configuration.
func Default() Pipeline {
	return Pipeline{
		HighValueThreshold:    1000,
		MediumValueThreshold:  500,
		TrendThreshold:        0.10,
		QualityAlertThreshold: 0.95,
		RollingShortWindow:    7,
		RollingLongWindow:     30,
		ChurnHorizonDays:      180,
		CLVHorizonMonths:      24,
		Tier1Cities: []string{
			"mumbai", "delhi", "new delhi", "bengaluru", "bangalore",
			"hyderabad", "chennai", "kolkata", "pune", "ahmedabad",
		},
		Tier2Cities: []string{
			"jaipur", "lucknow", "surat", "kanpur", "nagpur",
			"indore", "bhopal", "patna", "vadodara", "coimbatore",
		},
	}
}

// FromViper builds a Pipeline from viper, starting from defaults so unset
// keys keep their stock values.
func FromViper() (Pipeline, error) {
	cfg := Default()

	if v := viper.GetString("pipeline.as_of_date"); v != "" {
		asOf, err := time.Parse("2006-01-02", v)
		if err != nil {
			return cfg, fmt.Errorf("%w: pipeline.as_of_date %q: %v", common.ErrInvalidConfig, v, err)
		}
		cfg.AsOfDate = asOf.UTC()
	}
	if viper.IsSet("pipeline.high_value_threshold") {
		cfg.HighValueThreshold = viper.GetFloat64("pipeline.high_value_threshold")
	}
	if viper.IsSet("pipeline.medium_value_threshold") {
		cfg.MediumValueThreshold = viper.GetFloat64("pipeline.medium_value_threshold")
	}
	if viper.IsSet("pipeline.trend_threshold") {
		cfg.TrendThreshold = viper.GetFloat64("pipeline.trend_threshold")
	}
	if viper.IsSet("pipeline.quality_alert_threshold") {
		cfg.QualityAlertThreshold = viper.GetFloat64("pipeline.quality_alert_threshold")
	}
	if viper.IsSet("pipeline.rolling_short_window") {
		cfg.RollingShortWindow = viper.GetInt("pipeline.rolling_short_window")
	}
	if viper.IsSet("pipeline.rolling_long_window") {
		cfg.RollingLongWindow = viper.GetInt("pipeline.rolling_long_window")
	}
	if viper.IsSet("pipeline.churn_horizon_days") {
		cfg.ChurnHorizonDays = viper.GetInt("pipeline.churn_horizon_days")
	}
	if viper.IsSet("pipeline.clv_horizon_months") {
		cfg.CLVHorizonMonths = viper.GetInt("pipeline.clv_horizon_months")
	}
	if viper.IsSet("pipeline.tier1_cities") {
		cfg.Tier1Cities = viper.GetStringSlice("pipeline.tier1_cities")
	}
	if viper.IsSet("pipeline.tier2_cities") {
		cfg.Tier2Cities = viper.GetStringSlice("pipeline.tier2_cities")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (p Pipeline) Validate() error {
	if p.HighValueThreshold <= 0 {
		return fmt.Errorf("%w: high_value_threshold must be positive", common.ErrInvalidConfig)
	}
	if p.MediumValueThreshold <= 0 || p.MediumValueThreshold > p.HighValueThreshold {
		return fmt.Errorf("%w: medium_value_threshold must be in (0, high_value_threshold]", common.ErrInvalidConfig)
	}
	if p.TrendThreshold <= 0 || p.TrendThreshold >= 1 {
		return fmt.Errorf("%w: trend_threshold must be in (0, 1)", common.ErrInvalidConfig)
	}
	if p.QualityAlertThreshold <= 0 || p.QualityAlertThreshold > 1 {
		return fmt.Errorf("%w: quality_alert_threshold must be in (0, 1]", common.ErrInvalidConfig)
	}
	if p.RollingShortWindow <= 0 || p.RollingLongWindow <= 0 {
		return fmt.Errorf("%w: rolling windows must be positive", common.ErrInvalidConfig)
	}
	if p.RollingShortWindow > p.RollingLongWindow {
		return fmt.Errorf("%w: rolling_short_window cannot exceed rolling_long_window", common.ErrInvalidConfig)
	}
	if p.ChurnHorizonDays <= 0 {
		return fmt.Errorf("%w: churn_horizon_days must be positive", common.ErrInvalidConfig)
	}
	if p.CLVHorizonMonths <= 0 {
		return fmt.Errorf("%w: clv_horizon_months must be positive", common.ErrInvalidConfig)
	}
	return nil
}
