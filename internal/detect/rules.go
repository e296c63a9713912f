package detect

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"metric-anomaly-alerts/internal/storage"
)

// RuleConfig holds the thresholds driving every detection method.
// Loaded once per run and immutable for its duration.
type RuleConfig struct {
	RuleVersion        string
	EWMALambda         float64
	EWMALimit          float64
	ChangePointWindow  int
	ChangePointZ       float64
	SeasonalMinPoints  int
	SeasonalZ          float64
	RegimeRecentDays   int
	RegimeBaselineDays int
	RegimeZ            float64
	RegimeVarRatio     float64
}

// DefaultRuleConfig returns the embedded v1 thresholds.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		RuleVersion:        "v1",
		EWMALambda:         0.3,
		EWMALimit:          3.0,
		ChangePointWindow:  7,
		ChangePointZ:       3.0,
		SeasonalMinPoints:  3,
		SeasonalZ:          3.0,
		RegimeRecentDays:   7,
		RegimeBaselineDays: 14,
		RegimeZ:            3.0,
		RegimeVarRatio:     2.0,
	}
}

// ruleOverrides mirrors the persisted config payload; absent keys keep
// their defaults.
type ruleOverrides struct {
	EWMALambda         *float64 `json:"ewma_lambda"`
	EWMALimit          *float64 `json:"ewma_limit"`
	ChangePointWindow  *int     `json:"change_point_window"`
	ChangePointZ       *float64 `json:"change_point_z"`
	SeasonalMinPoints  *int     `json:"seasonal_min_points"`
	SeasonalZ          *float64 `json:"seasonal_z"`
	RegimeRecentDays   *int     `json:"regime_recent_days"`
	RegimeBaselineDays *int     `json:"regime_baseline_days"`
	RegimeZ            *float64 `json:"regime_z"`
	RegimeVarRatio     *float64 `json:"regime_var_ratio"`
}

// LoadRuleConfig resolves the active rule configuration. Any lookup or
// decode failure falls back to the defaults; a transient store outage
// must never fail a detection run.
func LoadRuleConfig(ctx context.Context, src storage.RuleStore, logger zerolog.Logger) RuleConfig {
	cfg := DefaultRuleConfig()
	if src == nil {
		return cfg
	}

	row, err := src.LoadRuleConfig(ctx)
	if err != nil {
		logger.Debug().Err(err).Msg("rule config unavailable; using defaults")
		return cfg
	}

	var overrides ruleOverrides
	if len(row.Config) > 0 {
		if err := json.Unmarshal(row.Config, &overrides); err != nil {
			logger.Warn().Err(err).Msg("rule config payload invalid; using defaults")
			return cfg
		}
	}

	cfg.RuleVersion = row.RuleVersion
	if overrides.EWMALambda != nil {
		cfg.EWMALambda = *overrides.EWMALambda
	}
	if overrides.EWMALimit != nil {
		cfg.EWMALimit = *overrides.EWMALimit
	}
	if overrides.ChangePointWindow != nil {
		cfg.ChangePointWindow = *overrides.ChangePointWindow
	}
	if overrides.ChangePointZ != nil {
		cfg.ChangePointZ = *overrides.ChangePointZ
	}
	if overrides.SeasonalMinPoints != nil {
		cfg.SeasonalMinPoints = *overrides.SeasonalMinPoints
	}
	if overrides.SeasonalZ != nil {
		cfg.SeasonalZ = *overrides.SeasonalZ
	}
	if overrides.RegimeRecentDays != nil {
		cfg.RegimeRecentDays = *overrides.RegimeRecentDays
	}
	if overrides.RegimeBaselineDays != nil {
		cfg.RegimeBaselineDays = *overrides.RegimeBaselineDays
	}
	if overrides.RegimeZ != nil {
		cfg.RegimeZ = *overrides.RegimeZ
	}
	if overrides.RegimeVarRatio != nil {
		cfg.RegimeVarRatio = *overrides.RegimeVarRatio
	}
	return cfg
}
