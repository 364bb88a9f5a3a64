// Package config loads and watches the engine configuration. Settings
// live in one YAML file; the rules block is additionally checked against
// a JSON schema so a hot-reload can never push a malformed threshold into
// a running engine.
package config

import (
	"sort"
	"strings"
	"time"

	"vigil/internal/engine"
)

type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Feed   FeedConfig   `mapstructure:"feed"`
	Store  StoreConfig  `mapstructure:"store"`
	Bias   BiasConfig   `mapstructure:"bias"`
	Engine EngineConfig `mapstructure:"engine"`
	Rules  RulesConfig  `mapstructure:"rules"`
}

type AppConfig struct {
	LogLevel     string `mapstructure:"log_level"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
	CalendarPath string `mapstructure:"calendar_path"`
}

type FeedConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	RatePerSecond  float64 `mapstructure:"rate_per_second"`
	CandleInterval string  `mapstructure:"candle_interval"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
}

type BiasConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Symbol  string `mapstructure:"symbol"`
}

type EngineConfig struct {
	EvalInterval string `mapstructure:"eval_interval"`
	Workers      int    `mapstructure:"workers"`
	// CalcMode is "current" or "legacy".
	CalcMode string `mapstructure:"calc_mode"`
}

// RulesConfig mirrors engine.Rules field for field. Zero means "use the
// default" so a sparse rules block stays sparse in the file.
type RulesConfig struct {
	EmergencyLossPct float64 `mapstructure:"emergency_loss_pct" json:"emergency_loss_pct,omitempty"`
	EmergencyMovePct float64 `mapstructure:"emergency_move_pct" json:"emergency_move_pct,omitempty"`
	SquareOffTime    string  `mapstructure:"square_off_time" json:"square_off_time,omitempty"`

	MaxHoldingMinutes   float64 `mapstructure:"max_holding_minutes" json:"max_holding_minutes,omitempty"`
	QuickProfitPct      float64 `mapstructure:"quick_profit_pct" json:"quick_profit_pct,omitempty"`
	QuickProfitAgeLimit float64 `mapstructure:"quick_profit_age_limit" json:"quick_profit_age_limit,omitempty"`

	LadderFullPct    float64 `mapstructure:"ladder_full_pct" json:"ladder_full_pct,omitempty"`
	LadderHalfPct    float64 `mapstructure:"ladder_half_pct" json:"ladder_half_pct,omitempty"`
	LadderHalfAgeMin float64 `mapstructure:"ladder_half_age_min" json:"ladder_half_age_min,omitempty"`

	RSIExtreme    float64 `mapstructure:"rsi_extreme" json:"rsi_extreme,omitempty"`
	RSIStretched  float64 `mapstructure:"rsi_stretched" json:"rsi_stretched,omitempty"`
	StretchMinPnL float64 `mapstructure:"stretch_min_pnl" json:"stretch_min_pnl,omitempty"`

	ScaleInMinPnL      float64 `mapstructure:"scale_in_min_pnl" json:"scale_in_min_pnl,omitempty"`
	ScaleInMaxAgeMin   float64 `mapstructure:"scale_in_max_age_min" json:"scale_in_max_age_min,omitempty"`
	ScaleInMinBiasConf float64 `mapstructure:"scale_in_min_bias_conf" json:"scale_in_min_bias_conf,omitempty"`
	ScaleInPercent     float64 `mapstructure:"scale_in_percent" json:"scale_in_percent,omitempty"`

	TrailActivationPct float64           `mapstructure:"trail_activation_pct" json:"trail_activation_pct,omitempty"`
	TrailEquityPct     float64           `mapstructure:"trail_equity_pct" json:"trail_equity_pct,omitempty"`
	ReversalTightenPct float64           `mapstructure:"reversal_tighten_pct" json:"reversal_tighten_pct,omitempty"`
	ReversalRSILong    float64           `mapstructure:"reversal_rsi_long" json:"reversal_rsi_long,omitempty"`
	OptionTrailTiers   []TrailTierConfig `mapstructure:"option_trail_tiers" json:"option_trail_tiers,omitempty"`

	VolatilityExitPct float64 `mapstructure:"volatility_exit_pct" json:"volatility_exit_pct,omitempty"`
	VolatilityMaxLoss float64 `mapstructure:"volatility_max_loss" json:"volatility_max_loss,omitempty"`
	LiquidityFloor    float64 `mapstructure:"liquidity_floor" json:"liquidity_floor,omitempty"`
	ThinMarketMinPnL  float64 `mapstructure:"thin_market_min_pnl" json:"thin_market_min_pnl,omitempty"`

	Timezone string `mapstructure:"timezone" json:"timezone,omitempty"`
}

func parseClock(s string) (h, m int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, err
	}
	return t.Hour(), t.Minute(), nil
}

type TrailTierConfig struct {
	MinPnLPct float64 `mapstructure:"min_pnl_pct" json:"min_pnl_pct"`
	TrailPct  float64 `mapstructure:"trail_pct" json:"trail_pct"`
}

// Rules merges the overrides onto engine.DefaultRules.
func (rc RulesConfig) Rules() (engine.Rules, error) {
	r := engine.DefaultRules()

	if rc.EmergencyLossPct != 0 {
		r.EmergencyLossPct = rc.EmergencyLossPct
	}
	if rc.EmergencyMovePct != 0 {
		r.EmergencyMovePct = rc.EmergencyMovePct
	}
	if rc.SquareOffTime != "" {
		h, m, err := parseClock(rc.SquareOffTime)
		if err != nil {
			return r, err
		}
		r.SquareOffHour, r.SquareOffMinute = h, m
	}
	if rc.MaxHoldingMinutes != 0 {
		r.MaxHoldingMinutes = rc.MaxHoldingMinutes
	}
	if rc.QuickProfitPct != 0 {
		r.QuickProfitPct = rc.QuickProfitPct
	}
	if rc.QuickProfitAgeLimit != 0 {
		r.QuickProfitAgeLimit = rc.QuickProfitAgeLimit
	}
	if rc.LadderFullPct != 0 {
		r.LadderFullPct = rc.LadderFullPct
	}
	if rc.LadderHalfPct != 0 {
		r.LadderHalfPct = rc.LadderHalfPct
	}
	if rc.LadderHalfAgeMin != 0 {
		r.LadderHalfAgeMin = rc.LadderHalfAgeMin
	}
	if rc.RSIExtreme != 0 {
		r.RSIExtreme = rc.RSIExtreme
	}
	if rc.RSIStretched != 0 {
		r.RSIStretched = rc.RSIStretched
	}
	if rc.StretchMinPnL != 0 {
		r.StretchMinPnL = rc.StretchMinPnL
	}
	if rc.ScaleInMinPnL != 0 {
		r.ScaleInMinPnL = rc.ScaleInMinPnL
	}
	if rc.ScaleInMaxAgeMin != 0 {
		r.ScaleInMaxAgeMin = rc.ScaleInMaxAgeMin
	}
	if rc.ScaleInMinBiasConf != 0 {
		r.ScaleInMinBiasConf = rc.ScaleInMinBiasConf
	}
	if rc.ScaleInPercent != 0 {
		r.ScaleInPercent = rc.ScaleInPercent
	}
	if rc.TrailActivationPct != 0 {
		r.TrailActivationPct = rc.TrailActivationPct
	}
	if rc.TrailEquityPct != 0 {
		r.TrailEquityPct = rc.TrailEquityPct
	}
	if rc.ReversalTightenPct != 0 {
		r.ReversalTightenPct = rc.ReversalTightenPct
	}
	if rc.ReversalRSILong != 0 {
		r.ReversalRSILong = rc.ReversalRSILong
	}
	if len(rc.OptionTrailTiers) > 0 {
		tiers := make([]engine.TrailTier, 0, len(rc.OptionTrailTiers))
		for _, t := range rc.OptionTrailTiers {
			tiers = append(tiers, engine.TrailTier{MinPnLPct: t.MinPnLPct, TrailPct: t.TrailPct})
		}
		// Tier matching is first-hit from the front, so the highest
		// MinPnL must come first regardless of file order.
		sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinPnLPct > tiers[j].MinPnLPct })
		r.OptionTrailTiers = tiers
	}
	if rc.VolatilityExitPct != 0 {
		r.VolatilityExitPct = rc.VolatilityExitPct
	}
	if rc.VolatilityMaxLoss != 0 {
		r.VolatilityMaxLoss = rc.VolatilityMaxLoss
	}
	if rc.LiquidityFloor != 0 {
		r.LiquidityFloor = rc.LiquidityFloor
	}
	if rc.ThinMarketMinPnL != 0 {
		r.ThinMarketMinPnL = rc.ThinMarketMinPnL
	}
	if rc.Timezone != "" {
		loc, err := time.LoadLocation(rc.Timezone)
		if err != nil {
			return r, err
		}
		r.Location = loc
	}
	return r, nil
}
