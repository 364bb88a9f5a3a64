package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// rulesSchema guards every threshold override. Hot-reload runs arbitrary
// user edits through here before the engine ever sees them.
const rulesSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "emergency_loss_pct":     {"type": "number", "maximum": 0},
    "emergency_move_pct":     {"type": "number", "exclusiveMinimum": 0},
    "square_off_time":        {"type": "string", "pattern": "^([01][0-9]|2[0-3]):[0-5][0-9]$"},
    "max_holding_minutes":    {"type": "number", "exclusiveMinimum": 0},
    "quick_profit_pct":       {"type": "number", "exclusiveMinimum": 0},
    "quick_profit_age_limit": {"type": "number", "exclusiveMinimum": 0},
    "ladder_full_pct":        {"type": "number", "exclusiveMinimum": 0},
    "ladder_half_pct":        {"type": "number", "exclusiveMinimum": 0},
    "ladder_half_age_min":    {"type": "number", "minimum": 0},
    "rsi_extreme":            {"type": "number", "minimum": 50, "maximum": 100},
    "rsi_stretched":          {"type": "number", "minimum": 50, "maximum": 100},
    "stretch_min_pnl":        {"type": "number"},
    "scale_in_min_pnl":       {"type": "number", "minimum": 0},
    "scale_in_max_age_min":   {"type": "number", "exclusiveMinimum": 0},
    "scale_in_min_bias_conf": {"type": "number", "minimum": 0, "maximum": 10},
    "scale_in_percent":       {"type": "number", "exclusiveMinimum": 0, "maximum": 100},
    "trail_activation_pct":   {"type": "number", "exclusiveMinimum": 0},
    "trail_equity_pct":       {"type": "number", "exclusiveMinimum": 0},
    "reversal_tighten_pct":   {"type": "number", "exclusiveMinimum": 0},
    "reversal_rsi_long":      {"type": "number", "minimum": 0, "maximum": 100},
    "option_trail_tiers": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["min_pnl_pct", "trail_pct"],
        "properties": {
          "min_pnl_pct": {"type": "number", "exclusiveMinimum": 0},
          "trail_pct":   {"type": "number", "exclusiveMinimum": 0}
        }
      }
    },
    "volatility_exit_pct": {"type": "number", "exclusiveMinimum": 0},
    "volatility_max_loss": {"type": "number", "maximum": 0},
    "liquidity_floor":     {"type": "number", "minimum": 0},
    "thin_market_min_pnl": {"type": "number", "minimum": 0},
    "timezone":            {"type": "string"}
  }
}`

var compiledRulesSchema = jsonschema.MustCompileString("rules.json", rulesSchema)

func validate(c *Config, rawRules any) error {
	if strings.TrimSpace(c.Feed.BaseURL) == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("store.driver must be sqlite or memory, got %q", c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("store.path is required with the sqlite driver")
	}
	switch c.Engine.CalcMode {
	case "current", "legacy":
	default:
		return fmt.Errorf("engine.calc_mode must be current or legacy, got %q", c.Engine.CalcMode)
	}
	if _, err := c.EvalInterval(); err != nil {
		return err
	}
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("app.log_level %q is invalid", c.App.LogLevel)
	}
	return validateRules(rawRules, c.Rules)
}

// validateRules checks the raw rules block so unknown keys and malformed
// values are caught before mapstructure silently drops them.
func validateRules(rawRules any, rc RulesConfig) error {
	if rawRules != nil {
		raw, err := json.Marshal(rawRules)
		if err != nil {
			return fmt.Errorf("rules: marshal for validation: %w", err)
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("rules: decode for validation: %w", err)
		}
		if err := compiledRulesSchema.Validate(doc); err != nil {
			return fmt.Errorf("rules validation failed: %w", err)
		}
	}
	if rc.Timezone != "" {
		if _, err := time.LoadLocation(rc.Timezone); err != nil {
			return fmt.Errorf("rules.timezone %q: %w", rc.Timezone, err)
		}
	}
	if _, err := rc.Rules(); err != nil {
		return fmt.Errorf("rules: %w", err)
	}
	return nil
}
