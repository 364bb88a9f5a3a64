package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"vigil/internal/scheduler"
)

func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := validate(cfg, v.Get("rules")); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.App.MetricsAddr == "" {
		c.App.MetricsAddr = ":9102"
	}
	if c.Feed.TimeoutSeconds <= 0 {
		c.Feed.TimeoutSeconds = 5
	}
	if c.Feed.RatePerSecond <= 0 {
		c.Feed.RatePerSecond = 8
	}
	if c.Feed.CandleInterval == "" {
		c.Feed.CandleInterval = "5m"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Driver == "sqlite" && c.Store.Path == "" {
		c.Store.Path = "data/vigil.db"
	}
	if c.Bias.Symbol == "" {
		c.Bias.Symbol = "NIFTY"
	}
	if c.Engine.EvalInterval == "" {
		c.Engine.EvalInterval = "1m"
	}
	if c.Engine.Workers <= 0 {
		c.Engine.Workers = 4
	}
	if c.Engine.CalcMode == "" {
		c.Engine.CalcMode = "current"
	}
}

// EvalInterval parses the configured cycle interval.
func (c *Config) EvalInterval() (time.Duration, error) {
	d, ok := scheduler.ParseIntervalDuration(c.Engine.EvalInterval)
	if !ok {
		return 0, fmt.Errorf("engine.eval_interval %q is invalid", c.Engine.EvalInterval)
	}
	return d, nil
}

// FeedTimeout is the per-request quote feed timeout.
func (c *Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}
