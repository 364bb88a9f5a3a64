package app

import (
	"context"
	"fmt"
	"time"

	"vigil/internal/bias"
	"vigil/internal/config"
	"vigil/internal/engine"
	"vigil/internal/gateway/execution"
	"vigil/internal/gateway/marketdata"
	"vigil/internal/logger"
	"vigil/internal/quant"
	"vigil/internal/scheduler"
	"vigil/internal/store"
	"vigil/internal/store/gormstore"
)

// AppBuilder assembles an App. The *Fn fields exist so tests can swap a
// collaborator without a real feed or database behind it.
type AppBuilder struct {
	cfg *config.Config

	providerFn func(*config.Config) engine.MarketDataProvider
	storeFn    func(*config.Config) (engine.PositionStore, engine.JournalRecorder, func() error, error)
	gatewayFn  func(*config.Config) engine.ExecutionGateway
	calendarFn func(*config.Config) (*scheduler.Calendar, error)
	watcherFn  func(string) (*config.Watcher, error)

	configPath string
}

type AppBuilderOption func(*AppBuilder)

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		providerFn: buildProvider,
		storeFn:    buildStore,
		gatewayFn:  func(*config.Config) engine.ExecutionGateway { return execution.NewPaper() },
		calendarFn: buildCalendar,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// WithConfigPath enables rules hot-reload from the given file.
func WithConfigPath(path string) AppBuilderOption {
	return func(b *AppBuilder) { b.configPath = path }
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	cfg := b.cfg

	calc := quant.NewCalculator(parseCalcMode(cfg.Engine.CalcMode))
	rules, err := cfg.Rules.Rules()
	if err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	eng := engine.New(rules, calc)

	provider := b.providerFn(cfg)
	st, journal, closeStore, err := b.storeFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	gateway := b.gatewayFn(cfg)

	opts := []engine.LoopOption{engine.WithWorkers(cfg.Engine.Workers)}
	if journal != nil {
		opts = append(opts, engine.WithJournal(journal))
	}
	if cfg.Bias.Enabled {
		if src, ok := provider.(bias.CloseSource); ok {
			opts = append(opts, engine.WithBiasProvider(bias.NewMomentum(src, calc, cfg.Bias.Symbol)))
		} else {
			logger.Warnf("bias enabled but the feed cannot serve closes, disabling")
		}
	}
	loop := engine.NewLoop(eng, provider, st, gateway, opts...)

	cal, err := b.calendarFn(cfg)
	if err != nil {
		return nil, fmt.Errorf("calendar: %w", err)
	}
	interval, err := cfg.EvalInterval()
	if err != nil {
		return nil, err
	}
	sched := scheduler.NewAlignedScheduler(ctx, interval, 0, cal)
	sched.RunImmediately = true

	squarer := scheduler.NewSquareOffRunner(cal, func(now time.Time) time.Time {
		return eng.Rules().SquareOffDeadline(now)
	}, loop.SquareOffSweep)

	a := &App{
		cfg:     cfg,
		engine:  eng,
		loop:    loop,
		sched:   sched,
		squarer: squarer,
	}
	if closeStore != nil {
		a.closeFns = append(a.closeFns, closeStore)
	}

	if b.configPath != "" {
		watcherFn := b.watcherFn
		if watcherFn == nil {
			watcherFn = config.NewWatcher
		}
		w, err := watcherFn(b.configPath)
		if err != nil {
			return nil, fmt.Errorf("config watcher: %w", err)
		}
		w.Subscribe(func(r engine.Rules) {
			eng.SetRules(r)
			logger.Infof("engine rules reloaded")
		})
		a.watcher = w
	}
	return a, nil
}

func buildProvider(cfg *config.Config) engine.MarketDataProvider {
	return marketdata.NewClient(marketdata.Config{
		BaseURL:        cfg.Feed.BaseURL,
		APIKey:         cfg.Feed.APIKey,
		Timeout:        cfg.FeedTimeout(),
		RequestsPerSec: cfg.Feed.RatePerSecond,
		CandleInterval: cfg.Feed.CandleInterval,
	})
}

func buildStore(cfg *config.Config) (engine.PositionStore, engine.JournalRecorder, func() error, error) {
	switch cfg.Store.Driver {
	case "memory":
		return store.NewMemory(), nil, nil, nil
	default:
		gs, err := gormstore.New(cfg.Store.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		return gs, gs, gs.Close, nil
	}
}

func buildCalendar(cfg *config.Config) (*scheduler.Calendar, error) {
	if cfg.App.CalendarPath == "" {
		return scheduler.DefaultCalendar(), nil
	}
	return scheduler.LoadCalendar(cfg.App.CalendarPath)
}

func parseCalcMode(s string) quant.Mode {
	if s == "legacy" {
		return quant.ModeLegacy
	}
	return quant.ModeCurrent
}
