package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/config"
	"vigil/internal/engine"
	"vigil/internal/gateway/execution"
	"vigil/internal/position"
	"vigil/internal/scheduler"
	"vigil/internal/store"
)

type stubProvider struct{}

func (stubProvider) Snapshot(context.Context, string) (position.MarketSnapshot, error) {
	return position.NeutralSnapshot("TEST"), nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Feed.BaseURL = "http://localhost:1"
	cfg.Store.Driver = "memory"
	cfg.Engine.EvalInterval = "1m"
	cfg.Engine.Workers = 2
	cfg.Engine.CalcMode = "current"
	cfg.App.LogLevel = "info"
	return cfg
}

func TestBuilderAssemblesApp(t *testing.T) {
	b := NewAppBuilder(testConfig(), func(b *AppBuilder) {
		b.providerFn = func(*config.Config) engine.MarketDataProvider { return stubProvider{} }
		b.gatewayFn = func(*config.Config) engine.ExecutionGateway { return execution.NewPaper() }
		b.calendarFn = func(*config.Config) (*scheduler.Calendar, error) {
			return scheduler.DefaultCalendar(), nil
		}
	})

	a, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a.Loop())
	assert.Nil(t, a.watcher, "no config path, no watcher")

	// The memory store starts empty, so a cycle is a clean no-op.
	require.NoError(t, a.Loop().RunCycle(context.Background()))
}

func TestNewAppThreadsOptionsThroughInjector(t *testing.T) {
	a, err := NewApp(testConfig(), func(b *AppBuilder) {
		b.providerFn = func(*config.Config) engine.MarketDataProvider { return stubProvider{} }
		b.gatewayFn = func(*config.Config) engine.ExecutionGateway { return execution.NewPaper() }
		b.calendarFn = func(*config.Config) (*scheduler.Calendar, error) {
			return scheduler.DefaultCalendar(), nil
		}
	})
	require.NoError(t, err)
	require.NotNil(t, a.Loop())
}

func TestBuilderMemoryStoreHasNoJournal(t *testing.T) {
	st, journal, closeFn, err := buildStore(testConfig())
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, st)
	assert.Nil(t, journal)
	assert.Nil(t, closeFn)
}

func TestParseCalcMode(t *testing.T) {
	assert.NotEqual(t, parseCalcMode("legacy"), parseCalcMode("current"))
	assert.Equal(t, parseCalcMode("current"), parseCalcMode("anything"))
}
