package position

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestComputeMetricsPnL(t *testing.T) {
	now := time.Now()

	t.Run("long favorable", func(t *testing.T) {
		pos := Position{Symbol: "RELIANCE", Side: SideBuy, EntryPrice: 100, Quantity: 10}
		snap := MarketSnapshot{CurrentPrice: 104.5}
		m := ComputeMetrics(pos, snap, now)
		assert.InDelta(t, 4.5, m.PnLPercent, 1e-9)
	})

	t.Run("short favorable on falling price", func(t *testing.T) {
		pos := Position{Symbol: "TCS", Side: SideSell, EntryPrice: 100, Quantity: -10}
		snap := MarketSnapshot{CurrentPrice: 97}
		m := ComputeMetrics(pos, snap, now)
		assert.InDelta(t, 3.0, m.PnLPercent, 1e-9)
	})

	t.Run("short adverse on rally", func(t *testing.T) {
		pos := Position{Symbol: "TCS", Side: SideSell, EntryPrice: 100, Quantity: -10}
		snap := MarketSnapshot{CurrentPrice: 111}
		m := ComputeMetrics(pos, snap, now)
		assert.InDelta(t, -11.0, m.PnLPercent, 1e-9)
	})
}

func TestComputeMetricsRiskReward(t *testing.T) {
	now := time.Now()
	pos := Position{
		Symbol: "INFY", Side: SideBuy, EntryPrice: 100, Quantity: 10,
		StopLoss: 95, Target: 110,
	}
	m := ComputeMetrics(pos, MarketSnapshot{CurrentPrice: 99}, now)
	assert.InDelta(t, 5.0, m.RiskPercent, 1e-9)
	assert.InDelta(t, 10.0, m.RewardPercent, 1e-9)
	assert.InDelta(t, 2.0, m.RiskReward, 1e-9)

	t.Run("missing levels yield zero", func(t *testing.T) {
		bare := Position{Symbol: "INFY", Side: SideBuy, EntryPrice: 100, Quantity: 10}
		m := ComputeMetrics(bare, MarketSnapshot{CurrentPrice: 99}, now)
		assert.Zero(t, m.RiskPercent)
		assert.Zero(t, m.RewardPercent)
		assert.Zero(t, m.RiskReward)
	})
}

func TestComputeMetricsAge(t *testing.T) {
	now := time.Now()

	t.Run("normal age", func(t *testing.T) {
		pos := Position{Symbol: "SBIN", Side: SideBuy, EntryPrice: 500, Quantity: 5, EntryTime: now.Add(-30 * time.Minute)}
		m := ComputeMetrics(pos, MarketSnapshot{CurrentPrice: 500}, now)
		assert.InDelta(t, 30.0, m.AgeMinutes, 0.01)
	})

	t.Run("missing entry time is zero", func(t *testing.T) {
		pos := Position{Symbol: "SBIN", Side: SideBuy, EntryPrice: 500, Quantity: 5}
		m := ComputeMetrics(pos, MarketSnapshot{CurrentPrice: 500}, now)
		assert.Zero(t, m.AgeMinutes)
	})

	t.Run("future entry time is zero", func(t *testing.T) {
		pos := Position{Symbol: "SBIN", Side: SideBuy, EntryPrice: 500, Quantity: 5, EntryTime: now.Add(time.Hour)}
		m := ComputeMetrics(pos, MarketSnapshot{CurrentPrice: 500}, now)
		assert.Zero(t, m.AgeMinutes)
	})
}

func TestComputeMetricsTechnicalDefaults(t *testing.T) {
	now := time.Now()
	pos := Position{Symbol: "HDFCBANK", Side: SideBuy, EntryPrice: 1500, Quantity: 2}

	t.Run("all defaults when snapshot is bare", func(t *testing.T) {
		m := ComputeMetrics(pos, MarketSnapshot{CurrentPrice: 1500}, now)
		assert.Equal(t, DefaultRSI, m.RSI)
		assert.Equal(t, MACDNeutral, m.MACD)
		assert.Equal(t, DefaultPressure, m.BuyPressure)
		assert.Equal(t, DefaultPressure, m.SellPressure)
	})

	t.Run("supplied technicals pass through", func(t *testing.T) {
		snap := MarketSnapshot{
			CurrentPrice: 1500,
			RSI:          floatPtr(72),
			RSIEstimated: true,
			MACD:         MACDBearish,
			BuyPressure:  floatPtr(0.3),
			SellPressure: floatPtr(0.7),
		}
		m := ComputeMetrics(pos, snap, now)
		assert.Equal(t, 72.0, m.RSI)
		assert.True(t, m.RSIEstimated)
		assert.Equal(t, MACDBearish, m.MACD)
		assert.Equal(t, 0.3, m.BuyPressure)
		assert.Equal(t, 0.7, m.SellPressure)
	})
}

func TestComputeMetricsNeverPanics(t *testing.T) {
	now := time.Now()
	nan := math.NaN()
	cases := []struct {
		name string
		pos  Position
		snap MarketSnapshot
	}{
		{"nan price", Position{Symbol: "X", Side: SideBuy, EntryPrice: 100, Quantity: 1}, MarketSnapshot{CurrentPrice: nan}},
		{"negative price", Position{Symbol: "X", Side: SideBuy, EntryPrice: 100, Quantity: 1}, MarketSnapshot{CurrentPrice: -5}},
		{"zero entry", Position{Symbol: "X", Side: SideBuy, Quantity: 1}, MarketSnapshot{CurrentPrice: 100}},
		{"nan rsi and volume", Position{Symbol: "X", Side: SideSell, EntryPrice: 50, Quantity: -1}, MarketSnapshot{CurrentPrice: 49, RSI: &nan, Volume: nan}},
		{"inf pressure", Position{Symbol: "X", Side: SideBuy, EntryPrice: 50, Quantity: 1}, MarketSnapshot{CurrentPrice: 51, BuyPressure: floatPtr(math.Inf(1))}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				m := ComputeMetrics(tc.pos, tc.snap, now)
				assert.False(t, math.IsNaN(m.PnLPercent))
			})
		})
	}
}

func TestIsOption(t *testing.T) {
	assert.True(t, Position{Symbol: "NIFTY25SEP24800CE"}.IsOption())
	assert.True(t, Position{Symbol: "BANKNIFTY51000PE"}.IsOption())
	assert.False(t, Position{Symbol: "RELIANCE"}.IsOption())
	assert.False(t, Position{Symbol: "PACE"}.IsOption()) // CE suffix but no strike digits
}
