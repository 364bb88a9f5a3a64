package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vigil/internal/position"
	"vigil/internal/quant"
)

func floatPtr(v float64) *float64 { return &v }

// midSession is well before the square-off deadline.
func midSession(t *testing.T, r Rules) time.Time {
	t.Helper()
	return time.Date(2025, 6, 2, 11, 0, 0, 0, r.Location)
}

func newTestEngine() *Engine {
	return New(DefaultRules(), quant.NewCalculator(quant.ModeCurrent))
}

func TestHoldWhenNothingCrossed(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	pos := position.Position{
		Symbol: "RELIANCE", Side: position.SideBuy, EntryPrice: 100, Quantity: 10,
		StopLoss: 95, Target: 110, EntryTime: now.Add(-30 * time.Minute),
	}
	snap := position.MarketSnapshot{Symbol: "RELIANCE", CurrentPrice: 99, Volume: 1e6}

	d := e.Evaluate(pos, snap, nil, now)
	assert.Equal(t, position.ActionHold, d.Action)
	assert.Equal(t, 7.0, d.Confidence)

	m := position.ComputeMetrics(pos, snap, now)
	assert.InDelta(t, 2.0, m.RiskReward, 1e-9)
}

func TestProfitLadderTopRung(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	pos := position.Position{
		Symbol: "RELIANCE", Side: position.SideBuy, EntryPrice: 100, Quantity: 10,
		EntryTime: now.Add(-30 * time.Minute),
	}
	snap := position.MarketSnapshot{Symbol: "RELIANCE", CurrentPrice: 104.5, Volume: 1e6}

	d := e.Evaluate(pos, snap, nil, now)
	assert.Equal(t, position.ActionExitPartial, d.Action)
	assert.Equal(t, position.ReasonProfitBooking, d.ExitReason)
	assert.Equal(t, 75.0, d.QuantityPercent)
}

func TestEmergencyBeatsEverything(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())

	t.Run("violent adverse move on a short", func(t *testing.T) {
		pos := position.Position{
			Symbol: "TCS", Side: position.SideSell, EntryPrice: 100, Quantity: -10,
			StopLoss: 103, EntryTime: now.Add(-10 * time.Minute),
		}
		snap := position.MarketSnapshot{Symbol: "TCS", CurrentPrice: 111, ChangePercent: 11, Volume: 1e6}
		d := e.Evaluate(pos, snap, nil, now)
		// Stop at 103 was also crossed, but stage 1 must win.
		assert.Equal(t, position.ActionEmergencyExit, d.Action)
		assert.Equal(t, position.UrgencyEmergency, d.Urgency)
		assert.Equal(t, 100.0, d.QuantityPercent)
	})

	t.Run("catastrophic loss", func(t *testing.T) {
		pos := position.Position{Symbol: "TCS", Side: position.SideBuy, EntryPrice: 100, Quantity: 10}
		snap := position.MarketSnapshot{Symbol: "TCS", CurrentPrice: 80, Volume: 1e6}
		d := e.Evaluate(pos, snap, nil, now)
		assert.Equal(t, position.ActionEmergencyExit, d.Action)
		assert.Equal(t, position.ReasonEmergencyClose, d.ExitReason)
	})

	t.Run("square-off deadline", func(t *testing.T) {
		late := time.Date(2025, 6, 2, 15, 20, 0, 0, e.Rules().Location)
		pos := position.Position{Symbol: "TCS", Side: position.SideBuy, EntryPrice: 100, Quantity: 10, EntryTime: late.Add(-10 * time.Minute)}
		snap := position.MarketSnapshot{Symbol: "TCS", CurrentPrice: 104.5, Volume: 1e6}
		d := e.Evaluate(pos, snap, nil, late)
		assert.Equal(t, position.ActionEmergencyExit, d.Action)
		assert.Equal(t, position.ReasonIntradaySquareOff, d.ExitReason)
		assert.Equal(t, 10.0, d.Confidence)
	})
}

func TestOscillatorBeatsSofterLadder(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	pos := position.Position{
		Symbol: "INFY", Side: position.SideBuy, EntryPrice: 100, Quantity: 10,
		EntryTime: now.Add(-5 * time.Minute),
	}
	snap := position.MarketSnapshot{
		Symbol: "INFY", CurrentPrice: 101, Volume: 1e6, RSI: floatPtr(92),
	}

	d := e.Evaluate(pos, snap, nil, now)
	require.Equal(t, position.ActionExitPartial, d.Action)
	assert.Equal(t, 50.0, d.QuantityPercent)
	assert.InDelta(t, 0.995*101, d.NewStopLoss, 1e-6)
}

func TestOscillatorShortBranches(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())

	t.Run("rally against losing short closes it", func(t *testing.T) {
		pos := position.Position{Symbol: "SBIN", Side: position.SideSell, EntryPrice: 100, Quantity: -10, EntryTime: now.Add(-20 * time.Minute)}
		snap := position.MarketSnapshot{Symbol: "SBIN", CurrentPrice: 102, Volume: 1e6, RSI: floatPtr(91)}
		d := e.Evaluate(pos, snap, nil, now)
		assert.Equal(t, position.ActionExitFull, d.Action)
		assert.Equal(t, position.ReasonRiskManagement, d.ExitReason)
		assert.Equal(t, position.UrgencyEmergency, d.Urgency)
	})

	t.Run("oversold extreme books a profitable short", func(t *testing.T) {
		pos := position.Position{Symbol: "SBIN", Side: position.SideSell, EntryPrice: 100, Quantity: -10, EntryTime: now.Add(-20 * time.Minute)}
		snap := position.MarketSnapshot{Symbol: "SBIN", CurrentPrice: 99, Volume: 1e6, RSI: floatPtr(8)}
		d := e.Evaluate(pos, snap, nil, now)
		assert.Equal(t, position.ActionExitPartial, d.Action)
		assert.Equal(t, 50.0, d.QuantityPercent)
		assert.InDelta(t, 1.005*99, d.NewStopLoss, 1e-6)
	})
}

func TestStopAndTargetHits(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())

	t.Run("long stop", func(t *testing.T) {
		pos := position.Position{Symbol: "X", Side: position.SideBuy, EntryPrice: 100, Quantity: 10, StopLoss: 95, EntryTime: now.Add(-time.Hour)}
		snap := position.MarketSnapshot{Symbol: "X", CurrentPrice: 94.5, Volume: 1e6}
		d := e.Evaluate(pos, snap, nil, now)
		assert.Equal(t, position.ActionExitFull, d.Action)
		assert.Equal(t, position.ReasonStopLossHit, d.ExitReason)
	})

	t.Run("short target", func(t *testing.T) {
		pos := position.Position{Symbol: "X", Side: position.SideSell, EntryPrice: 100, Quantity: -10, Target: 97, EntryTime: now.Add(-time.Hour)}
		snap := position.MarketSnapshot{Symbol: "X", CurrentPrice: 96.8, Volume: 1e6}
		d := e.Evaluate(pos, snap, nil, now)
		assert.Equal(t, position.ActionExitFull, d.Action)
		assert.Equal(t, position.ReasonTargetAchieved, d.ExitReason)
	})
}

func TestTimeBasedExit(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	pos := position.Position{Symbol: "X", Side: position.SideBuy, EntryPrice: 100, Quantity: 10, EntryTime: now.Add(-5 * time.Hour)}
	snap := position.MarketSnapshot{Symbol: "X", CurrentPrice: 100.1, Volume: 1e6}

	d := e.Evaluate(pos, snap, nil, now)
	assert.Equal(t, position.ActionExitFull, d.Action)
	assert.Equal(t, position.ReasonTimeBasedExit, d.ExitReason)
}

func TestQuickProfitLock(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	pos := position.Position{Symbol: "X", Side: position.SideBuy, EntryPrice: 100, Quantity: 10, EntryTime: now.Add(-5 * time.Minute)}
	snap := position.MarketSnapshot{Symbol: "X", CurrentPrice: 103.5, Volume: 1e6}

	d := e.Evaluate(pos, snap, nil, now)
	assert.Equal(t, position.ActionExitPartial, d.Action)
	assert.Equal(t, 50.0, d.QuantityPercent)
	assert.Equal(t, position.ReasonProfitBooking, d.ExitReason)
}

func TestOptionTrailingTiers(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	pos := position.Position{
		Symbol: "NIFTY25SEP24800CE", Side: position.SideBuy, EntryPrice: 100, Quantity: 75,
		EntryTime: now.Add(-40 * time.Minute),
	}
	snap := position.MarketSnapshot{Symbol: pos.Symbol, CurrentPrice: 106, Volume: 1e6}

	d := e.Evaluate(pos, snap, nil, now)
	require.Equal(t, position.ActionTrailStop, d.Action)
	// +6% lands in the 5% tier: 1.5% width, not the 2% equity trail.
	assert.InDelta(t, 106*0.985, d.NewStopLoss, 1e-6)
	assert.Equal(t, 1.5, d.Metadata["trail_percent"])
}

func TestEquityTrailing(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	pos := position.Position{Symbol: "HDFCBANK", Side: position.SideBuy, EntryPrice: 100, Quantity: 10, EntryTime: now.Add(-5 * time.Minute)}
	snap := position.MarketSnapshot{Symbol: "HDFCBANK", CurrentPrice: 102, Volume: 1e6}

	d := e.Evaluate(pos, snap, nil, now)
	require.Equal(t, position.ActionTrailStop, d.Action)
	assert.InDelta(t, 102*0.98, d.NewStopLoss, 1e-6)

	t.Run("never loosens an existing stop", func(t *testing.T) {
		tight := pos
		tight.StopLoss = 101.5
		d := e.Evaluate(tight, snap, nil, now)
		assert.Equal(t, position.ActionHold, d.Action)
	})
}

func TestReversalTightening(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	pos := position.Position{Symbol: "X", Side: position.SideBuy, EntryPrice: 100, Quantity: 10, EntryTime: now.Add(-20 * time.Minute)}
	snap := position.MarketSnapshot{
		Symbol: "X", CurrentPrice: 99, Volume: 1e6, MACD: position.MACDBearish,
	}

	d := e.Evaluate(pos, snap, nil, now)
	require.Equal(t, position.ActionTrailStop, d.Action)
	assert.Equal(t, position.UrgencyHigh, d.Urgency)
	assert.InDelta(t, 99*0.995, d.NewStopLoss, 1e-6)
}

func TestScaleIn(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	// An option position: the profit ladder skips lot-traded symbols, so the
	// scaling stage is reachable at +6%.
	pos := position.Position{Symbol: "NIFTY25SEP25000CE", Side: position.SideBuy, EntryPrice: 100, Quantity: 75, EntryTime: now.Add(-20 * time.Minute)}
	snap := position.MarketSnapshot{Symbol: pos.Symbol, CurrentPrice: 106, Volume: 1e6}

	t.Run("fires with an agreeing confident bias", func(t *testing.T) {
		bias := &position.Bias{Direction: position.SideBuy, Confidence: 8}
		d := e.Evaluate(pos, snap, bias, now)
		assert.Equal(t, position.ActionScaleIn, d.Action)
		assert.Equal(t, 25.0, d.QuantityPercent)
	})

	t.Run("no bias degrades to no scaling", func(t *testing.T) {
		d := e.Evaluate(pos, snap, nil, now)
		assert.NotEqual(t, position.ActionScaleIn, d.Action)
	})

	t.Run("disagreeing bias does not scale", func(t *testing.T) {
		bias := &position.Bias{Direction: position.SideSell, Confidence: 9}
		d := e.Evaluate(pos, snap, bias, now)
		assert.NotEqual(t, position.ActionScaleIn, d.Action)
	})
}

func TestMarketConditionStage(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())

	t.Run("volatile session with a loss closes", func(t *testing.T) {
		pos := position.Position{Symbol: "X", Side: position.SideBuy, EntryPrice: 100, Quantity: 10, EntryTime: now.Add(-20 * time.Minute)}
		snap := position.MarketSnapshot{Symbol: "X", CurrentPrice: 96, ChangePercent: -4, Volume: 1e6}
		d := e.Evaluate(pos, snap, nil, now)
		assert.Equal(t, position.ActionExitFull, d.Action)
		assert.Equal(t, position.ReasonMarketCondition, d.ExitReason)
	})

	t.Run("thin market trims an open gain", func(t *testing.T) {
		// Exercised at the stage level: in the full pipeline the profit
		// ladder claims a +6% equity gain first.
		ec := EvalContext{
			Position: position.Position{Symbol: "X", Side: position.SideBuy, EntryPrice: 100, Quantity: 10},
			Snapshot: position.MarketSnapshot{Symbol: "X", CurrentPrice: 106, Volume: 100},
			Metrics:  position.Metrics{PnLPercent: 6, RSI: 50, MACD: position.MACDNeutral, BuyPressure: 0.5, SellPressure: 0.5},
			Now:      now,
			Rules:    e.Rules(),
		}
		d := marketConditionStage{}.Evaluate(ec)
		require.NotNil(t, d)
		assert.Equal(t, position.ActionExitPartial, d.Action)
		assert.Equal(t, 30.0, d.QuantityPercent)
	})
}

func TestEvaluateIsTotalAndIdempotent(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	nan := math.NaN()

	t.Run("malformed snapshots never panic", func(t *testing.T) {
		pos := position.Position{Symbol: "X", Side: position.SideBuy, EntryPrice: 100, Quantity: 10}
		snaps := []position.MarketSnapshot{
			{},
			{CurrentPrice: nan, Volume: nan},
			{CurrentPrice: -10},
			{CurrentPrice: 100, RSI: &nan},
			position.NeutralSnapshot("X"),
		}
		for _, snap := range snaps {
			assert.NotPanics(t, func() { e.Evaluate(pos, snap, nil, now) })
		}
	})

	t.Run("identical inputs yield identical decisions", func(t *testing.T) {
		pos := position.Position{Symbol: "X", Side: position.SideBuy, EntryPrice: 100, Quantity: 10, EntryTime: now.Add(-30 * time.Minute)}
		snap := position.MarketSnapshot{Symbol: "X", CurrentPrice: 104.5, Volume: 1e6}
		a := e.Evaluate(pos, snap, nil, now)
		b := e.Evaluate(pos, snap, nil, now)
		a.TraceID, b.TraceID = "", ""
		assert.Equal(t, a, b)
	})
}

func TestNeutralSnapshotHolds(t *testing.T) {
	e := newTestEngine()
	now := midSession(t, e.Rules())
	pos := position.Position{Symbol: "X", Side: position.SideBuy, EntryPrice: 100, Quantity: 10, EntryTime: now.Add(-30 * time.Minute)}

	d := e.Evaluate(pos, position.NeutralSnapshot("X"), nil, now)
	assert.Equal(t, position.ActionHold, d.Action)
}
