package position

import (
	"math"
	"time"

	"vigil/internal/logger"
)

// Fallback technicals applied when the snapshot carries none.
const (
	DefaultRSI      = 50.0
	DefaultPressure = 0.5
)

// Metrics are the normalized per-evaluation facts derived from a Position
// and a MarketSnapshot. PnLPercent is sign-normalized: positive is always
// favorable regardless of side.
type Metrics struct {
	PnLPercent    float64   `json:"pnl_percent"`
	AgeMinutes    float64   `json:"age_minutes"`
	RiskPercent   float64   `json:"risk_percent"`
	RewardPercent float64   `json:"reward_percent"`
	RiskReward    float64   `json:"risk_reward_ratio"`
	RSI           float64   `json:"rsi"`
	RSIEstimated  bool      `json:"rsi_estimated,omitempty"`
	MACD          MACDState `json:"macd_state"`
	BuyPressure   float64   `json:"buy_pressure"`
	SellPressure  float64   `json:"sell_pressure"`
}

func defaultMetrics() Metrics {
	return Metrics{
		RSI:          DefaultRSI,
		MACD:         MACDNeutral,
		BuyPressure:  DefaultPressure,
		SellPressure: DefaultPressure,
	}
}

// ComputeMetrics derives Metrics at the given wall-clock instant. It is
// total: malformed inputs (zero prices, NaN fields, missing entry time)
// degrade to the documented defaults instead of failing, so one bad
// position can never abort a sweep.
func ComputeMetrics(pos Position, snap MarketSnapshot, now time.Time) (m Metrics) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warnf("position metrics: recovered evaluating %s: %v", pos.Symbol, r)
			m = defaultMetrics()
		}
	}()
	m = defaultMetrics()

	entry := pos.EntryPrice
	current := snap.CurrentPrice
	if finite(entry) && finite(current) && entry > 0 && current > 0 {
		switch pos.Side {
		case SideSell:
			m.PnLPercent = (entry - current) / entry * 100
		default:
			m.PnLPercent = (current - entry) / entry * 100
		}
		if !finite(m.PnLPercent) {
			m.PnLPercent = 0
		}
	}

	if !pos.EntryTime.IsZero() && now.After(pos.EntryTime) {
		m.AgeMinutes = now.Sub(pos.EntryTime).Minutes()
	}

	if finite(entry) && entry > 0 {
		if finite(pos.StopLoss) && pos.StopLoss > 0 {
			switch pos.Side {
			case SideSell:
				m.RiskPercent = (pos.StopLoss - entry) / entry * 100
			default:
				m.RiskPercent = (entry - pos.StopLoss) / entry * 100
			}
		}
		if finite(pos.Target) && pos.Target > 0 {
			switch pos.Side {
			case SideSell:
				m.RewardPercent = (entry - pos.Target) / entry * 100
			default:
				m.RewardPercent = (pos.Target - entry) / entry * 100
			}
		}
	}
	if m.RiskPercent != 0 {
		m.RiskReward = m.RewardPercent / m.RiskPercent
	}
	if !finite(m.RiskReward) {
		m.RiskReward = 0
	}

	if snap.RSI != nil && finite(*snap.RSI) {
		m.RSI = clampRange(*snap.RSI, 0, 100)
		m.RSIEstimated = snap.RSIEstimated
	}
	if snap.MACD == MACDBullish || snap.MACD == MACDBearish {
		m.MACD = snap.MACD
	}
	if snap.BuyPressure != nil && finite(*snap.BuyPressure) {
		m.BuyPressure = clampRange(*snap.BuyPressure, 0, 1)
	}
	if snap.SellPressure != nil && finite(*snap.SellPressure) {
		m.SellPressure = clampRange(*snap.SellPressure, 0, 1)
	}
	return m
}

// Profitable reports whether the position is in the money.
func (m Metrics) Profitable() bool { return m.PnLPercent > 0 }

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clampRange(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
