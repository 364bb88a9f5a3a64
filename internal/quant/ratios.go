package quant

import "math"

const tradingDaysPerYear = 252

// RiskMetrics is the bundled risk profile of a daily return series.
type RiskMetrics struct {
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	MaxDrawdown float64 `json:"max_drawdown"`
	VaR95       float64 `json:"var_95"`
	CVaR95      float64 `json:"cvar_95"`
	Volatility  float64 `json:"volatility"`
}

// defaultRiskMetrics applies below the 5-sample floor.
func defaultRiskMetrics() RiskMetrics {
	return RiskMetrics{VaR95: 0.02, CVaR95: 0.03, Volatility: 0.02}
}

// SharpeRatio annualizes mean excess return over its standard deviation.
// riskFreeRate is annual; zero variance or fewer than 2 samples yield 0.
func (c *Calculator) SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	daily := riskFreeRate / tradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - daily
	}
	sd := stddev(excess)
	if sd == 0 {
		return 0
	}
	return mean(excess) / sd * math.Sqrt(tradingDaysPerYear)
}

// SortinoRatio is Sharpe with the denominator restricted to downside
// deviation. No downside observations yield 0 rather than +Inf.
func (c *Calculator) SortinoRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	daily := riskFreeRate / tradingDaysPerYear
	var sumExcess, downSS float64
	downN := 0
	for _, r := range returns {
		e := r - daily
		sumExcess += e
		if e < 0 {
			downSS += e * e
			downN++
		}
	}
	if downN == 0 {
		return 0
	}
	downDev := math.Sqrt(downSS / float64(downN))
	if downDev == 0 {
		return 0
	}
	return sumExcess / float64(len(returns)) / downDev * math.Sqrt(tradingDaysPerYear)
}

// MaxDrawdown is the deepest peak-to-trough decline of the compounded
// equity curve, as a positive fraction.
func (c *Calculator) MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	equity := 1.0
	peak := 1.0
	worst := 0.0
	for _, r := range returns {
		if !isFinite(r) {
			continue
		}
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			dd := (peak - equity) / peak
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// VaR95 is the historical 5th-percentile loss, reported as a positive
// fraction and clamped to [0, 0.10].
func (c *Calculator) VaR95(returns []float64) float64 {
	if len(returns) < 5 {
		return 0.02
	}
	loss := -percentile(returns, 0.05)
	return clamp(loss, 0, 0.10)
}

// CVaR95 is the mean loss of the tail at or below the 5th percentile.
func (c *Calculator) CVaR95(returns []float64) float64 {
	if len(returns) < 5 {
		return 0.03
	}
	cut := percentile(returns, 0.05)
	var sum float64
	n := 0
	for _, r := range returns {
		if r <= cut {
			sum += r
			n++
		}
	}
	if n == 0 {
		return clamp(-cut, 0, 0.10)
	}
	return clamp(-sum/float64(n), 0, 1)
}

// Risk computes the bundled metrics. Fewer than 5 samples return the
// documented defaults (everything flat, VaR 2%, CVaR 3%, volatility 2%).
func (c *Calculator) Risk(returns []float64, riskFreeRate float64) RiskMetrics {
	if len(returns) < 5 {
		return defaultRiskMetrics()
	}
	return RiskMetrics{
		Sharpe:      c.SharpeRatio(returns, riskFreeRate),
		Sortino:     c.SortinoRatio(returns, riskFreeRate),
		MaxDrawdown: c.MaxDrawdown(returns),
		VaR95:       c.VaR95(returns),
		CVaR95:      c.CVaR95(returns),
		Volatility:  stddev(returns),
	}
}
