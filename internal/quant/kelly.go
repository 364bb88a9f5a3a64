package quant

// Fractional-Kelly safety multiplier. Full Kelly assumes the win-rate input
// is exact; live estimates drift, so size at a quarter of the optimum.
const kellyFraction = 0.25

// KellyPositionSize converts a win-rate/payoff profile into a capital
// allocation. Falls back to a flat 2% of capital whenever the inputs cannot
// support the formula (non-positive average loss, win rate outside (0,1)).
// The Kelly fraction is clamped to [0, maxRisk] before sizing; pass
// maxRisk<=0 for the 0.25 default. Legacy mode sizes at full Kelly.
func (c *Calculator) KellyPositionSize(winRate, avgWin, avgLoss, capital, maxRisk float64) float64 {
	if maxRisk <= 0 {
		maxRisk = 0.25
	}
	if avgLoss <= 0 || winRate <= 0 || winRate >= 1 || capital <= 0 {
		return capital * 0.02
	}
	b := avgWin / avgLoss
	if b <= 0 {
		return capital * 0.02
	}
	p := winRate
	q := 1 - winRate
	f := (b*p - q) / b
	f = clamp(f, 0, maxRisk)
	if c.Mode() != ModeLegacy {
		f *= kellyFraction
	}
	return f * capital
}
