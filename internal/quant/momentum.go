package quant

import "math"

// MomentumScore blends 1-, 5- and lookback-period returns (weights
// 0.5/0.3/0.2), normalized by recent return volatility so the score is
// comparable across instruments. Returns 0 with insufficient history.
func (c *Calculator) MomentumScore(prices []float64, lookback int) float64 {
	if lookback <= 0 {
		lookback = 20
	}
	n := len(prices)
	if n < lookback+1 {
		return 0
	}
	last := prices[n-1]
	r1 := simpleReturn(prices[n-2], last)
	r5 := r1
	if n >= 6 {
		r5 = simpleReturn(prices[n-6], last)
	}
	rL := simpleReturn(prices[n-1-lookback], last)

	rets := returnsOf(prices[n-1-lookback:])
	vol := stddev(rets)
	if vol == 0 || !isFinite(vol) {
		return 0
	}
	score := (0.5*r1 + 0.3*r5 + 0.2*rL) / vol
	if !isFinite(score) {
		return 0
	}
	return score
}

// TrendStrength is the R² of a linear regression over the trailing window,
// signed by slope direction and zeroed when the slope is not statistically
// significant (two-sided p >= 0.05, normal approximation).
func (c *Calculator) TrendStrength(prices []float64, window int) float64 {
	if window <= 0 {
		window = 20
	}
	if len(prices) < window {
		return 0
	}
	ys := prices[len(prices)-window:]
	n := float64(window)

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	var ssRes, ssTot float64
	meanY := sumY / n
	for i, y := range ys {
		fit := intercept + slope*float64(i)
		ssRes += (y - fit) * (y - fit)
		ssTot += (y - meanY) * (y - meanY)
	}
	if ssTot == 0 {
		return 0
	}
	r2 := 1 - ssRes/ssTot
	if r2 < 0 {
		r2 = 0
	}

	// Slope significance: t = slope / SE(slope), df = n-2.
	if window < 3 {
		return 0
	}
	se2 := ssRes / (n - 2) / (sumXX - sumX*sumX/n)
	if se2 <= 0 {
		if slope < 0 {
			return -r2
		}
		return r2
	}
	t := slope / math.Sqrt(se2)
	p := 2 * (1 - normCDF(math.Abs(t)))
	if p >= 0.05 {
		return 0
	}
	if slope < 0 {
		return -r2
	}
	return r2
}

func simpleReturn(from, to float64) float64 {
	if from <= 0 {
		return 0
	}
	return (to - from) / from
}
