package quant

import "math"

// SignificanceTest runs a one-sample test of the return mean against a
// benchmark and reports the two-sided p-value (normal approximation of the
// t statistic). Fewer than 5 samples, or a zero-variance series, report
// 1.0: "not significant" is the safe answer when the data cannot say.
func (c *Calculator) SignificanceTest(returns []float64, benchmark float64) float64 {
	if len(returns) < 5 {
		return 1.0
	}
	sd := stddev(returns)
	if sd == 0 || !isFinite(sd) {
		return 1.0
	}
	n := float64(len(returns))
	t := (mean(returns) - benchmark) / (sd / math.Sqrt(n))
	p := 2 * (1 - normCDF(math.Abs(t)))
	return clamp(p, 0, 1)
}
