package quant

import "math"

// GARCH(1,1) calibration. Fixed rather than fitted: intraday windows are far
// too short for MLE to converge on anything stable.
const (
	garchArchWeight   = 0.10
	garchGarchWeight  = 0.85
	garchLongRunVar   = 0.01
	garchMinSamplesPd = 5
)

// GarchATR estimates price-space volatility for the most recent price.
//
// With fewer than period+5 samples the estimate degrades to
// stddev(prices)*0.02, or the flat 0.02 floor for a single sample. In legacy
// mode the GARCH recursion is replaced by plain historical return volatility.
func (c *Calculator) GarchATR(prices []float64, period int) float64 {
	if period <= 0 {
		period = 14
	}
	if len(prices) == 0 {
		return 0.02
	}
	if len(prices) < period+garchMinSamplesPd {
		if len(prices) == 1 {
			return 0.02
		}
		return stddev(prices) * 0.02
	}
	rets := returnsOf(prices)
	if len(rets) < 2 {
		return 0.02
	}
	current := prices[len(prices)-1]
	if current <= 0 || !isFinite(current) {
		return 0.02
	}

	var retVol float64
	if c.Mode() == ModeLegacy {
		retVol = stddev(rets)
	} else {
		retVol = garchVol(rets)
	}
	if !isFinite(retVol) || retVol < 0 {
		return 0.02
	}
	return retVol * current
}

// garchVol runs the GARCH(1,1) recursion over the return series and returns
// the terminal conditional volatility in return space.
func garchVol(rets []float64) float64 {
	omega := garchLongRunVar * (1 - garchArchWeight - garchGarchWeight)
	variance := stddev(rets)
	variance *= variance
	if variance <= 0 {
		variance = garchLongRunVar
	}
	for i := 1; i < len(rets); i++ {
		prev := rets[i-1]
		variance = omega + garchArchWeight*prev*prev + garchGarchWeight*variance
	}
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance)
}
