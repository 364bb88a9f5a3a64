package quant

// Volatility regime labels, ordered from quietest to loudest.
const (
	RegimeSuppressed = "SUPPRESSED"
	RegimeLow        = "LOW"
	RegimeNormal     = "NORMAL"
	RegimeElevated   = "ELEVATED"
	RegimeHigh       = "HIGH"
)

// Regime is the classification of current volatility against its own
// recent distribution.
type Regime struct {
	Regime     string  `json:"regime"`
	Volatility float64 `json:"volatility"`
	Percentile float64 `json:"percentile"`
}

// VolatilityRegime ranks the latest rolling volatility within its trailing
// history. Needs roughly two windows of prices; anything shorter reports
// NORMAL with the 2% volatility floor.
func (c *Calculator) VolatilityRegime(prices []float64, window int) Regime {
	if window <= 0 {
		window = 20
	}
	rets := returnsOf(prices)
	if len(rets) < window+5 {
		return Regime{Regime: RegimeNormal, Volatility: 0.02, Percentile: 0.5}
	}

	vols := make([]float64, 0, len(rets)-window+1)
	for i := window; i <= len(rets); i++ {
		vols = append(vols, stddev(rets[i-window:i]))
	}
	current := vols[len(vols)-1]
	rank := percentileRank(vols, current)

	regime := RegimeNormal
	switch {
	case rank >= 0.90:
		regime = RegimeHigh
	case rank >= 0.70:
		regime = RegimeElevated
	case rank <= 0.10:
		regime = RegimeLow
	case rank <= 0.30:
		regime = RegimeSuppressed
	}
	return Regime{Regime: regime, Volatility: current, Percentile: rank}
}
