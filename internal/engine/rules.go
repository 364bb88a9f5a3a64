package engine

import "time"

// Rules carries every numeric threshold the pipeline consults. All values
// are tunable through config; DefaultRules gives the calibrated intraday
// defaults.
type Rules struct {
	// Stage 1: emergency.
	EmergencyLossPct float64 // adverse P&L% forcing an emergency exit
	EmergencyMovePct float64 // absolute intraday move % forcing an exit
	SquareOffHour    int     // exchange-local square-off clock
	SquareOffMinute  int

	// Stage 2: time-based.
	MaxHoldingMinutes   float64
	QuickProfitPct      float64 // lock in fast gains...
	QuickProfitAgeLimit float64 // ...when younger than this many minutes

	// Stage 4: profit-booking ladder.
	LadderFullPct    float64 // P&L% booking 75%
	LadderHalfPct    float64 // P&L% booking 50%...
	LadderHalfAgeMin float64 // ...once older than this many minutes

	// Stage 5: oscillator extremes (long thresholds; shorts mirror at 100-x).
	RSIExtreme    float64
	RSIStretched  float64
	StretchMinPnL float64

	// Stage 6: scaling.
	ScaleInMinPnL      float64
	ScaleInMaxAgeMin   float64
	ScaleInMinBiasConf float64
	ScaleInPercent     float64

	// Stage 7: trailing.
	TrailActivationPct float64     // equity: start trailing above this P&L%
	TrailEquityPct     float64     // equity: flat trail width
	ReversalTightenPct float64     // momentum-reversal stop distance
	ReversalRSILong    float64     // long is suspect below this RSI while losing
	OptionTrailTiers   []TrailTier

	// Stage 8: market condition.
	VolatilityExitPct float64 // intraday move % treated as hostile volatility
	VolatilityMaxLoss float64 // ...when P&L% is below this
	LiquidityFloor    float64 // volume floor for thin-market booking
	ThinMarketMinPnL  float64

	// Exchange clock for the square-off deadline.
	Location *time.Location
}

// TrailTier maps a minimum P&L% to a trailing-stop width for lot-traded
// instruments. Tiers are checked from the highest MinPnL down.
type TrailTier struct {
	MinPnLPct float64
	TrailPct  float64
}

func DefaultRules() Rules {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	return Rules{
		EmergencyLossPct: -15,
		EmergencyMovePct: 8,
		SquareOffHour:    15,
		SquareOffMinute:  20,

		MaxHoldingMinutes:   240,
		QuickProfitPct:      3,
		QuickProfitAgeLimit: 15,

		LadderFullPct:    4,
		LadderHalfPct:    2,
		LadderHalfAgeMin: 10,

		RSIExtreme:    90,
		RSIStretched:  85,
		StretchMinPnL: 0.5,

		ScaleInMinPnL:      5,
		ScaleInMaxAgeMin:   30,
		ScaleInMinBiasConf: 7,
		ScaleInPercent:     25,

		TrailActivationPct: 1.5,
		TrailEquityPct:     2,
		ReversalTightenPct: 0.5,
		ReversalRSILong:    45,
		OptionTrailTiers: []TrailTier{
			{MinPnLPct: 10, TrailPct: 1},
			{MinPnLPct: 5, TrailPct: 1.5},
			{MinPnLPct: 3, TrailPct: 2},
		},

		VolatilityExitPct: 3,
		VolatilityMaxLoss: -3,
		LiquidityFloor:    50000,
		ThinMarketMinPnL:  5,

		Location: loc,
	}
}

// SquareOffDeadline is the forced intraday close for the trading day
// containing now, in the exchange timezone.
func (r Rules) SquareOffDeadline(now time.Time) time.Time {
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), r.SquareOffHour, r.SquareOffMinute, 0, 0, loc)
}
