package engine

import (
	"math"

	"github.com/shopspring/decimal"

	"vigil/internal/position"
)

var decOne = decimal.NewFromInt(1)

func decFromFloat(val float64) decimal.Decimal {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(val)
}

func decToFloat(val decimal.Decimal) float64 {
	f, _ := val.Float64()
	return f
}

func decimalCompare(a, b float64) int {
	return decFromFloat(a).Cmp(decFromFloat(b))
}

func decimalLTE(a, b float64) bool { return decimalCompare(a, b) <= 0 }
func decimalGTE(a, b float64) bool { return decimalCompare(a, b) >= 0 }

// relativePrice offsets base by pct (signed, e.g. -0.005 for half a percent
// below) with side-aware direction: for shorts the offset flips, so a
// "tighten by 0.5%" request always lands on the adverse side of price.
func relativePrice(base, pct float64, side position.Side) float64 {
	if base <= 0 {
		return 0
	}
	p := decFromFloat(pct)
	if side == position.SideSell {
		p = p.Neg()
	}
	return decToFloat(decFromFloat(base).Mul(decOne.Add(p)))
}

// stopHit reports whether price breached the protective stop for the side.
func stopHit(side position.Side, price, stop float64) bool {
	if price <= 0 || stop <= 0 {
		return false
	}
	if side == position.SideSell {
		return decimalGTE(price, stop)
	}
	return decimalLTE(price, stop)
}

// targetHit reports whether price reached the profit target for the side.
func targetHit(side position.Side, price, target float64) bool {
	if price <= 0 || target <= 0 {
		return false
	}
	if side == position.SideSell {
		return decimalLTE(price, target)
	}
	return decimalGTE(price, target)
}

// tightens reports whether a proposed stop is an improvement over the
// current one, i.e. it only ever moves in the favorable direction.
func tightens(side position.Side, proposed, current float64) bool {
	if proposed <= 0 {
		return false
	}
	if current <= 0 {
		return true
	}
	if side == position.SideSell {
		return decimalCompare(proposed, current) < 0
	}
	return decimalCompare(proposed, current) > 0
}
