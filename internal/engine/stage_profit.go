package engine

import (
	"fmt"

	"vigil/internal/position"
)

// profitLadderStage books gains in tiers. The top rung fires immediately:
// intraday profit at that size evaporates faster than it accrues.
type profitLadderStage struct{}

func (profitLadderStage) Name() string { return "profit_ladder" }

func (profitLadderStage) Evaluate(ec EvalContext) *position.Decision {
	r := ec.Rules
	m := ec.Metrics

	// Lot-traded options cannot book partial size; their gains are ratcheted
	// by the trailing tiers instead.
	if ec.Position.IsOption() {
		return nil
	}

	if m.PnLPercent >= r.LadderFullPct {
		return &position.Decision{
			Action:          position.ActionExitPartial,
			ExitReason:      position.ReasonProfitBooking,
			Confidence:      9,
			Urgency:         position.UrgencyHigh,
			QuantityPercent: 75,
			Reasoning:       fmt.Sprintf("%.2f%% gain at top ladder rung, booking 75%%", m.PnLPercent),
		}
	}

	if m.PnLPercent >= r.LadderHalfPct && m.AgeMinutes > r.LadderHalfAgeMin {
		return &position.Decision{
			Action:          position.ActionExitPartial,
			ExitReason:      position.ReasonProfitBooking,
			Confidence:      8,
			Urgency:         position.UrgencyMedium,
			QuantityPercent: 50,
			Reasoning:       fmt.Sprintf("%.2f%% gain after %.0f min, booking half", m.PnLPercent, m.AgeMinutes),
		}
	}
	return nil
}
