package engine

import (
	"fmt"

	"vigil/internal/position"
)

// timeStage closes stale positions and banks unusually fast gains.
// Intraday edges decay: a position that has gone nowhere for four hours is
// dead capital, and a 3% pop inside fifteen minutes rarely survives intact.
type timeStage struct{}

func (timeStage) Name() string { return "time_based" }

func (timeStage) Evaluate(ec EvalContext) *position.Decision {
	r := ec.Rules
	m := ec.Metrics

	if m.AgeMinutes > r.MaxHoldingMinutes {
		return &position.Decision{
			Action:          position.ActionExitFull,
			ExitReason:      position.ReasonTimeBasedExit,
			Confidence:      8,
			Urgency:         position.UrgencyMedium,
			QuantityPercent: 100,
			Reasoning:       fmt.Sprintf("held %.0f min, beyond %.0f min window", m.AgeMinutes, r.MaxHoldingMinutes),
		}
	}

	// Lot-traded options cannot be partially exited; the trailing tiers
	// protect them instead.
	if m.PnLPercent > r.QuickProfitPct && m.AgeMinutes < r.QuickProfitAgeLimit && !ec.Position.IsOption() {
		return &position.Decision{
			Action:          position.ActionExitPartial,
			ExitReason:      position.ReasonProfitBooking,
			Confidence:      8,
			Urgency:         position.UrgencyMedium,
			QuantityPercent: 50,
			Reasoning:       fmt.Sprintf("quick %.2f%% gain in %.0f min, locking half", m.PnLPercent, m.AgeMinutes),
		}
	}
	return nil
}
