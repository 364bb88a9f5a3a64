package engine

import (
	"fmt"

	"vigil/internal/position"
)

// marketConditionStage handles hostile tape: a volatile session moving
// against the position, or liquidity drying up under an open gain.
type marketConditionStage struct{}

func (marketConditionStage) Name() string { return "market_condition" }

func (marketConditionStage) Evaluate(ec EvalContext) *position.Decision {
	r := ec.Rules
	m := ec.Metrics

	move := ec.Snapshot.ChangePercent
	if move < 0 {
		move = -move
	}
	if move > r.VolatilityExitPct && m.PnLPercent < r.VolatilityMaxLoss {
		return &position.Decision{
			Action:          position.ActionExitFull,
			ExitReason:      position.ReasonMarketCondition,
			Confidence:      8,
			Urgency:         position.UrgencyHigh,
			QuantityPercent: 100,
			Reasoning:       fmt.Sprintf("volatile session (%.2f%% move) with %.2f%% loss, closing", ec.Snapshot.ChangePercent, m.PnLPercent),
		}
	}

	if ec.Snapshot.Volume > 0 && ec.Snapshot.Volume < r.LiquidityFloor && m.PnLPercent > r.ThinMarketMinPnL && !ec.Position.IsOption() {
		return &position.Decision{
			Action:          position.ActionExitPartial,
			ExitReason:      position.ReasonMarketCondition,
			Confidence:      7,
			Urgency:         position.UrgencyMedium,
			QuantityPercent: 30,
			Reasoning:       fmt.Sprintf("volume %.0f under liquidity floor with %.2f%% gain, trimming", ec.Snapshot.Volume, m.PnLPercent),
			Metadata:        map[string]any{"volume": ec.Snapshot.Volume},
		}
	}
	return nil
}
