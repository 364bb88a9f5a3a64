package engine

import (
	"fmt"

	"vigil/internal/position"
)

// stopTargetStage honors the position's own protective levels.
type stopTargetStage struct{}

func (stopTargetStage) Name() string { return "stop_target" }

func (stopTargetStage) Evaluate(ec EvalContext) *position.Decision {
	pos := ec.Position
	price := ec.Snapshot.CurrentPrice

	if stopHit(pos.Side, price, pos.StopLoss) {
		return &position.Decision{
			Action:          position.ActionExitFull,
			ExitReason:      position.ReasonStopLossHit,
			Confidence:      9,
			Urgency:         position.UrgencyHigh,
			QuantityPercent: 100,
			Reasoning:       fmt.Sprintf("price %.2f crossed stop %.2f", price, pos.StopLoss),
			Metadata:        map[string]any{"stop_loss": pos.StopLoss},
		}
	}

	if targetHit(pos.Side, price, pos.Target) {
		return &position.Decision{
			Action:          position.ActionExitFull,
			ExitReason:      position.ReasonTargetAchieved,
			Confidence:      9,
			Urgency:         position.UrgencyMedium,
			QuantityPercent: 100,
			Reasoning:       fmt.Sprintf("price %.2f reached target %.2f", price, pos.Target),
			Metadata:        map[string]any{"target": pos.Target},
		}
	}
	return nil
}
