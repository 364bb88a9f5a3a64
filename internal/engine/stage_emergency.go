package engine

import (
	"fmt"

	"vigil/internal/position"
)

// emergencyStage is the always-wins branch: catastrophic loss, violent
// intraday moves, and the square-off deadline. It fires regardless of what
// any later stage would prefer.
type emergencyStage struct{}

func (emergencyStage) Name() string { return "emergency_exit" }

func (emergencyStage) Evaluate(ec EvalContext) *position.Decision {
	r := ec.Rules

	deadline := r.SquareOffDeadline(ec.Now)
	if !ec.Now.Before(deadline) {
		return &position.Decision{
			Action:          position.ActionEmergencyExit,
			ExitReason:      position.ReasonIntradaySquareOff,
			Confidence:      10,
			Urgency:         position.UrgencyEmergency,
			QuantityPercent: 100,
			Reasoning:       fmt.Sprintf("square-off deadline %s reached", deadline.Format("15:04")),
			Metadata:        map[string]any{"deadline": deadline},
		}
	}

	if ec.Metrics.PnLPercent < r.EmergencyLossPct {
		return &position.Decision{
			Action:          position.ActionEmergencyExit,
			ExitReason:      position.ReasonEmergencyClose,
			Confidence:      10,
			Urgency:         position.UrgencyEmergency,
			QuantityPercent: 100,
			Reasoning:       fmt.Sprintf("loss %.2f%% beyond emergency threshold %.2f%%", ec.Metrics.PnLPercent, r.EmergencyLossPct),
		}
	}

	move := ec.Snapshot.ChangePercent
	if move < 0 {
		move = -move
	}
	if move > r.EmergencyMovePct {
		return &position.Decision{
			Action:          position.ActionEmergencyExit,
			ExitReason:      position.ReasonEmergencyClose,
			Confidence:      9,
			Urgency:         position.UrgencyEmergency,
			QuantityPercent: 100,
			Reasoning:       fmt.Sprintf("intraday move %.2f%% beyond %.2f%%", ec.Snapshot.ChangePercent, r.EmergencyMovePct),
			Metadata:        map[string]any{"change_percent": ec.Snapshot.ChangePercent},
		}
	}
	return nil
}
