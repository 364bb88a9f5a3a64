package engine

import "vigil/internal/position"

// holdStage terminates the pipeline: nothing crossed a threshold, keep the
// position as it is.
type holdStage struct{}

func (holdStage) Name() string { return "default_hold" }

func (holdStage) Evaluate(EvalContext) *position.Decision {
	return &position.Decision{
		Action:     position.ActionHold,
		Confidence: 7,
		Urgency:    position.UrgencyLow,
		Reasoning:  "no exit condition met",
	}
}
