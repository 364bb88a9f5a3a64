package position

import "time"

// Action is the engine's verdict for one position in one cycle.
type Action string

const (
	ActionHold          Action = "HOLD"
	ActionExitFull      Action = "EXIT_FULL"
	ActionExitPartial   Action = "EXIT_PARTIAL"
	ActionScaleIn       Action = "SCALE_IN"
	ActionAdjustStop    Action = "ADJUST_STOP"
	ActionAdjustTarget  Action = "ADJUST_TARGET"
	ActionTrailStop     Action = "TRAIL_STOP"
	ActionEmergencyExit Action = "EMERGENCY_EXIT"
)

// ExitReason qualifies exit-class actions.
type ExitReason string

const (
	ReasonStopLossHit       ExitReason = "STOP_LOSS_HIT"
	ReasonTargetAchieved    ExitReason = "TARGET_ACHIEVED"
	ReasonTrailingStopHit   ExitReason = "TRAILING_STOP_HIT"
	ReasonTimeBasedExit     ExitReason = "TIME_BASED_EXIT"
	ReasonMarketCondition   ExitReason = "MARKET_CONDITION_CHANGE"
	ReasonRiskManagement    ExitReason = "RISK_MANAGEMENT"
	ReasonProfitBooking     ExitReason = "PROFIT_BOOKING"
	ReasonEmergencyClose    ExitReason = "EMERGENCY_CLOSE"
	ReasonIntradaySquareOff ExitReason = "INTRADAY_SQUARE_OFF"
)

// Urgency of acting on a decision.
type Urgency string

const (
	UrgencyLow       Urgency = "LOW"
	UrgencyMedium    Urgency = "MEDIUM"
	UrgencyHigh      Urgency = "HIGH"
	UrgencyEmergency Urgency = "EMERGENCY"
)

// Decision is produced fresh every evaluation cycle and consumed
// immediately; the engine never persists or reuses one. QuantityPercent is
// the share of the current quantity to act on (100 for full exits).
// NewStopLoss/NewTarget are zero when the decision does not move them.
type Decision struct {
	TraceID         string         `json:"trace_id"`
	Symbol          string         `json:"symbol"`
	Action          Action         `json:"action"`
	ExitReason      ExitReason     `json:"exit_reason,omitempty"`
	Confidence      float64        `json:"confidence"`
	Urgency         Urgency        `json:"urgency"`
	QuantityPercent float64        `json:"quantity_percentage"`
	NewStopLoss     float64        `json:"new_stop_loss,omitempty"`
	NewTarget       float64        `json:"new_target,omitempty"`
	Reasoning       string         `json:"reasoning"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	DecidedAt       time.Time      `json:"decided_at"`
}

// IsExit reports whether the action reduces or closes the position.
func (d Decision) IsExit() bool {
	switch d.Action {
	case ActionExitFull, ActionExitPartial, ActionEmergencyExit:
		return true
	}
	return false
}

// Actionable reports whether the caller has anything to do.
func (d Decision) Actionable() bool {
	return d.Action != "" && d.Action != ActionHold
}
