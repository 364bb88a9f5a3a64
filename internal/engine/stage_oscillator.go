package engine

import (
	"fmt"

	"vigil/internal/position"
)

// oscillatorStage reacts to RSI extremes, fully direction-aware. An extreme
// in the position's favor is a cue to book into strength; an extreme
// against it is a threat that tightens or closes.
type oscillatorStage struct{}

func (oscillatorStage) Name() string { return "oscillator_extreme" }

func (oscillatorStage) Evaluate(ec EvalContext) *position.Decision {
	if ec.Snapshot.CurrentPrice <= 0 {
		return nil
	}
	var d *position.Decision
	if ec.Position.Side == position.SideSell {
		d = evalShortOscillator(ec)
	} else {
		d = evalLongOscillator(ec)
	}
	return lotAware(ec, d)
}

// lotAware downgrades a partial book to a protective stop tighten for
// lot-traded options, which cannot shed partial size.
func lotAware(ec EvalContext, d *position.Decision) *position.Decision {
	if d == nil || d.Action != position.ActionExitPartial || !ec.Position.IsOption() {
		return d
	}
	if d.NewStopLoss <= 0 {
		return nil
	}
	return &position.Decision{
		Action:      position.ActionTrailStop,
		Confidence:  d.Confidence,
		Urgency:     d.Urgency,
		NewStopLoss: d.NewStopLoss,
		Reasoning:   d.Reasoning + " (lot-traded, tightening stop instead of partial exit)",
		Metadata:    d.Metadata,
	}
}

func evalLongOscillator(ec EvalContext) *position.Decision {
	r := ec.Rules
	m := ec.Metrics
	price := ec.Snapshot.CurrentPrice
	side := ec.Position.Side

	if m.RSI >= r.RSIExtreme {
		if m.Profitable() {
			return &position.Decision{
				Action:          position.ActionExitPartial,
				ExitReason:      position.ReasonProfitBooking,
				Confidence:      8,
				Urgency:         position.UrgencyHigh,
				QuantityPercent: 50,
				NewStopLoss:     relativePrice(price, -0.005, side),
				Reasoning:       fmt.Sprintf("RSI %.0f overbought with %.2f%% gain, booking half and tightening", m.RSI, m.PnLPercent),
			}
		}
		return &position.Decision{
			Action:      position.ActionTrailStop,
			Confidence:  7,
			Urgency:     position.UrgencyHigh,
			NewStopLoss: relativePrice(price, -0.01, side),
			Reasoning:   fmt.Sprintf("RSI %.0f overbought while underwater, tightening stop", m.RSI),
		}
	}

	if m.RSI >= r.RSIStretched && m.PnLPercent >= r.StretchMinPnL {
		return &position.Decision{
			Action:          position.ActionExitPartial,
			ExitReason:      position.ReasonProfitBooking,
			Confidence:      7,
			Urgency:         position.UrgencyMedium,
			QuantityPercent: 30,
			NewStopLoss:     relativePrice(ec.Position.EntryPrice, 0.002, side),
			Reasoning:       fmt.Sprintf("RSI %.0f stretched with %.2f%% gain, trimming and moving stop past entry", m.RSI, m.PnLPercent),
		}
	}
	return nil
}

func evalShortOscillator(ec EvalContext) *position.Decision {
	r := ec.Rules
	m := ec.Metrics
	price := ec.Snapshot.CurrentPrice
	side := ec.Position.Side

	// Price rallying hard against the short.
	if m.RSI >= r.RSIExtreme {
		if m.PnLPercent < -1 {
			return &position.Decision{
				Action:          position.ActionExitFull,
				ExitReason:      position.ReasonRiskManagement,
				Confidence:      9,
				Urgency:         position.UrgencyEmergency,
				QuantityPercent: 100,
				Reasoning:       fmt.Sprintf("RSI %.0f rally against short at %.2f%%, closing", m.RSI, m.PnLPercent),
			}
		}
		return &position.Decision{
			Action:      position.ActionTrailStop,
			Confidence:  7,
			Urgency:     position.UrgencyHigh,
			NewStopLoss: relativePrice(price, -0.005, side),
			Reasoning:   fmt.Sprintf("RSI %.0f rally against short, tightening stop", m.RSI),
		}
	}
	if m.RSI >= r.RSIStretched && m.PnLPercent < 0 {
		return &position.Decision{
			Action:      position.ActionTrailStop,
			Confidence:  6,
			Urgency:     position.UrgencyMedium,
			NewStopLoss: relativePrice(price, -0.01, side),
			Reasoning:   fmt.Sprintf("RSI %.0f against losing short, tightening stop", m.RSI),
		}
	}

	// Oversold extremes are favorable for shorts; mirror the long branches.
	if m.RSI <= 100-r.RSIExtreme {
		if m.Profitable() {
			return &position.Decision{
				Action:          position.ActionExitPartial,
				ExitReason:      position.ReasonProfitBooking,
				Confidence:      8,
				Urgency:         position.UrgencyHigh,
				QuantityPercent: 50,
				NewStopLoss:     relativePrice(price, -0.005, side),
				Reasoning:       fmt.Sprintf("RSI %.0f oversold with %.2f%% gain on short, booking half", m.RSI, m.PnLPercent),
			}
		}
		return &position.Decision{
			Action:      position.ActionTrailStop,
			Confidence:  7,
			Urgency:     position.UrgencyHigh,
			NewStopLoss: relativePrice(price, -0.01, side),
			Reasoning:   fmt.Sprintf("RSI %.0f oversold while short underwater, tightening stop", m.RSI),
		}
	}
	if m.RSI <= 100-r.RSIStretched && m.PnLPercent >= r.StretchMinPnL {
		return &position.Decision{
			Action:          position.ActionExitPartial,
			ExitReason:      position.ReasonProfitBooking,
			Confidence:      7,
			Urgency:         position.UrgencyMedium,
			QuantityPercent: 30,
			NewStopLoss:     relativePrice(ec.Position.EntryPrice, 0.002, side),
			Reasoning:       fmt.Sprintf("RSI %.0f stretched low with %.2f%% gain on short, trimming", m.RSI, m.PnLPercent),
		}
	}
	return nil
}
