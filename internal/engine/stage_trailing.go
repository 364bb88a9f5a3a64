package engine

import (
	"fmt"

	"vigil/internal/position"
)

// trailingStage manages the protective stop. Momentum-reversal tightening
// is checked first: a losing position with the technicals turned against it
// gets its stop pulled to half a percent regardless of profit-based
// trailing. Lot-traded options use tiered widths since they cannot be
// partially exited; equities trail flat once activated. A proposed stop
// that would loosen the existing one is discarded.
type trailingStage struct{}

func (trailingStage) Name() string { return "trailing_stop" }

func (trailingStage) Evaluate(ec EvalContext) *position.Decision {
	price := ec.Snapshot.CurrentPrice
	if price <= 0 {
		return nil
	}

	if d := reversalTighten(ec); d != nil {
		return d
	}
	if ec.Position.IsOption() {
		return optionTrail(ec)
	}
	return equityTrail(ec)
}

// reversalTighten fires when the position is losing and the technical
// evidence sides with the other direction.
func reversalTighten(ec EvalContext) *position.Decision {
	m := ec.Metrics
	if m.PnLPercent >= 0 {
		return nil
	}
	r := ec.Rules
	side := ec.Position.Side

	against := false
	var evidence string
	if side == position.SideSell {
		switch {
		case m.MACD == position.MACDBullish:
			against, evidence = true, "MACD bullish"
		case m.BuyPressure > 0.60:
			against, evidence = true, fmt.Sprintf("buy pressure %.2f", m.BuyPressure)
		case m.RSI > 100-r.ReversalRSILong:
			against, evidence = true, fmt.Sprintf("RSI %.0f against short", m.RSI)
		}
	} else {
		switch {
		case m.MACD == position.MACDBearish:
			against, evidence = true, "MACD bearish"
		case m.SellPressure > 0.60:
			against, evidence = true, fmt.Sprintf("sell pressure %.2f", m.SellPressure)
		case m.RSI < r.ReversalRSILong:
			against, evidence = true, fmt.Sprintf("RSI %.0f while losing", m.RSI)
		}
	}
	if !against {
		return nil
	}

	proposed := relativePrice(ec.Snapshot.CurrentPrice, -r.ReversalTightenPct/100, side)
	if !tightens(side, proposed, ec.Position.StopLoss) {
		return nil
	}
	return &position.Decision{
		Action:      position.ActionTrailStop,
		Confidence:  8,
		Urgency:     position.UrgencyHigh,
		NewStopLoss: proposed,
		Reasoning:   fmt.Sprintf("losing %.2f%% with %s, tightening stop to %.2f", m.PnLPercent, evidence, proposed),
		Metadata:    map[string]any{"reversal_evidence": evidence},
	}
}

func optionTrail(ec EvalContext) *position.Decision {
	m := ec.Metrics
	for _, tier := range ec.Rules.OptionTrailTiers {
		if m.PnLPercent >= tier.MinPnLPct {
			return trailTo(ec, tier.TrailPct, fmt.Sprintf("option gain %.2f%% past %.1f%% tier", m.PnLPercent, tier.MinPnLPct))
		}
	}
	return nil
}

func equityTrail(ec EvalContext) *position.Decision {
	m := ec.Metrics
	r := ec.Rules
	if m.PnLPercent <= r.TrailActivationPct {
		return nil
	}
	return trailTo(ec, r.TrailEquityPct, fmt.Sprintf("gain %.2f%% past activation %.1f%%", m.PnLPercent, r.TrailActivationPct))
}

func trailTo(ec EvalContext, trailPct float64, why string) *position.Decision {
	side := ec.Position.Side
	proposed := relativePrice(ec.Snapshot.CurrentPrice, -trailPct/100, side)
	if !tightens(side, proposed, ec.Position.StopLoss) {
		return nil
	}
	return &position.Decision{
		Action:      position.ActionTrailStop,
		Confidence:  7,
		Urgency:     position.UrgencyMedium,
		NewStopLoss: proposed,
		Reasoning:   fmt.Sprintf("%s, trailing %.1f%% to %.2f", why, trailPct, proposed),
		Metadata:    map[string]any{"trail_percent": trailPct},
	}
}
