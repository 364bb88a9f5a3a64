package engine

import (
	"fmt"

	"vigil/internal/position"
)

// scaleInStage adds to a working position, but only early, only when it is
// already well in the money, and only with an external directional bias
// confidently agreeing with the side. No bias provider means no scaling.
type scaleInStage struct{}

func (scaleInStage) Name() string { return "position_scaling" }

func (scaleInStage) Evaluate(ec EvalContext) *position.Decision {
	r := ec.Rules
	m := ec.Metrics

	if ec.Bias == nil {
		return nil
	}
	if m.PnLPercent < r.ScaleInMinPnL || m.AgeMinutes > r.ScaleInMaxAgeMin {
		return nil
	}
	if ec.Bias.Direction != ec.Position.Side || ec.Bias.Confidence <= r.ScaleInMinBiasConf {
		return nil
	}
	return &position.Decision{
		Action:          position.ActionScaleIn,
		Confidence:      8,
		Urgency:         position.UrgencyMedium,
		QuantityPercent: r.ScaleInPercent,
		Reasoning: fmt.Sprintf("%.2f%% gain in %.0f min with %s bias at %.1f/10, adding %.0f%%",
			m.PnLPercent, m.AgeMinutes, ec.Bias.Direction, ec.Bias.Confidence, r.ScaleInPercent),
		Metadata: map[string]any{"bias_confidence": ec.Bias.Confidence},
	}
}
