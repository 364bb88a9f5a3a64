package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"vigil/internal/logger"
	"vigil/internal/position"
	"vigil/internal/quant"
)

// EvalContext is everything a stage may consult. Stages are pure readers;
// nothing here is mutated during a run.
type EvalContext struct {
	Position position.Position
	Snapshot position.MarketSnapshot
	Metrics  position.Metrics
	Bias     *position.Bias
	Now      time.Time
	Rules    Rules
}

// Stage is one rule of the decision pipeline. A nil return means "no
// opinion, ask the next stage". Stages must not panic; the pipeline still
// guards each one and converts a panic into a HOLD.
type Stage interface {
	Name() string
	Evaluate(ec EvalContext) *position.Decision
}

// Engine folds an ordered stage list over a position until the first stage
// with an opinion wins. The fixed order is the contract: emergency first,
// plain HOLD last.
type Engine struct {
	mu     sync.RWMutex
	rules  Rules
	calc   *quant.Calculator
	stages []Stage
}

// New assembles the standard nine-stage pipeline. A nil calculator gets the
// current-mode default.
func New(rules Rules, calc *quant.Calculator) *Engine {
	if calc == nil {
		calc = quant.NewCalculator(quant.ModeCurrent)
	}
	return &Engine{
		rules: rules,
		calc:  calc,
		stages: []Stage{
			emergencyStage{},
			timeStage{},
			stopTargetStage{},
			profitLadderStage{},
			oscillatorStage{},
			scaleInStage{},
			trailingStage{},
			marketConditionStage{},
			holdStage{},
		},
	}
}

// Rules returns the active thresholds.
func (e *Engine) Rules() Rules {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rules
}

// SetRules swaps the threshold set (config hot-reload). Evaluations in
// flight finish on the rules they started with.
func (e *Engine) SetRules(r Rules) {
	e.mu.Lock()
	e.rules = r
	e.mu.Unlock()
}

// Evaluate runs one position through the pipeline at the given instant.
// It is total and deterministic: identical inputs yield identical
// decisions (the trace id aside), and no input can make it panic.
func (e *Engine) Evaluate(pos position.Position, snap position.MarketSnapshot, bias *position.Bias, now time.Time) position.Decision {
	ec := EvalContext{
		Position: pos,
		Snapshot: snap,
		Metrics:  position.ComputeMetrics(pos, snap, now),
		Bias:     bias,
		Now:      now,
		Rules:    e.Rules(),
	}
	for _, st := range e.stages {
		d, err := runStage(st, ec)
		if err != nil {
			logger.Warnf("engine: stage %s failed for %s: %v", st.Name(), pos.Symbol, err)
			return e.finalize(position.Decision{
				Action:     position.ActionHold,
				Confidence: 5,
				Urgency:    position.UrgencyLow,
				Reasoning:  fmt.Sprintf("stage %s failed, holding", st.Name()),
				Metadata:   map[string]any{"stage_error": err.Error()},
			}, st, ec)
		}
		if d == nil {
			continue
		}
		if !d.Actionable() && !isHoldStage(st) {
			continue
		}
		return e.finalize(*d, st, ec)
	}
	// Unreachable while holdStage terminates the list; kept as a hard floor.
	return e.finalize(position.Decision{
		Action:     position.ActionHold,
		Confidence: 7,
		Urgency:    position.UrgencyLow,
		Reasoning:  "no stage produced a decision",
	}, holdStage{}, ec)
}

func runStage(st Stage, ec EvalContext) (d *position.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			d = nil
			err = fmt.Errorf("stage panic: %v", r)
		}
	}()
	return st.Evaluate(ec), nil
}

func (e *Engine) finalize(d position.Decision, st Stage, ec EvalContext) position.Decision {
	d.TraceID = uuid.NewString()
	d.Symbol = ec.Position.Symbol
	d.DecidedAt = ec.Now
	if d.Urgency == "" {
		d.Urgency = position.UrgencyLow
	}
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	d.Metadata["stage"] = st.Name()
	d.Metadata["pnl_percent"] = ec.Metrics.PnLPercent
	d.Metadata["age_minutes"] = ec.Metrics.AgeMinutes
	d.Metadata["rsi"] = ec.Metrics.RSI
	if ec.Metrics.RSIEstimated {
		d.Metadata["rsi_estimated"] = true
	}
	d.Metadata["calc_mode"] = e.calc.Mode().String()
	return d
}

func isHoldStage(st Stage) bool {
	_, ok := st.(holdStage)
	return ok
}
