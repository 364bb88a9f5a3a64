// Package execution holds the order-placement side of the engine. The
// decision core only ever talks to the engine.ExecutionGateway interface;
// Paper is the reference implementation used for dry runs and tests.
package execution

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"vigil/internal/engine"
	"vigil/internal/logger"
)

// Order statuses reported by the paper gateway.
const (
	StatusFilled    = "filled"
	StatusNoop      = "noop"
	StatusDuplicate = "duplicate"
)

// Paper is an in-memory, idempotent execution gateway. It tracks remaining
// size per symbol so a retried exit for an already-flat position resolves
// to a duplicate no-op instead of a double exit.
type Paper struct {
	mu        sync.Mutex
	remaining map[string]float64 // percent of original size still open
	stops     map[string]float64
	targets   map[string]float64
}

func NewPaper() *Paper {
	return &Paper{
		remaining: map[string]float64{},
		stops:     map[string]float64{},
		targets:   map[string]float64{},
	}
}

var _ engine.ExecutionGateway = (*Paper)(nil)

func (p *Paper) Exit(_ context.Context, symbol string, quantityPercent float64) (engine.ExitResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || quantityPercent <= 0 {
		return engine.ExitResult{Status: StatusNoop}, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	left, seen := p.remaining[symbol]
	if !seen {
		left = 100
	}
	if left <= 0 {
		logger.Debugf("execution: duplicate exit for flat %s ignored", symbol)
		return engine.ExitResult{Status: StatusDuplicate}, nil
	}

	exited := left * quantityPercent / 100
	p.remaining[symbol] = left - exited
	id := uuid.NewString()
	logger.Infof("execution: %s exit %.0f%% (order %s, %.1f%% remains)", symbol, quantityPercent, id, p.remaining[symbol])
	return engine.ExitResult{OrderID: id, Status: StatusFilled}, nil
}

func (p *Paper) UpdateStopOrTarget(_ context.Context, symbol string, newStop, newTarget float64) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || (newStop <= 0 && newTarget <= 0) {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if newStop > 0 {
		p.stops[symbol] = newStop
	}
	if newTarget > 0 {
		p.targets[symbol] = newTarget
	}
	return nil
}

// Levels reports the last stop/target applied for a symbol.
func (p *Paper) Levels(symbol string) (stop, target float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return p.stops[symbol], p.targets[symbol]
}

// Remaining reports the percentage of the original size still open;
// symbols never exited report 100.
func (p *Paper) Remaining(symbol string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	left, seen := p.remaining[strings.ToUpper(strings.TrimSpace(symbol))]
	if !seen {
		return 100
	}
	return left
}
