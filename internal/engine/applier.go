package engine

import (
	"context"
	"fmt"
	"math"
	"sync"

	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/position"
)

// applier serializes decision application per symbol: two decisions for the
// same symbol never race, while distinct symbols proceed independently.
// Idempotency for retried exits is the gateway's contract.
type applier struct {
	gateway ExecutionGateway
	store   PositionStore
	journal JournalRecorder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newApplier(gateway ExecutionGateway, store PositionStore, journal JournalRecorder) *applier {
	return &applier{
		gateway: gateway,
		store:   store,
		journal: journal,
		locks:   map[string]*sync.Mutex{},
	}
}

func (a *applier) symbolLock(symbol string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		a.locks[symbol] = l
	}
	return l
}

func (a *applier) Apply(ctx context.Context, pos position.Position, d position.Decision) error {
	lock := a.symbolLock(pos.Symbol)
	lock.Lock()
	defer lock.Unlock()

	a.record(ctx, d)

	switch d.Action {
	case position.ActionExitFull, position.ActionExitPartial, position.ActionEmergencyExit:
		return a.applyExit(ctx, pos, d)
	case position.ActionTrailStop, position.ActionAdjustStop:
		return a.updateLevels(ctx, pos.Symbol, d.NewStopLoss, 0)
	case position.ActionAdjustTarget:
		return a.updateLevels(ctx, pos.Symbol, 0, d.NewTarget)
	case position.ActionScaleIn:
		// Entry orders belong to the signal system; the journal entry above
		// is the hand-off.
		logger.Infof("applier: scale-in signal for %s recorded (%.0f%%)", pos.Symbol, d.QuantityPercent)
		return nil
	case position.ActionHold, "":
		return nil
	default:
		return fmt.Errorf("applier: unknown action %q", d.Action)
	}
}

func (a *applier) applyExit(ctx context.Context, pos position.Position, d position.Decision) error {
	pct := d.QuantityPercent
	if pct <= 0 {
		return nil
	}
	if pct > 100 {
		pct = 100
	}
	res, err := a.gateway.Exit(ctx, pos.Symbol, pct)
	if err != nil {
		return fmt.Errorf("exit %s: %w", pos.Symbol, err)
	}
	metrics.AppliesTotal.Inc()

	delta := exitDelta(pos.Quantity, pct)
	if delta != 0 {
		if err := a.store.ApplyQuantityChange(ctx, pos.Symbol, delta); err != nil {
			return fmt.Errorf("quantity change %s after order %s: %w", pos.Symbol, res.OrderID, err)
		}
	}
	// Pull the stop along on a partial book when the decision tightened it.
	if d.Action == position.ActionExitPartial && d.NewStopLoss > 0 {
		if err := a.updateLevels(ctx, pos.Symbol, d.NewStopLoss, 0); err != nil {
			logger.Warnf("applier: stop update after partial exit %s failed: %v", pos.Symbol, err)
		}
	}
	return nil
}

func (a *applier) updateLevels(ctx context.Context, symbol string, stop, target float64) error {
	if stop <= 0 && target <= 0 {
		return nil
	}
	if err := a.gateway.UpdateStopOrTarget(ctx, symbol, stop, target); err != nil {
		return fmt.Errorf("update levels %s: %w", symbol, err)
	}
	metrics.AppliesTotal.Inc()
	return nil
}

func (a *applier) record(ctx context.Context, d position.Decision) {
	if a.journal == nil {
		return
	}
	if err := a.journal.Record(ctx, d); err != nil {
		logger.Warnf("applier: journal %s failed: %v", d.Symbol, err)
	}
}

// exitDelta converts an exit percentage into a signed quantity change that
// shrinks the position toward flat.
func exitDelta(quantity int64, pct float64) int64 {
	if quantity == 0 || pct <= 0 {
		return 0
	}
	exited := int64(math.Round(math.Abs(float64(quantity)) * pct / 100))
	if exited == 0 {
		return 0
	}
	if quantity > 0 {
		return -exited
	}
	return exited
}
