package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"vigil/internal/logger"
	"vigil/internal/metrics"
	"vigil/internal/position"
)

// MarketDataProvider supplies a fresh snapshot per symbol per cycle.
// Implementations own timeouts and rate limits; the loop translates any
// error into the neutral snapshot.
type MarketDataProvider interface {
	Snapshot(ctx context.Context, symbol string) (position.MarketSnapshot, error)
}

// PositionStore is the open-position set. ApplyQuantityChange is called
// after the gateway confirms an exit; delta is signed shares/contracts.
type PositionStore interface {
	OpenPositions(ctx context.Context) ([]position.Position, error)
	ApplyQuantityChange(ctx context.Context, symbol string, delta int64) error
}

// ExitResult is the gateway's acknowledgement of an exit order.
type ExitResult struct {
	OrderID string
	Status  string
}

// ExecutionGateway places exit and stop/target-update orders. Both calls
// must be no-ops at quantityPercent=0 and must reject a repeat exit for an
// already-flat symbol; retries live behind this interface, not in the loop.
type ExecutionGateway interface {
	Exit(ctx context.Context, symbol string, quantityPercent float64) (ExitResult, error)
	UpdateStopOrTarget(ctx context.Context, symbol string, newStop, newTarget float64) error
}

// BiasProvider is the optional external directional opinion. A nil
// provider, or a nil bias, simply disables the scaling stage.
type BiasProvider interface {
	CurrentBias(ctx context.Context) (*position.Bias, error)
}

// JournalRecorder persists actionable decisions for audit. Best effort: a
// journaling failure is logged, never propagated.
type JournalRecorder interface {
	Record(ctx context.Context, d position.Decision) error
}

// Loop drives evaluation sweeps: list open positions, evaluate each
// concurrently under a worker bound, apply actionable decisions with
// per-symbol serialization.
type Loop struct {
	engine   *Engine
	provider MarketDataProvider
	store    PositionStore
	gateway  ExecutionGateway
	bias     BiasProvider
	journal  JournalRecorder

	workers int64
	applier *applier
	nowFn   func() time.Time
}

// LoopOption mutates optional collaborators.
type LoopOption func(*Loop)

func WithBiasProvider(b BiasProvider) LoopOption {
	return func(l *Loop) { l.bias = b }
}

func WithJournal(j JournalRecorder) LoopOption {
	return func(l *Loop) { l.journal = j }
}

func WithWorkers(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.workers = int64(n)
		}
	}
}

func NewLoop(e *Engine, provider MarketDataProvider, store PositionStore, gateway ExecutionGateway, opts ...LoopOption) *Loop {
	l := &Loop{
		engine:   e,
		provider: provider,
		store:    store,
		gateway:  gateway,
		workers:  4,
		nowFn:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.applier = newApplier(gateway, store, l.journal)
	return l
}

// RunCycle performs one full sweep. Only a store listing failure is
// returned as an error; every per-position problem degrades locally.
func (l *Loop) RunCycle(ctx context.Context) error {
	positions, err := l.store.OpenPositions(ctx)
	if err != nil {
		return err
	}
	metrics.OpenPositions.Set(float64(len(positions)))
	if len(positions) == 0 {
		return nil
	}

	bias := l.currentBias(ctx)
	now := l.nowFn()

	sem := semaphore.NewWeighted(l.workers)
	group, gctx := errgroup.WithContext(ctx)
	for _, pos := range positions {
		pos := pos
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		group.Go(func() error {
			defer sem.Release(1)
			l.evaluateOne(gctx, pos, bias, now)
			return nil
		})
	}
	return group.Wait()
}

func (l *Loop) evaluateOne(ctx context.Context, pos position.Position, bias *position.Bias, now time.Time) {
	snap, err := l.provider.Snapshot(ctx, pos.Symbol)
	if err != nil {
		metrics.SnapshotFailures.Inc()
		logger.Warnf("loop: snapshot %s failed, using neutral: %v", pos.Symbol, err)
		snap = position.NeutralSnapshot(pos.Symbol)
	}

	d := l.engine.Evaluate(pos, snap, bias, now)
	metrics.EvaluationsTotal.Inc()
	metrics.DecisionsTotal.WithLabelValues(string(d.Action)).Inc()

	if !d.Actionable() {
		logger.Debugf("loop: %s hold (%s)", pos.Symbol, d.Reasoning)
		return
	}
	logger.Infof("loop: %s -> %s %s qty=%.0f%% (%s)", pos.Symbol, d.Action, d.ExitReason, d.QuantityPercent, d.Reasoning)
	if err := l.applier.Apply(ctx, pos, d); err != nil {
		metrics.ApplyFailures.Inc()
		logger.Errorf("loop: apply %s for %s failed: %v", d.Action, pos.Symbol, err)
	}
}

// SquareOffSweep force-closes every open position, superseding whatever a
// regular cycle would have decided. Used by the square-off scheduler at the
// hard deadline.
func (l *Loop) SquareOffSweep(ctx context.Context) error {
	positions, err := l.store.OpenPositions(ctx)
	if err != nil {
		return err
	}
	now := l.nowFn()
	for _, pos := range positions {
		d := l.engine.Evaluate(pos, position.NeutralSnapshot(pos.Symbol), nil, now)
		if d.ExitReason != position.ReasonIntradaySquareOff {
			// Deadline not actually reached (clock skew or early trigger);
			// fall back to an explicit forced close.
			d.Action = position.ActionEmergencyExit
			d.ExitReason = position.ReasonIntradaySquareOff
			d.Confidence = 10
			d.Urgency = position.UrgencyEmergency
			d.QuantityPercent = 100
			d.Reasoning = "forced square-off sweep"
		}
		if err := l.applier.Apply(ctx, pos, d); err != nil {
			metrics.ApplyFailures.Inc()
			logger.Errorf("loop: square-off %s failed: %v", pos.Symbol, err)
		}
	}
	return nil
}

func (l *Loop) currentBias(ctx context.Context) *position.Bias {
	if l.bias == nil {
		return nil
	}
	b, err := l.bias.CurrentBias(ctx)
	if err != nil {
		logger.Debugf("loop: bias unavailable: %v", err)
		return nil
	}
	return b
}
