package scheduler

import (
	"context"
	"time"

	"vigil/internal/logger"
)

// SquareOffRunner fires sweep exactly once per trading day at the
// deadline the deadline function reports (the engine computes it from its
// rules, so a rules hot-reload moves the firing time too).
type SquareOffRunner struct {
	calendar *Calendar
	deadline func(now time.Time) time.Time
	sweep    func(ctx context.Context) error

	nowFn   func() time.Time
	sleepFn func(context.Context, time.Duration) bool
}

func NewSquareOffRunner(cal *Calendar, deadline func(time.Time) time.Time, sweep func(context.Context) error) *SquareOffRunner {
	if cal == nil {
		cal = DefaultCalendar()
	}
	return &SquareOffRunner{
		calendar: cal,
		deadline: deadline,
		sweep:    sweep,
		nowFn:    time.Now,
		sleepFn:  sleepCtx,
	}
}

// Run blocks until ctx is done. Starting after today's deadline skips
// straight to the next trading day instead of firing late.
func (r *SquareOffRunner) Run(ctx context.Context) {
	for {
		now := r.nowFn()
		at := r.nextDeadline(now)
		logger.Infof("square-off: next sweep at %s (in %s)",
			at.Format(time.RFC3339), at.Sub(now).Truncate(time.Second))

		if !r.sleepFn(ctx, at.Sub(now)) {
			logger.Infof("square-off: ctx done, exit")
			return
		}
		if err := r.sweep(ctx); err != nil {
			logger.Errorf("square-off: sweep failed: %v", err)
		} else {
			logger.Infof("square-off: sweep complete")
		}

		// Step past the deadline just fired so the next iteration
		// computes the following trading day's.
		r.nowFn = nextDayNowFn(r.nowFn, at)
	}
}

func (r *SquareOffRunner) nextDeadline(now time.Time) time.Time {
	local := now.In(r.calendar.Location())
	for i := 0; i < 366; i++ {
		day := local.AddDate(0, 0, i)
		if !r.calendar.IsTradingDay(day) {
			continue
		}
		at := r.deadline(day)
		if at.After(local) {
			return at
		}
	}
	return r.deadline(local.AddDate(0, 0, 1))
}

// nextDayNowFn clamps the runner's clock forward past a fired deadline.
// Wall-clock now is already past it in production; tests with a frozen
// clock rely on the clamp to avoid refiring the same day.
func nextDayNowFn(base func() time.Time, fired time.Time) func() time.Time {
	floor := fired.Add(time.Second)
	return func() time.Time {
		now := base()
		if now.Before(floor) {
			return floor
		}
		return now
	}
}
