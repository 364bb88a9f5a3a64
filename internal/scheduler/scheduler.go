// Package scheduler drives the evaluation loop on exchange time. The
// aligned scheduler fires cycles on clock-aligned boundaries during the
// session; the square-off runner fires the forced-flat sweep once per
// trading day.
package scheduler

import (
	"context"
	"time"

	"vigil/internal/logger"
)

// AlignedScheduler runs a task on interval boundaries aligned to the wall
// clock (a 1m interval fires at :00 of every minute), but only while the
// calendar says the session is live. Outside the session it sleeps until
// the next open.
type AlignedScheduler struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx      context.Context
	calendar *Calendar
	nowFn    func() time.Time
	sleepFn  func(context.Context, time.Duration) bool
}

func NewAlignedScheduler(ctx context.Context, interval, offset time.Duration, cal *Calendar) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	if cal == nil {
		cal = DefaultCalendar()
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		calendar: cal,
		nowFn:    time.Now,
		sleepFn:  sleepCtx,
	}
}

// Start blocks until ctx is done, invoking task on every aligned boundary
// inside the session.
func (s *AlignedScheduler) Start(task func()) {
	if s == nil || task == nil {
		logger.Warnf("AlignedScheduler: nil task, exit")
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("AlignedScheduler: invalid interval=%s, exit", s.Interval)
		return
	}
	if s.Offset < 0 {
		s.Offset = 0
	}

	logger.Infof("AlignedScheduler: started interval=%s offset=%s run_immediately=%v",
		s.Interval, s.Offset, s.RunImmediately)

	if s.RunImmediately && s.calendar.InSession(s.nowFn()) {
		task()
	}

	for {
		now := s.nowFn()

		if !s.calendar.InSession(now) {
			open := s.calendar.NextOpen(now)
			wait := open.Sub(now)
			logger.Infof("AlignedScheduler: session closed, sleeping until open=%s (in %s)",
				open.Format(time.RFC3339), wait.Truncate(time.Second))
			if !s.sleepFn(s.ctx, wait) {
				logger.Infof("AlignedScheduler: ctx done, exit")
				return
			}
			continue
		}

		wakeAt := now.Truncate(s.Interval).Add(s.Interval).Add(s.Offset)
		if wait := wakeAt.Sub(now); wait > 0 {
			if !s.sleepFn(s.ctx, wait) {
				logger.Infof("AlignedScheduler: ctx done, exit")
				return
			}
		}
		if !s.calendar.InSession(s.nowFn()) {
			continue
		}
		task()
	}
}

// sleepCtx sleeps for d, returning false when ctx fires first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
