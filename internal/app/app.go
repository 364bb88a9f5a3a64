// Package app wires the decision engine together: config, feed client,
// stores, gateways, schedulers, metrics. NewApp builds, Run orchestrates.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"vigil/internal/config"
	"vigil/internal/engine"
	"vigil/internal/logger"
	"vigil/internal/scheduler"
)

type App struct {
	cfg      *config.Config
	watcher  *config.Watcher
	engine   *engine.Engine
	loop     *engine.Loop
	sched    *scheduler.AlignedScheduler
	squarer  *scheduler.SquareOffRunner
	closeFns []func() error
}

// NewApp builds the application from config without starting anything.
func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, opts)
}

// Run blocks until ctx is done or a component fails. The evaluation
// scheduler, the square-off runner and the metrics endpoint run as one
// errgroup; the first hard failure tears everything down.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()

	group, ctx := errgroup.WithContext(ctx)

	if addr := a.cfg.App.MetricsAddr; addr != "" {
		srv := &http.Server{Addr: addr, Handler: promhttp.Handler()}
		group.Go(func() error {
			logger.Infof("metrics listening on %s", addr)
			err := srv.ListenAndServe()
			if err == http.ErrServerClosed {
				return nil
			}
			return fmt.Errorf("metrics server: %w", err)
		})
		group.Go(func() error {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			return srv.Shutdown(shutCtx)
		})
	}

	group.Go(func() error {
		a.squarer.Run(ctx)
		return nil
	})

	group.Go(func() error {
		a.sched.Start(func() {
			if err := a.loop.RunCycle(ctx); err != nil {
				logger.Errorf("evaluation cycle failed: %v", err)
			}
		})
		return nil
	})

	return group.Wait()
}

// Loop exposes the evaluation loop for replay harnesses.
func (a *App) Loop() *engine.Loop {
	if a == nil {
		return nil
	}
	return a.loop
}

func (a *App) close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		if err := a.closeFns[i](); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}
}
