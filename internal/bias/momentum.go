// Package bias derives the market-direction opinion the scaling stage
// consumes. The momentum provider scores a reference index (NIFTY by
// default) instead of the position's own symbol so one opinion applies
// across the book consistently.
package bias

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"vigil/internal/engine"
	"vigil/internal/logger"
	"vigil/internal/position"
	"vigil/internal/quant"
)

// CloseSource supplies trailing closes for the reference symbol, oldest
// first. *marketdata.Client satisfies it.
type CloseSource interface {
	RecentCloses(ctx context.Context, symbol string, limit int) ([]float64, error)
}

type Momentum struct {
	source   CloseSource
	calc     *quant.Calculator
	symbol   string
	lookback int
	ttl      time.Duration

	mu        sync.Mutex
	cached    *position.Bias
	fetchedAt time.Time
	nowFn     func() time.Time
}

var _ engine.BiasProvider = (*Momentum)(nil)

func NewMomentum(source CloseSource, calc *quant.Calculator, symbol string) *Momentum {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		sym = "NIFTY"
	}
	return &Momentum{
		source:   source,
		calc:     calc,
		symbol:   sym,
		lookback: 20,
		ttl:      time.Minute,
		nowFn:    time.Now,
	}
}

// CurrentBias implements engine.BiasProvider. A weak or unreadable signal
// yields a nil bias, which disables scaling for the cycle rather than
// failing it.
func (m *Momentum) CurrentBias(ctx context.Context) (*position.Bias, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()
	if m.fetchedAt.Add(m.ttl).After(now) {
		return m.cached, nil
	}

	closes, err := m.source.RecentCloses(ctx, m.symbol, m.lookback*3)
	if err != nil {
		logger.Warnf("bias: closes for %s unavailable: %v", m.symbol, err)
		m.cached, m.fetchedAt = nil, now
		return nil, nil
	}

	m.cached = m.score(closes)
	m.fetchedAt = now
	return m.cached, nil
}

// score maps the vol-normalized momentum score onto a direction and a
// 0-10 confidence. Momentum alone is noisy, so trend strength gates it:
// no statistically significant trend means no opinion.
func (m *Momentum) score(closes []float64) *position.Bias {
	mom := m.calc.MomentumScore(closes, m.lookback)
	trend := m.calc.TrendStrength(closes, m.lookback)
	if trend == 0 || mom == 0 {
		return nil
	}
	if (mom > 0) != (trend > 0) {
		return nil
	}

	dir := position.SideBuy
	if mom < 0 {
		dir = position.SideSell
	}
	// |mom| is in vol units; 2 vols of blended return saturates the scale.
	conf := math.Abs(mom) / 2 * 10
	if conf > 10 {
		conf = 10
	}
	return &position.Bias{Direction: dir, Confidence: conf}
}
