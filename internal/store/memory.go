// Package store holds the open-position set implementations. The decision
// core depends only on the engine.PositionStore interface; Memory is the
// canonical in-process implementation, gormstore the durable one.
package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"vigil/internal/engine"
	"vigil/internal/position"
)

// Memory is a concurrency-safe in-memory position store.
type Memory struct {
	mu        sync.RWMutex
	positions map[string]position.Position
}

func NewMemory() *Memory {
	return &Memory{positions: map[string]position.Position{}}
}

var _ engine.PositionStore = (*Memory)(nil)

// Put inserts or replaces the position for its symbol.
func (m *Memory) Put(pos position.Position) error {
	sym := strings.ToUpper(strings.TrimSpace(pos.Symbol))
	if sym == "" {
		return fmt.Errorf("store: empty symbol")
	}
	if pos.Quantity == 0 {
		return fmt.Errorf("store: zero quantity for %s", sym)
	}
	if !pos.Side.Valid() {
		return fmt.Errorf("store: invalid side %q for %s", pos.Side, sym)
	}
	pos.Symbol = sym
	m.mu.Lock()
	m.positions[sym] = pos
	m.mu.Unlock()
	return nil
}

func (m *Memory) OpenPositions(context.Context) ([]position.Position, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]position.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

// ApplyQuantityChange shifts the open quantity toward flat; the position is
// removed from the open set when it reaches zero or crosses sides.
func (m *Memory) ApplyQuantityChange(_ context.Context, symbol string, delta int64) error {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[sym]
	if !ok {
		return fmt.Errorf("store: no open position for %s", sym)
	}
	next := pos.Quantity + delta
	if next == 0 || (next > 0) != (pos.Quantity > 0) {
		delete(m.positions, sym)
		return nil
	}
	pos.Quantity = next
	m.positions[sym] = pos
	return nil
}

// Get returns the open position for a symbol, if any.
func (m *Memory) Get(symbol string) (position.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.positions[strings.ToUpper(strings.TrimSpace(symbol))]
	return p, ok
}
