// Package gormstore persists open positions and the decision journal in
// SQLite via Gorm. It backs both engine.PositionStore and
// engine.JournalRecorder so one database file holds the whole audit trail.
package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vigil/internal/engine"
	"vigil/internal/position"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var (
	_ engine.PositionStore   = (*Store)(nil)
	_ engine.JournalRecorder = (*Store)(nil)
)

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path must not be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&PositionModel{}, &DecisionModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: keep the pool small so writer lock contention stays low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying *sql.DB for shared connections.
func (s *Store) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	return s.db.DB()
}

// --------------------- positions -------------------------

// Put inserts the position, or replaces the open row for the same symbol.
func (s *Store) Put(ctx context.Context, pos position.Position) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	sym := strings.ToUpper(strings.TrimSpace(pos.Symbol))
	if sym == "" {
		return fmt.Errorf("gorm store: empty symbol")
	}
	if !pos.Side.Valid() {
		return fmt.Errorf("gorm store: invalid side %q for %s", pos.Side, sym)
	}
	model, err := newPositionModel(pos)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing PositionModel
		err := tx.Where("symbol = ? AND closed_at IS NULL", sym).First(&existing).Error
		switch {
		case err == nil:
			model.ID = existing.ID
			model.OpenedAt = existing.OpenedAt
			return tx.Save(&model).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(&model).Error
		default:
			return err
		}
	})
}

func (s *Store) OpenPositions(ctx context.Context) ([]position.Position, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	var models []PositionModel
	if err := s.db.WithContext(ctx).Where("closed_at IS NULL").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]position.Position, 0, len(models))
	for _, m := range models {
		out = append(out, positionFromModel(m))
	}
	return out, nil
}

// ApplyQuantityChange shifts the open quantity toward flat. Reaching zero
// (or crossing sides, which a sane delta never does) soft-closes the row.
func (s *Store) ApplyQuantityChange(ctx context.Context, symbol string, delta int64) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m PositionModel
		if err := tx.Where("symbol = ? AND closed_at IS NULL", sym).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("gorm store: no open position for %s", sym)
			}
			return err
		}
		next := m.Quantity + delta
		now := time.Now()
		if next == 0 || (next > 0) != (m.Quantity > 0) {
			m.Quantity = 0
			m.ClosedAt = &now
		} else {
			m.Quantity = next
		}
		m.UpdatedAt = now
		return tx.Save(&m).Error
	})
}

// --------------------- decision journal -------------------------

// Record appends the decision to the journal. Duplicate trace IDs are
// silently skipped so a retried apply never double-logs.
func (s *Store) Record(ctx context.Context, d position.Decision) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	model, err := newDecisionModel(d)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Create(&model).Error
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "unique") {
		return nil
	}
	return err
}

// RecentDecisions lists the newest journal entries, most recent first.
func (s *Store) RecentDecisions(ctx context.Context, limit int) ([]position.Decision, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	var models []DecisionModel
	if err := s.db.WithContext(ctx).Order("decided_at DESC, id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]position.Decision, 0, len(models))
	for _, m := range models {
		out = append(out, decisionFromModel(m))
	}
	return out, nil
}

// --------------------- model conversion -------------------------

func newPositionModel(pos position.Position) (PositionModel, error) {
	meta, err := marshalMeta(pos.Metadata)
	if err != nil {
		return PositionModel{}, err
	}
	now := time.Now()
	return PositionModel{
		Symbol:     strings.ToUpper(strings.TrimSpace(pos.Symbol)),
		Side:       string(pos.Side),
		EntryPrice: pos.EntryPrice,
		Quantity:   pos.Quantity,
		StopLoss:   pos.StopLoss,
		Target:     pos.Target,
		EntryTime:  pos.EntryTime.UnixMilli(),
		Metadata:   meta,
		OpenedAt:   now,
		UpdatedAt:  now,
	}, nil
}

func positionFromModel(m PositionModel) position.Position {
	return position.Position{
		Symbol:     m.Symbol,
		Side:       position.Side(m.Side),
		EntryPrice: m.EntryPrice,
		Quantity:   m.Quantity,
		StopLoss:   m.StopLoss,
		Target:     m.Target,
		EntryTime:  time.UnixMilli(m.EntryTime),
		Metadata:   unmarshalMeta(m.Metadata),
	}
}

func newDecisionModel(d position.Decision) (DecisionModel, error) {
	meta, err := marshalMeta(d.Metadata)
	if err != nil {
		return DecisionModel{}, err
	}
	return DecisionModel{
		TraceID:         d.TraceID,
		Symbol:          d.Symbol,
		Action:          string(d.Action),
		ExitReason:      string(d.ExitReason),
		Urgency:         string(d.Urgency),
		Confidence:      d.Confidence,
		QuantityPercent: d.QuantityPercent,
		NewStopLoss:     d.NewStopLoss,
		NewTarget:       d.NewTarget,
		Reasoning:       d.Reasoning,
		Metadata:        meta,
		DecidedAtUnix:   d.DecidedAt.UnixMilli(),
		CreatedAt:       time.Now(),
	}, nil
}

func decisionFromModel(m DecisionModel) position.Decision {
	return position.Decision{
		TraceID:         m.TraceID,
		Symbol:          m.Symbol,
		Action:          position.Action(m.Action),
		ExitReason:      position.ExitReason(m.ExitReason),
		Urgency:         position.Urgency(m.Urgency),
		Confidence:      m.Confidence,
		QuantityPercent: m.QuantityPercent,
		NewStopLoss:     m.NewStopLoss,
		NewTarget:       m.NewTarget,
		Reasoning:       m.Reasoning,
		Metadata:        unmarshalMeta(m.Metadata),
		DecidedAt:       time.UnixMilli(m.DecidedAtUnix),
	}
}

func marshalMeta(meta map[string]any) (datatypes.JSON, error) {
	if len(meta) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("gorm store: marshal metadata: %w", err)
	}
	return datatypes.JSON(raw), nil
}

func unmarshalMeta(raw datatypes.JSON) map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var meta map[string]any
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil
	}
	return meta
}
