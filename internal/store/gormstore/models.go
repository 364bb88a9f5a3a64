package gormstore

import (
	"time"

	"gorm.io/datatypes"
)

// PositionModel is the persisted form of an open position. One row per
// symbol; a row is soft-closed rather than deleted so the intraday
// history survives a restart.
type PositionModel struct {
	ID         int64          `gorm:"column:id;primaryKey"`
	Symbol     string         `gorm:"column:symbol;uniqueIndex:idx_positions_symbol_open,where:closed_at IS NULL"`
	Side       string         `gorm:"column:side"`
	EntryPrice float64        `gorm:"column:entry_price"`
	Quantity   int64          `gorm:"column:quantity"`
	StopLoss   float64        `gorm:"column:stop_loss"`
	Target     float64        `gorm:"column:target"`
	EntryTime  int64          `gorm:"column:entry_time"`
	Metadata   datatypes.JSON `gorm:"column:metadata"`
	OpenedAt   time.Time      `gorm:"column:opened_at"`
	ClosedAt   *time.Time     `gorm:"column:closed_at;index"`
	UpdatedAt  time.Time      `gorm:"column:updated_at"`
}

func (PositionModel) TableName() string { return "positions" }

// DecisionModel journals every actionable decision the engine emits.
type DecisionModel struct {
	ID              int64          `gorm:"column:id;primaryKey"`
	TraceID         string         `gorm:"column:trace_id;uniqueIndex"`
	Symbol          string         `gorm:"column:symbol;index"`
	Action          string         `gorm:"column:action"`
	ExitReason      string         `gorm:"column:exit_reason"`
	Urgency         string         `gorm:"column:urgency"`
	Confidence      float64        `gorm:"column:confidence"`
	QuantityPercent float64        `gorm:"column:quantity_percent"`
	NewStopLoss     float64        `gorm:"column:new_stop_loss"`
	NewTarget       float64        `gorm:"column:new_target"`
	Reasoning       string         `gorm:"column:reasoning"`
	Metadata        datatypes.JSON `gorm:"column:metadata"`
	DecidedAtUnix   int64          `gorm:"column:decided_at"`
	CreatedAt       time.Time      `gorm:"column:created_at"`
}

func (DecisionModel) TableName() string { return "decisions" }
