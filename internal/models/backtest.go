package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	BacktestStatusPending   = "pending"
	BacktestStatusRunning   = "running"
	BacktestStatusCompleted = "completed"
	BacktestStatusFailed    = "failed"
)

// Backtest is one simulation run. Status walks pending -> running -> one of
// completed/failed and the row is immutable once terminal, except deletion.
type Backtest struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(120);not null"`

	StartDate      time.Time       `gorm:"type:date;not null"`
	EndDate        time.Time       `gorm:"type:date;not null"`
	InitialCapital decimal.Decimal `gorm:"type:numeric(20,4);not null"`

	// JSON array of stock codes.
	Codes datatypes.JSON `gorm:"type:jsonb;not null"`

	// Optional risk-rule overrides for this run.
	StrategyParams datatypes.JSON `gorm:"type:jsonb"`

	Status        string         `gorm:"type:varchar(20);not null;default:pending;index"`
	ResultSummary datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt   time.Time  `gorm:"type:timestamptz;autoCreateTime;index"`
	CompletedAt *time.Time `gorm:"type:timestamptz"`
}

func (Backtest) TableName() string {
	return "backtests"
}
