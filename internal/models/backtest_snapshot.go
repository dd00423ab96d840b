package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestSnapshot is the end-of-day valuation of the whole basket during a
// run: mark-to-market holdings plus free cash.
type BacktestSnapshot struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	BacktestID uint64 `gorm:"not null;index"`

	Date           time.Time       `gorm:"type:date;not null;index"`
	PortfolioValue decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Cash           decimal.Decimal `gorm:"type:numeric(20,4);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (BacktestSnapshot) TableName() string {
	return "backtest_snapshots"
}
