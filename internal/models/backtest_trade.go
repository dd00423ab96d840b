package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BacktestTrade is one simulated fill inside a run. Append-only output.
type BacktestTrade struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	BacktestID uint64 `gorm:"not null;index"`

	Code      string          `gorm:"type:varchar(20);not null;index"`
	TradeType string          `gorm:"type:varchar(10);not null"`
	Quantity  int64           `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:numeric(20,4);not null"`

	// Realized profit for sells; nil for buys.
	PnL *decimal.Decimal `gorm:"type:numeric(20,4)"`

	TradeDate time.Time `gorm:"type:date;not null;index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (BacktestTrade) TableName() string {
	return "backtest_trades"
}
