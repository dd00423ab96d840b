package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	AutoTradeResultSuccess     = "success"
	AutoTradeResultFailed      = "failed"
	AutoTradeResultSkipped     = "skipped"
	AutoTradeResultRiskBlocked = "risk_blocked"
)

// AutoTradeLogEntry records one scheduler decision for one code on one tick.
// Append-only.
type AutoTradeLogEntry struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Code string `gorm:"type:varchar(20);not null;index"`

	SignalType     string `gorm:"type:varchar(10);not null"`
	SignalStrength int    `gorm:"not null;default:0"`
	ActiveRules    string `gorm:"type:varchar(120)"`

	OrderType  string           `gorm:"type:varchar(10)"`
	OrderPrice *decimal.Decimal `gorm:"type:numeric(20,4)"`
	Quantity   int64            `gorm:"not null;default:0"`

	RiskPassed   *bool
	RiskWarnings datatypes.JSON `gorm:"type:jsonb"`

	Executed bool `gorm:"not null;default:false"`
	DryRun   bool `gorm:"not null;default:true"`

	ResultStatus  string `gorm:"type:varchar(20);not null;index"`
	ResultMessage string `gorm:"type:text"`

	TransactionID    *uint64
	BrokerageOrderID *string `gorm:"type:varchar(60)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (AutoTradeLogEntry) TableName() string {
	return "auto_trade_log"
}
