package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeTypeBuy  = "buy"
	TradeTypeSell = "sell"

	// AccountLive holds fills confirmed against the real brokerage account.
	// AccountPaper holds dry-run fills in the virtual book.
	AccountLive  = "live"
	AccountPaper = "paper"
)

// Transaction is one confirmed fill. Append-only; holdings are always a fold
// over this log, never stored independently.
type Transaction struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Code    string `gorm:"type:varchar(20);not null;index"`
	Type    string `gorm:"type:varchar(10);not null"`
	Account string `gorm:"type:varchar(10);not null;default:live;index"`

	Quantity int64           `gorm:"not null"`
	Price    decimal.Decimal `gorm:"type:numeric(20,4);not null"`

	TransactionDate time.Time `gorm:"type:date;not null;index"`
	Memo            string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}
