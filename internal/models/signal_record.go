package models

import "time"

const (
	SignalBuy  = "buy"
	SignalSell = "sell"
	SignalHold = "hold"
)

// SignalRecord is the persisted evaluation snapshot for one code on one date:
// the discrete signal plus the indicator values and derived price levels it
// was computed from.
type SignalRecord struct {
	ID   uint64    `gorm:"primaryKey;autoIncrement"`
	Code string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_signal_records_code_date;index"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex:uq_signal_records_code_date"`

	SignalType string `gorm:"type:varchar(10);not null"`
	Strength   int    `gorm:"not null;default:0"`

	// Comma-joined rule names, e.g. "RSI,GoldenCross".
	ActiveRules string `gorm:"type:varchar(120)"`

	RSI           *float64
	MACD          *float64
	MACDSignal    *float64
	MACDHistogram *float64
	SMAShort      *float64
	SMAMid        *float64
	SMALong       *float64

	TargetPrice     *float64
	StopLossPrice   *float64
	SupportPrice    *float64
	ResistancePrice *float64

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SignalRecord) TableName() string {
	return "signal_records"
}
