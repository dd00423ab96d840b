package models

import "time"

// PriceBar is one daily OHLC bar. Immutable once stored; one series per code,
// ordered ascending by date.
type PriceBar struct {
	ID   uint64    `gorm:"primaryKey;autoIncrement"`
	Code string    `gorm:"type:varchar(20);not null;uniqueIndex:uq_price_bars_code_date;index"`
	Date time.Time `gorm:"type:date;not null;uniqueIndex:uq_price_bars_code_date"`

	Open   float64 `gorm:"not null"`
	High   float64 `gorm:"not null"`
	Low    float64 `gorm:"not null"`
	Close  float64 `gorm:"not null"`
	Volume int64   `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PriceBar) TableName() string {
	return "price_bars"
}
