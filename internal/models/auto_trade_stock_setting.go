package models

import "time"

// AutoTradeStockSetting gates a single code's participation in the
// auto-trade tick, independent of the global config switch.
type AutoTradeStockSetting struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Code    string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Enabled bool   `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (AutoTradeStockSetting) TableName() string {
	return "auto_trade_stock_settings"
}
