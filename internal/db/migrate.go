package db

import (
	"stocksignal/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Stock{},
		&models.PriceBar{},
		&models.SignalRecord{},
		&models.Setting{},
		&models.Transaction{},
		&models.Backtest{},
		&models.BacktestTrade{},
		&models.BacktestSnapshot{},
		&models.AutoTradeStockSetting{},
		&models.AutoTradeLogEntry{},
		&models.Alert{},
		&models.AlertHistory{},
	)
}
