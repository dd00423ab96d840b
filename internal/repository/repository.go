package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"stocksignal/internal/models"
)

// Repository is the single persistence surface used by the services,
// handlers and schedulers. One wide interface, one gorm implementation.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Watch list
	InsertStock(ctx context.Context, item *models.Stock) error
	GetStockByCode(ctx context.Context, code string) (*models.Stock, error)
	ListStocks(ctx context.Context, params ListStocksParams) ([]models.Stock, error)
	CountStocks(ctx context.Context) (int64, error)
	UpdateStockName(ctx context.Context, code string, name string) error
	DeleteStock(ctx context.Context, code string) error

	// Price bars
	UpsertPriceBars(ctx context.Context, items []models.PriceBar) error
	ListPriceBars(ctx context.Context, params ListPriceBarsParams) ([]models.PriceBar, error)
	GetLatestPriceBar(ctx context.Context, code string) (*models.PriceBar, error)
	GetNewestBarDate(ctx context.Context) (*time.Time, error)

	// Signal records
	UpsertSignalRecord(ctx context.Context, item *models.SignalRecord) error
	GetLatestSignalRecord(ctx context.Context, code string) (*models.SignalRecord, error)
	ListSignalRecords(ctx context.Context, params ListSignalRecordsParams) ([]models.SignalRecord, error)

	// Settings singletons
	UpsertSetting(ctx context.Context, item *models.Setting) error
	GetSettingByKey(ctx context.Context, key string) (*models.Setting, error)

	// Transactions
	InsertTransaction(ctx context.Context, item *models.Transaction) error
	GetTransactionByID(ctx context.Context, id uint64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, params ListTransactionsParams) ([]models.Transaction, error)
	ListAccountFills(ctx context.Context, account string) ([]models.Transaction, error)
	CountTransactions(ctx context.Context, params ListTransactionsParams) (int64, error)
	DeleteTransaction(ctx context.Context, id uint64) error

	// Backtests
	InsertBacktest(ctx context.Context, item *models.Backtest) error
	GetBacktestByID(ctx context.Context, id uint64) (*models.Backtest, error)
	ListBacktests(ctx context.Context, params ListBacktestsParams) ([]models.Backtest, error)
	CountBacktests(ctx context.Context, params ListBacktestsParams) (int64, error)
	ListBacktestsByIDs(ctx context.Context, ids []uint64) ([]models.Backtest, error)
	UpdateBacktestStatus(ctx context.Context, id uint64, status string, resultSummary []byte, completedAt *time.Time) error
	DeleteBacktest(ctx context.Context, id uint64) error
	InsertBacktestTrades(ctx context.Context, items []models.BacktestTrade) error
	InsertBacktestSnapshots(ctx context.Context, items []models.BacktestSnapshot) error
	ListBacktestTrades(ctx context.Context, backtestID uint64) ([]models.BacktestTrade, error)
	ListBacktestSnapshots(ctx context.Context, backtestID uint64) ([]models.BacktestSnapshot, error)

	// Auto-trade per-code switches
	UpsertAutoTradeStockSetting(ctx context.Context, item *models.AutoTradeStockSetting) error
	GetAutoTradeStockSetting(ctx context.Context, code string) (*models.AutoTradeStockSetting, error)
	ListAutoTradeStockSettings(ctx context.Context) ([]models.AutoTradeStockSetting, error)
	ListEnabledAutoTradeCodes(ctx context.Context) ([]string, error)

	// Auto-trade decision log
	InsertAutoTradeLogEntry(ctx context.Context, item *models.AutoTradeLogEntry) error
	ListAutoTradeLog(ctx context.Context, params ListAutoTradeLogParams) ([]models.AutoTradeLogEntry, error)
	CountExecutedAutoTrades(ctx context.Context, code string, since time.Time) (int64, error)

	// Alerts
	InsertAlert(ctx context.Context, item *models.Alert) error
	GetAlertByID(ctx context.Context, id uint64) (*models.Alert, error)
	ListAlerts(ctx context.Context, params ListAlertsParams) ([]models.Alert, error)
	SetAlertActive(ctx context.Context, id uint64, active bool) error
	DeleteAlert(ctx context.Context, id uint64) error
	InsertAlertHistory(ctx context.Context, item *models.AlertHistory) error
	GetLatestAlertHistory(ctx context.Context, alertID uint64) (*models.AlertHistory, error)
	ListAlertHistory(ctx context.Context, params ListAlertHistoryParams) ([]models.AlertHistory, error)
	MarkAlertHistoryRead(ctx context.Context, ids []uint64) (int64, error)
	CountUnreadAlertHistory(ctx context.Context) (int64, error)
}

type ListStocksParams struct {
	Limit   int
	Offset  int
	Code    *string
	OrderBy string
	Asc     *bool
}

type ListPriceBarsParams struct {
	Code  string
	Since *time.Time
	Until *time.Time
	Limit int
	// Newest-first when set; default is ascending by date.
	Desc bool
}

type ListSignalRecordsParams struct {
	Limit      int
	Offset     int
	Code       *string
	SignalType *string
	Since      *time.Time
	OrderBy    string
	Asc        *bool
}

type ListTransactionsParams struct {
	Limit   int
	Offset  int
	Code    *string
	Account *string
	Type    *string
	OrderBy string
	Asc     *bool
}

type ListBacktestsParams struct {
	Limit   int
	Offset  int
	Status  *string
	OrderBy string
	Asc     *bool
}

type ListAutoTradeLogParams struct {
	Limit        int
	Offset       int
	Code         *string
	ResultStatus *string
	Since        *time.Time
	OrderBy      string
	Asc          *bool
}

type ListAlertsParams struct {
	Limit  int
	Offset int
	Code   *string
	Active *bool
}

type ListAlertHistoryParams struct {
	Limit  int
	Offset int
	Code   *string
	Unread *bool
}
