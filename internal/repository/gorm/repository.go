package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stocksignal/internal/models"
	"stocksignal/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- watch list -------------------------------------------------------------

func (s *Store) InsertStock(ctx context.Context, item *models.Stock) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetStockByCode(ctx context.Context, code string) (*models.Stock, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Stock
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListStocks(ctx context.Context, params repository.ListStocksParams) ([]models.Stock, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Stock{})
	if params.Code != nil && strings.TrimSpace(*params.Code) != "" {
		query = query.Where("code = ?", strings.TrimSpace(*params.Code))
	}
	if params.OrderBy == "" {
		query = query.Order("code asc")
	} else {
		query = applyOrder(query, params.OrderBy, params.Asc, "code")
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Stock
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountStocks(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Stock{}).Count(&count).Error
	return count, err
}

func (s *Store) UpdateStockName(ctx context.Context, code string, name string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Stock{}).
		Where("code = ?", code).
		Update("name", name).Error
}

// DeleteStock removes the stock and everything keyed to its code.
func (s *Store) DeleteStock(ctx context.Context, code string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code = ?", code).Delete(&models.PriceBar{}).Error; err != nil {
			return err
		}
		if err := tx.Where("code = ?", code).Delete(&models.SignalRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("code = ?", code).Delete(&models.AutoTradeStockSetting{}).Error; err != nil {
			return err
		}
		return tx.Where("code = ?", code).Delete(&models.Stock{}).Error
	})
}

// --- price bars -------------------------------------------------------------

func (s *Store) UpsertPriceBars(ctx context.Context, items []models.PriceBar) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	db := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open",
			"high",
			"low",
			"close",
			"volume",
		}),
	})
	return createInBatches(db, items, 200)
}

func (s *Store) ListPriceBars(ctx context.Context, params repository.ListPriceBarsParams) ([]models.PriceBar, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.PriceBar{}).
		Where("code = ?", params.Code)
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("date >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("date <= ?", *params.Until)
	}
	direction := "asc"
	if params.Desc {
		direction = "desc"
	}
	query = query.Order("date " + direction)
	if params.Limit > 0 {
		query = query.Limit(params.Limit)
	}
	var items []models.PriceBar
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetLatestPriceBar(ctx context.Context, code string) (*models.PriceBar, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PriceBar
	err := s.db.WithContext(ctx).
		Where("code = ?", code).
		Order("date desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetNewestBarDate(ctx context.Context) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.PriceBar
	err := s.db.WithContext(ctx).
		Order("date desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item.Date, nil
}

// --- signal records ---------------------------------------------------------

func (s *Store) UpsertSignalRecord(ctx context.Context, item *models.SignalRecord) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"signal_type",
			"strength",
			"active_rules",
			"rsi",
			"macd",
			"macd_signal",
			"macd_histogram",
			"sma_short",
			"sma_mid",
			"sma_long",
			"target_price",
			"stop_loss_price",
			"support_price",
			"resistance_price",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetLatestSignalRecord(ctx context.Context, code string) (*models.SignalRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.SignalRecord
	err := s.db.WithContext(ctx).
		Where("code = ?", code).
		Order("date desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSignalRecords(ctx context.Context, params repository.ListSignalRecordsParams) ([]models.SignalRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SignalRecord{})
	if params.Code != nil && strings.TrimSpace(*params.Code) != "" {
		query = query.Where("code = ?", strings.TrimSpace(*params.Code))
	}
	if params.SignalType != nil && strings.TrimSpace(*params.SignalType) != "" {
		query = query.Where("signal_type = ?", strings.TrimSpace(*params.SignalType))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("date >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "date")
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.SignalRecord
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- settings ---------------------------------------------------------------

func (s *Store) UpsertSetting(ctx context.Context, item *models.Setting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Key) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSettingByKey(ctx context.Context, key string) (*models.Setting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Setting
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- transactions -----------------------------------------------------------

func (s *Store) InsertTransaction(ctx context.Context, item *models.Transaction) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetTransactionByID(ctx context.Context, id uint64) (*models.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Transaction
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func transactionsQuery(db *gorm.DB, params repository.ListTransactionsParams) *gorm.DB {
	query := db.Model(&models.Transaction{})
	if params.Code != nil && strings.TrimSpace(*params.Code) != "" {
		query = query.Where("code = ?", strings.TrimSpace(*params.Code))
	}
	if params.Account != nil && strings.TrimSpace(*params.Account) != "" {
		query = query.Where("account = ?", strings.TrimSpace(*params.Account))
	}
	if params.Type != nil && strings.TrimSpace(*params.Type) != "" {
		query = query.Where("type = ?", strings.TrimSpace(*params.Type))
	}
	return query
}

func (s *Store) ListTransactions(ctx context.Context, params repository.ListTransactionsParams) ([]models.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := transactionsQuery(s.db.WithContext(ctx), params)
	if params.OrderBy == "" {
		// Display listing: newest first, stable within a date by insertion.
		direction := "desc"
		if params.Asc != nil && *params.Asc {
			direction = "asc"
		}
		query = query.Order("transaction_date " + direction).Order("id " + direction)
	} else {
		query = applyOrder(query, params.OrderBy, params.Asc, "transaction_date")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = 1000
	}
	offset := normalizeOffset(params.Offset)
	var items []models.Transaction
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListAccountFills returns the complete fill log for one account, oldest
// first by date then insertion. Replays fold every fill, so no limit applies
// here; the capped ListTransactions serves the display endpoints.
func (s *Store) ListAccountFills(ctx context.Context, account string) ([]models.Transaction, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Transaction
	err := s.db.WithContext(ctx).
		Where("account = ?", account).
		Order("transaction_date asc").Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountTransactions(ctx context.Context, params repository.ListTransactionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := transactionsQuery(s.db.WithContext(ctx), params).Count(&count).Error
	return count, err
}

func (s *Store) DeleteTransaction(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Transaction{}).Error
}

// --- backtests --------------------------------------------------------------

func (s *Store) InsertBacktest(ctx context.Context, item *models.Backtest) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetBacktestByID(ctx context.Context, id uint64) (*models.Backtest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Backtest
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func backtestsQuery(db *gorm.DB, params repository.ListBacktestsParams) *gorm.DB {
	query := db.Model(&models.Backtest{})
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

func (s *Store) ListBacktests(ctx context.Context, params repository.ListBacktestsParams) ([]models.Backtest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := backtestsQuery(s.db.WithContext(ctx), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Backtest
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountBacktests(ctx context.Context, params repository.ListBacktestsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := backtestsQuery(s.db.WithContext(ctx), params).Count(&count).Error
	return count, err
}

func (s *Store) ListBacktestsByIDs(ctx context.Context, ids []uint64) ([]models.Backtest, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return nil, nil
	}
	var items []models.Backtest
	if err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateBacktestStatus(ctx context.Context, id uint64, status string, resultSummary []byte, completedAt *time.Time) error {
	if s == nil || s.db == nil {
		return nil
	}
	updates := map[string]any{"status": status}
	if resultSummary != nil {
		updates["result_summary"] = resultSummary
	}
	if completedAt != nil {
		updates["completed_at"] = *completedAt
	}
	return s.db.WithContext(ctx).
		Model(&models.Backtest{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) DeleteBacktest(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("backtest_id = ?", id).Delete(&models.BacktestTrade{}).Error; err != nil {
			return err
		}
		if err := tx.Where("backtest_id = ?", id).Delete(&models.BacktestSnapshot{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Backtest{}).Error
	})
}

func (s *Store) InsertBacktestTrades(ctx context.Context, items []models.BacktestTrade) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx), items, 200)
}

func (s *Store) InsertBacktestSnapshots(ctx context.Context, items []models.BacktestSnapshot) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return createInBatches(s.db.WithContext(ctx), items, 200)
}

func (s *Store) ListBacktestTrades(ctx context.Context, backtestID uint64) ([]models.BacktestTrade, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.BacktestTrade
	if err := s.db.WithContext(ctx).
		Where("backtest_id = ?", backtestID).
		Order("trade_date asc").
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListBacktestSnapshots(ctx context.Context, backtestID uint64) ([]models.BacktestSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.BacktestSnapshot
	if err := s.db.WithContext(ctx).
		Where("backtest_id = ?", backtestID).
		Order("date asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- auto-trade -------------------------------------------------------------

func (s *Store) UpsertAutoTradeStockSetting(ctx context.Context, item *models.AutoTradeStockSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.Code) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetAutoTradeStockSetting(ctx context.Context, code string) (*models.AutoTradeStockSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.AutoTradeStockSetting
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAutoTradeStockSettings(ctx context.Context) ([]models.AutoTradeStockSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.AutoTradeStockSetting
	if err := s.db.WithContext(ctx).
		Model(&models.AutoTradeStockSetting{}).
		Order("code asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListEnabledAutoTradeCodes(ctx context.Context) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var codes []string
	if err := s.db.WithContext(ctx).
		Model(&models.AutoTradeStockSetting{}).
		Where("enabled = ?", true).
		Order("code asc").
		Pluck("code", &codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *Store) InsertAutoTradeLogEntry(ctx context.Context, item *models.AutoTradeLogEntry) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListAutoTradeLog(ctx context.Context, params repository.ListAutoTradeLogParams) ([]models.AutoTradeLogEntry, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AutoTradeLogEntry{})
	if params.Code != nil && strings.TrimSpace(*params.Code) != "" {
		query = query.Where("code = ?", strings.TrimSpace(*params.Code))
	}
	if params.ResultStatus != nil && strings.TrimSpace(*params.ResultStatus) != "" {
		query = query.Where("result_status = ?", strings.TrimSpace(*params.ResultStatus))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.AutoTradeLogEntry
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountExecutedAutoTrades(ctx context.Context, code string, since time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.AutoTradeLogEntry{}).
		Where("code = ?", code).
		Where("executed = ?", true).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}

// --- alerts -----------------------------------------------------------------

func (s *Store) InsertAlert(ctx context.Context, item *models.Alert) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetAlertByID(ctx context.Context, id uint64) (*models.Alert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Alert
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAlerts(ctx context.Context, params repository.ListAlertsParams) ([]models.Alert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Alert{})
	if params.Code != nil && strings.TrimSpace(*params.Code) != "" {
		query = query.Where("code = ?", strings.TrimSpace(*params.Code))
	}
	if params.Active != nil {
		query = query.Where("is_active = ?", *params.Active)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Alert
	if err := query.
		Order("code asc").
		Order("id asc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SetAlertActive(ctx context.Context, id uint64, active bool) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ?", id).
		Update("is_active", active).Error
}

func (s *Store) DeleteAlert(ctx context.Context, id uint64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Alert{}).Error
}

func (s *Store) InsertAlertHistory(ctx context.Context, item *models.AlertHistory) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetLatestAlertHistory(ctx context.Context, alertID uint64) (*models.AlertHistory, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.AlertHistory
	err := s.db.WithContext(ctx).
		Where("alert_id = ?", alertID).
		Order("triggered_at desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAlertHistory(ctx context.Context, params repository.ListAlertHistoryParams) ([]models.AlertHistory, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AlertHistory{})
	if params.Code != nil && strings.TrimSpace(*params.Code) != "" {
		query = query.Where("code = ?", strings.TrimSpace(*params.Code))
	}
	if params.Unread != nil {
		query = query.Where("is_read = ?", !*params.Unread)
	}
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.AlertHistory
	if err := query.
		Order("triggered_at desc").
		Limit(limit).Offset(offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkAlertHistoryRead(ctx context.Context, ids []uint64) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AlertHistory{})
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	} else {
		query = query.Where("is_read = ?", false)
	}
	res := query.Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (s *Store) CountUnreadAlertHistory(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.AlertHistory{}).
		Where("is_read = ?", false).
		Count(&count).Error
	return count, err
}

// --- helpers ----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	for i := 0; i < len(items); i += batchSize {
		end := i + batchSize
		if end > len(items) {
			end = len(items)
		}
		if err := db.CreateInBatches(items[i:end], batchSize).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
