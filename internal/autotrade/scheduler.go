package autotrade

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stocksignal/internal/brokerage"
	"stocksignal/internal/models"
	"stocksignal/internal/risk"
)

const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"

	defaultOrderTimeout = 20 * time.Second

	// budgetSplit spreads the investment budget over several entries so a
	// single buy cannot consume the whole budget.
	budgetSplit = 3
)

// Config is the global auto-trade switchboard. Enabled is toggled
// independently of the other fields.
type Config struct {
	Enabled           bool   `json:"enabled"`
	MinSignalStrength int    `json:"minSignalStrength"`
	MaxTradesPerDay   int    `json:"maxTradesPerDay"`
	OrderType         string `json:"orderType"`
	DryRun            bool   `json:"dryRun"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		MinSignalStrength: 2,
		MaxTradesPerDay:   3,
		OrderType:         OrderTypeMarket,
		DryRun:            true,
	}
}

// Store is the persistence surface one tick needs.
type Store interface {
	ListEnabledAutoTradeCodes(ctx context.Context) ([]string, error)
	GetLatestSignalRecord(ctx context.Context, code string) (*models.SignalRecord, error)
	GetLatestPriceBar(ctx context.Context, code string) (*models.PriceBar, error)
	CountExecutedAutoTrades(ctx context.Context, code string, since time.Time) (int64, error)
	InsertTransaction(ctx context.Context, item *models.Transaction) error
	InsertAutoTradeLogEntry(ctx context.Context, item *models.AutoTradeLogEntry) error
}

// SettingsProvider resolves the stored singletons at tick time, so toggles
// take effect without restarting the scheduler.
type SettingsProvider interface {
	AutoTradeConfig(ctx context.Context) (Config, error)
	InvestmentBudget(ctx context.Context) (decimal.Decimal, error)
}

// RiskEvaluator gates a proposed trade against the live portfolio state.
type RiskEvaluator interface {
	EvaluateTrade(ctx context.Context, code, tradeType string, quantity int64, price decimal.Decimal) (*risk.Evaluation, error)
	HeldQuantity(ctx context.Context, code string) (int64, error)
}

// OrderSubmitter is the live brokerage path.
type OrderSubmitter interface {
	SendOrder(ctx context.Context, req brokerage.OrderRequest) (*brokerage.OrderResult, error)
}

// Scheduler runs the recurring auto-trade tick: evaluate every enabled code
// concurrently, then execute decisions one by one in code order so the daily
// cap and the portfolio state stay deterministic.
type Scheduler struct {
	store    Store
	settings SettingsProvider
	risk     RiskEvaluator
	broker   OrderSubmitter
	logger   *zap.Logger

	orderTimeout time.Duration
	now          func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewScheduler(store Store, settings SettingsProvider, riskEval RiskEvaluator, broker OrderSubmitter, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:        store,
		settings:     settings,
		risk:         riskEval,
		broker:       broker,
		logger:       logger,
		orderTimeout: defaultOrderTimeout,
		now:          time.Now,
		inFlight:     make(map[string]bool),
	}
}

type action int

const (
	actionSkip action = iota
	actionBlock
	actionTrade
)

// decision is the outcome of evaluating one code, computed concurrently and
// executed later in code order.
type decision struct {
	code       string
	act        action
	message    string
	signalType string
	strength   int
	rules      string
	quantity   int64
	orderPrice decimal.Decimal
	eval       *risk.Evaluation
}

// Tick processes every enabled code at most once. A code still being worked
// by a previous tick is left alone until that tick finishes.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s == nil || s.store == nil || s.settings == nil {
		return nil
	}
	cfg, err := s.settings.AutoTradeConfig(ctx)
	if err != nil {
		return fmt.Errorf("load auto-trade config: %w", err)
	}
	if !cfg.Enabled {
		return nil
	}

	codes, err := s.store.ListEnabledAutoTradeCodes(ctx)
	if err != nil {
		return fmt.Errorf("list enabled codes: %w", err)
	}
	sort.Strings(codes)
	claimed := s.claim(codes)
	if len(claimed) == 0 {
		return nil
	}
	defer s.release(claimed)

	decisions := make([]*decision, len(claimed))
	var wg sync.WaitGroup
	for i, code := range claimed {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			decisions[i] = s.evaluate(ctx, code, cfg)
		}(i, code)
	}
	wg.Wait()

	for i, code := range claimed {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if cur, err := s.settings.AutoTradeConfig(ctx); err == nil && !cur.Enabled {
			s.logger.Info("auto-trade disabled mid-tick, stopping", zap.String("next_code", code))
			break
		}
		s.execute(ctx, cfg, decisions[i])
	}
	return nil
}

// claim marks codes as in flight and returns the subset we own this tick.
func (s *Scheduler) claim(codes []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	claimed := make([]string, 0, len(codes))
	for _, code := range codes {
		if s.inFlight[code] {
			continue
		}
		s.inFlight[code] = true
		claimed = append(claimed, code)
	}
	return claimed
}

func (s *Scheduler) release(codes []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, code := range codes {
		delete(s.inFlight, code)
	}
}

// evaluate computes the decision for one code without mutating anything.
// A nil return means there is nothing to record for this code this tick.
func (s *Scheduler) evaluate(ctx context.Context, code string, cfg Config) *decision {
	day := s.startOfDay()
	count, err := s.store.CountExecutedAutoTrades(ctx, code, day)
	if err != nil {
		s.logger.Warn("auto-trade count failed", zap.String("code", code), zap.Error(err))
		return nil
	}
	if cfg.MaxTradesPerDay > 0 && count >= int64(cfg.MaxTradesPerDay) {
		return &decision{
			code:    code,
			act:     actionSkip,
			message: fmt.Sprintf("daily trade limit reached (%d/%d)", count, cfg.MaxTradesPerDay),
		}
	}

	sig, err := s.store.GetLatestSignalRecord(ctx, code)
	if err != nil || sig == nil {
		return nil
	}
	d := &decision{
		code:       code,
		signalType: sig.SignalType,
		strength:   sig.Strength,
		rules:      sig.ActiveRules,
	}
	if sig.SignalType == models.SignalHold {
		d.act = actionSkip
		d.message = "signal is hold"
		return d
	}
	if sig.Strength < cfg.MinSignalStrength {
		d.act = actionSkip
		d.message = fmt.Sprintf("signal strength below minimum (%d < %d)", sig.Strength, cfg.MinSignalStrength)
		return d
	}

	bar, err := s.store.GetLatestPriceBar(ctx, code)
	if err != nil || bar == nil || bar.Close <= 0 {
		return nil
	}
	price := decimal.NewFromFloat(bar.Close)

	switch sig.SignalType {
	case models.SignalBuy:
		budget, err := s.settings.InvestmentBudget(ctx)
		if err != nil {
			s.logger.Warn("auto-trade budget lookup failed", zap.String("code", code), zap.Error(err))
			return nil
		}
		alloc := budget.Div(decimal.NewFromInt(budgetSplit))
		d.quantity = alloc.Div(price).IntPart()
		if d.quantity <= 0 {
			d.act = actionSkip
			d.message = "budget too small for one share"
			return d
		}
	case models.SignalSell:
		held, err := s.risk.HeldQuantity(ctx, code)
		if err != nil {
			s.logger.Warn("auto-trade holding lookup failed", zap.String("code", code), zap.Error(err))
			return nil
		}
		if held <= 0 {
			d.act = actionSkip
			d.message = "nothing held to sell"
			return d
		}
		d.quantity = held
	default:
		return nil
	}

	d.orderPrice = price
	if cfg.OrderType == OrderTypeLimit && sig.TargetPrice != nil && *sig.TargetPrice > 0 {
		d.orderPrice = decimal.NewFromFloat(*sig.TargetPrice)
	}

	eval, err := s.risk.EvaluateTrade(ctx, code, sig.SignalType, d.quantity, price)
	if err != nil {
		s.logger.Warn("auto-trade risk evaluation failed", zap.String("code", code), zap.Error(err))
		return nil
	}
	d.eval = eval
	if !eval.Passed {
		d.act = actionBlock
		d.message = "rejected by risk evaluation"
		return d
	}
	d.act = actionTrade
	return d
}

// execute turns one decision into a log entry and, for trades, a fill.
func (s *Scheduler) execute(ctx context.Context, cfg Config, d *decision) {
	if d == nil {
		return
	}
	entry := &models.AutoTradeLogEntry{
		Code:           d.code,
		SignalType:     d.signalType,
		SignalStrength: d.strength,
		ActiveRules:    d.rules,
		Quantity:       d.quantity,
		DryRun:         cfg.DryRun,
		ResultMessage:  d.message,
	}
	if d.quantity > 0 {
		entry.OrderType = cfg.OrderType
		price := d.orderPrice
		entry.OrderPrice = &price
	}
	if d.eval != nil {
		passed := d.eval.Passed
		entry.RiskPassed = &passed
		if raw, err := json.Marshal(d.eval.Warnings); err == nil {
			entry.RiskWarnings = raw
		}
	}

	switch d.act {
	case actionSkip:
		entry.ResultStatus = models.AutoTradeResultSkipped
	case actionBlock:
		entry.ResultStatus = models.AutoTradeResultRiskBlocked
	case actionTrade:
		s.fill(ctx, cfg, d, entry)
	default:
		return
	}

	if err := s.store.InsertAutoTradeLogEntry(ctx, entry); err != nil {
		s.logger.Error("auto-trade log write failed", zap.String("code", d.code), zap.Error(err))
		return
	}
	s.logger.Info("auto-trade decision",
		zap.String("code", d.code),
		zap.String("signal", d.signalType),
		zap.String("status", entry.ResultStatus),
		zap.Bool("dry_run", cfg.DryRun),
	)
}

// fill records the trade: a paper transaction when dry-run, otherwise a live
// brokerage order followed by a live transaction.
func (s *Scheduler) fill(ctx context.Context, cfg Config, d *decision, entry *models.AutoTradeLogEntry) {
	today := s.startOfDay()

	if cfg.DryRun {
		tx := &models.Transaction{
			Code:            d.code,
			Type:            d.signalType,
			Account:         models.AccountPaper,
			Quantity:        d.quantity,
			Price:           d.orderPrice,
			TransactionDate: today,
			Memo:            fmt.Sprintf("[auto-trade dry-run] %s", d.rules),
		}
		if err := s.store.InsertTransaction(ctx, tx); err != nil {
			entry.ResultStatus = models.AutoTradeResultFailed
			entry.ResultMessage = fmt.Sprintf("paper fill not recorded: %v", err)
			return
		}
		entry.Executed = true
		entry.TransactionID = &tx.ID
		entry.ResultStatus = models.AutoTradeResultSuccess
		entry.ResultMessage = "dry-run fill recorded, no order sent"
		return
	}

	if s.broker == nil {
		entry.ResultStatus = models.AutoTradeResultFailed
		entry.ResultMessage = "no brokerage configured"
		return
	}

	req := brokerage.OrderRequest{
		Code:      d.code,
		Side:      d.signalType,
		Quantity:  d.quantity,
		OrderType: cfg.OrderType,
	}
	if cfg.OrderType == OrderTypeLimit {
		req.Price, _ = d.orderPrice.Float64()
	}

	orderCtx, cancel := context.WithTimeout(ctx, s.orderTimeout)
	defer cancel()
	result, err := s.broker.SendOrder(orderCtx, req)
	if err != nil {
		entry.ResultStatus = models.AutoTradeResultFailed
		entry.ResultMessage = fmt.Sprintf("order submission failed: %v", err)
		return
	}

	entry.Executed = true
	entry.BrokerageOrderID = &result.OrderID
	entry.ResultStatus = models.AutoTradeResultSuccess
	entry.ResultMessage = fmt.Sprintf("order accepted (id %s)", result.OrderID)

	tx := &models.Transaction{
		Code:            d.code,
		Type:            d.signalType,
		Account:         models.AccountLive,
		Quantity:        d.quantity,
		Price:           d.orderPrice,
		TransactionDate: today,
		Memo:            fmt.Sprintf("[auto-trade] %s", d.rules),
	}
	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		s.logger.Error("auto-trade transaction write failed", zap.String("code", d.code), zap.Error(err))
		return
	}
	entry.TransactionID = &tx.ID
}

// startOfDay is UTC midnight of the current UTC date; transaction dates are
// stored UTC-truncated, so the cap window must decompose the clock in UTC
// too.
func (s *Scheduler) startOfDay() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
