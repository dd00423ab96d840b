package autotrade

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stocksignal/internal/brokerage"
	"stocksignal/internal/models"
	"stocksignal/internal/risk"
)

type stubStore struct {
	mu      sync.Mutex
	codes   []string
	signals map[string]*models.SignalRecord
	bars    map[string]*models.PriceBar
	counts  map[string]int64

	logs []models.AutoTradeLogEntry
	txs  []models.Transaction
}

func (s *stubStore) ListEnabledAutoTradeCodes(context.Context) ([]string, error) {
	return s.codes, nil
}

func (s *stubStore) GetLatestSignalRecord(_ context.Context, code string) (*models.SignalRecord, error) {
	return s.signals[code], nil
}

func (s *stubStore) GetLatestPriceBar(_ context.Context, code string) (*models.PriceBar, error) {
	return s.bars[code], nil
}

func (s *stubStore) CountExecutedAutoTrades(_ context.Context, code string, _ time.Time) (int64, error) {
	return s.counts[code], nil
}

func (s *stubStore) InsertTransaction(_ context.Context, item *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uint64(len(s.txs) + 1)
	s.txs = append(s.txs, *item)
	return nil
}

func (s *stubStore) InsertAutoTradeLogEntry(_ context.Context, item *models.AutoTradeLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, *item)
	return nil
}

type stubSettings struct {
	mu     sync.Mutex
	cfg    Config
	budget decimal.Decimal

	// disableAfter flips Enabled off once that many config reads happened.
	disableAfter int
	reads        int
}

func (s *stubSettings) AutoTradeConfig(context.Context) (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	cfg := s.cfg
	if s.disableAfter > 0 && s.reads > s.disableAfter {
		cfg.Enabled = false
	}
	return cfg, nil
}

func (s *stubSettings) InvestmentBudget(context.Context) (decimal.Decimal, error) {
	return s.budget, nil
}

type stubRisk struct {
	held   map[string]int64
	passed bool
}

func (s *stubRisk) EvaluateTrade(_ context.Context, _ string, _ string, quantity int64, price decimal.Decimal) (*risk.Evaluation, error) {
	eval := &risk.Evaluation{
		Passed:      s.passed,
		TradeAmount: price.Mul(decimal.NewFromInt(quantity)),
	}
	if !s.passed {
		eval.Warnings = []risk.Finding{{Level: risk.LevelError, Message: "position limit reached"}}
	}
	return eval, nil
}

func (s *stubRisk) HeldQuantity(_ context.Context, code string) (int64, error) {
	return s.held[code], nil
}

type stubBroker struct {
	mu     sync.Mutex
	orders []brokerage.OrderRequest
	err    error
}

func (b *stubBroker) SendOrder(_ context.Context, req brokerage.OrderRequest) (*brokerage.OrderResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.orders = append(b.orders, req)
	return &brokerage.OrderResult{OrderID: "ord-1", Result: 0}, nil
}

func buySignal(strength int) *models.SignalRecord {
	target := 2200.0
	return &models.SignalRecord{
		SignalType:  models.SignalBuy,
		Strength:    strength,
		ActiveRules: "RSI,GoldenCross",
		TargetPrice: &target,
	}
}

func bar(close float64) *models.PriceBar {
	return &models.PriceBar{Close: close}
}

func newTestScheduler(store *stubStore, settings *stubSettings, riskEval *stubRisk, broker *stubBroker) *Scheduler {
	s := NewScheduler(store, settings, riskEval, broker, nil)
	s.now = func() time.Time { return time.Date(2025, 6, 18, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestTickDryRunRecordsPaperFill(t *testing.T) {
	store := &stubStore{
		codes:   []string{"7203"},
		signals: map[string]*models.SignalRecord{"7203": buySignal(2)},
		bars:    map[string]*models.PriceBar{"7203": bar(2000)},
	}
	settings := &stubSettings{cfg: Config{Enabled: true, MinSignalStrength: 2, MaxTradesPerDay: 3, OrderType: OrderTypeMarket, DryRun: true}, budget: decimal.NewFromInt(300000)}
	sched := newTestScheduler(store, settings, &stubRisk{passed: true}, &stubBroker{})

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.txs) != 1 {
		t.Fatalf("transactions = %d, want 1", len(store.txs))
	}
	tx := store.txs[0]
	if tx.Account != models.AccountPaper {
		t.Fatalf("account = %q, want paper", tx.Account)
	}
	if tx.Quantity != 50 {
		t.Fatalf("quantity = %d, want 50", tx.Quantity)
	}
	if len(store.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(store.logs))
	}
	entry := store.logs[0]
	if entry.ResultStatus != models.AutoTradeResultSuccess {
		t.Fatalf("status = %q, want success", entry.ResultStatus)
	}
	if !entry.Executed || !entry.DryRun {
		t.Fatalf("executed=%v dryRun=%v, want both true", entry.Executed, entry.DryRun)
	}
	if entry.TransactionID == nil || *entry.TransactionID != tx.ID {
		t.Fatalf("transaction id not linked")
	}
}

func TestTickSkipsWeakSignal(t *testing.T) {
	store := &stubStore{
		codes:   []string{"7203"},
		signals: map[string]*models.SignalRecord{"7203": buySignal(1)},
		bars:    map[string]*models.PriceBar{"7203": bar(2000)},
	}
	settings := &stubSettings{cfg: Config{Enabled: true, MinSignalStrength: 2, MaxTradesPerDay: 3, DryRun: true}, budget: decimal.NewFromInt(300000)}
	sched := newTestScheduler(store, settings, &stubRisk{passed: true}, &stubBroker{})

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.txs) != 0 {
		t.Fatalf("transactions = %d, want 0", len(store.txs))
	}
	if len(store.logs) != 1 || store.logs[0].ResultStatus != models.AutoTradeResultSkipped {
		t.Fatalf("want one skipped log, got %+v", store.logs)
	}
	if !strings.Contains(store.logs[0].ResultMessage, "strength") {
		t.Fatalf("message = %q", store.logs[0].ResultMessage)
	}
}

func TestTickRespectsDailyCap(t *testing.T) {
	store := &stubStore{
		codes:   []string{"7203"},
		signals: map[string]*models.SignalRecord{"7203": buySignal(3)},
		bars:    map[string]*models.PriceBar{"7203": bar(2000)},
		counts:  map[string]int64{"7203": 3},
	}
	settings := &stubSettings{cfg: Config{Enabled: true, MinSignalStrength: 2, MaxTradesPerDay: 3, DryRun: true}, budget: decimal.NewFromInt(300000)}
	sched := newTestScheduler(store, settings, &stubRisk{passed: true}, &stubBroker{})

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.txs) != 0 {
		t.Fatalf("transactions = %d, want 0", len(store.txs))
	}
	if len(store.logs) != 1 || store.logs[0].ResultStatus != models.AutoTradeResultSkipped {
		t.Fatalf("want one skipped log, got %+v", store.logs)
	}
	if !strings.Contains(store.logs[0].ResultMessage, "daily trade limit") {
		t.Fatalf("message = %q", store.logs[0].ResultMessage)
	}
}

func TestTickRiskBlocked(t *testing.T) {
	store := &stubStore{
		codes:   []string{"7203"},
		signals: map[string]*models.SignalRecord{"7203": buySignal(3)},
		bars:    map[string]*models.PriceBar{"7203": bar(2000)},
	}
	settings := &stubSettings{cfg: Config{Enabled: true, MinSignalStrength: 2, MaxTradesPerDay: 3, DryRun: true}, budget: decimal.NewFromInt(300000)}
	sched := newTestScheduler(store, settings, &stubRisk{passed: false}, &stubBroker{})

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.txs) != 0 {
		t.Fatalf("transactions = %d, want 0", len(store.txs))
	}
	if len(store.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(store.logs))
	}
	entry := store.logs[0]
	if entry.ResultStatus != models.AutoTradeResultRiskBlocked {
		t.Fatalf("status = %q, want risk_blocked", entry.ResultStatus)
	}
	if entry.RiskPassed == nil || *entry.RiskPassed {
		t.Fatalf("risk passed flag not recorded as false")
	}
}

func TestTickLiveSubmitsOrder(t *testing.T) {
	store := &stubStore{
		codes:   []string{"7203"},
		signals: map[string]*models.SignalRecord{"7203": buySignal(3)},
		bars:    map[string]*models.PriceBar{"7203": bar(2000)},
	}
	settings := &stubSettings{cfg: Config{Enabled: true, MinSignalStrength: 2, MaxTradesPerDay: 3, OrderType: OrderTypeLimit, DryRun: false}, budget: decimal.NewFromInt(300000)}
	broker := &stubBroker{}
	sched := newTestScheduler(store, settings, &stubRisk{passed: true}, broker)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(broker.orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(broker.orders))
	}
	order := broker.orders[0]
	if order.Code != "7203" || order.Side != models.SignalBuy || order.Quantity != 50 {
		t.Fatalf("order = %+v", order)
	}
	if order.OrderType != OrderTypeLimit || order.Price != 2200 {
		t.Fatalf("limit order should carry the target price, got %+v", order)
	}
	if len(store.txs) != 1 || store.txs[0].Account != models.AccountLive {
		t.Fatalf("want one live transaction, got %+v", store.txs)
	}
	entry := store.logs[0]
	if entry.ResultStatus != models.AutoTradeResultSuccess {
		t.Fatalf("status = %q", entry.ResultStatus)
	}
	if entry.BrokerageOrderID == nil || *entry.BrokerageOrderID != "ord-1" {
		t.Fatalf("order id not recorded")
	}
}

func TestTickBrokerFailureContinues(t *testing.T) {
	store := &stubStore{
		codes: []string{"7203", "9984"},
		signals: map[string]*models.SignalRecord{
			"7203": buySignal(3),
			"9984": buySignal(3),
		},
		bars: map[string]*models.PriceBar{
			"7203": bar(2000),
			"9984": bar(4000),
		},
	}
	settings := &stubSettings{cfg: Config{Enabled: true, MinSignalStrength: 2, MaxTradesPerDay: 3, OrderType: OrderTypeMarket, DryRun: false}, budget: decimal.NewFromInt(300000)}
	broker := &stubBroker{err: errors.New("gateway offline")}
	sched := newTestScheduler(store, settings, &stubRisk{passed: true}, broker)

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.logs) != 2 {
		t.Fatalf("logs = %d, want 2", len(store.logs))
	}
	for _, entry := range store.logs {
		if entry.ResultStatus != models.AutoTradeResultFailed {
			t.Fatalf("status = %q, want failed", entry.ResultStatus)
		}
		if !strings.Contains(entry.ResultMessage, "gateway offline") {
			t.Fatalf("message = %q", entry.ResultMessage)
		}
	}
	if len(store.txs) != 0 {
		t.Fatalf("no transactions should be recorded on failure, got %d", len(store.txs))
	}
}

func TestTickDisableMidTickStopsLaterCodes(t *testing.T) {
	store := &stubStore{
		codes: []string{"7203", "9984"},
		signals: map[string]*models.SignalRecord{
			"7203": buySignal(3),
			"9984": buySignal(3),
		},
		bars: map[string]*models.PriceBar{
			"7203": bar(2000),
			"9984": bar(4000),
		},
	}
	// First read gates the tick, second read admits the first code, every
	// read after that reports disabled.
	settings := &stubSettings{
		cfg:          Config{Enabled: true, MinSignalStrength: 2, MaxTradesPerDay: 3, DryRun: true},
		budget:       decimal.NewFromInt(300000),
		disableAfter: 2,
	}
	sched := newTestScheduler(store, settings, &stubRisk{passed: true}, &stubBroker{})

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.logs) != 1 || store.logs[0].Code != "7203" {
		t.Fatalf("only the first code should be processed, got %+v", store.logs)
	}
}

func TestTickGloballyDisabled(t *testing.T) {
	store := &stubStore{codes: []string{"7203"}}
	settings := &stubSettings{cfg: Config{Enabled: false}}
	sched := newTestScheduler(store, settings, &stubRisk{passed: true}, &stubBroker{})

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.logs) != 0 {
		t.Fatalf("disabled scheduler wrote %d logs", len(store.logs))
	}
}

func TestTickSellUsesHeldQuantity(t *testing.T) {
	sell := &models.SignalRecord{SignalType: models.SignalSell, Strength: 3, ActiveRules: "DeadCross"}
	store := &stubStore{
		codes:   []string{"7203"},
		signals: map[string]*models.SignalRecord{"7203": sell},
		bars:    map[string]*models.PriceBar{"7203": bar(2500)},
	}
	settings := &stubSettings{cfg: Config{Enabled: true, MinSignalStrength: 2, MaxTradesPerDay: 3, DryRun: true}, budget: decimal.NewFromInt(300000)}
	sched := newTestScheduler(store, settings, &stubRisk{passed: true, held: map[string]int64{"7203": 30}}, &stubBroker{})

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.txs) != 1 || store.txs[0].Quantity != 30 || store.txs[0].Type != models.SignalSell {
		t.Fatalf("want a sell of 30 shares, got %+v", store.txs)
	}
}

func TestTickSkipsCodeAlreadyInFlight(t *testing.T) {
	store := &stubStore{
		codes:   []string{"7203"},
		signals: map[string]*models.SignalRecord{"7203": buySignal(3)},
		bars:    map[string]*models.PriceBar{"7203": bar(2000)},
	}
	settings := &stubSettings{cfg: Config{Enabled: true, MinSignalStrength: 2, MaxTradesPerDay: 3, DryRun: true}, budget: decimal.NewFromInt(300000)}
	sched := newTestScheduler(store, settings, &stubRisk{passed: true}, &stubBroker{})
	sched.inFlight["7203"] = true

	if err := sched.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(store.logs) != 0 || len(store.txs) != 0 {
		t.Fatalf("in-flight code must be left alone, logs=%d txs=%d", len(store.logs), len(store.txs))
	}
}

func TestStartOfDayUsesUTCDate(t *testing.T) {
	sched := newTestScheduler(&stubStore{}, &stubSettings{}, &stubRisk{}, &stubBroker{})
	// 01:00 JST on the 18th is still the 17th in UTC; the cap window must
	// follow the UTC date the transaction dates are stored in.
	jst := time.FixedZone("JST", 9*60*60)
	sched.now = func() time.Time { return time.Date(2025, 6, 18, 1, 0, 0, 0, jst) }

	got := sched.startOfDay()
	want := time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("startOfDay = %s, want %s", got, want)
	}
}
