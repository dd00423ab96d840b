package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"stocksignal/internal/models"
)

// Warmup history loaded ahead of the window so the long SMA and RSI are
// settled by the first simulated date.
const warmupCalendarDays = 365

// Store is the slice of the repository the runner needs.
type Store interface {
	UpdateBacktestStatus(ctx context.Context, id uint64, status string, resultSummary []byte, completedAt *time.Time) error
	InsertBacktestTrades(ctx context.Context, items []models.BacktestTrade) error
	InsertBacktestSnapshots(ctx context.Context, items []models.BacktestSnapshot) error
}

// SeriesLoader supplies ascending price bars per code.
type SeriesLoader interface {
	LoadSeries(ctx context.Context, codes []string, since, until time.Time) (map[string][]models.PriceBar, error)
}

// BaselineProvider yields the current settings-derived baseline for a run.
type BaselineProvider interface {
	Baseline(ctx context.Context) (Baseline, error)
}

// Runner executes backtest runs asynchronously, one goroutine per run, and
// guarantees a run never stays in running: any failure or panic transitions
// it to failed with a captured message.
type Runner struct {
	store    Store
	loader   SeriesLoader
	settings BaselineProvider
	logger   *zap.Logger

	sem chan struct{}

	mu      sync.Mutex
	cancels map[uint64]context.CancelFunc
	wg      sync.WaitGroup
}

func NewRunner(store Store, loader SeriesLoader, settings BaselineProvider, logger *zap.Logger, maxConcurrent int) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Runner{
		store:    store,
		loader:   loader,
		settings: settings,
		logger:   logger,
		sem:      make(chan struct{}, maxConcurrent),
		cancels:  make(map[uint64]context.CancelFunc),
	}
}

// Start schedules the run and returns immediately. The row must already be
// persisted in pending state.
func (r *Runner) Start(baseCtx context.Context, id uint64, req Request) {
	ctx, cancel := context.WithCancel(baseCtx)
	r.mu.Lock()
	r.cancels[id] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.cancels, id)
			r.mu.Unlock()
			cancel()
		}()

		select {
		case r.sem <- struct{}{}:
		case <-ctx.Done():
			r.fail(id, "canceled before start")
			return
		}
		defer func() { <-r.sem }()

		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("backtest panicked", zap.Uint64("id", id), zap.Any("panic", rec))
				r.fail(id, fmt.Sprintf("internal error: %v", rec))
			}
		}()

		r.execute(ctx, id, req)
	}()
}

// Cancel stops future work for a run. Trades and snapshots already written
// stay in place.
func (r *Runner) Cancel(id uint64) {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
}

// Wait blocks until all in-flight runs finish. Used on shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) execute(ctx context.Context, id uint64, req Request) {
	if err := r.store.UpdateBacktestStatus(ctx, id, models.BacktestStatusRunning, nil, nil); err != nil {
		r.fail(id, "marking run as running: "+err.Error())
		return
	}

	baseline, err := r.settings.Baseline(ctx)
	if err != nil {
		r.fail(id, "loading settings: "+err.Error())
		return
	}

	warmupStart := req.StartDate.AddDate(0, 0, -warmupCalendarDays)
	series, err := r.loader.LoadSeries(ctx, req.Codes, warmupStart, req.EndDate)
	if err != nil {
		r.fail(id, "loading price history: "+err.Error())
		return
	}

	result, err := Simulate(req, series, baseline)
	if err != nil {
		r.fail(id, err.Error())
		return
	}
	if ctx.Err() != nil {
		r.fail(id, "canceled")
		return
	}

	trades := make([]models.BacktestTrade, 0, len(result.Trades))
	for _, t := range result.Trades {
		trades = append(trades, models.BacktestTrade{
			BacktestID: id,
			Code:       t.Code,
			TradeType:  t.TradeType,
			Quantity:   t.Quantity,
			Price:      t.Price,
			PnL:        t.PnL,
			TradeDate:  t.TradeDate,
		})
	}
	snaps := make([]models.BacktestSnapshot, 0, len(result.Snapshots))
	for _, s := range result.Snapshots {
		snaps = append(snaps, models.BacktestSnapshot{
			BacktestID:     id,
			Date:           s.Date,
			PortfolioValue: s.PortfolioValue,
			Cash:           s.Cash,
		})
	}

	// Persist with a fresh context so a cancellation mid-write cannot leave
	// a terminal status without its outputs.
	persistCtx, cancelPersist := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelPersist()

	if err := r.store.InsertBacktestTrades(persistCtx, trades); err != nil {
		r.fail(id, "saving trades: "+err.Error())
		return
	}
	if err := r.store.InsertBacktestSnapshots(persistCtx, snaps); err != nil {
		r.fail(id, "saving snapshots: "+err.Error())
		return
	}

	summary, err := json.Marshal(result.Summary)
	if err != nil {
		r.fail(id, "encoding summary: "+err.Error())
		return
	}
	now := time.Now().UTC()
	if err := r.store.UpdateBacktestStatus(persistCtx, id, models.BacktestStatusCompleted, summary, &now); err != nil {
		r.logger.Error("backtest completion update failed", zap.Uint64("id", id), zap.Error(err))
		return
	}
	r.logger.Info("backtest completed",
		zap.Uint64("id", id),
		zap.Int("trades", len(trades)),
		zap.Int("snapshots", len(snaps)))
}

func (r *Runner) fail(id uint64, message string) {
	summary, _ := json.Marshal(map[string]string{"error": message})
	now := time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.store.UpdateBacktestStatus(ctx, id, models.BacktestStatusFailed, summary, &now); err != nil {
		r.logger.Error("backtest failure update failed", zap.Uint64("id", id), zap.Error(err))
	}
}
