package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stocksignal/internal/apperr"
	"stocksignal/internal/backtest"
	"stocksignal/internal/models"
	"stocksignal/internal/repository"
)

// BacktestCreateInput is the run request as it arrives over the wire.
type BacktestCreateInput struct {
	Name           string           `json:"name"`
	StartDate      string           `json:"startDate"`
	EndDate        string           `json:"endDate"`
	InitialCapital decimal.Decimal  `json:"initialCapital"`
	Codes          []string         `json:"codes"`
	StrategyParams *backtest.Params `json:"strategyParams"`
}

// BacktestComparison is one run's metrics in a side-by-side view.
type BacktestComparison struct {
	ID      uint64            `json:"id"`
	Name    string            `json:"name"`
	Status  string            `json:"status"`
	Summary *backtest.Summary `json:"summary"`
}

// seriesLoader feeds stored price bars to the backtest runner.
type seriesLoader struct {
	repo repository.Repository
}

func NewSeriesLoader(repo repository.Repository) backtest.SeriesLoader {
	return &seriesLoader{repo: repo}
}

func (l *seriesLoader) LoadSeries(ctx context.Context, codes []string, since, until time.Time) (map[string][]models.PriceBar, error) {
	out := make(map[string][]models.PriceBar, len(codes))
	for _, code := range codes {
		bars, err := l.repo.ListPriceBars(ctx, repository.ListPriceBarsParams{
			Code:  code,
			Since: &since,
			Until: &until,
		})
		if err != nil {
			return nil, err
		}
		out[code] = bars
	}
	return out, nil
}

// Backtests validates run requests, persists them and hands them to the
// runner. baseCtx outlives individual HTTP requests so runs survive the
// request that created them.
type Backtests struct {
	repo    repository.Repository
	runner  *backtest.Runner
	baseCtx context.Context
	logger  *zap.Logger
}

func NewBacktests(repo repository.Repository, runner *backtest.Runner, baseCtx context.Context, logger *zap.Logger) *Backtests {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Backtests{repo: repo, runner: runner, baseCtx: baseCtx, logger: logger}
}

func (s *Backtests) Create(ctx context.Context, in BacktestCreateInput) (*models.Backtest, error) {
	if in.Name == "" {
		return nil, apperr.Validation("name", "must not be empty")
	}
	if in.InitialCapital.LessThan(decimal.NewFromInt(10000)) {
		return nil, apperr.Validation("initialCapital", "must be at least 10000")
	}
	if len(in.Codes) == 0 {
		return nil, apperr.Validation("codes", "must name at least one stock")
	}
	for _, code := range in.Codes {
		if !codePattern.MatchString(code) {
			return nil, apperr.Validation("codes", "contains an invalid code")
		}
	}
	start, err := time.Parse("2006-01-02", in.StartDate)
	if err != nil {
		return nil, apperr.Validation("startDate", "must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", in.EndDate)
	if err != nil {
		return nil, apperr.Validation("endDate", "must be YYYY-MM-DD")
	}
	if !start.Before(end) {
		return nil, apperr.Validation("endDate", "must be after startDate")
	}

	codesJSON, err := json.Marshal(in.Codes)
	if err != nil {
		return nil, err
	}
	row := &models.Backtest{
		Name:           in.Name,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: in.InitialCapital,
		Codes:          codesJSON,
		Status:         models.BacktestStatusPending,
	}
	req := backtest.Request{
		Name:           in.Name,
		StartDate:      start,
		EndDate:        end,
		InitialCapital: in.InitialCapital,
		Codes:          in.Codes,
	}
	if in.StrategyParams != nil {
		paramsJSON, err := json.Marshal(in.StrategyParams)
		if err != nil {
			return nil, err
		}
		row.StrategyParams = paramsJSON
		req.Params = *in.StrategyParams
	}
	if err := s.repo.InsertBacktest(ctx, row); err != nil {
		return nil, err
	}
	s.runner.Start(s.baseCtx, row.ID, req)
	return row, nil
}

func (s *Backtests) Get(ctx context.Context, id uint64) (*models.Backtest, error) {
	return s.repo.GetBacktestByID(ctx, id)
}

func (s *Backtests) List(ctx context.Context, params repository.ListBacktestsParams) ([]models.Backtest, int64, error) {
	items, err := s.repo.ListBacktests(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountBacktests(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Delete cancels the run if it is still in flight and removes the row with
// its trades and snapshots.
func (s *Backtests) Delete(ctx context.Context, id uint64) error {
	existing, err := s.repo.GetBacktestByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.Validation("id", "backtest not found")
	}
	s.runner.Cancel(id)
	return s.repo.DeleteBacktest(ctx, id)
}

func (s *Backtests) Trades(ctx context.Context, id uint64) ([]models.BacktestTrade, error) {
	return s.repo.ListBacktestTrades(ctx, id)
}

func (s *Backtests) Snapshots(ctx context.Context, id uint64) ([]models.BacktestSnapshot, error) {
	return s.repo.ListBacktestSnapshots(ctx, id)
}

// Compare returns the requested runs side by side, preserving request order.
func (s *Backtests) Compare(ctx context.Context, ids []uint64) ([]BacktestComparison, error) {
	if len(ids) < 2 {
		return nil, apperr.Validation("ids", "must name at least two backtests")
	}
	rows, err := s.repo.ListBacktestsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint64]models.Backtest, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]BacktestComparison, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return nil, apperr.Validation("ids", "backtest not found")
		}
		cmp := BacktestComparison{ID: row.ID, Name: row.Name, Status: row.Status}
		if len(row.ResultSummary) > 0 {
			var summary backtest.Summary
			if err := json.Unmarshal(row.ResultSummary, &summary); err == nil {
				cmp.Summary = &summary
			}
		}
		out = append(out, cmp)
	}
	return out, nil
}
