package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"stocksignal/internal/marketdata"
	"stocksignal/internal/models"
	"stocksignal/internal/repository"
)

type stockRepo struct {
	*settingsRepo
	stocks  map[string]*models.Stock
	bars    map[string][]models.PriceBar
	signals map[string]*models.SignalRecord
	deleted []string
}

func newStockRepo() *stockRepo {
	return &stockRepo{
		settingsRepo: newSettingsRepo(),
		stocks:       make(map[string]*models.Stock),
		bars:         make(map[string][]models.PriceBar),
		signals:      make(map[string]*models.SignalRecord),
	}
}

func (r *stockRepo) GetStockByCode(_ context.Context, code string) (*models.Stock, error) {
	return r.stocks[code], nil
}

func (r *stockRepo) InsertStock(_ context.Context, item *models.Stock) error {
	item.ID = uint64(len(r.stocks) + 1)
	r.stocks[item.Code] = item
	return nil
}

func (r *stockRepo) ListStocks(_ context.Context, _ repository.ListStocksParams) ([]models.Stock, error) {
	out := make([]models.Stock, 0, len(r.stocks))
	for _, s := range r.stocks {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *stockRepo) DeleteStock(_ context.Context, code string) error {
	delete(r.stocks, code)
	r.deleted = append(r.deleted, code)
	return nil
}

func (r *stockRepo) UpsertPriceBars(_ context.Context, items []models.PriceBar) error {
	for _, item := range items {
		replaced := false
		series := r.bars[item.Code]
		for i := range series {
			if series[i].Date.Equal(item.Date) {
				series[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			series = append(series, item)
		}
		sort.Slice(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
		r.bars[item.Code] = series
	}
	return nil
}

func (r *stockRepo) ListPriceBars(_ context.Context, params repository.ListPriceBarsParams) ([]models.PriceBar, error) {
	series := append([]models.PriceBar(nil), r.bars[params.Code]...)
	if params.Desc {
		for i, j := 0, len(series)-1; i < j; i, j = i+1, j-1 {
			series[i], series[j] = series[j], series[i]
		}
	}
	if params.Limit > 0 && len(series) > params.Limit {
		series = series[:params.Limit]
	}
	return series, nil
}

func (r *stockRepo) GetLatestPriceBar(_ context.Context, code string) (*models.PriceBar, error) {
	series := r.bars[code]
	if len(series) == 0 {
		return nil, nil
	}
	bar := series[len(series)-1]
	return &bar, nil
}

func (r *stockRepo) UpsertSignalRecord(_ context.Context, item *models.SignalRecord) error {
	r.signals[item.Code] = item
	return nil
}

func (r *stockRepo) GetLatestSignalRecord(_ context.Context, code string) (*models.SignalRecord, error) {
	return r.signals[code], nil
}

func newTestStocks(repo *stockRepo) *Stocks {
	provider := &marketdata.Synthetic{Now: func() time.Time {
		return time.Date(2025, 6, 18, 15, 0, 0, 0, time.UTC)
	}}
	return NewStocks(repo, provider, NewSettings(repo, nil), nil)
}

func TestAddStockPrimesHistoryAndSignal(t *testing.T) {
	repo := newStockRepo()
	svc := newTestStocks(repo)

	stock, err := svc.Add(context.Background(), "7203")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if stock.Name == "" {
		t.Fatalf("name not resolved")
	}
	if len(repo.bars["7203"]) == 0 {
		t.Fatalf("no bars stored")
	}
	sig := repo.signals["7203"]
	if sig == nil {
		t.Fatalf("no signal record stored")
	}
	if sig.RSI == nil || sig.SMAMid == nil {
		t.Fatalf("indicators missing from signal record: %+v", sig)
	}
	last := repo.bars["7203"][len(repo.bars["7203"])-1]
	if !sig.Date.Equal(last.Date) {
		t.Fatalf("signal dated %v, newest bar %v", sig.Date, last.Date)
	}
}

func TestAddStockIsIdempotent(t *testing.T) {
	repo := newStockRepo()
	svc := newTestStocks(repo)

	first, err := svc.Add(context.Background(), "7203")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := svc.Add(context.Background(), "7203")
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("re-adding created a new row")
	}
}

func TestAddStockRejectsBadCode(t *testing.T) {
	svc := newTestStocks(newStockRepo())
	if _, err := svc.Add(context.Background(), "not a code!"); err == nil {
		t.Fatalf("malformed code accepted")
	}
}

func TestChartPeriodsAndOverlays(t *testing.T) {
	repo := newStockRepo()
	svc := newTestStocks(repo)
	if _, err := svc.Add(context.Background(), "7203"); err != nil {
		t.Fatalf("add: %v", err)
	}

	points, err := svc.Chart(context.Background(), "7203", "3m")
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	if len(points) == 0 || len(points) > 90 {
		t.Fatalf("points = %d, want 1..90", len(points))
	}
	// pre-lookback bars carry no mid SMA, later bars do
	if points[0].SMAMid != nil {
		t.Fatalf("first bar should have no mid SMA")
	}
	lastPoint := points[len(points)-1]
	if lastPoint.SMAMid == nil {
		t.Fatalf("last bar missing mid SMA")
	}

	if _, err := svc.Chart(context.Background(), "7203", "2w"); err == nil {
		t.Fatalf("unknown period accepted")
	}
}

func TestListJoinsQuoteAndSignal(t *testing.T) {
	repo := newStockRepo()
	svc := newTestStocks(repo)
	if _, err := svc.Add(context.Background(), "7203"); err != nil {
		t.Fatalf("add: %v", err)
	}

	rows, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	row := rows[0]
	if row.CurrentPrice <= 0 {
		t.Fatalf("current price missing: %+v", row)
	}
	if row.Signal == "" {
		t.Fatalf("signal missing")
	}
	if row.ActiveSignals == nil {
		t.Fatalf("active signals must be a slice, not nil")
	}
}

func TestDeleteUnknownStock(t *testing.T) {
	svc := newTestStocks(newStockRepo())
	if err := svc.Delete(context.Background(), "9999"); err == nil {
		t.Fatalf("deleting unwatched code accepted")
	}
}
