package service

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stocksignal/internal/apperr"
	"stocksignal/internal/models"
	"stocksignal/internal/repository"
)

type txRepo struct {
	repository.Repository
	fills   []models.Transaction
	bars    map[string]*models.PriceBar
	stocks  map[string]*models.Stock
	deleted []uint64
	nextID  uint64
}

func (r *txRepo) InsertTransaction(_ context.Context, item *models.Transaction) error {
	r.nextID++
	item.ID = r.nextID
	r.fills = append(r.fills, *item)
	return nil
}

func (r *txRepo) GetTransactionByID(_ context.Context, id uint64) (*models.Transaction, error) {
	for _, f := range r.fills {
		if f.ID == id {
			cp := f
			return &cp, nil
		}
	}
	return nil, nil
}

// ListAccountFills mirrors the store contract: the whole log, oldest first
// by date then insertion, regardless of slice order.
func (r *txRepo) ListAccountFills(_ context.Context, account string) ([]models.Transaction, error) {
	out := []models.Transaction{}
	for _, f := range r.fills {
		if f.Account == account {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListTransactions mirrors the display listing: newest first and capped.
func (r *txRepo) ListTransactions(_ context.Context, params repository.ListTransactionsParams) ([]models.Transaction, error) {
	out := []models.Transaction{}
	for _, f := range r.fills {
		if params.Account != nil && f.Account != *params.Account {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > 2 {
		out = out[:2]
	}
	return out, nil
}

func (r *txRepo) DeleteTransaction(_ context.Context, id uint64) error {
	r.deleted = append(r.deleted, id)
	kept := r.fills[:0]
	for _, f := range r.fills {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	r.fills = kept
	return nil
}

func (r *txRepo) GetLatestPriceBar(_ context.Context, code string) (*models.PriceBar, error) {
	return r.bars[code], nil
}

func (r *txRepo) GetStockByCode(_ context.Context, code string) (*models.Stock, error) {
	return r.stocks[code], nil
}

func tradeDay(day int) time.Time {
	return time.Date(2025, 6, day, 0, 0, 0, 0, time.UTC)
}

func fill(id uint64, code, tradeType string, qty int64, price float64, day int) models.Transaction {
	return models.Transaction{
		ID:              id,
		Code:            code,
		Type:            tradeType,
		Account:         models.AccountLive,
		Quantity:        qty,
		Price:           decimal.NewFromFloat(price),
		TransactionDate: tradeDay(day),
	}
}

func TestPortfolioReplaysOldestFirst(t *testing.T) {
	// Seeded newest first on purpose: the fold must not depend on storage
	// order.
	repo := &txRepo{
		fills: []models.Transaction{
			fill(2, "7203", models.TradeTypeSell, 40, 1200, 2),
			fill(1, "7203", models.TradeTypeBuy, 100, 1000, 1),
		},
		nextID: 2,
	}
	svc := NewTransactions(repo, nil)

	view, err := svc.Portfolio(context.Background(), models.AccountLive)
	if err != nil {
		t.Fatalf("Portfolio: %v", err)
	}
	if len(view.Holdings) != 1 {
		t.Fatalf("holdings = %d, want 1", len(view.Holdings))
	}
	h := view.Holdings[0]
	if h.Quantity != 60 {
		t.Fatalf("quantity = %d, want 60", h.Quantity)
	}
	if !h.AveragePrice.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("average price = %s, want 1000", h.AveragePrice)
	}
	if !view.RealizedPnL.Equal(decimal.NewFromInt(8000)) {
		t.Fatalf("realized pnl = %s, want 8000", view.RealizedPnL)
	}
}

func TestHeldQuantityAfterFullRoundTrip(t *testing.T) {
	repo := &txRepo{
		fills: []models.Transaction{
			fill(2, "7203", models.TradeTypeSell, 100, 1100, 2),
			fill(1, "7203", models.TradeTypeBuy, 100, 1000, 1),
		},
		nextID: 2,
	}
	svc := NewTransactions(repo, nil)

	held, err := svc.HeldQuantity(context.Background(), models.AccountLive, "7203")
	if err != nil {
		t.Fatalf("HeldQuantity: %v", err)
	}
	if held != 0 {
		t.Fatalf("held = %d, want 0", held)
	}
}

func TestReplayFoldsWholeLog(t *testing.T) {
	// Three fills while the display listing caps at two: the fold must read
	// the full log.
	repo := &txRepo{
		fills: []models.Transaction{
			fill(1, "7203", models.TradeTypeBuy, 100, 1000, 1),
			fill(2, "7203", models.TradeTypeBuy, 50, 1100, 2),
			fill(3, "7203", models.TradeTypeSell, 120, 1200, 3),
		},
		nextID: 3,
	}
	svc := NewTransactions(repo, nil)

	held, err := svc.HeldQuantity(context.Background(), models.AccountLive, "7203")
	if err != nil {
		t.Fatalf("HeldQuantity: %v", err)
	}
	if held != 30 {
		t.Fatalf("held = %d, want 30", held)
	}
}

func TestAddSellAfterBuyRecords(t *testing.T) {
	repo := &txRepo{
		fills:  []models.Transaction{fill(1, "7203", models.TradeTypeBuy, 100, 1000, 1)},
		nextID: 1,
	}
	svc := NewTransactions(repo, nil)

	tx, err := svc.Add(context.Background(), TransactionInput{
		Code:     "7203",
		Type:     models.TradeTypeSell,
		Quantity: 50,
		Price:    decimal.NewFromInt(1200),
		Date:     "2025-06-02",
	})
	if err != nil {
		t.Fatalf("Add sell: %v", err)
	}
	if tx.ID == 0 {
		t.Fatalf("sell not persisted")
	}
}

func TestDeleteRejectsOrphaningSell(t *testing.T) {
	repo := &txRepo{
		fills: []models.Transaction{
			fill(1, "7203", models.TradeTypeBuy, 100, 1000, 1),
			fill(2, "7203", models.TradeTypeSell, 60, 1200, 2),
		},
		nextID: 2,
	}
	svc := NewTransactions(repo, nil)

	err := svc.Delete(context.Background(), 1)
	var verr *apperr.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Delete(buy) err = %v, want validation error", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("buy was deleted despite dependent sell")
	}

	if err := svc.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete(sell): %v", err)
	}
	if err := svc.Delete(context.Background(), 1); err != nil {
		t.Fatalf("Delete(buy) after sell removed: %v", err)
	}
	if len(repo.deleted) != 2 {
		t.Fatalf("deleted = %v, want both fills", repo.deleted)
	}
}
