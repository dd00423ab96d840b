package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stocksignal/internal/apperr"
	"stocksignal/internal/models"
	"stocksignal/internal/portfolio"
	"stocksignal/internal/repository"
)

// TransactionInput is one manual fill to record.
type TransactionInput struct {
	Code     string          `json:"code"`
	Type     string          `json:"type"`
	Account  string          `json:"account"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Date     string          `json:"date"`
	Memo     string          `json:"memo"`
}

// PortfolioHolding is one open position with its mark-to-market view.
type PortfolioHolding struct {
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	Quantity         int64           `json:"quantity"`
	AveragePrice     decimal.Decimal `json:"averagePrice"`
	CurrentPrice     decimal.Decimal `json:"currentPrice"`
	MarketValue      decimal.Decimal `json:"marketValue"`
	UnrealizedPnL    decimal.Decimal `json:"unrealizedPnl"`
	UnrealizedPnLPct float64         `json:"unrealizedPnlPercent"`
}

// PortfolioView is the whole account folded from the transaction log.
type PortfolioView struct {
	Account       string             `json:"account"`
	Holdings      []PortfolioHolding `json:"holdings"`
	TotalValue    decimal.Decimal    `json:"totalValue"`
	TotalCost     decimal.Decimal    `json:"totalCost"`
	UnrealizedPnL decimal.Decimal    `json:"unrealizedPnl"`
	RealizedPnL   decimal.Decimal    `json:"realizedPnl"`
	PositionCount int                `json:"positionCount"`
}

// Transactions records fills and folds them into portfolio state. Holdings
// are never stored; every read replays the log.
type Transactions struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewTransactions(repo repository.Repository, logger *zap.Logger) *Transactions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transactions{repo: repo, logger: logger}
}

// Add validates and records one fill. Sells exceeding the held quantity are
// rejected before anything is written.
func (s *Transactions) Add(ctx context.Context, in TransactionInput) (*models.Transaction, error) {
	if !codePattern.MatchString(in.Code) {
		return nil, apperr.Validation("code", "must be 1 to 10 alphanumeric characters")
	}
	if in.Type != models.TradeTypeBuy && in.Type != models.TradeTypeSell {
		return nil, apperr.Validation("type", "must be buy or sell")
	}
	if in.Account == "" {
		in.Account = models.AccountLive
	}
	if in.Account != models.AccountLive && in.Account != models.AccountPaper {
		return nil, apperr.Validation("account", "must be live or paper")
	}
	if in.Quantity <= 0 {
		return nil, apperr.Validation("quantity", "must be positive")
	}
	if !in.Price.IsPositive() {
		return nil, apperr.Validation("price", "must be positive")
	}
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if in.Date != "" {
		parsed, err := time.Parse("2006-01-02", in.Date)
		if err != nil {
			return nil, apperr.Validation("date", "must be YYYY-MM-DD")
		}
		date = parsed
	}

	if in.Type == models.TradeTypeSell {
		held, err := s.HeldQuantity(ctx, in.Account, in.Code)
		if err != nil {
			return nil, err
		}
		if held < in.Quantity {
			return nil, &apperr.InsufficientHoldingError{Code: in.Code, Account: in.Account, Want: in.Quantity, Held: held}
		}
	}

	tx := &models.Transaction{
		Code:            in.Code,
		Type:            in.Type,
		Account:         in.Account,
		Quantity:        in.Quantity,
		Price:           in.Price,
		TransactionDate: date,
		Memo:            in.Memo,
	}
	if err := s.repo.InsertTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Transactions) Delete(ctx context.Context, id uint64) error {
	existing, err := s.repo.GetTransactionByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.Validation("id", "transaction not found")
	}

	// The rest of the log must still replay cleanly without this fill,
	// otherwise every later portfolio read would fail on an orphaned sell.
	fills, err := s.repo.ListAccountFills(ctx, existing.Account)
	if err != nil {
		return err
	}
	remaining := make([]models.Transaction, 0, len(fills))
	for _, f := range fills {
		if f.ID != id {
			remaining = append(remaining, f)
		}
	}
	if _, _, err := portfolio.Replay(remaining); err != nil {
		return apperr.Validation("id", "a later sell depends on this transaction")
	}

	return s.repo.DeleteTransaction(ctx, id)
}

func (s *Transactions) List(ctx context.Context, params repository.ListTransactionsParams) ([]models.Transaction, int64, error) {
	items, err := s.repo.ListTransactions(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountTransactions(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// replay folds every fill for one account into holdings and realized P&L.
// The fold is order-sensitive, so it always reads the whole log oldest
// first, never the capped display listing.
func (s *Transactions) replay(ctx context.Context, account string) (map[string]portfolio.Holding, decimal.Decimal, error) {
	fills, err := s.repo.ListAccountFills(ctx, account)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return portfolio.Replay(fills)
}

// HeldQuantity returns the net held shares of one code in one account.
func (s *Transactions) HeldQuantity(ctx context.Context, account, code string) (int64, error) {
	holdings, _, err := s.replay(ctx, account)
	if err != nil {
		return 0, err
	}
	return holdings[code].Quantity, nil
}

// Portfolio marks the replayed holdings to the latest stored close.
func (s *Transactions) Portfolio(ctx context.Context, account string) (*PortfolioView, error) {
	if account == "" {
		account = models.AccountLive
	}
	holdings, realized, err := s.replay(ctx, account)
	if err != nil {
		return nil, err
	}

	view := &PortfolioView{
		Account:       account,
		Holdings:      make([]PortfolioHolding, 0, len(holdings)),
		TotalValue:    decimal.Zero,
		TotalCost:     decimal.Zero,
		UnrealizedPnL: decimal.Zero,
		RealizedPnL:   realized,
	}
	for _, h := range sortedHoldings(holdings) {
		current := h.AveragePrice
		if bar, err := s.repo.GetLatestPriceBar(ctx, h.Code); err == nil && bar != nil {
			current = decimal.NewFromFloat(bar.Close)
		}
		name := h.Code
		if stock, err := s.repo.GetStockByCode(ctx, h.Code); err == nil && stock != nil {
			name = stock.Name
		}

		qty := decimal.NewFromInt(h.Quantity)
		cost := h.AveragePrice.Mul(qty)
		value := current.Mul(qty)
		unrealized := portfolio.Unrealized(h, current)
		pct := 0.0
		if cost.IsPositive() {
			pct, _ = unrealized.Div(cost).Mul(decimal.NewFromInt(100)).Round(2).Float64()
		}

		view.Holdings = append(view.Holdings, PortfolioHolding{
			Code:             h.Code,
			Name:             name,
			Quantity:         h.Quantity,
			AveragePrice:     h.AveragePrice,
			CurrentPrice:     current,
			MarketValue:      value,
			UnrealizedPnL:    unrealized,
			UnrealizedPnLPct: pct,
		})
		view.TotalValue = view.TotalValue.Add(value)
		view.TotalCost = view.TotalCost.Add(cost)
		view.UnrealizedPnL = view.UnrealizedPnL.Add(unrealized)
	}
	view.PositionCount = len(view.Holdings)
	return view, nil
}

func sortedHoldings(holdings map[string]portfolio.Holding) []portfolio.Holding {
	out := make([]portfolio.Holding, 0, len(holdings))
	for _, h := range holdings {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
