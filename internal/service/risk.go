package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stocksignal/internal/apperr"
	"stocksignal/internal/models"
	"stocksignal/internal/repository"
	"stocksignal/internal/risk"
)

// Risk assembles the live portfolio snapshot and applies the stored rules
// to proposed trades.
type Risk struct {
	repo     repository.Repository
	settings *Settings
	txs      *Transactions
	logger   *zap.Logger
}

func NewRisk(repo repository.Repository, settings *Settings, txs *Transactions, logger *zap.Logger) *Risk {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Risk{repo: repo, settings: settings, txs: txs, logger: logger}
}

// snapshot folds the live account and marks it to the latest closes.
func (s *Risk) snapshot(ctx context.Context, code string) (risk.Snapshot, error) {
	holdings, _, err := s.txs.replay(ctx, models.AccountLive)
	if err != nil {
		return risk.Snapshot{}, err
	}

	snap := risk.Snapshot{
		PortfolioValue: decimal.Zero,
		CostBasis:      decimal.Zero,
		Held:           make(map[string]int64, len(holdings)),
	}
	for _, h := range holdings {
		snap.Held[h.Code] = h.Quantity
		qty := decimal.NewFromInt(h.Quantity)
		snap.CostBasis = snap.CostBasis.Add(h.AveragePrice.Mul(qty))
		current := h.AveragePrice
		if bar, err := s.repo.GetLatestPriceBar(ctx, h.Code); err == nil && bar != nil {
			current = decimal.NewFromFloat(bar.Close)
		}
		snap.PortfolioValue = snap.PortfolioValue.Add(current.Mul(qty))
	}

	if sig, err := s.repo.GetLatestSignalRecord(ctx, code); err == nil && sig != nil {
		snap.StopLossPrice = sig.StopLossPrice
	}
	return snap, nil
}

// EvaluateTrade gates one proposed trade against the stored risk rules and
// the current live portfolio.
func (s *Risk) EvaluateTrade(ctx context.Context, code, tradeType string, quantity int64, price decimal.Decimal) (*risk.Evaluation, error) {
	if tradeType != models.TradeTypeBuy && tradeType != models.TradeTypeSell {
		return nil, apperr.Validation("tradeType", "must be buy or sell")
	}
	if quantity <= 0 {
		return nil, apperr.Validation("quantity", "must be positive")
	}
	if !price.IsPositive() {
		return nil, apperr.Validation("price", "must be positive")
	}
	rules, err := s.settings.RiskRules(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx, code)
	if err != nil {
		return nil, err
	}
	eval := risk.EvaluateTrade(code, tradeType, quantity, price, snap, rules)
	return &eval, nil
}

// HeldQuantity reports the live account's position in one code.
func (s *Risk) HeldQuantity(ctx context.Context, code string) (int64, error) {
	return s.txs.HeldQuantity(ctx, models.AccountLive, code)
}

// Checklist builds the qualitative pre-trade checks for one code from its
// latest signal record and quote.
func (s *Risk) Checklist(ctx context.Context, code string) ([]risk.ChecklistItem, error) {
	rules, err := s.settings.RiskRules(ctx)
	if err != nil {
		return nil, err
	}
	in := risk.ChecklistInput{SignalType: models.SignalHold}
	if sig, err := s.repo.GetLatestSignalRecord(ctx, code); err == nil && sig != nil {
		in.SignalType = sig.SignalType
		in.Strength = sig.Strength
		in.RSI = sig.RSI
		in.MACD = sig.MACD
		in.MACDSignal = sig.MACDSignal
		in.TargetPrice = sig.TargetPrice
		in.StopLossPrice = sig.StopLossPrice
	}
	if bar, err := s.repo.GetLatestPriceBar(ctx, code); err == nil && bar != nil {
		price := bar.Close
		in.CurrentPrice = &price
	}
	return risk.Checklist(in, rules), nil
}

// SuggestPrices derives entry, stop and target candidates for one code.
func (s *Risk) SuggestPrices(ctx context.Context, code string) ([]risk.PriceSuggestion, error) {
	bar, err := s.repo.GetLatestPriceBar(ctx, code)
	if err != nil {
		return nil, err
	}
	if bar == nil {
		return nil, &apperr.InsufficientDataError{Code: code, Need: 1, Have: 0}
	}
	in := risk.SuggestInput{CurrentPrice: bar.Close}
	if sig, err := s.repo.GetLatestSignalRecord(ctx, code); err == nil && sig != nil {
		in.SupportPrice = sig.SupportPrice
		in.StopLossPrice = sig.StopLossPrice
		in.TargetPrice = sig.TargetPrice
	}
	return risk.SuggestPrices(in), nil
}
