package service

import (
	"context"

	"go.uber.org/zap"

	"stocksignal/internal/models"
	"stocksignal/internal/recommend"
	"stocksignal/internal/repository"
)

// Recommendations is the ranked buy/sell payload.
type Recommendations struct {
	Buy              []recommend.Item `json:"buyRecommendations"`
	Sell             []recommend.Item `json:"sellRecommendations"`
	InvestmentBudget int64            `json:"investmentBudget"`
}

// Recommender assembles candidates from the watch list and ranks them
// against the stored budget.
type Recommender struct {
	repo     repository.Repository
	settings *Settings
	txs      *Transactions
	logger   *zap.Logger
}

func NewRecommender(repo repository.Repository, settings *Settings, txs *Transactions, logger *zap.Logger) *Recommender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recommender{repo: repo, settings: settings, txs: txs, logger: logger}
}

func (s *Recommender) Build(ctx context.Context) (*Recommendations, error) {
	cfg, err := s.settings.IndicatorSettings(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := s.settings.RiskRules(ctx)
	if err != nil {
		return nil, err
	}
	stocks, err := s.repo.ListStocks(ctx, repository.ListStocksParams{})
	if err != nil {
		return nil, err
	}
	held, _, err := s.txs.replay(ctx, models.AccountLive)
	if err != nil {
		return nil, err
	}

	candidates := make([]recommend.Candidate, 0, len(stocks))
	for _, stock := range stocks {
		sig, err := s.repo.GetLatestSignalRecord(ctx, stock.Code)
		if err != nil {
			return nil, err
		}
		if sig == nil || sig.SignalType == models.SignalHold {
			continue
		}
		bar, err := s.repo.GetLatestPriceBar(ctx, stock.Code)
		if err != nil {
			return nil, err
		}
		if bar == nil || bar.Close <= 0 {
			continue
		}
		candidates = append(candidates, recommend.Candidate{
			Code:          stock.Code,
			Name:          stock.Name,
			SignalType:    sig.SignalType,
			Strength:      sig.Strength,
			CurrentPrice:  bar.Close,
			TargetPrice:   sig.TargetPrice,
			StopLossPrice: sig.StopLossPrice,
			ActiveRules:   splitRules(sig.ActiveRules),
			HeldQuantity:  held[stock.Code].Quantity,
		})
	}

	budget, err := s.settings.InvestmentBudget(ctx)
	if err != nil {
		return nil, err
	}
	buys, sells := recommend.Build(candidates, budget, rules.MaxPositionPercent)
	if buys == nil {
		buys = []recommend.Item{}
	}
	if sells == nil {
		sells = []recommend.Item{}
	}
	return &Recommendations{Buy: buys, Sell: sells, InvestmentBudget: cfg.InvestmentBudget}, nil
}
