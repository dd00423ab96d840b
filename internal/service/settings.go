package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"stocksignal/internal/apperr"
	"stocksignal/internal/autotrade"
	"stocksignal/internal/backtest"
	"stocksignal/internal/brokerage"
	"stocksignal/internal/indicator"
	"stocksignal/internal/models"
	"stocksignal/internal/repository"
	"stocksignal/internal/risk"
	"stocksignal/internal/signal"
)

const (
	settingKeyIndicator = "indicator_settings"
	settingKeyRiskRules = "risk_rules"
	settingKeyAutoTrade = "auto_trade_config"
	settingKeyBrokerage = "brokerage_config"
)

// IndicatorSettings is the stored signal-tuning singleton.
type IndicatorSettings struct {
	RSIBuyThreshold  int   `json:"rsiBuyThreshold"`
	RSISellThreshold int   `json:"rsiSellThreshold"`
	SMAShortPeriod   int   `json:"smaShortPeriod"`
	SMAMidPeriod     int   `json:"smaMidPeriod"`
	SMALongPeriod    int   `json:"smaLongPeriod"`
	InvestmentBudget int64 `json:"investmentBudget"`
}

func DefaultIndicatorSettings() IndicatorSettings {
	return IndicatorSettings{
		RSIBuyThreshold:  30,
		RSISellThreshold: 70,
		SMAShortPeriod:   5,
		SMAMidPeriod:     25,
		SMALongPeriod:    75,
		InvestmentBudget: 1000000,
	}
}

// RiskRulesPatch is a partial risk-rules update. Nil fields keep the stored
// value.
type RiskRulesPatch struct {
	MaxPositionPercent *float64 `json:"maxPositionPercent"`
	MaxLossPerTrade    *float64 `json:"maxLossPerTrade"`
	MaxPortfolioLoss   *float64 `json:"maxPortfolioLoss"`
	MaxOpenPositions   *int     `json:"maxOpenPositions"`
}

// Settings resolves and updates the stored configuration singletons. Reads
// fall back to defaults when a key was never written, so a fresh database
// behaves the same as a configured one.
type Settings struct {
	repo   repository.Repository
	logger *zap.Logger
}

func NewSettings(repo repository.Repository, logger *zap.Logger) *Settings {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Settings{repo: repo, logger: logger}
}

func (s *Settings) load(ctx context.Context, key string, out any) (bool, error) {
	row, err := s.repo.GetSettingByKey(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load setting %s: %w", key, err)
	}
	if row == nil || len(row.Value) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(row.Value, out); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

func (s *Settings) save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	return s.repo.UpsertSetting(ctx, &models.Setting{Key: key, Value: raw})
}

func (s *Settings) IndicatorSettings(ctx context.Context) (IndicatorSettings, error) {
	out := DefaultIndicatorSettings()
	if _, err := s.load(ctx, settingKeyIndicator, &out); err != nil {
		return IndicatorSettings{}, err
	}
	return out, nil
}

func (s *Settings) UpdateIndicatorSettings(ctx context.Context, in IndicatorSettings) error {
	if in.RSIBuyThreshold < 10 || in.RSIBuyThreshold > 90 {
		return apperr.Validation("rsiBuyThreshold", "must be between 10 and 90")
	}
	if in.RSISellThreshold < 10 || in.RSISellThreshold > 90 {
		return apperr.Validation("rsiSellThreshold", "must be between 10 and 90")
	}
	for field, v := range map[string]int{
		"smaShortPeriod": in.SMAShortPeriod,
		"smaMidPeriod":   in.SMAMidPeriod,
		"smaLongPeriod":  in.SMALongPeriod,
	} {
		if v < 1 || v > 200 {
			return apperr.Validation(field, "must be between 1 and 200")
		}
	}
	if in.InvestmentBudget < 10000 {
		return apperr.Validation("investmentBudget", "must be at least 10000")
	}
	return s.save(ctx, settingKeyIndicator, in)
}

func (s *Settings) RiskRules(ctx context.Context) (risk.Rules, error) {
	out := risk.DefaultRules()
	if _, err := s.load(ctx, settingKeyRiskRules, &out); err != nil {
		return risk.Rules{}, err
	}
	return out, nil
}

func (s *Settings) UpdateRiskRules(ctx context.Context, patch RiskRulesPatch) (risk.Rules, error) {
	rules, err := s.RiskRules(ctx)
	if err != nil {
		return risk.Rules{}, err
	}
	if patch.MaxPositionPercent != nil {
		if *patch.MaxPositionPercent < 5 || *patch.MaxPositionPercent > 100 {
			return risk.Rules{}, apperr.Validation("maxPositionPercent", "must be between 5 and 100")
		}
		rules.MaxPositionPercent = *patch.MaxPositionPercent
	}
	if patch.MaxLossPerTrade != nil {
		if *patch.MaxLossPerTrade < 1 || *patch.MaxLossPerTrade > 20 {
			return risk.Rules{}, apperr.Validation("maxLossPerTrade", "must be between 1 and 20")
		}
		rules.MaxLossPerTrade = *patch.MaxLossPerTrade
	}
	if patch.MaxPortfolioLoss != nil {
		if *patch.MaxPortfolioLoss < 1 || *patch.MaxPortfolioLoss > 50 {
			return risk.Rules{}, apperr.Validation("maxPortfolioLoss", "must be between 1 and 50")
		}
		rules.MaxPortfolioLoss = *patch.MaxPortfolioLoss
	}
	if patch.MaxOpenPositions != nil {
		if *patch.MaxOpenPositions < 1 || *patch.MaxOpenPositions > 20 {
			return risk.Rules{}, apperr.Validation("maxOpenPositions", "must be between 1 and 20")
		}
		rules.MaxOpenPositions = *patch.MaxOpenPositions
	}
	if err := s.save(ctx, settingKeyRiskRules, rules); err != nil {
		return risk.Rules{}, err
	}
	return rules, nil
}

func (s *Settings) AutoTradeConfig(ctx context.Context) (autotrade.Config, error) {
	out := autotrade.DefaultConfig()
	if _, err := s.load(ctx, settingKeyAutoTrade, &out); err != nil {
		return autotrade.Config{}, err
	}
	return out, nil
}

func (s *Settings) UpdateAutoTradeConfig(ctx context.Context, in autotrade.Config) error {
	if in.OrderType != autotrade.OrderTypeMarket && in.OrderType != autotrade.OrderTypeLimit {
		return apperr.Validation("orderType", "must be market or limit")
	}
	if in.MinSignalStrength < 1 || in.MinSignalStrength > 3 {
		return apperr.Validation("minSignalStrength", "must be between 1 and 3")
	}
	if in.MaxTradesPerDay < 1 || in.MaxTradesPerDay > 50 {
		return apperr.Validation("maxTradesPerDay", "must be between 1 and 50")
	}
	return s.save(ctx, settingKeyAutoTrade, in)
}

// SetAutoTradeEnabled flips only the global switch; the rest of the stored
// config is untouched.
func (s *Settings) SetAutoTradeEnabled(ctx context.Context, enabled bool) (autotrade.Config, error) {
	cfg, err := s.AutoTradeConfig(ctx)
	if err != nil {
		return autotrade.Config{}, err
	}
	cfg.Enabled = enabled
	if err := s.save(ctx, settingKeyAutoTrade, cfg); err != nil {
		return autotrade.Config{}, err
	}
	return cfg, nil
}

func (s *Settings) BrokerageConfig(ctx context.Context) (brokerage.Config, error) {
	out := brokerage.DefaultConfig()
	if _, err := s.load(ctx, settingKeyBrokerage, &out); err != nil {
		return brokerage.Config{}, err
	}
	return out, nil
}

func (s *Settings) UpdateBrokerageConfig(ctx context.Context, in brokerage.Config) error {
	if in.Host == "" {
		return apperr.Validation("host", "must not be empty")
	}
	if in.Port < 1 || in.Port > 65535 {
		return apperr.Validation("port", "must be a valid TCP port")
	}
	return s.save(ctx, settingKeyBrokerage, in)
}

// InvestmentBudget exposes the budget as a decimal for trade sizing.
func (s *Settings) InvestmentBudget(ctx context.Context) (decimal.Decimal, error) {
	in, err := s.IndicatorSettings(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(in.InvestmentBudget), nil
}

// Thresholds returns the signal thresholds derived from the stored settings.
func (s *Settings) Thresholds(ctx context.Context) (signal.Thresholds, error) {
	in, err := s.IndicatorSettings(ctx)
	if err != nil {
		return signal.Thresholds{}, err
	}
	return signal.Thresholds{
		RSIBuy:  float64(in.RSIBuyThreshold),
		RSISell: float64(in.RSISellThreshold),
	}, nil
}

// IndicatorConfig returns the SMA periods for indicator computation.
func (s *Settings) IndicatorConfig(ctx context.Context) (indicator.Config, error) {
	in, err := s.IndicatorSettings(ctx)
	if err != nil {
		return indicator.Config{}, err
	}
	return indicator.Config{
		SMAShort: in.SMAShortPeriod,
		SMAMid:   in.SMAMidPeriod,
		SMALong:  in.SMALongPeriod,
	}, nil
}

// Baseline assembles the starting configuration for a backtest run.
func (s *Settings) Baseline(ctx context.Context) (backtest.Baseline, error) {
	rules, err := s.RiskRules(ctx)
	if err != nil {
		return backtest.Baseline{}, err
	}
	thresholds, err := s.Thresholds(ctx)
	if err != nil {
		return backtest.Baseline{}, err
	}
	cfg, err := s.IndicatorConfig(ctx)
	if err != nil {
		return backtest.Baseline{}, err
	}
	return backtest.Baseline{Rules: rules, Thresholds: thresholds, Indicators: cfg}, nil
}
