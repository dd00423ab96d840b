package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"stocksignal/internal/apperr"
	"stocksignal/internal/indicator"
	"stocksignal/internal/models"
	"stocksignal/internal/portfolio"
	"stocksignal/internal/risk"
	"stocksignal/internal/signal"
)

// A signal needs this many bars of history before it counts.
const minHistoryBars = 26

// Risk-free rate for the Sharpe ratio, 0.1% annualized.
const riskFreeAnnual = 0.001

// Params are the per-run strategy overrides. Every recognized field is
// listed; unknown fields are rejected at the boundary.
type Params struct {
	MaxPositionPercent *float64 `json:"maxPositionPercent,omitempty"`
	MaxLossPerTrade    *float64 `json:"maxLossPerTrade,omitempty"`
	MaxPortfolioLoss   *float64 `json:"maxPortfolioLoss,omitempty"`
	MaxOpenPositions   *int     `json:"maxOpenPositions,omitempty"`
	RSIBuyThreshold    *float64 `json:"rsiBuyThreshold,omitempty"`
	RSISellThreshold   *float64 `json:"rsiSellThreshold,omitempty"`
	SMAShortPeriod     *int     `json:"smaShortPeriod,omitempty"`
	SMAMidPeriod       *int     `json:"smaMidPeriod,omitempty"`
	SMALongPeriod      *int     `json:"smaLongPeriod,omitempty"`
}

// Baseline is the configuration a run starts from before Params overrides.
type Baseline struct {
	Rules      risk.Rules
	Thresholds signal.Thresholds
	Indicators indicator.Config
}

func (b Baseline) override(p Params) Baseline {
	if p.MaxPositionPercent != nil {
		b.Rules.MaxPositionPercent = *p.MaxPositionPercent
	}
	if p.MaxLossPerTrade != nil {
		b.Rules.MaxLossPerTrade = *p.MaxLossPerTrade
	}
	if p.MaxPortfolioLoss != nil {
		b.Rules.MaxPortfolioLoss = *p.MaxPortfolioLoss
	}
	if p.MaxOpenPositions != nil {
		b.Rules.MaxOpenPositions = *p.MaxOpenPositions
	}
	if p.RSIBuyThreshold != nil {
		b.Thresholds.RSIBuy = *p.RSIBuyThreshold
	}
	if p.RSISellThreshold != nil {
		b.Thresholds.RSISell = *p.RSISellThreshold
	}
	if p.SMAShortPeriod != nil {
		b.Indicators.SMAShort = *p.SMAShortPeriod
	}
	if p.SMAMidPeriod != nil {
		b.Indicators.SMAMid = *p.SMAMidPeriod
	}
	if p.SMALongPeriod != nil {
		b.Indicators.SMALong = *p.SMALongPeriod
	}
	return b
}

// Request is one simulation order.
type Request struct {
	Name           string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital decimal.Decimal
	Codes          []string
	Params         Params
}

// Trade is one simulated fill.
type Trade struct {
	Code      string
	TradeType string
	Quantity  int64
	Price     decimal.Decimal
	PnL       *decimal.Decimal
	TradeDate time.Time
}

// Snap is the end-of-day valuation of the basket.
type Snap struct {
	Date           time.Time
	PortfolioValue decimal.Decimal
	Cash           decimal.Decimal
}

// Summary is the performance block persisted on completion.
type Summary struct {
	TotalReturn        float64 `json:"totalReturn"`
	TotalReturnPercent float64 `json:"totalReturnPercent"`
	FinalValue         float64 `json:"finalValue"`
	MaxDrawdown        float64 `json:"maxDrawdown"`
	WinRate            float64 `json:"winRate"`
	TotalTrades        int     `json:"totalTrades"`
	ProfitFactor       float64 `json:"profitFactor"`
	SharpeRatio        float64 `json:"sharpeRatio"`
}

// Result is the full output of one completed simulation.
type Result struct {
	Summary   Summary
	Trades    []Trade
	Snapshots []Snap
}

type codeSeries struct {
	code   string
	bars   []models.PriceBar
	set    indicator.Set
	highs  []float64
	lows   []float64
	byDate map[string]int
}

// Simulate replays the signal rules over the historical window with one
// shared cash balance. It is deterministic: codes run in lexicographic
// order within each date and nothing reads the clock. The series may carry
// history before StartDate for indicator warmup.
func Simulate(req Request, series map[string][]models.PriceBar, base Baseline) (Result, error) {
	if !req.InitialCapital.IsPositive() {
		return Result{}, apperr.Validation("initialCapital", "must be positive")
	}
	if len(req.Codes) == 0 {
		return Result{}, apperr.Validation("codes", "at least one code required")
	}
	if req.EndDate.Before(req.StartDate) {
		return Result{}, apperr.Validation("endDate", "must not precede startDate")
	}
	base = base.override(req.Params)

	codes := append([]string(nil), req.Codes...)
	sort.Strings(codes)

	data := make(map[string]*codeSeries, len(codes))
	dateSet := make(map[string]time.Time)
	for _, code := range codes {
		bars := series[code]
		inWindow := 0
		closes := make([]float64, len(bars))
		highs := make([]float64, len(bars))
		lows := make([]float64, len(bars))
		byDate := make(map[string]int, len(bars))
		for i := range bars {
			closes[i] = bars[i].Close
			highs[i] = bars[i].High
			lows[i] = bars[i].Low
			if !bars[i].Date.Before(req.StartDate) && !bars[i].Date.After(req.EndDate) {
				key := dateKey(bars[i].Date)
				byDate[key] = i
				dateSet[key] = bars[i].Date
				inWindow++
			}
		}
		if inWindow == 0 {
			return Result{}, &apperr.InsufficientDataError{Code: code, Need: 1, Have: 0}
		}
		data[code] = &codeSeries{
			code:   code,
			bars:   bars,
			set:    indicator.Compute(closes, base.Indicators),
			highs:  highs,
			lows:   lows,
			byDate: byDate,
		}
	}

	keys := make([]string, 0, len(dateSet))
	for k := range dateSet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	book := portfolio.NewBook("backtest", req.InitialCapital)
	lastClose := make(map[string]decimal.Decimal)
	var trades []Trade
	var snaps []Snap

	for _, key := range keys {
		date := dateSet[key]
		for _, code := range codes {
			cs := data[code]
			idx, ok := cs.byDate[key]
			if !ok || idx < 1 {
				continue
			}
			lastClose[code] = decimal.NewFromFloat(cs.bars[idx].Close)
			if idx+1 < minHistoryBars {
				continue
			}

			res := signal.Evaluate(cs.set, idx, base.Thresholds)
			price := decimal.NewFromFloat(cs.bars[idx].Close)

			if res.Direction == models.SignalBuy {
				if _, held := book.Holding(code); held {
					continue
				}
				open := len(book.Holdings())
				if open >= base.Rules.MaxOpenPositions {
					continue
				}
				// Spread the remaining cash across the codes not yet held
				// and cap any single position per the rules.
				slots := len(codes) - open
				if slots < 1 {
					slots = 1
				}
				alloc := book.Cash().Div(decimal.NewFromInt(int64(slots)))
				positionCap := book.Value(lastClose).Mul(decimal.NewFromFloat(base.Rules.MaxPositionPercent / 100))
				if positionCap.IsPositive() && alloc.GreaterThan(positionCap) {
					alloc = positionCap
				}
				if !price.IsPositive() {
					continue
				}
				qty := alloc.Div(price).Floor().IntPart()
				if qty <= 0 {
					continue
				}
				if err := book.Buy(code, qty, price); err != nil {
					continue
				}
				trades = append(trades, Trade{
					Code:      code,
					TradeType: models.TradeTypeBuy,
					Quantity:  qty,
					Price:     price,
					TradeDate: date,
				})
				continue
			}

			if res.Direction == models.SignalSell {
				h, held := book.Holding(code)
				if !held {
					continue
				}
				pnl, err := book.Sell(code, h.Quantity, price)
				if err != nil {
					continue
				}
				trades = append(trades, Trade{
					Code:      code,
					TradeType: models.TradeTypeSell,
					Quantity:  h.Quantity,
					Price:     price,
					PnL:       &pnl,
					TradeDate: date,
				})
			}
		}

		snaps = append(snaps, Snap{
			Date:           date,
			PortfolioValue: book.Value(lastClose),
			Cash:           book.Cash(),
		})
	}

	return Result{
		Summary:   summarize(req.InitialCapital, trades, snaps),
		Trades:    trades,
		Snapshots: snaps,
	}, nil
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// summarize computes the performance block from the trade log and the
// snapshot series.
func summarize(initialCapital decimal.Decimal, trades []Trade, snaps []Snap) Summary {
	initial, _ := initialCapital.Float64()
	final := initial
	if len(snaps) > 0 {
		final, _ = snaps[len(snaps)-1].PortfolioValue.Float64()
	}
	totalReturn := final - initial
	totalReturnPct := 0.0
	if initial != 0 {
		totalReturnPct = totalReturn / initial * 100
	}

	peak := initial
	maxDD := 0.0
	for _, s := range snaps {
		v, _ := s.PortfolioValue.Float64()
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak * 100; dd > maxDD {
				maxDD = dd
			}
		}
	}

	var closed, wins int
	grossProfit, grossLoss := 0.0, 0.0
	for _, t := range trades {
		if t.TradeType != models.TradeTypeSell || t.PnL == nil {
			continue
		}
		closed++
		pnl, _ := t.PnL.Float64()
		if pnl > 0 {
			wins++
			grossProfit += pnl
		} else if pnl < 0 {
			grossLoss += -pnl
		}
	}
	winRate := 0.0
	if closed > 0 {
		winRate = float64(wins) / float64(closed) * 100
	}
	profitFactor := 0.0
	switch {
	case grossLoss > 0:
		profitFactor = grossProfit / grossLoss
		if profitFactor > 999.99 {
			profitFactor = 999.99
		}
	case grossProfit > 0:
		profitFactor = 999.99
	}

	sharpe := 0.0
	if len(snaps) >= 2 {
		returns := make([]float64, 0, len(snaps)-1)
		for i := 1; i < len(snaps); i++ {
			prev, _ := snaps[i-1].PortfolioValue.Float64()
			cur, _ := snaps[i].PortfolioValue.Float64()
			if prev != 0 {
				returns = append(returns, (cur-prev)/prev)
			}
		}
		if len(returns) > 0 {
			mean := 0.0
			for _, r := range returns {
				mean += r
			}
			mean /= float64(len(returns))
			variance := 0.0
			for _, r := range returns {
				variance += (r - mean) * (r - mean)
			}
			variance /= float64(len(returns))
			std := math.Sqrt(variance)
			if std > 0 {
				riskFreeDaily := riskFreeAnnual / 252
				sharpe = (mean - riskFreeDaily) / std * math.Sqrt(252)
			}
		}
	}

	return Summary{
		TotalReturn:        round2(totalReturn),
		TotalReturnPercent: round2(totalReturnPct),
		FinalValue:         round2(final),
		MaxDrawdown:        round2(maxDD),
		WinRate:            math.Round(winRate*10) / 10,
		TotalTrades:        len(trades),
		ProfitFactor:       round2(profitFactor),
		SharpeRatio:        round2(sharpe),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
