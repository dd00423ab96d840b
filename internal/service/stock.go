package service

import (
	"context"
	"math"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"stocksignal/internal/apperr"
	"stocksignal/internal/indicator"
	"stocksignal/internal/marketdata"
	"stocksignal/internal/models"
	"stocksignal/internal/repository"
	"stocksignal/internal/signal"
)

// Floor on fetch depth: a one-year chart plus the long SMA lookback needs
// this many calendar days of bars.
const minHistoryDays = 400

var codePattern = regexp.MustCompile(`^[0-9A-Za-z.]{1,10}$`)

// StockSummary is one watch-list row with its latest quote and signal.
type StockSummary struct {
	ID             uint64   `json:"id"`
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	CurrentPrice   float64  `json:"currentPrice"`
	PreviousClose  float64  `json:"previousClose"`
	ChangePercent  float64  `json:"changePercent"`
	Signal         string   `json:"signal"`
	SignalStrength int      `json:"signalStrength"`
	ActiveSignals  []string `json:"activeSignals"`
	RSI            float64  `json:"rsi"`
	UpdatedAt      string   `json:"updatedAt"`
}

// StockDetail is the full per-code view: quote, indicators and price levels.
type StockDetail struct {
	StockSummary
	MACD            float64  `json:"macd"`
	MACDSignal      float64  `json:"macdSignal"`
	MACDHistogram   float64  `json:"macdHistogram"`
	SMAShort        float64  `json:"sma5"`
	SMAMid          float64  `json:"sma25"`
	SMALong         float64  `json:"sma75"`
	TargetPrice     *float64 `json:"targetPrice"`
	StopLossPrice   *float64 `json:"stopLossPrice"`
	SupportPrice    *float64 `json:"supportPrice"`
	ResistancePrice *float64 `json:"resistancePrice"`
}

// ChartPoint is one bar of the chart payload with overlay SMA values.
type ChartPoint struct {
	Date     string   `json:"date"`
	Open     float64  `json:"open"`
	High     float64  `json:"high"`
	Low      float64  `json:"low"`
	Close    float64  `json:"close"`
	Volume   int64    `json:"volume"`
	SMAShort *float64 `json:"sma5"`
	SMAMid   *float64 `json:"sma25"`
	SMALong  *float64 `json:"sma75"`
}

// Stocks owns the watch list and the refresh pipeline: pull bars, recompute
// indicators, persist the day's signal record.
type Stocks struct {
	repo        repository.Repository
	provider    marketdata.Provider
	settings    *Settings
	logger      *zap.Logger
	historyDays int
}

func NewStocks(repo repository.Repository, provider marketdata.Provider, settings *Settings, logger *zap.Logger) *Stocks {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stocks{repo: repo, provider: provider, settings: settings, logger: logger, historyDays: minHistoryDays}
}

// WithHistoryDays sets the fetch depth, floored so indicators stay settled.
func (s *Stocks) WithHistoryDays(days int) *Stocks {
	if days > minHistoryDays {
		s.historyDays = days
	}
	return s
}

// Add registers a code on the watch list and primes its history. Adding a
// code that is already watched returns the existing row.
func (s *Stocks) Add(ctx context.Context, code string) (*models.Stock, error) {
	if !codePattern.MatchString(code) {
		return nil, apperr.Validation("code", "must be 1 to 10 alphanumeric characters")
	}
	existing, err := s.repo.GetStockByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	name, err := s.provider.Name(ctx, code)
	if err != nil {
		return nil, err
	}
	stock := &models.Stock{Code: code, Name: name}
	if err := s.repo.InsertStock(ctx, stock); err != nil {
		return nil, err
	}
	if err := s.Refresh(ctx, code); err != nil {
		s.logger.Warn("initial refresh failed", zap.String("code", code), zap.Error(err))
	}
	return stock, nil
}

func (s *Stocks) Delete(ctx context.Context, code string) error {
	existing, err := s.repo.GetStockByCode(ctx, code)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperr.Validation("code", "not on the watch list")
	}
	return s.repo.DeleteStock(ctx, code)
}

// Refresh pulls fresh bars for one code and recomputes its signal record.
// Short history degrades to partial indicators and a hold signal rather
// than failing.
func (s *Stocks) Refresh(ctx context.Context, code string) error {
	bars, err := s.provider.FetchDailyBars(ctx, code, s.historyDays)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return &apperr.InsufficientDataError{Code: code, Need: 1, Have: 0}
	}
	if err := s.repo.UpsertPriceBars(ctx, bars); err != nil {
		return err
	}
	return s.recomputeSignal(ctx, code)
}

// RefreshAll refreshes every watched code; one failing code does not stop
// the rest.
func (s *Stocks) RefreshAll(ctx context.Context) error {
	stocks, err := s.repo.ListStocks(ctx, repository.ListStocksParams{})
	if err != nil {
		return err
	}
	for _, stock := range stocks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.Refresh(ctx, stock.Code); err != nil {
			s.logger.Warn("refresh failed", zap.String("code", stock.Code), zap.Error(err))
		}
	}
	return nil
}

func (s *Stocks) recomputeSignal(ctx context.Context, code string) error {
	series, err := s.loadSeries(ctx, code, s.historyDays)
	if err != nil || len(series) == 0 {
		return err
	}

	cfg, err := s.settings.IndicatorConfig(ctx)
	if err != nil {
		return err
	}
	thresholds, err := s.settings.Thresholds(ctx)
	if err != nil {
		return err
	}

	closes := make([]float64, len(series))
	highs := make([]float64, len(series))
	lows := make([]float64, len(series))
	for i, bar := range series {
		closes[i] = bar.Close
		highs[i] = bar.High
		lows[i] = bar.Low
	}
	set := indicator.Compute(closes, cfg)

	last := len(series) - 1
	result := signal.Evaluate(set, last, thresholds)
	record := &models.SignalRecord{
		Code:          code,
		Date:          series[last].Date,
		SignalType:    result.Direction,
		Strength:      result.Strength,
		ActiveRules:   joinRules(result.ActiveRules),
		RSI:           optional(set.RSI, last),
		MACD:          optional(set.MACD, last),
		MACDSignal:    optional(set.MACDSignal, last),
		MACDHistogram: optional(set.MACDHistogram, last),
		SMAShort:      optional(set.SMAShort, last),
		SMAMid:        optional(set.SMAMid, last),
		SMALong:       optional(set.SMALong, last),
	}
	if result.Direction != models.SignalHold {
		smaLong := math.NaN()
		if record.SMALong != nil {
			smaLong = *record.SMALong
		}
		levels := signal.Levels(highs, lows, last, series[last].Close, smaLong, result.Direction)
		record.SupportPrice = &levels.Support
		record.ResistancePrice = &levels.Resistance
		record.TargetPrice = &levels.Target
		record.StopLossPrice = &levels.StopLoss
	}
	return s.repo.UpsertSignalRecord(ctx, record)
}

// List returns the watch list joined with each code's latest quote and
// signal.
func (s *Stocks) List(ctx context.Context) ([]StockSummary, error) {
	stocks, err := s.repo.ListStocks(ctx, repository.ListStocksParams{})
	if err != nil {
		return nil, err
	}
	out := make([]StockSummary, 0, len(stocks))
	for _, stock := range stocks {
		summary, err := s.summary(ctx, stock)
		if err != nil {
			return nil, err
		}
		if summary != nil {
			out = append(out, *summary)
		}
	}
	return out, nil
}

func (s *Stocks) summary(ctx context.Context, stock models.Stock) (*StockSummary, error) {
	recent, err := s.repo.ListPriceBars(ctx, repository.ListPriceBarsParams{Code: stock.Code, Limit: 2, Desc: true})
	if err != nil {
		return nil, err
	}
	if len(recent) == 0 {
		return nil, nil
	}
	current := recent[0].Close
	prevClose := current
	if len(recent) > 1 {
		prevClose = recent[1].Close
	}
	change := 0.0
	if prevClose != 0 {
		change = round2((current - prevClose) / prevClose * 100)
	}

	sig, err := s.repo.GetLatestSignalRecord(ctx, stock.Code)
	if err != nil {
		return nil, err
	}
	summary := &StockSummary{
		ID:            stock.ID,
		Code:          stock.Code,
		Name:          stock.Name,
		CurrentPrice:  current,
		PreviousClose: prevClose,
		ChangePercent: change,
		Signal:        models.SignalHold,
		ActiveSignals: []string{},
		RSI:           50,
		UpdatedAt:     recent[0].Date.Format("2006-01-02"),
	}
	if sig != nil {
		summary.Signal = sig.SignalType
		summary.SignalStrength = sig.Strength
		summary.ActiveSignals = splitRules(sig.ActiveRules)
		if sig.RSI != nil {
			summary.RSI = round1(*sig.RSI)
		}
	}
	return summary, nil
}

// Detail returns the full indicator and level view for one code.
func (s *Stocks) Detail(ctx context.Context, code string) (*StockDetail, error) {
	stock, err := s.repo.GetStockByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, nil
	}
	summary, err := s.summary(ctx, *stock)
	if err != nil || summary == nil {
		return nil, err
	}
	detail := &StockDetail{StockSummary: *summary}
	sig, err := s.repo.GetLatestSignalRecord(ctx, code)
	if err != nil {
		return nil, err
	}
	if sig != nil {
		detail.MACD = roundOrZero(sig.MACD, 2)
		detail.MACDSignal = roundOrZero(sig.MACDSignal, 2)
		detail.MACDHistogram = roundOrZero(sig.MACDHistogram, 2)
		detail.SMAShort = roundOrZero(sig.SMAShort, 0)
		detail.SMAMid = roundOrZero(sig.SMAMid, 0)
		detail.SMALong = roundOrZero(sig.SMALong, 0)
		detail.TargetPrice = sig.TargetPrice
		detail.StopLossPrice = sig.StopLossPrice
		detail.SupportPrice = sig.SupportPrice
		detail.ResistancePrice = sig.ResistancePrice
	}
	return detail, nil
}

var chartPeriodDays = map[string]int{"1m": 30, "3m": 90, "6m": 180, "1y": 365}

// Chart returns the last N bars with SMA overlays recomputed over exactly
// the returned window.
func (s *Stocks) Chart(ctx context.Context, code, period string) ([]ChartPoint, error) {
	days, ok := chartPeriodDays[period]
	if !ok {
		if period != "" {
			return nil, apperr.Validation("period", "must be one of 1m, 3m, 6m, 1y")
		}
		days = 90
	}
	series, err := s.loadSeries(ctx, code, days)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return []ChartPoint{}, nil
	}

	cfg, err := s.settings.IndicatorConfig(ctx)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(series))
	for i, bar := range series {
		closes[i] = bar.Close
	}
	set := indicator.Compute(closes, cfg)

	out := make([]ChartPoint, len(series))
	for i, bar := range series {
		out[i] = ChartPoint{
			Date:     bar.Date.Format("01/02"),
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			Volume:   bar.Volume,
			SMAShort: optionalRounded(set.SMAShort, i, 0),
			SMAMid:   optionalRounded(set.SMAMid, i, 0),
			SMALong:  optionalRounded(set.SMALong, i, 0),
		}
	}
	return out, nil
}

// loadSeries returns the newest `days` bars in ascending date order.
func (s *Stocks) loadSeries(ctx context.Context, code string, days int) ([]models.PriceBar, error) {
	bars, err := s.repo.ListPriceBars(ctx, repository.ListPriceBarsParams{Code: code, Limit: days, Desc: true})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(bars)-1; i < j; i, j = i+1, j-1 {
		bars[i], bars[j] = bars[j], bars[i]
	}
	return bars, nil
}

func optional(series []float64, i int) *float64 {
	if i < 0 || i >= len(series) || !indicator.Valid(series[i]) {
		return nil
	}
	v := series[i]
	return &v
}

func optionalRounded(series []float64, i int, places int) *float64 {
	v := optional(series, i)
	if v == nil {
		return nil
	}
	r := roundTo(*v, places)
	return &r
}

func roundOrZero(v *float64, places int) float64 {
	if v == nil {
		return 0
	}
	return roundTo(*v, places)
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

func round1(v float64) float64 { return roundTo(v, 1) }
func round2(v float64) float64 { return roundTo(v, 2) }

func joinRules(rules []string) string {
	return strings.Join(rules, ",")
}

func splitRules(joined string) []string {
	if joined == "" {
		return []string{}
	}
	return strings.Split(joined, ",")
}
