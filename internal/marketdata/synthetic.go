package marketdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"stocksignal/internal/models"
)

// Synthetic generates deterministic daily bars per code so the engine runs
// end to end without a market-data entitlement. The same code and date
// always produce the same bar.
type Synthetic struct {
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewSynthetic() *Synthetic {
	return &Synthetic{Now: time.Now}
}

func (s *Synthetic) FetchDailyBars(_ context.Context, code string, days int) ([]models.PriceBar, error) {
	if days <= 0 {
		days = 365
	}
	now := s.Now()
	if s.Now == nil {
		now = time.Now()
	}
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	bars := make([]models.PriceBar, 0, days)
	for offset := days - 1; offset >= 0; offset-- {
		date := end.AddDate(0, 0, -offset)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		bars = append(bars, s.bar(code, date))
	}
	return bars, nil
}

func (s *Synthetic) Name(_ context.Context, code string) (string, error) {
	return fmt.Sprintf("Stock %s", code), nil
}

// bar derives the OHLC for one code and date from a slow cycle plus hashed
// per-day noise. Stateless, so history never rewrites itself.
func (s *Synthetic) bar(code string, date time.Time) models.PriceBar {
	base := basePrice(code)
	dayNum := float64(date.Unix() / 86400)

	cycle := math.Sin(2*math.Pi*math.Mod(dayNum, 120)/120) * 0.18
	drift := math.Sin(2*math.Pi*math.Mod(dayNum, 480)/480) * 0.08
	noise := (hashUnit(code, date, "c") - 0.5) * 0.04

	close := base * (1 + cycle + drift + noise)
	open := close * (1 + (hashUnit(code, date, "o")-0.5)*0.02)
	high := math.Max(open, close) * (1 + hashUnit(code, date, "h")*0.01)
	low := math.Min(open, close) * (1 - hashUnit(code, date, "l")*0.01)
	volume := int64(100000 + hashUnit(code, date, "v")*900000)

	return models.PriceBar{
		Code:   code,
		Date:   date,
		Open:   round1(open),
		High:   round1(high),
		Low:    round1(low),
		Close:  round1(close),
		Volume: volume,
	}
}

// basePrice spreads codes over a 500 to 10500 price band.
func basePrice(code string) float64 {
	h := fnv.New32a()
	h.Write([]byte(code))
	return 500 + float64(h.Sum32()%10000)
}

// hashUnit maps (code, date, salt) to a stable value in [0, 1).
func hashUnit(code string, date time.Time, salt string) float64 {
	h := fnv.New64a()
	h.Write([]byte(code))
	h.Write([]byte(date.Format("2006-01-02")))
	h.Write([]byte(salt))
	return float64(h.Sum64()%1000000) / 1000000
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
