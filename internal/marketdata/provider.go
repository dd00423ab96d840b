package marketdata

import (
	"context"

	"stocksignal/internal/models"
)

// Provider supplies daily OHLC bars per stock code, ascending by date. The
// refresh pipeline owns persistence; providers only fetch.
type Provider interface {
	FetchDailyBars(ctx context.Context, code string, days int) ([]models.PriceBar, error)
	// Name resolves a display name for the code, best effort.
	Name(ctx context.Context, code string) (string, error)
}
