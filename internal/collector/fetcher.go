package collector

import (
	"context"

	"TailHedge/internal/model"
)

// Fetcher defines the interface for fetching market data from an upstream
// source. Implementations report failures as *errors.FetchError so callers can
// tell rate limiting from transport failures and empty responses.
type Fetcher interface {
	// FetchDailyBars returns one year of daily bars, oldest first.
	FetchDailyBars(ctx context.Context, symbol string) (model.PriceSeries, error)
	// FetchVolatilityIndex returns the latest VIX close as a fraction (0.18 for 18).
	FetchVolatilityIndex(ctx context.Context) (float64, error)
	// FetchOptionExpiries lists the listed expiry dates as YYYY-MM-DD.
	FetchOptionExpiries(ctx context.Context, symbol string) ([]string, error)
	// FetchPuts returns the put side of the chain for one expiry.
	FetchPuts(ctx context.Context, symbol, expiry string) ([]model.OptionQuote, error)
	Name() string
}
