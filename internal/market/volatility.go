package market

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"TailHedge/internal/calculator"
	"TailHedge/internal/model"
)

// CrashMultiplier scales volatility under the crash regime.
const CrashMultiplier = 1.5

// Default volatilities used when neither the index nor history can serve.
const (
	DefaultStableVolatility = 0.2
	DefaultCrashVolatility  = 0.3
)

// VolatilitySource names where an estimate came from.
type VolatilitySource string

const (
	SourceIndex      VolatilitySource = "vix"
	SourceHistorical VolatilitySource = "historical"
	SourceDefault    VolatilitySource = "default"
)

// VolatilityEstimator derives an annualized volatility for a regime.
type VolatilityEstimator struct {
	fetcher  *RateLimitedFetcher
	lookback int
	index    float64 // last good index level, kept for the provider's lifetime
	log      zerolog.Logger
}

// NewVolatilityEstimator creates an estimator. A lookback below 2 falls back
// to calculator.DefaultLookback.
func NewVolatilityEstimator(fetcher *RateLimitedFetcher, lookback int, logger zerolog.Logger) *VolatilityEstimator {
	if lookback < 2 {
		lookback = calculator.DefaultLookback
	}
	return &VolatilityEstimator{
		fetcher:  fetcher,
		lookback: lookback,
		log:      logger.With().Str("component", "volatility").Logger(),
	}
}

// Estimate returns the volatility for regime: the volatility index first,
// then historical volatility of history, then a fixed default. A transport
// failure on the index outlives the fallbacks and is returned.
func (e *VolatilityEstimator) Estimate(ctx context.Context, regime model.Regime, history model.PriceSeries) (float64, VolatilitySource, error) {
	v, ok, err := e.indexLevel(ctx)
	if err != nil {
		return 0, "", err
	}
	if ok {
		return scale(v, regime), SourceIndex, nil
	}

	hv, err := calculator.HistoricalVolatility(history, e.lookback)
	if err == nil && hv > 0 {
		return scale(hv, regime), SourceHistorical, nil
	}
	e.log.Warn().Err(err).Str("regime", string(regime)).Msg("no volatility signal, using default")

	if regime == model.RegimeCrash {
		return DefaultCrashVolatility, SourceDefault, nil
	}
	return DefaultStableVolatility, SourceDefault, nil
}

func (e *VolatilityEstimator) indexLevel(ctx context.Context) (float64, bool, error) {
	if e.index > 0 {
		return e.index, true, nil
	}
	v, err := e.fetcher.VolatilityIndex(ctx)
	if err != nil {
		if fatal(ctx, err) {
			return 0, false, fmt.Errorf("volatility index: %w", err)
		}
		e.log.Warn().Err(err).Msg("volatility index unavailable")
		return 0, false, nil
	}
	e.index = v
	return v, true, nil
}

func scale(v float64, regime model.Regime) float64 {
	if regime == model.RegimeCrash {
		return v * CrashMultiplier
	}
	return v
}
