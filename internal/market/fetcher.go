package market

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"TailHedge/internal/cache"
	"TailHedge/internal/collector"
	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/metrics"
	"TailHedge/internal/model"
)

// historyRecord is the cached payload of the historical kind. The symbol is
// kept so a cache written for another ticker is not reused.
type historyRecord struct {
	Symbol string            `msgpack:"symbol"`
	Bars   model.PriceSeries `msgpack:"bars"`
}

// RateLimitedFetcher wraps an upstream Fetcher with backoff retries and a
// cache fallback once retries are exhausted.
type RateLimitedFetcher struct {
	upstream collector.Fetcher
	store    *cache.Store
	retrier  *Retrier
	metrics  *metrics.Metrics
	log      zerolog.Logger
}

// NewRateLimitedFetcher creates a RateLimitedFetcher.
func NewRateLimitedFetcher(upstream collector.Fetcher, store *cache.Store, retrier *Retrier, logger zerolog.Logger) *RateLimitedFetcher {
	return &RateLimitedFetcher{
		upstream: upstream,
		store:    store,
		retrier:  retrier,
		log:      logger.With().Str("component", "fetcher").Str("source", upstream.Name()).Logger(),
	}
}

// WithMetrics records load outcomes in m.
func (f *RateLimitedFetcher) WithMetrics(m *metrics.Metrics) *RateLimitedFetcher {
	f.metrics = m
	return f
}

// Store returns the backing cache.
func (f *RateLimitedFetcher) Store() *cache.Store { return f.store }

// load serves kind from a fresh cache record when accept approves it, and
// otherwise fetches live under the retrier and writes the result back.
//
// Once retries are exhausted a transport failure is returned unchanged. Any
// other failure falls back to the cache once more and then reports
// ErrUnavailable.
func load[T any](ctx context.Context, f *RateLimitedFetcher, kind cache.Kind, accept func(T) bool, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if f.store.Get(kind, &cached) && accept(cached) {
		f.log.Debug().Str("kind", string(kind)).Msg("serving from cache")
		f.metrics.ObserveLoad(string(kind), metrics.OutcomeCache)
		return cached, nil
	}

	v, err := Retry(ctx, f.retrier, string(kind), fetch)
	if err == nil {
		f.store.Put(kind, v)
		f.metrics.ObserveLoad(string(kind), metrics.OutcomeLive)
		return v, nil
	}
	if ctx.Err() != nil {
		return v, ctx.Err()
	}

	kindOf := apperrors.KindOf(err)
	if kindOf == apperrors.KindTransport {
		f.metrics.ObserveLoad(string(kind), metrics.OutcomeError)
		return v, fmt.Errorf("fetch %s: %w", kind, err)
	}

	var fallback T
	if f.store.Get(kind, &fallback) && accept(fallback) {
		f.log.Warn().Str("kind", string(kind)).Str("error_kind", kindOf.String()).Msg("using cached data after upstream failure")
		f.metrics.ObserveLoad(string(kind), metrics.OutcomeFallback)
		return fallback, nil
	}
	f.metrics.ObserveLoad(string(kind), metrics.OutcomeUnavailable)
	return v, fmt.Errorf("%s: %w: %v", kind, apperrors.ErrUnavailable, err)
}

// fatal reports whether err must reach the caller instead of degrading to
// cached or synthetic data: cancellation, or a transport failure that
// outlived the retries.
func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || apperrors.KindOf(err) == apperrors.KindTransport
}

// DailyBars returns one year of daily bars for symbol. ErrUnavailable means
// neither the upstream nor the cache could serve it.
func (f *RateLimitedFetcher) DailyBars(ctx context.Context, symbol string) (model.PriceSeries, error) {
	rec, err := load(ctx, f, cache.Historical,
		func(r historyRecord) bool {
			return r.Symbol == symbol && r.Bars.Validate() == nil
		},
		func(ctx context.Context) (historyRecord, error) {
			bars, err := f.upstream.FetchDailyBars(ctx, symbol)
			if err != nil {
				return historyRecord{}, err
			}
			if err := bars.Validate(); err != nil {
				return historyRecord{}, apperrors.NewFetchError(apperrors.KindNoData, f.upstream.Name(), err)
			}
			return historyRecord{Symbol: symbol, Bars: bars}, nil
		})
	if err != nil {
		return nil, err
	}
	return rec.Bars, nil
}

// VolatilityIndex returns the VIX level as a fraction.
func (f *RateLimitedFetcher) VolatilityIndex(ctx context.Context) (float64, error) {
	return load(ctx, f, cache.Volatility,
		func(v float64) bool { return v > 0 },
		func(ctx context.Context) (float64, error) {
			v, err := f.upstream.FetchVolatilityIndex(ctx)
			if err != nil {
				return 0, err
			}
			if v <= 0 {
				return 0, apperrors.NewFetchError(apperrors.KindNoData, f.upstream.Name(), errors.New("non-positive volatility index"))
			}
			return v, nil
		})
}

// OptionExpiries lists the upstream expiry dates for symbol. Option chains
// are cached by the selector, so this path only retries.
func (f *RateLimitedFetcher) OptionExpiries(ctx context.Context, symbol string) ([]string, error) {
	return Retry(ctx, f.retrier, "option_expiries", func(ctx context.Context) ([]string, error) {
		return f.upstream.FetchOptionExpiries(ctx, symbol)
	})
}

// Puts returns the put quotes for one expiry.
func (f *RateLimitedFetcher) Puts(ctx context.Context, symbol, expiry string) ([]model.OptionQuote, error) {
	return Retry(ctx, f.retrier, "puts", func(ctx context.Context) ([]model.OptionQuote, error) {
		return f.upstream.FetchPuts(ctx, symbol, expiry)
	})
}
