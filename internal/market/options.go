package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"TailHedge/internal/cache"
	"TailHedge/internal/model"
)

// DefaultExpiryHorizon is how far ahead the selector looks for an expiry.
const DefaultExpiryHorizon = 60 * 24 * time.Hour

// ClosestExpiry returns the expiry with the smallest absolute day distance to
// target. Ties keep the earlier listed date and malformed dates are skipped.
func ClosestExpiry(expiries []string, target time.Time) (string, error) {
	targetDay := time.Date(target.Year(), target.Month(), target.Day(), 0, 0, 0, 0, time.UTC)
	best := ""
	bestDiff := 0
	for _, e := range expiries {
		day, err := time.ParseInLocation(model.DateLayout, e, time.UTC)
		if err != nil {
			continue
		}
		diff := int(day.Sub(targetDay).Hours() / 24)
		if diff < 0 {
			diff = -diff
		}
		if best == "" || diff < bestDiff {
			best, bestDiff = day.Format(model.DateLayout), diff
		}
	}
	if best == "" {
		return "", errors.New("no valid expiration dates available")
	}
	return best, nil
}

// OptionChainSelector finds out-of-the-money puts near a target expiry. The
// last chain is kept in memory and in the cache; it is reused while its band
// covers the requested one.
type OptionChainSelector struct {
	fetcher *RateLimitedFetcher
	symbol  string
	horizon time.Duration
	now     func() time.Time
	chain   *model.OptionChain
	log     zerolog.Logger
}

// NewOptionChainSelector creates a selector for symbol.
func NewOptionChainSelector(fetcher *RateLimitedFetcher, symbol string, horizon time.Duration, logger zerolog.Logger) *OptionChainSelector {
	if horizon <= 0 {
		horizon = DefaultExpiryHorizon
	}
	return &OptionChainSelector{
		fetcher: fetcher,
		symbol:  symbol,
		horizon: horizon,
		now:     time.Now,
		log:     logger.With().Str("component", "options").Str("symbol", symbol).Logger(),
	}
}

// Select returns the OTM puts for reference. The bool is false when no usable
// quote exists; the returned chain may still carry a selected expiry.
// Transport failures that outlive the retries, and cancellation, are
// returned as errors; every other upstream failure degrades to the cache.
func (s *OptionChainSelector) Select(ctx context.Context, reference float64) (model.OptionChain, bool, error) {
	band := model.OTMPutBand(reference)

	if cached, ok := s.cached(); ok && cached.Band.Covers(band) {
		puts := cached.Filter(band)
		s.log.Debug().Int("puts", len(puts)).Str("expiry", cached.Expiry).Msg("reusing cached option chain")
		chain, ok := s.result(puts, cached.Expiry, band)
		return chain, ok, nil
	}

	expiries, err := s.fetcher.OptionExpiries(ctx, s.symbol)
	if err != nil {
		if fatal(ctx, err) {
			return model.OptionChain{}, false, fmt.Errorf("option expiries for %s: %w", s.symbol, err)
		}
		s.log.Warn().Err(err).Msg("option expiries unavailable")
		chain, ok := s.fromCached(band)
		return chain, ok, nil
	}
	expiry, err := ClosestExpiry(expiries, s.now().Add(s.horizon))
	if err != nil {
		s.log.Warn().Err(err).Msg("no usable expiry")
		chain, ok := s.fromCached(band)
		return chain, ok, nil
	}
	quotes, err := s.fetcher.Puts(ctx, s.symbol, expiry)
	if err != nil {
		if fatal(ctx, err) {
			return model.OptionChain{}, false, fmt.Errorf("puts for %s %s: %w", s.symbol, expiry, err)
		}
		s.log.Warn().Err(err).Str("expiry", expiry).Msg("put quotes unavailable")
		chain, ok := s.fromCached(band)
		return chain, ok, nil
	}

	chain := model.OptionChain{Symbol: s.symbol, Puts: quotes, Expiry: expiry, Band: band}
	chain.Puts = chain.Filter(band)
	s.chain = &chain
	s.fetcher.Store().Put(cache.PutOptions, chain)

	result, ok := s.result(chain.Puts, expiry, band)
	return result, ok, nil
}

func (s *OptionChainSelector) cached() (model.OptionChain, bool) {
	if s.chain != nil {
		return *s.chain, true
	}
	var chain model.OptionChain
	if !s.fetcher.Store().Get(cache.PutOptions, &chain) || chain.Symbol != s.symbol {
		return model.OptionChain{}, false
	}
	s.chain = &chain
	return chain, true
}

// fromCached serves whatever part of a non-covering cached chain still falls
// inside band.
func (s *OptionChainSelector) fromCached(band model.PriceBand) (model.OptionChain, bool) {
	cached, ok := s.cached()
	if !ok {
		return model.OptionChain{Symbol: s.symbol, Band: band}, false
	}
	puts := cached.Filter(band)
	if len(puts) == 0 {
		return model.OptionChain{Symbol: s.symbol, Band: band}, false
	}
	s.log.Warn().Int("puts", len(puts)).Msg("using cached option chain after upstream failure")
	return s.result(puts, cached.Expiry, band)
}

func (s *OptionChainSelector) result(puts []model.OptionQuote, expiry string, band model.PriceBand) (model.OptionChain, bool) {
	chain := model.OptionChain{Symbol: s.symbol, Puts: puts, Expiry: expiry, Band: band}
	return chain, len(puts) > 0
}
