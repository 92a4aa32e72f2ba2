// Package market turns upstream market data into reproducible hedge
// scenarios. Upstream failures degrade to cached, then synthetic, data.
package market

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/model"
)

// Option price bounds for scenarios priced from volatility alone.
const (
	MinSyntheticOptionPrice = 0.5
	MaxSyntheticOptionPrice = 10.0
)

// HistorySource tells where the provider's price history came from.
type HistorySource string

const (
	HistoryUpstream  HistorySource = "upstream"
	HistorySynthetic HistorySource = "synthetic"
)

// Config holds provider configuration.
type Config struct {
	Ticker        string          `yaml:"ticker"`
	Seed          int64           `yaml:"seed"`
	RandomSeed    bool            `yaml:"random_seed"` // ignore Seed and seed from the clock
	RiskFreeRate  float64         `yaml:"risk_free_rate"`
	TimeToExpiry  float64         `yaml:"time_to_expiry"` // years
	ExpiryHorizon time.Duration   `yaml:"expiry_horizon"`
	Lookback      int             `yaml:"lookback"`
	ForwardWindow int             `yaml:"forward_window"`
	Synthetic     SyntheticConfig `yaml:"synthetic"`
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() Config {
	return Config{
		Ticker:        "SPY",
		RiskFreeRate:  0.04,
		TimeToExpiry:  2.0 / 12,
		ExpiryHorizon: DefaultExpiryHorizon,
		Lookback:      60,
		ForwardWindow: 40,
		Synthetic:     DefaultSyntheticConfig(),
	}
}

// Provider generates scenarios from one price history. It owns its RNG: a
// fresh provider with the same seed yields the same sequence of scenarios,
// and successive calls continue the stream. Not safe for concurrent use.
type Provider struct {
	cfg       Config
	seed      int64
	rng       *rand.Rand
	history   model.PriceSeries
	source    HistorySource
	selector  *OptionChainSelector
	estimator *VolatilityEstimator
	now       func() time.Time
	log       zerolog.Logger
}

// NewProvider loads the price history for cfg.Ticker: cache, then upstream
// with retries, then synthetic data when the upstream is unavailable.
// Transport failures that survive the retries are returned.
func NewProvider(ctx context.Context, cfg Config, fetcher *RateLimitedFetcher, logger zerolog.Logger) (*Provider, error) {
	def := DefaultConfig()
	if cfg.Ticker == "" {
		cfg.Ticker = def.Ticker
	}
	if cfg.ForwardWindow <= 0 {
		cfg.ForwardWindow = def.ForwardWindow
	}
	if cfg.TimeToExpiry <= 0 {
		cfg.TimeToExpiry = def.TimeToExpiry
	}
	seed := cfg.Seed
	if cfg.RandomSeed {
		seed = time.Now().UnixNano()
	}

	log := logger.With().Str("component", "provider").Str("ticker", cfg.Ticker).Logger()
	p := &Provider{
		cfg:       cfg,
		seed:      seed,
		rng:       rand.New(rand.NewSource(seed)),
		selector:  NewOptionChainSelector(fetcher, cfg.Ticker, cfg.ExpiryHorizon, logger),
		estimator: NewVolatilityEstimator(fetcher, cfg.Lookback, logger),
		now:       time.Now,
		log:       log,
	}

	bars, err := fetcher.DailyBars(ctx, cfg.Ticker)
	switch {
	case err == nil:
		p.history, p.source = bars, HistoryUpstream
	case errors.Is(err, apperrors.ErrUnavailable):
		log.Warn().Err(err).Msg("falling back to synthetic price history")
		p.history, p.source = Synthetic(seed, p.now(), cfg.Synthetic), HistorySynthetic
	default:
		return nil, fmt.Errorf("load history for %s: %w", cfg.Ticker, err)
	}

	log.Info().
		Int("bars", len(p.history)).
		Str("source", string(p.source)).
		Int64("seed", seed).
		Msg("price history loaded")
	return p, nil
}

// Config returns the effective configuration.
func (p *Provider) Config() Config { return p.cfg }

// Seed returns the seed in use, including one drawn from the clock.
func (p *Provider) Seed() int64 { return p.seed }

// History returns the loaded price history.
func (p *Provider) History() model.PriceSeries { return p.history }

// HistorySource reports whether the history is upstream or synthetic data.
func (p *Provider) HistorySource() HistorySource { return p.source }

// GenerateScenario synthesizes one market outcome biased towards regime.
// Option and volatility lookups degrade to synthetic pricing, except for
// transport failures that outlive the retries, which are returned.
func (p *Provider) GenerateScenario(ctx context.Context, regime model.Regime) (model.Scenario, error) {
	start, err := p.startIndex()
	if err != nil {
		return model.Scenario{}, err
	}
	priceAtStart := p.history[start].Close

	var strike, optionPrice float64
	chain, ok, err := p.selector.Select(ctx, priceAtStart)
	if err != nil {
		return model.Scenario{}, err
	}
	expiry := chain.Expiry
	if ok {
		put := chain.Puts[p.rng.Intn(len(chain.Puts))]
		strike, optionPrice = put.Strike, put.Price()
	} else {
		strike = priceAtStart * p.uniform(0.7, 0.9)
		vol, src, err := p.estimator.Estimate(ctx, regime, p.history)
		if err != nil {
			return model.Scenario{}, err
		}
		optionPrice = clamp(vol*priceAtStart*0.01, MinSyntheticOptionPrice, MaxSyntheticOptionPrice)
		p.log.Debug().Float64("volatility", vol).Str("vol_source", string(src)).Msg("pricing synthetic put")
	}
	if expiry == "" {
		days := int(math.Round(p.cfg.TimeToExpiry * 365))
		expiry = p.now().AddDate(0, 0, days).Format(model.DateLayout)
	}

	sc := model.Scenario{
		PriceAtStart: priceAtStart,
		PriceAtEnd:   p.priceAtEnd(regime, start, priceAtStart),
		StrikePrice:  strike,
		OptionPrice:  optionPrice,
		ExpiryDate:   expiry,
	}
	if err := sc.Validate(); err != nil {
		return model.Scenario{}, fmt.Errorf("generate %s scenario: %w", regime, err)
	}
	return sc, nil
}

// startIndex picks a start bar leaving ForwardWindow bars after it.
func (p *Provider) startIndex() (int, error) {
	n, w := len(p.history), p.cfg.ForwardWindow
	if n <= w {
		return 0, fmt.Errorf("history has %d bars, need more than %d: %w", n, w, apperrors.ErrInsufficientData)
	}
	return p.rng.Intn(n - w), nil
}

// priceAtEnd samples a close within the forward window and forces it into
// the regime's range when the sampled path disagrees.
func (p *Provider) priceAtEnd(regime model.Regime, start int, priceAtStart float64) float64 {
	end := p.history[start+1+p.rng.Intn(p.cfg.ForwardWindow)].Close
	switch regime {
	case model.RegimeCrash:
		if end < priceAtStart*0.6 || end > priceAtStart*0.9 {
			end = priceAtStart * p.uniform(0.6, 0.9)
		}
	default:
		if end < priceAtStart*0.9 || end > priceAtStart*1.2 {
			end = priceAtStart * p.uniform(0.95, 1.1)
		}
	}
	return end
}

func (p *Provider) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*p.rng.Float64()
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
