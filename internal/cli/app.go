package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"TailHedge/internal/cache"
	"TailHedge/internal/collector"
	"TailHedge/internal/market"
	"TailHedge/internal/model"
	"TailHedge/internal/recorder"
)

// upstream returns the market data source.
func (a *App) upstream() collector.Fetcher {
	if a.Upstream != nil {
		return a.Upstream
	}
	return collector.NewYahooFetcher(a.Config.Proxy, a.Config.Upstream.RequestsPerSecond)
}

// newRetrier builds a retrier from the retry settings.
func (a *App) newRetrier() *market.Retrier {
	return market.NewRetrier(a.Config.Retry, a.Logger).WithMetrics(a.Metrics)
}

// newProvider wires cache, retries and upstream into a scenario provider.
func (a *App) newProvider(ctx context.Context) (*market.Provider, error) {
	cfg := a.Config
	store := cache.NewStore(cfg.Cache.Dir, nil, cfg.CacheTTL(), a.Logger)
	fetcher := market.NewRateLimitedFetcher(a.upstream(), store, a.newRetrier(), a.Logger).WithMetrics(a.Metrics)
	return market.NewProvider(ctx, cfg.Provider, fetcher, a.Logger)
}

// openRecorder opens the SQLite history, or a noop recorder when no path is
// configured or the database cannot be opened.
func (a *App) openRecorder() recorder.Recorder {
	path := a.Config.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(path, a.Logger)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return rec
}

// addMarketFlags registers the flags shared by scenario and compare.
func addMarketFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64("portfolio", 0, "portfolio value (default from config)")
	f.StringSlice("regimes", nil, "regimes to run: stable, crash (default from config)")
	f.Int64("seed", 0, "random seed (default from config)")
	f.Bool("random-seed", false, "seed from the clock instead of --seed")
	f.Int("cache-duration", 0, "cache duration in seconds (default from config)")
	f.Float64("risk-free-rate", 0, "risk-free rate (default from config)")
	f.Float64("time-to-expiry", 0, "time to option expiry in years (default from config)")
	f.Bool("json", false, "output in JSON format")
}

// applyMarketFlags copies explicitly set flags into the config, validates it
// and returns the regimes to run.
func (a *App) applyMarketFlags(cmd *cobra.Command) ([]model.Regime, error) {
	f := cmd.Flags()
	cfg := a.Config
	if f.Changed("portfolio") {
		cfg.Portfolio.Value, _ = f.GetFloat64("portfolio")
	}
	if f.Changed("regimes") {
		cfg.Portfolio.Regimes, _ = f.GetStringSlice("regimes")
	}
	if f.Changed("seed") {
		cfg.Provider.Seed, _ = f.GetInt64("seed")
		cfg.Provider.RandomSeed = false
	}
	if f.Changed("random-seed") {
		cfg.Provider.RandomSeed, _ = f.GetBool("random-seed")
	}
	if f.Changed("cache-duration") {
		cfg.Cache.TTLSeconds, _ = f.GetInt("cache-duration")
	}
	if f.Changed("risk-free-rate") {
		cfg.Provider.RiskFreeRate, _ = f.GetFloat64("risk-free-rate")
	}
	if f.Changed("time-to-expiry") {
		cfg.Provider.TimeToExpiry, _ = f.GetFloat64("time-to-expiry")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg.Regimes()
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
