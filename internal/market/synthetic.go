package market

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"TailHedge/internal/model"
)

// SyntheticConfig shapes the fallback price series.
type SyntheticConfig struct {
	Days       int     `yaml:"days"`
	BasePrice  float64 `yaml:"base_price"`
	DailyDrift float64 `yaml:"daily_drift"`
	Noise      float64 `yaml:"noise"`
}

// DefaultSyntheticConfig returns one trading year around an index-like level.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Days:       252,
		BasePrice:  450,
		DailyDrift: 0.0003,
		Noise:      0.01,
	}
}

func (c SyntheticConfig) days() int {
	if c.Days <= 0 {
		return DefaultSyntheticConfig().Days
	}
	return c.Days
}

// trendPositive reports whether the drift keeps the trend above zero over
// the whole window.
func (c SyntheticConfig) trendPositive() bool {
	return 1+c.DailyDrift*float64(c.days()-1) > 0
}

// Validate rejects a drift that would carry the trend to zero or below.
func (c SyntheticConfig) Validate() error {
	if !c.trendPositive() {
		return fmt.Errorf("daily_drift %g reaches a non-positive price within %d days", c.DailyDrift, c.days())
	}
	return nil
}

// businessDays returns the n weekdays ending on or before end, oldest first.
func businessDays(end time.Time, n int) []time.Time {
	days := make([]time.Time, n)
	day := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for i := n - 1; i >= 0; i-- {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, -1)
		}
		days[i] = day
		day = day.AddDate(0, 0, -1)
	}
	return days
}

// Synthetic generates a reproducible daily series for seed. It draws from its
// own RNG, so generating it never advances a provider's scenario stream.
func Synthetic(seed int64, end time.Time, cfg SyntheticConfig) model.PriceSeries {
	def := DefaultSyntheticConfig()
	if cfg.Days <= 0 {
		cfg.Days = def.Days
	}
	if cfg.BasePrice <= 0 {
		cfg.BasePrice = def.BasePrice
	}
	if cfg.Noise < 0 || cfg.Noise >= 0.5 {
		cfg.Noise = def.Noise
	}
	if !cfg.trendPositive() {
		cfg.DailyDrift = def.DailyDrift
	}

	rng := rand.New(rand.NewSource(seed))
	noise := func() float64 { return 1 + cfg.Noise*(2*rng.Float64()-1) }

	dates := businessDays(end, cfg.Days)
	bars := make(model.PriceSeries, len(dates))
	for i, d := range dates {
		trend := cfg.BasePrice * (1 + cfg.DailyDrift*float64(i))
		open := trend * noise()
		closePrice := trend * noise()
		bars[i] = model.Bar{
			Date:  d,
			Open:  open,
			High:  math.Max(open, closePrice) * (1 + cfg.Noise*rng.Float64()/2),
			Low:   math.Min(open, closePrice) * (1 - cfg.Noise*rng.Float64()/2),
			Close: closePrice,
		}
	}
	return bars
}
