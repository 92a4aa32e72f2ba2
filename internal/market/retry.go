package market

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/metrics"
)

// RetryConfig holds retry configuration. MaxRetries counts retries after the
// first attempt.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  time.Second,
	}
}

// Delay returns the wait before retry number attempt (zero based).
func (c RetryConfig) Delay(attempt int) time.Duration {
	return c.BaseDelay * time.Duration(1<<uint(attempt))
}

// Retrier runs upstream calls with exponential backoff. Only rate-limit and
// transport failures are retried.
type Retrier struct {
	cfg     RetryConfig
	sleep   func(context.Context, time.Duration) error
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewRetrier creates a Retrier that sleeps on the wall clock.
func NewRetrier(cfg RetryConfig, logger zerolog.Logger) *Retrier {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Retrier{
		cfg:   cfg,
		sleep: sleepContext,
		log:   logger.With().Str("component", "retry").Logger(),
	}
}

// WithSleep replaces the sleep function, for tests.
func (r *Retrier) WithSleep(sleep func(context.Context, time.Duration) error) *Retrier {
	r.sleep = sleep
	return r
}

// WithMetrics counts retries in m.
func (r *Retrier) WithMetrics(m *metrics.Metrics) *Retrier {
	r.metrics = m
	return r
}

// Config returns the retry settings.
func (r *Retrier) Config() RetryConfig { return r.cfg }

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry executes fn, retrying retryable failures with exponential backoff.
// The last error is returned once retries are exhausted.
func Retry[T any](ctx context.Context, r *Retrier, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		kind := apperrors.KindOf(err)
		if !kind.Retryable() {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if attempt >= r.cfg.MaxRetries {
			r.log.Debug().Str("op", op).Int("attempts", attempt+1).Err(err).Msg("retries exhausted")
			return zero, err
		}

		delay := r.cfg.Delay(attempt)
		r.log.Debug().
			Str("op", op).
			Str("kind", kind.String()).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("retrying after upstream failure")
		r.metrics.ObserveRetry(op)
		if err := r.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}
}
