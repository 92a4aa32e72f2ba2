package market

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"TailHedge/internal/cache"
	"TailHedge/internal/collector"
	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/model"
)

var testEnd = time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)

// sleepRecorder captures requested backoff delays without waiting.
type sleepRecorder struct {
	delays []time.Duration
	hook   func()
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	if s.hook != nil {
		s.hook()
	}
	return ctx.Err()
}

func (s *sleepRecorder) total() time.Duration {
	var sum time.Duration
	for _, d := range s.delays {
		sum += d
	}
	return sum
}

func newTestFetcher(t *testing.T, upstream collector.Fetcher) (*RateLimitedFetcher, *sleepRecorder) {
	t.Helper()
	return newTestFetcherInDir(t, t.TempDir(), upstream)
}

func newTestFetcherInDir(t *testing.T, dir string, upstream collector.Fetcher) (*RateLimitedFetcher, *sleepRecorder) {
	t.Helper()
	rec := &sleepRecorder{}
	store := cache.NewStore(dir, nil, time.Hour, zerolog.Nop())
	retrier := NewRetrier(DefaultRetryConfig(), zerolog.Nop()).WithSleep(rec.sleep)
	return NewRateLimitedFetcher(upstream, store, retrier, zerolog.Nop()), rec
}

func rateLimited() error {
	return apperrors.NewFetchError(apperrors.KindRateLimited, "mock", nil)
}

func transportErr() error {
	return apperrors.NewFetchError(apperrors.KindTransport, "mock", nil)
}

func repeat(err func() error, n int) []error {
	out := make([]error, n)
	for i := range out {
		out[i] = err()
	}
	return out
}

// putLadder lists puts every 5 points between lo and hi.
func putLadder(lo, hi float64, expiry string) []model.OptionQuote {
	var quotes []model.OptionQuote
	for k := lo; k <= hi; k += 5 {
		quotes = append(quotes, model.OptionQuote{Strike: k, LastPrice: k / 100, Bid: k / 110, Expiry: expiry})
	}
	return quotes
}

func newMock() *collector.MockFetcher {
	return &collector.MockFetcher{
		Bars:     collector.MockBars(450, 252, testEnd),
		VIX:      0.18,
		Expiries: []string{"2025-07-18", "2025-08-15", "2025-09-19"},
		Puts:     map[string][]model.OptionQuote{},
	}
}
