package market

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TailHedge/internal/cache"
	"TailHedge/internal/collector"
	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/metrics"
)

func TestDailyBars_LiveResultIsCached(t *testing.T) {
	dir := t.TempDir()
	live := newMock()
	f, _ := newTestFetcherInDir(t, dir, live)

	bars, err := f.DailyBars(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Len(t, bars, 252)

	offline := &collector.MockFetcher{}
	f2, _ := newTestFetcherInDir(t, dir, offline)
	cached, err := f2.DailyBars(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Len(t, cached, 252)
	assert.Zero(t, offline.Calls[collector.MethodBars], "fresh cache must not hit upstream")
}

func TestDailyBars_ExpiredCacheIsRefetched(t *testing.T) {
	dir := t.TempDir()
	stale := newMock()
	stale.Bars = collector.MockBars(300, 252, testEnd)
	f, _ := newTestFetcherInDir(t, dir, stale)
	_, err := f.DailyBars(context.Background(), "SPY")
	require.NoError(t, err)

	path := f.Store().Path(cache.Historical)
	old := time.Now().Add(-2 * f.Store().TTL())
	require.NoError(t, os.Chtimes(path, old, old))

	live := newMock()
	f2, _ := newTestFetcherInDir(t, dir, live)
	bars, err := f2.DailyBars(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 1, live.Calls[collector.MethodBars], "expired cache must hit upstream")
	assert.Equal(t, live.Bars, bars)

	// The refetched series replaced the stale payload.
	offline := &collector.MockFetcher{}
	f3, _ := newTestFetcherInDir(t, dir, offline)
	cached, err := f3.DailyBars(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Zero(t, offline.Calls[collector.MethodBars])
	assert.Equal(t, live.Bars.Closes(), cached.Closes())
}

func TestDailyBars_CacheForOtherSymbolIgnored(t *testing.T) {
	dir := t.TempDir()
	f, _ := newTestFetcherInDir(t, dir, newMock())
	_, err := f.DailyBars(context.Background(), "QQQ")
	require.NoError(t, err)

	spy := newMock()
	f2, _ := newTestFetcherInDir(t, dir, spy)
	_, err = f2.DailyBars(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Equal(t, 1, spy.Calls[collector.MethodBars])
}

func TestDailyBars_RateLimitExhaustedIsUnavailable(t *testing.T) {
	m := newMock()
	m.Errs = map[string][]error{collector.MethodBars: repeat(rateLimited, 10)}
	f, rec := newTestFetcher(t, m)

	_, err := f.DailyBars(context.Background(), "SPY")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.NotErrorIs(t, err, apperrors.ErrRateLimited)
	assert.Equal(t, 4, m.Calls[collector.MethodBars])
	assert.Equal(t, 7*time.Second, rec.total())
}

func TestDailyBars_RateLimitExhaustedFallsBackToCache(t *testing.T) {
	m := newMock()
	m.Errs = map[string][]error{collector.MethodBars: repeat(rateLimited, 10)}
	f, rec := newTestFetcher(t, m)

	// Another writer fills the cache while we back off.
	rec.hook = func() { f.Store().Put(cache.Historical, historyRecord{Symbol: "SPY", Bars: m.Bars}) }

	bars, err := f.DailyBars(context.Background(), "SPY")
	require.NoError(t, err)
	assert.Len(t, bars, len(m.Bars))
}

func TestDailyBars_TransportExhaustedIsFatal(t *testing.T) {
	m := newMock()
	m.Errs = map[string][]error{collector.MethodBars: repeat(transportErr, 10)}
	f, _ := newTestFetcher(t, m)

	_, err := f.DailyBars(context.Background(), "SPY")
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.NotErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestDailyBars_InvalidSeriesIsNoData(t *testing.T) {
	m := newMock()
	m.Bars = append(m.Bars[:10:10], m.Bars[3])
	f, rec := newTestFetcher(t, m)

	_, err := f.DailyBars(context.Background(), "SPY")
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Empty(t, rec.delays, "no-data is not retried")
}

func TestVolatilityIndex_CachedAfterFetch(t *testing.T) {
	dir := t.TempDir()
	f, _ := newTestFetcherInDir(t, dir, newMock())
	v, err := f.VolatilityIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.18, v)

	offline := &collector.MockFetcher{}
	f2, _ := newTestFetcherInDir(t, dir, offline)
	v, err = f2.VolatilityIndex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.18, v)
	assert.Zero(t, offline.Calls[collector.MethodVIX])
}

func TestVolatilityIndex_UnavailableWithoutCache(t *testing.T) {
	f, _ := newTestFetcher(t, &collector.MockFetcher{})
	_, err := f.VolatilityIndex(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)
}

func TestLoad_RecordsOutcomes(t *testing.T) {
	m := metrics.New()
	up := newMock()
	up.Errs = map[string][]error{collector.MethodVIX: repeat(rateLimited, 10)}
	f, _ := newTestFetcher(t, up)
	f.WithMetrics(m)
	f.retrier.WithMetrics(m)

	_, err := f.DailyBars(context.Background(), "SPY")
	require.NoError(t, err)
	_, err = f.DailyBars(context.Background(), "SPY")
	require.NoError(t, err)
	_, err = f.VolatilityIndex(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrUnavailable)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DataLoads.WithLabelValues(string(cache.Historical), metrics.OutcomeLive)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DataLoads.WithLabelValues(string(cache.Historical), metrics.OutcomeCache)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DataLoads.WithLabelValues(string(cache.Volatility), metrics.OutcomeUnavailable)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Retries.WithLabelValues(string(cache.Volatility))))
}
