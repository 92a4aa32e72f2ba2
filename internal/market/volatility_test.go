package market

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TailHedge/internal/calculator"
	"TailHedge/internal/collector"
	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/model"
)

func TestEstimate_IndexScaledByRegime(t *testing.T) {
	m := newMock()
	f, _ := newTestFetcher(t, m)
	e := NewVolatilityEstimator(f, 60, zerolog.Nop())

	v, src, err := e.Estimate(context.Background(), model.RegimeStable, m.Bars)
	require.NoError(t, err)
	assert.Equal(t, SourceIndex, src)
	assert.InDelta(t, 0.18, v, 1e-12)

	v, src, err = e.Estimate(context.Background(), model.RegimeCrash, m.Bars)
	require.NoError(t, err)
	assert.Equal(t, SourceIndex, src)
	assert.InDelta(t, 0.27, v, 1e-12)
	assert.Equal(t, 1, m.Calls[collector.MethodVIX], "index level is kept in memory")
}

func TestEstimate_FallsBackToHistorical(t *testing.T) {
	m := newMock()
	m.VIX = 0
	f, _ := newTestFetcher(t, m)
	e := NewVolatilityEstimator(f, 60, zerolog.Nop())

	hv, err := calculator.HistoricalVolatility(m.Bars, 60)
	require.NoError(t, err)

	v, src, err := e.Estimate(context.Background(), model.RegimeStable, m.Bars)
	require.NoError(t, err)
	assert.Equal(t, SourceHistorical, src)
	assert.InDelta(t, hv, v, 1e-12)

	v, _, err = e.Estimate(context.Background(), model.RegimeCrash, m.Bars)
	require.NoError(t, err)
	assert.InDelta(t, hv*CrashMultiplier, v, 1e-12)
}

func TestEstimate_DefaultsWhenNothingAvailable(t *testing.T) {
	m := newMock()
	m.VIX = 0
	f, _ := newTestFetcher(t, m)
	e := NewVolatilityEstimator(f, 60, zerolog.Nop())
	short := m.Bars[:30]

	v, src, err := e.Estimate(context.Background(), model.RegimeStable, short)
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, src)
	assert.Equal(t, DefaultStableVolatility, v)

	v, _, err = e.Estimate(context.Background(), model.RegimeCrash, short)
	require.NoError(t, err)
	assert.Equal(t, DefaultCrashVolatility, v)
}

func TestEstimate_RateLimitFallsBack(t *testing.T) {
	m := newMock()
	m.Errs = map[string][]error{collector.MethodVIX: repeat(rateLimited, 10)}
	f, _ := newTestFetcher(t, m)
	e := NewVolatilityEstimator(f, 60, zerolog.Nop())

	_, src, err := e.Estimate(context.Background(), model.RegimeStable, m.Bars)
	require.NoError(t, err)
	assert.Equal(t, SourceHistorical, src)
}

func TestEstimate_TransportFailureIsReturned(t *testing.T) {
	m := newMock()
	m.Errs = map[string][]error{collector.MethodVIX: repeat(transportErr, 10)}
	f, rec := newTestFetcher(t, m)
	e := NewVolatilityEstimator(f, 60, zerolog.Nop())

	_, _, err := e.Estimate(context.Background(), model.RegimeCrash, m.Bars)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
	assert.Equal(t, 4, m.Calls[collector.MethodVIX])
	assert.Len(t, rec.delays, 3)
}
