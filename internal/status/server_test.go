package status

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TailHedge/internal/metrics"
	"TailHedge/internal/model"
	"TailHedge/internal/recorder"
)

type fakeLister struct {
	records []recorder.ScenarioRecord
	err     error
	limit   int
}

func (f *fakeLister) RecentScenarios(limit int) ([]recorder.ScenarioRecord, error) {
	f.limit = limit
	return f.records, f.err
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := New(":0", nil, nil, zerolog.Nop())
	rec := get(t, s.Handler(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetrics(t *testing.T) {
	m := metrics.New()
	m.ObserveReport("stable", "stable")
	s := New(":0", m, nil, zerolog.Nop())

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `hedge_reports_total{classification="stable",regime="stable"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	s := New(":0", nil, nil, zerolog.Nop())
	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/metrics").Code)
}

func TestScenarios(t *testing.T) {
	lister := &fakeLister{records: []recorder.ScenarioRecord{{
		ID:     "abc",
		Ticker: "SPY",
		Regime: model.RegimeCrash,
		Scenario: model.Scenario{
			PriceAtStart: 450, PriceAtEnd: 360, StrikePrice: 380, OptionPrice: 2.5, ExpiryDate: "2025-08-15",
		},
	}}}
	s := New(":0", nil, lister, zerolog.Nop())

	rec := get(t, s.Handler(), "/api/scenarios?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, lister.limit)

	var got []recorder.ScenarioRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "abc", got[0].ID)
	assert.Equal(t, 380.0, got[0].Scenario.StrikePrice)
}

func TestScenarios_Limits(t *testing.T) {
	lister := &fakeLister{}
	s := New(":0", nil, lister, zerolog.Nop())

	rec := get(t, s.Handler(), "/api/scenarios")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, defaultLimit, lister.limit)
	assert.JSONEq(t, "[]", rec.Body.String())

	get(t, s.Handler(), "/api/scenarios?limit=100000")
	assert.Equal(t, maxLimit, lister.limit)

	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/api/scenarios?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/api/scenarios?limit=abc").Code)
}

func TestScenarios_Errors(t *testing.T) {
	s := New(":0", nil, nil, zerolog.Nop())
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Handler(), "/api/scenarios").Code)

	s = New(":0", nil, &fakeLister{err: errors.New("db closed")}, zerolog.Nop())
	assert.Equal(t, http.StatusInternalServerError, get(t, s.Handler(), "/api/scenarios").Code)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	s := New(addr, nil, nil, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestRun_BindError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	s := New(l.Addr().String(), nil, nil, zerolog.Nop())
	assert.Error(t, s.Run(context.Background()))
}
