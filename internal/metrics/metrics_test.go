package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveLoad("historical", OutcomeLive)
	m.ObserveLoad("historical", OutcomeLive)
	m.ObserveLoad("vix", OutcomeCache)
	m.ObserveRetry("puts")
	m.ObserveReport("crash", "crash")
	m.ObserveReportFailure()
	m.ObserveNotification(nil)
	m.ObserveNotification(errors.New("down"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.DataLoads.WithLabelValues("historical", OutcomeLive)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DataLoads.WithLabelValues("vix", OutcomeCache)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retries.WithLabelValues("puts")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reports.WithLabelValues("crash", "crash")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReportFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("failed")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveLoad("vix", OutcomeLive)
		m.ObserveRetry("puts")
		m.ObserveReport("stable", "stable")
		m.ObserveReportFailure()
		m.ObserveNotification(nil)
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveLoad("historical", OutcomeFallback)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hedge_data_loads_total{kind="historical",outcome="fallback"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
