package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TailHedge/internal/recorder"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().String()
}

func TestServeCmd_RunNowAndShutdown(t *testing.T) {
	app := newTestApp(t)
	app.Config.Status.Addr = freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := NewRootCmd(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--run-now"})
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	base := "http://" + app.Config.Status.Addr
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/api/scenarios")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var records []recorder.ScenarioRecord
		if resp.StatusCode != http.StatusOK || json.NewDecoder(resp.Body).Decode(&records) != nil {
			return false
		}
		return len(records) == 2
	}, 10*time.Second, 50*time.Millisecond)

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, body.String(), "hedge_reports_total")
	assert.Contains(t, body.String(), `hedge_data_loads_total{kind="historical",outcome="live"} 1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestServeCmd_BadCron(t *testing.T) {
	app := newTestApp(t)
	app.Config.Status.Addr = ""
	app.Config.Schedule.DailyCron = "every day"

	_, err := run(t, app, "serve")
	assert.Error(t, err)
}
