package observability

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.ObserveAPICall("battle", true)
	m.ObserveAPICall("battle", false)
	m.ObserveAPICall("battle", true)
	m.RateLimitRetry()
	m.ProxyFailover()
	m.AccountFinished("succeeded")
	m.BattleRecorded(true, 5, 1.25)
	m.BattleRecorded(false, 0, 0.5)
	m.Cooldown()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APICalls.WithLabelValues("battle", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APICalls.WithLabelValues("battle", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProxyFailovers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Accounts.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Battles.WithLabelValues("win")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Battles.WithLabelValues("loss")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.TokensEarned))
	assert.InDelta(t, 1.75, testutil.ToFloat64(m.GemsEarned), 1e-9)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Cooldowns))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAPICall("battle", true)
		m.RateLimitRetry()
		m.ProxyFailover()
		m.AccountFinished("failed")
		m.BattleRecorded(true, 1, 1)
		m.Cooldown()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.AccountFinished("aborted")

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `monsterkombat_batch_accounts_total{status="aborted"} 1`)
}
