// Package observability provides Prometheus metrics for a batch run.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mumumusf/MonsterKombat/internal/shared/logger"
)

const namespace = "monsterkombat"

// Metrics holds all Prometheus metrics for the runner. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	APICalls         *prometheus.CounterVec
	RateLimitRetries prometheus.Counter
	ProxyFailovers   prometheus.Counter
	Accounts         *prometheus.CounterVec
	Battles          *prometheus.CounterVec
	TokensEarned     prometheus.Counter
	GemsEarned       prometheus.Counter
	Cooldowns        prometheus.Counter
}

// NewMetrics registers every metric on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		APICalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "calls_total",
			Help:      "Game API calls by operation and outcome",
		}, []string{"op", "outcome"}),
		RateLimitRetries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "rate_limit_retries_total",
			Help:      "Retries scheduled after a 429 response",
		}),
		ProxyFailovers: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "failovers_total",
			Help:      "Requests moved to the next proxy after a connection failure",
		}),
		Accounts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "accounts_total",
			Help:      "Processed accounts by status",
		}, []string{"status"}),
		Battles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "battles_total",
			Help:      "Successful battles by result",
		}, []string{"result"}),
		TokensEarned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "tokens_earned_total",
			Help:      "Tokens earned in battles",
		}),
		GemsEarned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "gems_earned_total",
			Help:      "Gems earned in battles",
		}),
		Cooldowns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "cooldowns_total",
			Help:      "Extended cooldowns after consecutive failures",
		}),
	}
}

func (m *Metrics) ObserveAPICall(op string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.APICalls.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) RateLimitRetry() {
	if m == nil {
		return
	}
	m.RateLimitRetries.Inc()
}

func (m *Metrics) ProxyFailover() {
	if m == nil {
		return
	}
	m.ProxyFailovers.Inc()
}

func (m *Metrics) AccountFinished(status string) {
	if m == nil {
		return
	}
	m.Accounts.WithLabelValues(status).Inc()
}

func (m *Metrics) BattleRecorded(win bool, tokens int64, gems float64) {
	if m == nil {
		return
	}
	result := "loss"
	if win {
		result = "win"
	}
	m.Battles.WithLabelValues(result).Inc()
	if tokens > 0 {
		m.TokensEarned.Add(float64(tokens))
	}
	if gems > 0 {
		m.GemsEarned.Add(gems)
	}
}

func (m *Metrics) Cooldown() {
	if m == nil {
		return
	}
	m.Cooldowns.Inc()
}

// Handler returns an HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is done. It returns immediately;
// listener errors are logged.
func (m *Metrics) Serve(ctx context.Context, addr string) *http.Server {
	l := logger.WithComponent("Metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		l.Info().Str("addr", addr).Msg("Metrics endpoint listening.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error().Err(err).Msg("Metrics server stopped.")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv
}
