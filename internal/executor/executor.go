// Package executor wraps a single logical API call with rate-limit backoff and
// single-hop proxy failover.
package executor

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"github.com/mumumusf/MonsterKombat/internal/shared/delay"
	"github.com/mumumusf/MonsterKombat/internal/shared/logger"
	"github.com/mumumusf/MonsterKombat/proxypool"
)

// Default policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 30 * time.Second
	DefaultMaxJitter   = 5 * time.Second
)

// Policy is the rate-limit retry policy.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
}

// DefaultPolicy returns 3 attempts, 30s base and up to 5s of jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxJitter:   DefaultMaxJitter,
	}
}

// Backoff is the pre-jitter delay after the given zero-based attempt:
// BaseDelay * 2^attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	return time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt)))
}

// Delay adds jitter to Backoff. jitter is a uniform value in [0,1) scaled to
// MaxJitter and added, not multiplied.
func (p Policy) Delay(attempt int, jitter float64) time.Duration {
	return p.Backoff(attempt) + time.Duration(jitter*float64(p.MaxJitter))
}

// Recorder receives executor events. observability.Metrics implements it.
type Recorder interface {
	RateLimitRetry()
	ProxyFailover()
}

type noopRecorder struct{}

func (noopRecorder) RateLimitRetry() {}
func (noopRecorder) ProxyFailover()  {}

// ProxiedOp performs one request using the given transport. A nil config
// means a direct connection.
type ProxiedOp func(ctx context.Context, tc *proxypool.TransportConfig) error

// Executor runs API calls against the proxy pool.
type Executor struct {
	pool     *proxypool.Pool
	policy   Policy
	sleeper  delay.Sleeper
	rnd      func() float64
	recorder Recorder
	logger   zerolog.Logger
}

// Option configures Executor.
type Option func(*Executor)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s delay.Sleeper) Option {
	return func(e *Executor) {
		e.sleeper = s
	}
}

// WithRand sets the jitter source.
func WithRand(rnd func() float64) Option {
	return func(e *Executor) {
		e.rnd = rnd
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Executor) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New creates an Executor. A nil pool behaves like an empty one.
func New(pool *proxypool.Pool, policy Policy, opts ...Option) *Executor {
	if pool == nil {
		pool = proxypool.NewPool()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	e := &Executor{
		pool:     pool,
		policy:   policy,
		sleeper:  delay.RealSleeper{},
		rnd:      rand.Float64,
		recorder: noopRecorder{},
		logger:   logger.WithComponent("Executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Do is RetryWithBackoff around ExecuteWithProxy.
func (e *Executor) Do(ctx context.Context, name string, op ProxiedOp) error {
	return e.RetryWithBackoff(ctx, name, func(ctx context.Context) error {
		return e.ExecuteWithProxy(ctx, op)
	})
}

// ExecuteWithProxy runs op with the next proxy from the pool. A connection
// failure is retried once with the following proxy when the pool holds more
// than one entry; every other failure is returned as is.
func (e *Executor) ExecuteWithProxy(ctx context.Context, op ProxiedOp) error {
	hops := 1
	if e.pool.Len() > 1 {
		hops = 2
	}

	var err error
	for hop := 0; hop < hops; hop++ {
		tc := e.nextTransport()
		err = op(ctx, tc)
		if err == nil {
			return nil
		}
		if !IsConnectionError(err) {
			return err
		}
		e.logger.Error().Str("proxy", tc.String()).Err(err).Msg("Proxy connection failed.")
		if hop+1 < hops {
			e.recorder.ProxyFailover()
			e.logger.Info().Msg("Trying the next proxy...")
		}
	}
	return err
}

// nextTransport draws the next entry and maps it to a transport config.
// Entries that fail to parse are logged and treated as no proxy.
func (e *Executor) nextTransport() *proxypool.TransportConfig {
	raw, ok := e.pool.Next()
	if !ok {
		return nil
	}
	ep, err := proxypool.Parse(raw)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Skipping unparsable proxy, connecting directly.")
		return nil
	}
	tc, err := proxypool.BuildTransportConfig(ep)
	if err != nil {
		e.logger.Warn().Str("proxy", ep.String()).Err(err).Msg("Proxy config error, connecting directly.")
		return nil
	}
	e.logger.Info().Str("proxy", proxypool.Redact(raw)).Msg("Using proxy.")
	return tc
}

// RetryWithBackoff retries op only on rate-limit errors, sleeping
// Policy.Delay between attempts. The last error is returned once
// MaxAttempts is exhausted.
func (e *Executor) RetryWithBackoff(ctx context.Context, name string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < e.policy.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRateLimited(err) {
			return err
		}
		if attempt+1 >= e.policy.MaxAttempts {
			break
		}

		d := e.policy.Delay(attempt, e.rnd())
		e.recorder.RateLimitRetry()
		e.logger.Warn().
			Str("op", name).
			Int("attempt", attempt+1).
			Int("max_attempts", e.policy.MaxAttempts).
			Dur("delay", d).
			Msgf("Rate limited, retrying in %d seconds (%d/%d)...", int(d.Seconds()), attempt+1, e.policy.MaxAttempts)
		if err := e.sleeper.Sleep(ctx, d); err != nil {
			return err
		}
	}
	return lastErr
}
