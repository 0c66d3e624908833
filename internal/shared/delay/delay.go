// Package delay provides randomized waits shared by the executor, the account
// pipeline and the batch orchestrator.
package delay

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
)

// Range is an inclusive [Min, Max] wait window.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Pick returns a duration within the range using f, a uniform value in [0,1).
func (r Range) Pick(f float64) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + time.Duration(f*float64(r.Max-r.Min))
}

// Sleeper blocks for d.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper waits on the wall clock.
type RealSleeper struct{}

func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Pacer applies randomized waits and logs each one.
type Pacer struct {
	sleeper Sleeper
	rnd     func() float64
	logger  zerolog.Logger
}

// NewPacer returns a Pacer. A nil rnd uses math/rand/v2.
func NewPacer(sleeper Sleeper, rnd func() float64, logger zerolog.Logger) *Pacer {
	if sleeper == nil {
		sleeper = RealSleeper{}
	}
	if rnd == nil {
		rnd = rand.Float64
	}
	return &Pacer{sleeper: sleeper, rnd: rnd, logger: logger}
}

// Wait sleeps for a random duration within r.
func (p *Pacer) Wait(ctx context.Context, r Range, reason string) error {
	d := r.Pick(p.rnd())
	p.logger.Info().Str("reason", reason).Dur("delay", d).Msgf("Waiting %.1f seconds...", d.Seconds())
	return p.sleeper.Sleep(ctx, d)
}
