// Package orchestrator drives the account pipeline over a whole batch.
// Flow per account: cooldown check → pre-account pause → pipeline → pacing
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mumumusf/MonsterKombat/internal/game"
	"github.com/mumumusf/MonsterKombat/internal/pipeline"
	"github.com/mumumusf/MonsterKombat/internal/shared/delay"
	"github.com/mumumusf/MonsterKombat/internal/shared/logger"
	"github.com/mumumusf/MonsterKombat/internal/shared/types"
)

// Account outcomes, as reported to the recorder.
const (
	StatusSucceeded = "succeeded"
	StatusAborted   = "aborted"
	StatusFailed    = "failed"
)

// Runner runs one account and always returns a result. *pipeline.Pipeline
// implements it.
type Runner interface {
	Run(ctx context.Context, index int) (*pipeline.Result, error)
}

// Recorder receives batch events. observability.Metrics implements it.
type Recorder interface {
	AccountFinished(status string)
	BattleRecorded(win bool, tokens int64, gems float64)
	Cooldown()
}

type noopRecorder struct{}

func (noopRecorder) AccountFinished(string)              {}
func (noopRecorder) BattleRecorded(bool, int64, float64) {}
func (noopRecorder) Cooldown()                           {}

// Pacing holds every batch-level wait and the failure threshold.
type Pacing struct {
	PreAccount       delay.Range
	InterAccount     delay.Range
	Abort            delay.Range
	Error            delay.Range
	Cooldown         delay.Range
	FailureThreshold int
}

// PacingFromConfig maps the [pacing] section.
func PacingFromConfig(c types.PacingConf) Pacing {
	return Pacing{
		PreAccount:       delay.Range{Min: c.PreAccountMin, Max: c.PreAccountMax},
		InterAccount:     delay.Range{Min: c.InterAccountMin, Max: c.InterAccountMax},
		Abort:            delay.Range{Min: c.AbortMin, Max: c.AbortMax},
		Error:            delay.Range{Min: c.ErrorMin, Max: c.ErrorMax},
		Cooldown:         delay.Range{Min: c.CooldownMin, Max: c.CooldownMax},
		FailureThreshold: c.FailureThreshold,
	}
}

// Options for creating an Orchestrator.
type Options struct {
	Pipeline Runner
	Pacer    pipeline.Waiter
	Pacing   Pacing
	Recorder Recorder
	// RunID tags every log line of the batch.
	RunID string
}

// Orchestrator runs accounts strictly one after another.
type Orchestrator struct {
	pipeline Runner
	pacer    pipeline.Waiter
	pacing   Pacing
	recorder Recorder
	logger   zerolog.Logger

	// streak counts consecutive aborted or failed accounts.
	streak int
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Pacing.FailureThreshold < 1 {
		opts.Pacing.FailureThreshold = 1
	}
	rec := opts.Recorder
	if rec == nil {
		rec = noopRecorder{}
	}
	l := logger.WithComponent("Orchestrator")
	if opts.RunID != "" {
		l = l.With().Str("run_id", opts.RunID).Logger()
	}
	return &Orchestrator{
		pipeline: opts.Pipeline,
		pacer:    opts.Pacer,
		pacing:   opts.Pacing,
		recorder: rec,
		logger:   l,
	}
}

// Run processes count accounts and returns the batch totals. Account
// failures never stop the batch; only a canceled context does.
func (o *Orchestrator) Run(ctx context.Context, count int) Summary {
	sum := Summary{Accounts: count}
	started := time.Now()
	o.streak = 0

	o.logger.Info().Int("count", count).Msg("Starting batch.")
accounts:
	for i := 0; i < count; i++ {
		index := i + 1
		last := i == count-1

		if o.streak >= o.pacing.FailureThreshold {
			o.logger.Warn().
				Int("streak", o.streak).
				Msgf("Detected %d consecutive failures, entering cooldown.", o.streak)
			o.recorder.Cooldown()
			if !o.wait(ctx, o.pacing.Cooldown, "cooldown") {
				break accounts
			}
			o.streak = 0
		}

		o.logger.Info().Int("account", index).Msgf("Processing account %d/%d", index, count)
		if !o.wait(ctx, o.pacing.PreAccount, "pre-account") {
			break accounts
		}

		res, err := o.pipeline.Run(ctx, index)
		if res != nil {
			sum.addBattles(res.Battles, o.recorder)
		}

		switch {
		case err != nil:
			if pipeline.IsCanceled(err) {
				o.logger.Warn().Err(err).Msg("Batch canceled.")
				sum.Failed++
				sum.Elapsed = time.Since(started)
				return sum
			}
			sum.Failed++
			o.streak++
			o.recorder.AccountFinished(StatusFailed)
			o.logger.Error().Int("account", index).Int("streak", o.streak).Err(err).Msg("Account failed.")
			if !o.wait(ctx, o.pacing.Error, "error") {
				break accounts
			}
		case res.Aborted:
			sum.Aborted++
			o.streak++
			o.recorder.AccountFinished(StatusAborted)
			o.logger.Warn().
				Int("account", index).
				Int("streak", o.streak).
				Str("reason", res.AbortReason).
				Msg("Account aborted.")
			if !o.wait(ctx, o.pacing.Abort, "abort") {
				break accounts
			}
		default:
			sum.Succeeded++
			o.streak = 0
			o.recorder.AccountFinished(StatusSucceeded)
			if !last && !o.wait(ctx, o.pacing.InterAccount, "inter-account") {
				break accounts
			}
		}
		if ctx.Err() != nil {
			break accounts
		}
	}

	sum.Elapsed = time.Since(started)
	return sum
}

// Streak returns the current consecutive failure count.
func (o *Orchestrator) Streak() int {
	return o.streak
}

// wait reports false when the context ended the pause.
func (o *Orchestrator) wait(ctx context.Context, r delay.Range, reason string) bool {
	if err := o.pacer.Wait(ctx, r, reason); err != nil {
		o.logger.Warn().Err(err).Str("reason", reason).Msg("Pause interrupted, stopping batch.")
		return false
	}
	return true
}

// Summary is the batch report.
type Summary struct {
	Accounts    int
	Succeeded   int
	Aborted     int
	Failed      int
	Wins        int
	Losses      int
	TotalTokens int64
	TotalGems   float64
	Elapsed     time.Duration
}

func (s *Summary) addBattles(outs []game.BattleOutcome, rec Recorder) {
	for _, b := range outs {
		if b.Win {
			s.Wins++
		} else {
			s.Losses++
		}
		s.TotalTokens += b.EarnedToken
		s.TotalGems += b.EarnedGem
		rec.BattleRecorded(b.Win, b.EarnedToken, b.EarnedGem)
	}
}

// GemsDisplay renders total gems rounded to two decimals.
func (s Summary) GemsDisplay() string {
	return fmt.Sprintf("%.2f", s.TotalGems)
}

// Log writes the summary block.
func (s Summary) Log(l zerolog.Logger) {
	l.Info().Msg("========== Batch summary ==========")
	l.Info().
		Int("accounts", s.Accounts).
		Int("succeeded", s.Succeeded).
		Int("aborted", s.Aborted).
		Int("failed", s.Failed).
		Dur("elapsed", s.Elapsed).
		Msg("Accounts processed.")
	l.Info().Msgf("Wins: %d", s.Wins)
	l.Info().Msgf("Losses: %d", s.Losses)
	l.Info().Msgf("Total tokens earned: %d", s.TotalTokens)
	l.Info().Msgf("Total gems earned: %s", s.GemsDisplay())
}
