// Package pipeline runs the lifecycle of a single account: identity,
// login, starter monster, battles, missions, balance and persistence.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mumumusf/MonsterKombat/internal/game"
	"github.com/mumumusf/MonsterKombat/internal/shared/delay"
	"github.com/mumumusf/MonsterKombat/internal/shared/logger"
	"github.com/mumumusf/MonsterKombat/internal/storage"
)

// DefaultBattles is the number of battle attempts per account.
const DefaultBattles = 2

// Stage is the furthest step an account reached.
type Stage int

const (
	StageStart Stage = iota
	StageIdentityGenerated
	StageAuthenticated
	StageAssetClaimed
	StageAssetsListed
	StageBattled
	StageMissionsProcessed
	StageBalanceFetched
	StagePersisted
)

func (s Stage) String() string {
	switch s {
	case StageStart:
		return "start"
	case StageIdentityGenerated:
		return "identity_generated"
	case StageAuthenticated:
		return "authenticated"
	case StageAssetClaimed:
		return "asset_claimed"
	case StageAssetsListed:
		return "assets_listed"
	case StageBattled:
		return "battled"
	case StageMissionsProcessed:
		return "missions_processed"
	case StageBalanceFetched:
		return "balance_fetched"
	case StagePersisted:
		return "persisted"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Abort reasons.
const (
	ReasonNoToken  = "authentication failed"
	ReasonNoAssets = "no monsters available"
)

// GameAPI is the subset of game.Client the pipeline drives.
type GameAPI interface {
	Authenticate(ctx context.Context, signer game.Signer, refCode string) string
	ClaimStarterAsset(ctx context.Context, token string) bool
	ListAssets(ctx context.Context, token string) []game.Asset
	Battle(ctx context.Context, token string, assetID game.AssetID, winRate int) (game.BattleOutcome, bool)
	ListMissions(ctx context.Context, token, category string) []game.Mission
	AdvanceMission(ctx context.Context, token, id string) bool
	ClaimMissionReward(ctx context.Context, token, id string) bool
	GetBalance(ctx context.Context, token string) game.Balance
}

// Account is a generated identity that can sign in and be persisted.
type Account interface {
	game.Signer
	PrivateKeyHex() string
}

// IdentityGenerator creates a fresh account identity.
type IdentityGenerator interface {
	Generate() (Account, error)
}

// GeneratorFunc adapts a function to IdentityGenerator.
type GeneratorFunc func() (Account, error)

func (f GeneratorFunc) Generate() (Account, error) { return f() }

// Waiter applies a randomized pause. *delay.Pacer implements it.
type Waiter interface {
	Wait(ctx context.Context, r delay.Range, reason string) error
}

// Options configures a Pipeline.
type Options struct {
	Game       GameAPI
	Identities IdentityGenerator
	Store      storage.Store
	Pacer      Waiter

	RefCode         string
	WinRate         int
	MissionCategory string
	Battles         int
	BattlePause     delay.Range

	Now func() time.Time
}

// Result is the outcome of one run.
type Result struct {
	Index       int
	AccountID   string
	Address     string
	Stage       Stage
	Aborted     bool
	AbortReason string
	Battles     []game.BattleOutcome
	Record      *storage.AccountRecord
}

// Pipeline runs accounts one at a time.
type Pipeline struct {
	opts   Options
	logger zerolog.Logger
}

// New creates a Pipeline.
func New(opts Options) *Pipeline {
	if opts.Battles <= 0 {
		opts.Battles = DefaultBattles
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		opts:   opts,
		logger: logger.WithComponent("Pipeline"),
	}
}

// Run processes account number index. Failed API steps never surface as
// errors: a missing token or an empty monster list aborts the run, other
// step failures are logged and skipped. An error is returned only when the
// identity cannot be generated or the record cannot be saved.
func (p *Pipeline) Run(ctx context.Context, index int) (*Result, error) {
	res := &Result{
		Index:     index,
		AccountID: uuid.NewString(),
		Stage:     StageStart,
		Battles:   []game.BattleOutcome{},
	}
	l := p.logger.With().Int("account", index).Str("account_id", res.AccountID).Logger()

	acct, err := p.opts.Identities.Generate()
	if err != nil {
		return res, fmt.Errorf("generate identity: %w", err)
	}
	res.Address = acct.Address()
	res.Stage = StageIdentityGenerated
	l = l.With().Str("address", res.Address).Logger()
	l.Info().Msg("Generated new wallet.")

	token := p.opts.Game.Authenticate(ctx, acct, p.opts.RefCode)
	if token == "" {
		return p.abort(l, res, ReasonNoToken), nil
	}
	res.Stage = StageAuthenticated

	p.opts.Game.ClaimStarterAsset(ctx, token)
	res.Stage = StageAssetClaimed

	assets := p.opts.Game.ListAssets(ctx, token)
	if len(assets) == 0 {
		return p.abort(l, res, ReasonNoAssets), nil
	}
	res.Stage = StageAssetsListed

	if err := p.fight(ctx, l, res, token, assets[0]); err != nil {
		return res, err
	}
	res.Stage = StageBattled

	p.processMissions(ctx, l, token)
	res.Stage = StageMissionsProcessed

	balance := p.opts.Game.GetBalance(ctx, token)
	res.Stage = StageBalanceFetched

	rec := storage.AccountRecord{
		Address:     res.Address,
		PrivateKey:  acct.PrivateKeyHex(),
		AccessToken: token,
		RefCode:     p.opts.RefCode,
		Balance:     storage.Balance{Gem: balance.Gem, Token: balance.Token},
		CreatedAt:   p.opts.Now().UTC(),
	}
	if err := p.opts.Store.Append(rec); err != nil {
		return res, fmt.Errorf("persist account %s: %w", res.Address, err)
	}
	res.Record = &rec
	res.Stage = StagePersisted

	l.Info().
		Int("battles", len(res.Battles)).
		Float64("gem", balance.Gem).
		Float64("token", balance.Token).
		Msg("Account completed.")
	return res, nil
}

func (p *Pipeline) abort(l zerolog.Logger, res *Result, reason string) *Result {
	res.Aborted = true
	res.AbortReason = reason
	l.Warn().Str("stage", res.Stage.String()).Str("reason", reason).Msg("Account aborted.")
	return res
}

// fight runs the battle attempts against the first monster, pausing after
// each one. Only successful calls are collected.
func (p *Pipeline) fight(ctx context.Context, l zerolog.Logger, res *Result, token string, asset game.Asset) error {
	l.Info().Str("asset", asset.ID.String()).Str("name", asset.Name).Msgf("Starting %d battles.", p.opts.Battles)
	for i := 0; i < p.opts.Battles; i++ {
		if out, ok := p.opts.Game.Battle(ctx, token, asset.ID, p.opts.WinRate); ok {
			res.Battles = append(res.Battles, out)
		}
		if err := p.opts.Pacer.Wait(ctx, p.opts.BattlePause, "battle"); err != nil {
			return fmt.Errorf("battle pause: %w", err)
		}
	}
	return nil
}

// processMissions claims every unclaimed mission, advancing it first when
// its target is not met yet.
func (p *Pipeline) processMissions(ctx context.Context, l zerolog.Logger, token string) {
	missions := p.opts.Game.ListMissions(ctx, token, p.opts.MissionCategory)
	for _, m := range missions {
		if m.Claimed {
			l.Info().Str("mission", m.ID).Msg("Mission already claimed.")
			continue
		}
		if m.InProgress() {
			if !p.opts.Game.AdvanceMission(ctx, token, m.ID) {
				continue
			}
		}
		p.opts.Game.ClaimMissionReward(ctx, token, m.ID)
	}
}

// IsCanceled reports whether err came from the run's context.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
