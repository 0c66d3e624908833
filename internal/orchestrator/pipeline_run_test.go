package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mumumusf/MonsterKombat/internal/game"
	"github.com/mumumusf/MonsterKombat/internal/identity"
	"github.com/mumumusf/MonsterKombat/internal/pipeline"
	"github.com/mumumusf/MonsterKombat/internal/storage"
)

// singleAssetGame signs in, owns one monster and answers battles from a script.
type singleAssetGame struct {
	outcomes []game.BattleOutcome
	fought   []string
}

func (g *singleAssetGame) Authenticate(context.Context, game.Signer, string) string { return "tok" }
func (g *singleAssetGame) ClaimStarterAsset(context.Context, string) bool           { return true }

func (g *singleAssetGame) ListAssets(context.Context, string) []game.Asset {
	return []game.Asset{{ID: game.NewAssetID("m-1"), Name: "Sparky"}}
}

func (g *singleAssetGame) Battle(_ context.Context, _ string, id game.AssetID, _ int) (game.BattleOutcome, bool) {
	out := g.outcomes[len(g.fought)]
	g.fought = append(g.fought, id.String())
	return out, true
}

func (g *singleAssetGame) ListMissions(context.Context, string, string) []game.Mission {
	return []game.Mission{}
}

func (g *singleAssetGame) AdvanceMission(context.Context, string, string) bool     { return true }
func (g *singleAssetGame) ClaimMissionReward(context.Context, string, string) bool { return true }

func (g *singleAssetGame) GetBalance(context.Context, string) game.Balance {
	return game.Balance{Gem: 1.75, Token: 5}
}

type memStore struct {
	records []storage.AccountRecord
}

func (m *memStore) Append(rec storage.AccountRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) Load() ([]storage.AccountRecord, error) { return m.records, nil }

func TestRun_SingleAssetAccountThroughPipeline(t *testing.T) {
	g := &singleAssetGame{outcomes: []game.BattleOutcome{
		{Win: true, EarnedToken: 5, EarnedGem: 1.25},
		{Win: false, EarnedToken: 0, EarnedGem: 0.5},
	}}
	store := &memStore{}
	w := &recordingWaiter{}
	gen := identity.NewGenerator()

	p := pipeline.New(pipeline.Options{
		Game:            g,
		Identities:      pipeline.GeneratorFunc(func() (pipeline.Account, error) { return gen.Generate() }),
		Store:           store,
		Pacer:           w,
		RefCode:         "REF42",
		WinRate:         70,
		MissionCategory: "BASIC_TASK",
		Now:             func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
	rec := &countingRecorder{}
	o := New(Options{
		Pipeline: p,
		Pacer:    w,
		Pacing:   Pacing{FailureThreshold: 3},
		Recorder: rec,
		RunID:    "test-run",
	})

	sum := o.Run(context.Background(), 1)

	assert.Equal(t, []string{"m-1", "m-1"}, g.fought)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Wins)
	assert.Equal(t, 1, sum.Losses)
	assert.Equal(t, int64(5), sum.TotalTokens)
	assert.Equal(t, "1.75", sum.GemsDisplay())
	assert.Equal(t, []string{"pre-account", "battle", "battle"}, w.reasons)
	assert.Equal(t, []string{StatusSucceeded}, rec.statuses)
	require.Len(t, store.records, 1)
	assert.Equal(t, "tok", store.records[0].AccessToken)
}
