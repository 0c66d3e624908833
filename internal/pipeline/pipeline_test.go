package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mumumusf/MonsterKombat/internal/game"
	"github.com/mumumusf/MonsterKombat/internal/identity"
	"github.com/mumumusf/MonsterKombat/internal/shared/delay"
	"github.com/mumumusf/MonsterKombat/internal/storage"
)

// fakeGame records every call in order.
type fakeGame struct {
	calls []string

	token    string
	assets   []game.Asset
	battles  []fakeBattle
	missions []game.Mission
	advance  map[string]bool
	balance  game.Balance
}

type fakeBattle struct {
	out game.BattleOutcome
	ok  bool
}

func (f *fakeGame) Authenticate(_ context.Context, s game.Signer, ref string) string {
	f.calls = append(f.calls, "auth")
	return f.token
}

func (f *fakeGame) ClaimStarterAsset(context.Context, string) bool {
	f.calls = append(f.calls, "claim_starter")
	return true
}

func (f *fakeGame) ListAssets(context.Context, string) []game.Asset {
	f.calls = append(f.calls, "list_assets")
	return f.assets
}

func (f *fakeGame) Battle(_ context.Context, _ string, id game.AssetID, _ int) (game.BattleOutcome, bool) {
	f.calls = append(f.calls, "battle:"+id.String())
	if len(f.battles) == 0 {
		return game.BattleOutcome{}, false
	}
	b := f.battles[0]
	f.battles = f.battles[1:]
	return b.out, b.ok
}

func (f *fakeGame) ListMissions(context.Context, string, string) []game.Mission {
	f.calls = append(f.calls, "list_missions")
	return f.missions
}

func (f *fakeGame) AdvanceMission(_ context.Context, _ string, id string) bool {
	f.calls = append(f.calls, "advance:"+id)
	ok, found := f.advance[id]
	return !found || ok
}

func (f *fakeGame) ClaimMissionReward(_ context.Context, _ string, id string) bool {
	f.calls = append(f.calls, "claim:"+id)
	return true
}

func (f *fakeGame) GetBalance(context.Context, string) game.Balance {
	f.calls = append(f.calls, "balance")
	return f.balance
}

type memStore struct {
	records []storage.AccountRecord
	err     error
}

func (m *memStore) Append(rec storage.AccountRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *memStore) Load() ([]storage.AccountRecord, error) { return m.records, nil }

type recordingWaiter struct {
	reasons []string
}

func (w *recordingWaiter) Wait(_ context.Context, _ delay.Range, reason string) error {
	w.reasons = append(w.reasons, reason)
	return nil
}

func identities() IdentityGenerator {
	gen := identity.NewGenerator()
	return GeneratorFunc(func() (Account, error) { return gen.Generate() })
}

func newPipeline(g *fakeGame, store *memStore, w *recordingWaiter) *Pipeline {
	return New(Options{
		Game:            g,
		Identities:      identities(),
		Store:           store,
		Pacer:           w,
		RefCode:         "REF42",
		WinRate:         70,
		MissionCategory: "BASIC_TASK",
		Now:             func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func TestRun_NoTokenAbortsBeforeAnyOtherCall(t *testing.T) {
	g := &fakeGame{}
	store := &memStore{}
	w := &recordingWaiter{}

	res, err := newPipeline(g, store, w).Run(context.Background(), 1)

	require.NoError(t, err)
	assert.True(t, res.Aborted)
	assert.Equal(t, ReasonNoToken, res.AbortReason)
	assert.Equal(t, StageIdentityGenerated, res.Stage)
	assert.Equal(t, []string{"auth"}, g.calls)
	assert.Empty(t, store.records)
	assert.Nil(t, res.Record)
	assert.Empty(t, w.reasons)
}

func TestRun_NoAssetsAbortsWithoutBattles(t *testing.T) {
	g := &fakeGame{token: "tok"}
	store := &memStore{}

	res, err := newPipeline(g, store, &recordingWaiter{}).Run(context.Background(), 1)

	require.NoError(t, err)
	assert.True(t, res.Aborted)
	assert.Equal(t, ReasonNoAssets, res.AbortReason)
	assert.Equal(t, []string{"auth", "claim_starter", "list_assets"}, g.calls)
	assert.Empty(t, store.records)
	assert.Empty(t, res.Battles)
}

func TestRun_FullLifecycle(t *testing.T) {
	g := &fakeGame{
		token:  "tok",
		assets: []game.Asset{{ID: game.NewAssetID("p1")}, {ID: game.NewAssetID("p2")}},
		battles: []fakeBattle{
			{out: game.BattleOutcome{Win: true, EarnedToken: 5, EarnedGem: 1.25}, ok: true},
			{out: game.BattleOutcome{EarnedGem: 0.5}, ok: true},
		},
		missions: []game.Mission{{ID: "m1", Target: 1, Current: 1}},
		balance:  game.Balance{Gem: 3.5, Token: 12},
	}
	store := &memStore{}
	w := &recordingWaiter{}

	res, err := newPipeline(g, store, w).Run(context.Background(), 3)

	require.NoError(t, err)
	assert.False(t, res.Aborted)
	assert.Equal(t, StagePersisted, res.Stage)
	assert.Equal(t, []string{
		"auth", "claim_starter", "list_assets",
		"battle:p1", "battle:p1",
		"list_missions", "claim:m1",
		"balance",
	}, g.calls)
	assert.Equal(t, []string{"battle", "battle"}, w.reasons)
	require.Len(t, res.Battles, 2)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, res.Address, rec.Address)
	assert.Equal(t, "tok", rec.AccessToken)
	assert.Equal(t, "REF42", rec.RefCode)
	assert.Equal(t, storage.Balance{Gem: 3.5, Token: 12}, rec.Balance)
	assert.Len(t, rec.PrivateKey, 66)
	assert.Equal(t, &rec, res.Record)

	restored, err := identity.FromPrivateKeyHex(rec.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, rec.Address, restored.Address())
}

func TestRun_FailedBattleIsNotCollected(t *testing.T) {
	g := &fakeGame{
		token:   "tok",
		assets:  []game.Asset{{ID: game.NewAssetID("p1")}},
		battles: []fakeBattle{{ok: false}, {out: game.BattleOutcome{Win: true}, ok: true}},
	}
	w := &recordingWaiter{}

	res, err := newPipeline(g, &memStore{}, w).Run(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, res.Battles, 1)
	assert.True(t, res.Battles[0].Win)
	assert.Len(t, w.reasons, 2, "pause after every attempt")
}

func TestProcessMissions_Gating(t *testing.T) {
	tests := []struct {
		name    string
		mission game.Mission
		advance bool
		want    []string
	}{
		{name: "in progress", mission: game.Mission{ID: "m", Target: 5, Current: 3}, advance: true, want: []string{"advance:m", "claim:m"}},
		{name: "target met", mission: game.Mission{ID: "m", Target: 5, Current: 5}, want: []string{"claim:m"}},
		{name: "already claimed", mission: game.Mission{ID: "m", Target: 5, Current: 5, Claimed: true}, want: nil},
		{name: "advance fails", mission: game.Mission{ID: "m", Target: 5, Current: 1}, advance: false, want: []string{"advance:m"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &fakeGame{missions: []game.Mission{tt.mission}, advance: map[string]bool{"m": tt.advance}}
			p := newPipeline(g, &memStore{}, &recordingWaiter{})

			p.processMissions(context.Background(), p.logger, "tok")

			assert.Equal(t, append([]string{"list_missions"}, tt.want...), g.calls)
		})
	}
}

func TestProcessMissions_LogsAlreadyClaimedAtInfo(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.InfoLevel)
	g := &fakeGame{missions: []game.Mission{{ID: "DAILY_LOGIN", Target: 1, Current: 1, Claimed: true}}}
	p := newPipeline(g, &memStore{}, &recordingWaiter{})

	p.processMissions(context.Background(), l, "tok")

	assert.Contains(t, buf.String(), `"level":"info"`)
	assert.Contains(t, buf.String(), "Mission already claimed.")
	assert.Contains(t, buf.String(), `"mission":"DAILY_LOGIN"`)
}

func TestRun_PersistFailureIsReturned(t *testing.T) {
	g := &fakeGame{token: "tok", assets: []game.Asset{{ID: game.NewAssetID("p1")}}}
	store := &memStore{err: errors.New("disk full")}

	res, err := newPipeline(g, store, &recordingWaiter{}).Run(context.Background(), 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, StageBalanceFetched, res.Stage)
	assert.Nil(t, res.Record)
}

func TestRun_IdentityFailureIsReturned(t *testing.T) {
	p := New(Options{
		Game: &fakeGame{},
		Identities: GeneratorFunc(func() (Account, error) {
			return nil, fmt.Errorf("entropy exhausted")
		}),
		Store: &memStore{},
		Pacer: &recordingWaiter{},
	})

	res, err := p.Run(context.Background(), 1)

	require.Error(t, err)
	assert.Equal(t, StageStart, res.Stage)
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "persisted", StagePersisted.String())
	assert.Equal(t, "stage(42)", Stage(42).String())
}
