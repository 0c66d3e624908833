// Package game is the HTTP client for the game API. Every operation goes
// through the executor, so rate limits are retried and dead proxies are
// failed over before a result is reported.
package game

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mumumusf/MonsterKombat/internal/executor"
	"github.com/mumumusf/MonsterKombat/internal/shared/logger"
	"github.com/mumumusf/MonsterKombat/proxypool"
)

const (
	DefaultBaseURL = "https://api.monsterkombat.io"
	DefaultTimeout = 30 * time.Second

	loginMessagePrefix = "Login to the app. Connect time: "
	maxBodyBytes       = 1 << 20
)

// Operation names, used in logs and metrics.
const (
	OpAuthenticate   = "authenticate"
	OpClaimStarter   = "claim_starter_asset"
	OpListAssets     = "list_assets"
	OpBattle         = "battle"
	OpListMissions   = "list_missions"
	OpAdvanceMission = "advance_mission"
	OpClaimMission   = "claim_mission_reward"
	OpGetBalance     = "get_balance"
)

// Signer produces the login signature for an address.
type Signer interface {
	Address() string
	SignMessage(message string) (string, error)
}

// Recorder receives per-call outcomes. observability.Metrics implements it.
type Recorder interface {
	ObserveAPICall(op string, ok bool)
}

type noopRecorder struct{}

func (noopRecorder) ObserveAPICall(string, bool) {}

// Options configures a Client.
type Options struct {
	BaseURL  string
	Headers  map[string]string
	Timeout  time.Duration
	Executor *executor.Executor
	Recorder Recorder
	// Now is the clock used for the login timestamp.
	Now func() time.Time
}

// Client talks to the game API.
type Client struct {
	baseURL  string
	headers  map[string]string
	timeout  time.Duration
	exec     *executor.Executor
	recorder Recorder
	now      func() time.Time
	logger   zerolog.Logger

	mu      sync.Mutex
	clients map[string]*http.Client
}

// New creates a Client. Zero options fall back to the public API, a direct
// executor and the wall clock.
func New(opts Options) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		headers:  opts.Headers,
		timeout:  opts.Timeout,
		exec:     opts.Executor,
		recorder: opts.Recorder,
		now:      opts.Now,
		logger:   logger.WithComponent("Game/Client"),
		clients:  make(map[string]*http.Client),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.exec == nil {
		c.exec = executor.New(nil, executor.DefaultPolicy())
	}
	if c.recorder == nil {
		c.recorder = noopRecorder{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Authenticate signs a timestamped login message and exchanges it for an
// access token. An empty token means the account cannot continue.
func (c *Client) Authenticate(ctx context.Context, signer Signer, refCode string) string {
	address := signer.Address()
	message := fmt.Sprintf("%s%d", loginMessagePrefix, c.now().UnixMilli())
	signature, err := signer.SignMessage(message)
	if err != nil {
		c.logger.Error().Str("address", address).Err(err).Msg("Failed to sign login message.")
		return ""
	}

	req := signInRequest{
		Message:   message,
		Signature: signature,
		Address:   address,
		RefCode:   refCode,
	}
	var resp signInResponse
	err = c.request(ctx, OpAuthenticate, http.MethodPost, "/auth/sign-in", "", req, &resp)
	if err != nil {
		c.logFailure(OpAuthenticate, err).Str("address", address).Msg("Login failed.")
		return ""
	}
	if resp.AccessToken == "" {
		c.logger.Error().Str("address", address).Msg("Login succeeded but no access token was returned.")
		return ""
	}
	c.logger.Info().Str("address", address).Msg("Login successful.")
	return resp.AccessToken
}

// ClaimStarterAsset opens the free starter monster.
func (c *Client) ClaimStarterAsset(ctx context.Context, token string) bool {
	var resp messageResponse
	if err := c.request(ctx, OpClaimStarter, http.MethodPost, "/pokemons/open-free-pokemon", token, struct{}{}, &resp); err != nil {
		c.logFailure(OpClaimStarter, err).Msg("Failed to claim starter monster.")
		return false
	}
	msg := string(resp.Message)
	if msg == "" {
		msg = "ok"
	}
	c.logger.Info().Str("message", msg).Msg("Starter monster claimed.")
	return true
}

// ListAssets returns the owned monsters, never nil.
func (c *Client) ListAssets(ctx context.Context, token string) []Asset {
	q := url.Values{}
	q.Set("sortField", "tier")
	q.Set("keyword", "")
	q.Set("sortDirection", "asc")

	var resp assetsResponse
	if err := c.request(ctx, OpListAssets, http.MethodGet, "/pokemons/my-pets?"+q.Encode(), token, nil, &resp); err != nil {
		c.logFailure(OpListAssets, err).Msg("Failed to list monsters.")
		return []Asset{}
	}

	assets := make([]Asset, 0, len(resp.Pokemons.Items))
	for _, it := range resp.Pokemons.Items {
		assets = append(assets, Asset{
			ID:      it.ID,
			Name:    string(it.Name),
			Element: string(it.Element),
			Tier:    string(it.Tier),
		})
	}
	c.logger.Info().Int("count", len(assets)).Msg("Monsters listed.")
	return assets
}

// Battle fights once with assetID. ok is false when the call failed; a
// response without details is a successful call with a zero outcome.
func (c *Client) Battle(ctx context.Context, token string, assetID AssetID, winRate int) (BattleOutcome, bool) {
	req := fightRequest{
		MonsterWinRate: winRate,
		PokemonIDs:     []AssetID{assetID},
	}
	var resp fightResponse
	if err := c.request(ctx, OpBattle, http.MethodPost, "/battles/fight", token, req, &resp); err != nil {
		c.logFailure(OpBattle, err).Str("asset", assetID.String()).Msg("Battle failed.")
		return BattleOutcome{}, false
	}

	var out BattleOutcome
	if len(resp.Details) > 0 {
		d := resp.Details[0]
		out = BattleOutcome{
			Win:         bool(d.IsWin),
			EarnedToken: int64(math.Round(float64(d.EarnedToken))),
			EarnedGem:   float64(d.EarnedGem),
			Element:     string(d.Element),
			Tier:        string(d.Tier),
		}
	}
	result := "LOSS"
	if out.Win {
		result = "WIN"
	}
	c.logger.Info().
		Str("asset", assetID.String()).
		Str("result", result).
		Int64("tokens", out.EarnedToken).
		Float64("gems", out.EarnedGem).
		Msgf("Battle result: %s (+%d tokens, +%g gems)", result, out.EarnedToken, out.EarnedGem)
	return out, true
}

// ListMissions returns the missions of category, never nil.
func (c *Client) ListMissions(ctx context.Context, token, category string) []Mission {
	var resp missionsResponse
	path := "/mission/client?type=" + url.QueryEscape(category)
	if err := c.request(ctx, OpListMissions, http.MethodGet, path, token, nil, &resp); err != nil {
		c.logFailure(OpListMissions, err).Str("category", category).Msg("Failed to list missions.")
		return []Mission{}
	}

	missions := make([]Mission, 0, len(resp.MissionTasks))
	for _, t := range resp.MissionTasks {
		missions = append(missions, Mission{
			ID:      string(t.Code),
			Name:    string(t.Name),
			Target:  int(t.Target),
			Current: int(t.Current),
			Claimed: bool(t.Claimed),
		})
	}
	c.logger.Info().Str("category", category).Int("count", len(missions)).Msg("Missions listed.")
	return missions
}

// AdvanceMission pushes a mission's progress.
func (c *Client) AdvanceMission(ctx context.Context, token, id string) bool {
	var resp progressResponse
	if err := c.request(ctx, OpAdvanceMission, http.MethodPatch, "/mission/update-progress/"+url.PathEscape(id), token, struct{}{}, &resp); err != nil {
		c.logFailure(OpAdvanceMission, err).Str("mission", id).Msg("Failed to update mission progress.")
		return false
	}
	c.logger.Info().Str("mission", id).Str("result", string(resp.Status)).Msg("Mission progress updated.")
	return true
}

// ClaimMissionReward claims a completed mission. Any 2xx counts as claimed.
func (c *Client) ClaimMissionReward(ctx context.Context, token, id string) bool {
	var resp claimResponse
	if err := c.request(ctx, OpClaimMission, http.MethodPost, "/users/claim-mission-reward/"+url.PathEscape(id), token, struct{}{}, &resp); err != nil {
		c.logFailure(OpClaimMission, err).Str("mission", id).Msg("Failed to claim mission reward.")
		return false
	}
	c.logger.Info().Str("mission", id).Bool("success", bool(resp.Success)).Msg("Mission reward claimed.")
	return true
}

// GetBalance returns the account's gems and tokens; zeros on failure.
func (c *Client) GetBalance(ctx context.Context, token string) Balance {
	var resp balanceResponse
	if err := c.request(ctx, OpGetBalance, http.MethodGet, "/users/balance", token, nil, &resp); err != nil {
		c.logFailure(OpGetBalance, err).Msg("Failed to fetch balance.")
		return Balance{}
	}
	b := Balance{Gem: float64(resp.Gem), Token: float64(resp.MKoin)}
	c.logger.Info().Float64("gem", b.Gem).Float64("token", b.Token).Msg("Balance fetched.")
	return b
}

// request runs one logical API call through the executor and decodes a 2xx
// body into out. Non-2xx responses become *APIError.
func (c *Client) request(ctx context.Context, op, method, path, token string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", op, err)
		}
	}

	err := c.exec.Do(ctx, op, func(ctx context.Context, tc *proxypool.TransportConfig) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("build %s request: %w", op, err)
		}
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		if payload != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		res, err := c.httpClient(tc).Do(req)
		if err != nil {
			return err
		}
		defer res.Body.Close()

		data, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("read %s response: %w", op, err)
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return &APIError{Status: res.StatusCode, Message: errorMessage(data)}
		}
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", op, err)
		}
		return nil
	})
	c.recorder.ObserveAPICall(op, err == nil)
	return err
}

// httpClient returns the cached client for tc, creating it on first use.
func (c *Client) httpClient(tc *proxypool.TransportConfig) *http.Client {
	key := tc.Key()

	c.mu.Lock()
	defer c.mu.Unlock()
	if hc, ok := c.clients[key]; ok {
		return hc
	}
	hc := &http.Client{
		Transport: tc.NewTransport(c.timeout),
		Timeout:   c.timeout,
	}
	c.clients[key] = hc
	return hc
}

// logFailure starts an error line carrying the HTTP status when there is one.
func (c *Client) logFailure(op string, err error) *zerolog.Event {
	ev := c.logger.Error().Str("op", op)
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return ev.Int("status", apiErr.Status).Str("error", apiErr.Message)
	}
	return ev.Err(err)
}
