package game

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// AssetID keeps the JSON kind of an asset id so it is echoed back to the API
// exactly as received (string ids stay strings, numeric ids stay numbers).
type AssetID struct {
	value   string
	numeric bool
}

// NewAssetID returns a string-kind id.
func NewAssetID(v string) AssetID {
	return AssetID{value: v}
}

func (id AssetID) String() string { return id.value }

func (id *AssetID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*id = AssetID{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = AssetID{value: s}
	default:
		*id = AssetID{value: string(data), numeric: true}
	}
	return nil
}

func (id AssetID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

// Asset is one owned monster.
type Asset struct {
	ID      AssetID
	Name    string
	Element string
	Tier    string
}

// BattleOutcome is the result of one successful battle call.
type BattleOutcome struct {
	Win         bool
	EarnedToken int64
	EarnedGem   float64
	Element     string
	Tier        string
}

// Mission is a trackable task with a claimable reward.
type Mission struct {
	ID      string
	Name    string
	Target  int
	Current int
	Claimed bool
}

// Completable reports an unclaimed mission whose target is already met.
func (m Mission) Completable() bool {
	return !m.Claimed && m.Current >= m.Target
}

// InProgress reports an unclaimed mission that must be advanced first.
func (m Mission) InProgress() bool {
	return !m.Claimed && m.Current < m.Target
}

// Balance is the account's currency snapshot.
type Balance struct {
	Gem   float64
	Token float64
}

// flexString accepts a JSON string, number or bool.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(data)
	return nil
}

// flexNumber accepts a JSON number or numeric string; anything else is 0.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*n = 0
		return nil
	}
	*n = flexNumber(v)
	return nil
}

// flexBool accepts true/false, 0/1 and their string forms. Anything else,
// including null, is false.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	raw := string(bytes.TrimSpace(data))
	if len(raw) > 0 && raw[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			*b = false
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err == nil {
		*b = v != 0
		return nil
	}
	*b = flexBool(strings.EqualFold(strings.TrimSpace(raw), "true"))
	return nil
}

// Wire schemas. Missing fields resolve to zero values.

type signInRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Address   string `json:"address"`
	RefCode   string `json:"refCode"`
}

type signInResponse struct {
	AccessToken string `json:"accessToken"`
}

type messageResponse struct {
	Message flexString `json:"message"`
}

type assetsResponse struct {
	Pokemons struct {
		Items []assetItem `json:"items"`
	} `json:"pokemons"`
}

type assetItem struct {
	ID      AssetID    `json:"id"`
	Name    flexString `json:"name"`
	Element flexString `json:"element"`
	Tier    flexString `json:"tier"`
}

type fightRequest struct {
	MonsterWinRate int       `json:"monsterWinRate"`
	PokemonIDs     []AssetID `json:"pokemonIds"`
}

type fightResponse struct {
	Details []battleDetail `json:"details"`
}

type battleDetail struct {
	IsWin       flexBool   `json:"is_win"`
	EarnedToken flexNumber `json:"earned_token"`
	EarnedGem   flexNumber `json:"earned_gem"`
	Element     flexString `json:"element"`
	Tier        flexString `json:"tier"`
}

type missionsResponse struct {
	MissionTasks []missionTask `json:"missionTasks"`
}

type missionTask struct {
	Code    flexString `json:"mission_code"`
	Name    flexString `json:"mission_name"`
	Target  flexNumber `json:"mission_target"`
	Current flexNumber `json:"current_collect"`
	Claimed flexBool   `json:"is_claim"`
}

type progressResponse struct {
	Status flexString `json:"status"`
}

type claimResponse struct {
	Success flexBool `json:"success"`
}

type balanceResponse struct {
	Gem   flexNumber `json:"gem"`
	MKoin flexNumber `json:"mkoin"`
}
