package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(addr string) AccountRecord {
	return AccountRecord{
		Address:     addr,
		PrivateKey:  "0xkey-" + addr,
		AccessToken: "tok-" + addr,
		RefCode:     "REF",
		Balance:     Balance{Gem: 1.75, Token: 5},
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAppend_KeepsOrderAcrossAppends(t *testing.T) {
	s := NewJSONFileStore(filepath.Join(t.TempDir(), "wallets.json"))

	for _, a := range []string{"0xa", "0xb", "0xc"} {
		require.NoError(t, s.Append(record(a)))
	}

	got, err := s.Load()
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "0xa", got[0].Address)
	assert.Equal(t, "0xb", got[1].Address)
	assert.Equal(t, "0xc", got[2].Address)
	assert.Equal(t, record("0xb"), got[1])
}

func TestAppend_WritesOriginalFieldNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	s := NewJSONFileStore(path)
	require.NoError(t, s.Append(record("0xa")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Len(t, raw, 1)
	for _, k := range []string{"address", "privateKey", "accessToken", "refCode", "balance", "createdAt"} {
		assert.Contains(t, raw[0], k)
	}
	assert.Equal(t, map[string]any{"gem": 1.75, "token": float64(5)}, raw[0]["balance"])
	assert.Equal(t, "2025-03-01T12:00:00Z", raw[0]["createdAt"])
	assert.Contains(t, string(data), "\n  {", "array is indented")
}

func TestAppend_CorruptFileStartsOver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallets.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))
	s := NewJSONFileStore(path)

	require.NoError(t, s.Append(record("0xa")))

	got, err := s.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0xa", got[0].Address)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s := NewJSONFileStore(filepath.Join(t.TempDir(), "absent.json"))

	got, err := s.Load()
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAppend_UnwritablePathFails(t *testing.T) {
	s := NewJSONFileStore(filepath.Join(t.TempDir(), "missing-dir", "wallets.json"))
	assert.Error(t, s.Append(record("0xa")))
}
