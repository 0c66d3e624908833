package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeIni(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runner.ini")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadIni_MissingFileKeepsDefaults(t *testing.T) {
	cfg := Default()
	err := LoadIni(cfg, filepath.Join(t.TempDir(), "absent.ini"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.monsterkombat.io", cfg.BaseURL)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.BaseDelay)
	assert.Equal(t, 3, cfg.FailureThreshold)
	assert.Equal(t, "BASIC_TASK", cfg.MissionType)
}

func TestLoadIni_OverridesSectionsAndHeaders(t *testing.T) {
	path := writeIni(t, `
[log]
level = debug

[retry]
max_attempts = 5
base_delay = 2s

[pacing]
battle_min = 1s
battle_max = 3s
failure_threshold = 4

[headers]
user-agent = test-agent
x-extra = 1
`)
	cfg := Default()
	require.NoError(t, LoadIni(cfg, path))

	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.BaseDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxJitter, "untouched key keeps its default")
	assert.Equal(t, time.Second, cfg.BattleMin)
	assert.Equal(t, 3*time.Second, cfg.BattleMax)
	assert.Equal(t, 4, cfg.FailureThreshold)
	assert.Equal(t, "test-agent", cfg.Headers["user-agent"])
	assert.Equal(t, "1", cfg.Headers["x-extra"])
	assert.Equal(t, "en-US,en;q=0.8", cfg.Headers["accept-language"])
}

func TestLoadIni_EnvOverridesFile(t *testing.T) {
	path := writeIni(t, "[batch]\nreferral_code = FROMFILE\n")
	t.Setenv("MK_BATCH_REFERRAL_CODE", "FROMENV")
	t.Setenv("MK_BATCH_ACCOUNT_COUNT", "7")
	t.Setenv("MK_PACING_COOLDOWN_MAX", "10m")

	cfg := Default()
	require.NoError(t, LoadIni(cfg, path))

	assert.Equal(t, "FROMENV", cfg.ReferralCode)
	assert.Equal(t, 7, cfg.AccountCount)
	assert.Equal(t, 10*time.Minute, cfg.CooldownMax)
}

func TestValidate_RejectsInvertedRange(t *testing.T) {
	cfg := Default()
	cfg.AbortMin = time.Minute
	cfg.AbortMax = time.Second

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pacing.abort")
}

func TestValidate_RejectsZeroAttempts(t *testing.T) {
	cfg := Default()
	cfg.MaxAttempts = 0
	require.Error(t, Validate(cfg))
}
