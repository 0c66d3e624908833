package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/ini.v1"

	"github.com/mumumusf/MonsterKombat/internal/shared/types"
)

const headersSection = "headers"

// DefaultHeaders is the browser-like header set the game API expects.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"accept":             "application/json, text/plain, */*",
		"accept-language":    "en-US,en;q=0.8",
		"content-type":       "application/json",
		"user-agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/134.0.0.0 Safari/537.36",
		"origin":             "https://game.monsterkombat.io",
		"referer":            "https://game.monsterkombat.io/",
		"sec-ch-ua":          `"Chromium";v="134", "Not:A-Brand";v="24", "Brave";v="134"`,
		"sec-ch-ua-mobile":   "?0",
		"sec-ch-ua-platform": `"Windows"`,
		"sec-fetch-dest":     "empty",
		"sec-fetch-mode":     "cors",
		"sec-fetch-site":     "same-site",
		"sec-gpc":            "1",
		"priority":           "u=1, i",
	}
}

// Default 返回一份完整的默认配置，ini 文件中缺失的键保持这些值。
func Default() *types.Config {
	return &types.Config{
		LogConf: types.LogConf{Level: "info"},
		APIConf: types.APIConf{
			BaseURL:        "https://api.monsterkombat.io",
			RequestTimeout: 30 * time.Second,
			WinRate:        70,
			MissionType:    "BASIC_TASK",
		},
		RetryConf: types.RetryConf{
			MaxAttempts: 3,
			BaseDelay:   30 * time.Second,
			MaxJitter:   5 * time.Second,
		},
		PacingConf: types.PacingConf{
			PreAccountMin:    15 * time.Second,
			PreAccountMax:    45 * time.Second,
			BattleMin:        8 * time.Second,
			BattleMax:        20 * time.Second,
			InterAccountMin:  20 * time.Second,
			InterAccountMax:  60 * time.Second,
			AbortMin:         20 * time.Second,
			AbortMax:         60 * time.Second,
			ErrorMin:         30 * time.Second,
			ErrorMax:         90 * time.Second,
			CooldownMin:      180 * time.Second,
			CooldownMax:      240 * time.Second,
			FailureThreshold: 3,
		},
		StorageConf: types.StorageConf{
			WalletsFile: "wallets.json",
			ProxiesFile: "proxies.txt",
		},
		Headers: DefaultHeaders(),
	}
}

// LoadIni 加载 runner.ini 行为配置文件，然后应用环境变量覆盖。
// 文件不存在时直接使用默认值。
func LoadIni(cfg *types.Config, fileName string) error {
	if _, err := os.Stat(fileName); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("stat config file: %w", err)
		}
	} else {
		iniFile, err := ini.Load(fileName)
		if err != nil {
			return err
		}
		if err := iniFile.MapTo(cfg); err != nil {
			return err
		}
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		if iniFile.HasSection(headersSection) {
			for k, v := range iniFile.Section(headersSection).KeysHash() {
				cfg.Headers[k] = v
			}
		}
	}
	if err := ParseEnv(cfg); err != nil {
		return err
	}
	return Validate(cfg)
}

// ParseEnv loads overrides from MK_* environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate rejects configurations the runner cannot operate with.
func Validate(cfg *types.Config) error {
	if cfg.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be >= 1, got %d", cfg.MaxAttempts)
	}
	if cfg.FailureThreshold < 1 {
		return fmt.Errorf("pacing.failure_threshold must be >= 1, got %d", cfg.FailureThreshold)
	}
	if cfg.WinRate < 0 || cfg.WinRate > 100 {
		return fmt.Errorf("api.win_rate must be within 0..100, got %d", cfg.WinRate)
	}
	ranges := []struct {
		name     string
		min, max time.Duration
	}{
		{"pre_account", cfg.PreAccountMin, cfg.PreAccountMax},
		{"battle", cfg.BattleMin, cfg.BattleMax},
		{"inter_account", cfg.InterAccountMin, cfg.InterAccountMax},
		{"abort", cfg.AbortMin, cfg.AbortMax},
		{"error", cfg.ErrorMin, cfg.ErrorMax},
		{"cooldown", cfg.CooldownMin, cfg.CooldownMax},
	}
	for _, r := range ranges {
		if r.min < 0 || r.max < r.min {
			return fmt.Errorf("pacing.%s range is invalid: min=%s max=%s", r.name, r.min, r.max)
		}
	}
	return nil
}
