package types

import "time"

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level" env:"MK_LOG_LEVEL"`
}

// APIConf 描述游戏 API 的连接参数。
type APIConf struct {
	BaseURL        string        `ini:"base_url" env:"MK_API_BASE_URL"`
	RequestTimeout time.Duration `ini:"request_timeout" env:"MK_API_REQUEST_TIMEOUT"`
	WinRate        int           `ini:"win_rate" env:"MK_API_WIN_RATE"`
	MissionType    string        `ini:"mission_type" env:"MK_API_MISSION_TYPE"`
}

// RetryConf controls the rate-limit backoff policy.
type RetryConf struct {
	MaxAttempts int           `ini:"max_attempts" env:"MK_RETRY_MAX_ATTEMPTS"`
	BaseDelay   time.Duration `ini:"base_delay" env:"MK_RETRY_BASE_DELAY"`
	MaxJitter   time.Duration `ini:"max_jitter" env:"MK_RETRY_MAX_JITTER"`
}

// PacingConf 包含所有随机等待区间以及连续失败冷却阈值。
type PacingConf struct {
	PreAccountMin    time.Duration `ini:"pre_account_min" env:"MK_PACING_PRE_ACCOUNT_MIN"`
	PreAccountMax    time.Duration `ini:"pre_account_max" env:"MK_PACING_PRE_ACCOUNT_MAX"`
	BattleMin        time.Duration `ini:"battle_min" env:"MK_PACING_BATTLE_MIN"`
	BattleMax        time.Duration `ini:"battle_max" env:"MK_PACING_BATTLE_MAX"`
	InterAccountMin  time.Duration `ini:"inter_account_min" env:"MK_PACING_INTER_ACCOUNT_MIN"`
	InterAccountMax  time.Duration `ini:"inter_account_max" env:"MK_PACING_INTER_ACCOUNT_MAX"`
	AbortMin         time.Duration `ini:"abort_min" env:"MK_PACING_ABORT_MIN"`
	AbortMax         time.Duration `ini:"abort_max" env:"MK_PACING_ABORT_MAX"`
	ErrorMin         time.Duration `ini:"error_min" env:"MK_PACING_ERROR_MIN"`
	ErrorMax         time.Duration `ini:"error_max" env:"MK_PACING_ERROR_MAX"`
	CooldownMin      time.Duration `ini:"cooldown_min" env:"MK_PACING_COOLDOWN_MIN"`
	CooldownMax      time.Duration `ini:"cooldown_max" env:"MK_PACING_COOLDOWN_MAX"`
	FailureThreshold int           `ini:"failure_threshold" env:"MK_PACING_FAILURE_THRESHOLD"`
}

// StorageConf 指定数据文件位置。
type StorageConf struct {
	WalletsFile string `ini:"wallets_file" env:"MK_STORAGE_WALLETS_FILE"`
	ProxiesFile string `ini:"proxies_file" env:"MK_STORAGE_PROXIES_FILE"`
}

// MetricsConf enables the prometheus endpoint when Listen is non-empty.
type MetricsConf struct {
	Listen string `ini:"listen" env:"MK_METRICS_LISTEN"`
}

// BatchConf 允许跳过交互式输入。
type BatchConf struct {
	ReferralCode    string `ini:"referral_code" env:"MK_BATCH_REFERRAL_CODE"`
	AccountCount    int    `ini:"account_count" env:"MK_BATCH_ACCOUNT_COUNT"`
	SkipProxyPrompt bool   `ini:"skip_proxy_prompt" env:"MK_BATCH_SKIP_PROXY_PROMPT"`
}

// Config 是 runner 的统一配置结构体
type Config struct {
	LogConf     `ini:"log"`
	APIConf     `ini:"api"`
	RetryConf   `ini:"retry"`
	PacingConf  `ini:"pacing"`
	StorageConf `ini:"storage"`
	MetricsConf `ini:"metrics"`
	BatchConf   `ini:"batch"`

	// Headers 来自 [headers] 段，逐键读取。
	Headers map[string]string `ini:"-"`
}
