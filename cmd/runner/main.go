package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/mumumusf/MonsterKombat/internal/executor"
	"github.com/mumumusf/MonsterKombat/internal/game"
	"github.com/mumumusf/MonsterKombat/internal/identity"
	"github.com/mumumusf/MonsterKombat/internal/observability"
	"github.com/mumumusf/MonsterKombat/internal/orchestrator"
	"github.com/mumumusf/MonsterKombat/internal/pipeline"
	"github.com/mumumusf/MonsterKombat/internal/prompt"
	"github.com/mumumusf/MonsterKombat/internal/shared/config"
	"github.com/mumumusf/MonsterKombat/internal/shared/delay"
	"github.com/mumumusf/MonsterKombat/internal/shared/logger"
	"github.com/mumumusf/MonsterKombat/internal/storage"
	"github.com/mumumusf/MonsterKombat/proxypool"
)

const banner = `
  __  __                 _            _  __          _           _
 |  \/  | ___  _ __  ___| |_ ___ _ __| |/ /___  _ __| |__   __ _| |_
 | |\/| |/ _ \| '_ \/ __| __/ _ \ '__| ' // _ \| '_ \ '_ \ / _' | __|
 | |  | | (_) | | | \__ \ ||  __/ |  | . \ (_) | | | | |_) | (_| | |_
 |_|  |_|\___/|_| |_|___/\__\___|_|  |_|\_\___/|_| |_|_.__/ \__,_|\__|
`

func main() {
	configDir := flag.String("configdir", "configs", "Path to config directory")
	flag.Parse()

	iniPath := filepath.Join(*configDir, "runner.ini")

	// 1. 加载 .ini 配置（缺失时使用默认值），再应用 MK_* 环境变量
	cfg := config.Default()
	if err := config.LoadIni(cfg, iniPath); err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", iniPath, err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	fmt.Print(banner)

	// 2. 可选的 /metrics 端点
	var metrics *observability.Metrics
	if cfg.Listen != "" {
		metrics = observability.NewMetrics()
		metrics.Serve(ctx, cfg.Listen)
	}

	// 3. 交互式输入：代理、推荐码、数量
	p := prompt.New(os.Stdin, os.Stdout)
	proxyStore := proxypool.NewFileStorage(cfg.ProxiesFile)
	if !cfg.SkipProxyPrompt {
		entries, err := p.ReadProxies(func(entry string) error {
			_, err := proxypool.Parse(entry)
			return err
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to read proxies")
		}
		if len(entries) > 0 {
			if err := proxyStore.Save(entries); err != nil {
				logger.Error().Err(err).Msg("Failed to save proxies")
			}
		}
	}
	pool, err := proxypool.LoadPool(proxyStore)
	if err != nil {
		logger.Fatal().Err(err).Msgf("Failed to load proxies file '%s'", cfg.ProxiesFile)
	}
	if pool.Len() == 0 {
		logger.Warn().Msg("No proxies configured, using direct connections.")
	}

	refCode := cfg.ReferralCode
	if refCode == "" {
		if refCode, err = p.ReferralCode(); err != nil {
			logger.Error().Err(err).Msg("Cannot continue without a referral code")
			os.Exit(1)
		}
	}
	count := cfg.AccountCount
	if count <= 0 {
		if count, err = p.AccountCount(); err != nil {
			logger.Error().Err(err).Msg("Invalid account count")
			os.Exit(1)
		}
	}

	// 4. 组装执行链
	exec := executor.New(pool, executor.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxJitter:   cfg.MaxJitter,
	}, executor.WithRecorder(metrics))

	client := game.New(game.Options{
		BaseURL:  cfg.BaseURL,
		Headers:  cfg.Headers,
		Timeout:  cfg.RequestTimeout,
		Executor: exec,
		Recorder: metrics,
	})

	gen := identity.NewGenerator()
	pacer := delay.NewPacer(nil, nil, logger.WithComponent("Pacer"))

	pl := pipeline.New(pipeline.Options{
		Game:            client,
		Identities:      pipeline.GeneratorFunc(func() (pipeline.Account, error) { return gen.Generate() }),
		Store:           storage.NewJSONFileStore(cfg.WalletsFile),
		Pacer:           pacer,
		RefCode:         refCode,
		WinRate:         cfg.WinRate,
		MissionCategory: cfg.MissionType,
		BattlePause:     delay.Range{Min: cfg.BattleMin, Max: cfg.BattleMax},
	})

	runID := uuid.NewString()
	orch := orchestrator.New(orchestrator.Options{
		Pipeline: pl,
		Pacer:    pacer,
		Pacing:   orchestrator.PacingFromConfig(cfg.PacingConf),
		Recorder: metrics,
		RunID:    runID,
	})

	// 5. 运行批次并输出汇总
	summary := orch.Run(ctx, count)
	summary.Log(logger.WithComponent("Orchestrator").With().Str("run_id", runID).Logger())
}
