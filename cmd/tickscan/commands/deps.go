package commands

import (
	"fmt"

	"github.com/qlab/tickscan/internal/batch"
	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/internal/dailycache"
	"github.com/qlab/tickscan/internal/external/eastmoney"
	"github.com/qlab/tickscan/internal/external/tencent"
	"github.com/qlab/tickscan/internal/microstructure"
	"github.com/qlab/tickscan/internal/momentum"
	"github.com/qlab/tickscan/internal/notify"
	"github.com/qlab/tickscan/internal/orderflow"
	"github.com/qlab/tickscan/internal/scoring"
	"github.com/qlab/tickscan/internal/store"
	"github.com/qlab/tickscan/internal/universe"
	"github.com/qlab/tickscan/internal/washtrade"
	"github.com/qlab/tickscan/pkg/config"
	"github.com/qlab/tickscan/pkg/database"
	"github.com/qlab/tickscan/pkg/httputil"
	"github.com/qlab/tickscan/pkg/logger"
	"github.com/qlab/tickscan/pkg/redis"
)

// deps bundles everything a command needs to run a ranking pass.
type deps struct {
	cfg          *config.Config
	logger       *logger.Logger
	orchestrator *batch.Orchestrator
	sink         contracts.NotificationSink // nil when notifications are disabled
	rankings     *store.Rankings            // nil when persistence is disabled

	closers []func()
}

// Close releases pooled resources in reverse acquisition order.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// initDeps loads config and wires the full scan pipeline.
func initDeps(modelVersion string) (*deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	d := &deps{cfg: cfg, logger: log}

	httpClient := httputil.New(cfg, log)

	// Data sources. Tencent is the primary tick feed, EastMoney the
	// fallback and the hot-rank universe source.
	tencentClient := tencent.NewClient(httpClient, cfg.Providers.TencentBaseURL, log)
	eastmoneyClient := eastmoney.NewClient(
		httpClient,
		cfg.Providers.EastMoneyBaseURL,
		cfg.Providers.HotRankBaseURL,
		cfg.Providers.HotRankPageURL,
		log,
	)
	providers := []contracts.TickProvider{tencentClient, eastmoneyClient}

	universeBuilder := universe.NewBuilder(eastmoneyClient, universe.Config{
		MinPrice:     cfg.Scan.MinPrice,
		MaxPrice:     cfg.Scan.MaxPrice,
		MinChangePct: cfg.Scan.MinChangePct,
		MaxChangePct: cfg.Scan.MaxChangePct,
	}, log)

	// Daily cache. Falls back to an in-process map when Redis is off so a
	// single pass still deduplicates work within the day.
	var dailyCache contracts.DailyCacheStore
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		d.closers = append(d.closers, func() { redisClient.Close() })
		dailyCache = dailycache.NewStore(redis.NewCache(redisClient, "tickscan"), "scan", log)
		log.Info("Connected to Redis")
	} else {
		dailyCache = dailycache.NewMemory()
		log.Warn("Redis disabled, daily cache is process-local")
	}

	version := modelVersion
	if version == "" {
		version = cfg.Scan.ModelVersion
	}
	preset, err := scoring.PresetFor(version)
	if err != nil {
		return nil, err
	}

	d.orchestrator = batch.NewOrchestrator(
		batch.Config{
			Workers:     cfg.Scan.Workers,
			TaskTimeout: cfg.Scan.TaskTimeout,
		},
		universeBuilder,
		providers,
		dailyCache,
		washtrade.NewDetector(washtrade.DefaultConfig(), log),
		orderflow.NewAnalyzer(log),
		microstructure.NewAnalyzer(log),
		momentum.NewExtractor(momentum.DefaultConfig(), log),
		scoring.NewEngine(preset, log),
		log,
	)

	if cfg.DingTalk.Enabled {
		d.sink = notify.NewDingTalk(httpClient, cfg.DingTalk, log)
	}

	if cfg.Database.Enabled() {
		db, err := database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		d.closers = append(d.closers, func() { db.Close() })
		d.rankings = store.NewRankings(db.Pool)
		log.Info("Connected to database")
	}

	return d, nil
}
