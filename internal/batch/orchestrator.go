package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/internal/market"
	"github.com/qlab/tickscan/internal/microstructure"
	"github.com/qlab/tickscan/internal/momentum"
	"github.com/qlab/tickscan/internal/orderflow"
	"github.com/qlab/tickscan/internal/scoring"
	"github.com/qlab/tickscan/internal/universe"
	"github.com/qlab/tickscan/internal/washtrade"
	"github.com/qlab/tickscan/pkg/logger"
)

// Config holds batch pass settings.
type Config struct {
	Workers     int
	TaskTimeout time.Duration
}

// UniverseSource supplies the day's filtered instruments.
type UniverseSource interface {
	Build(ctx context.Context) (*universe.Universe, error)
}

// Orchestrator runs one full ranking pass: build the universe, fan the
// instruments out over a bounded worker pool, analyze each one on its own
// tick series, and rank the survivors. No per-instrument failure is fatal.
type Orchestrator struct {
	config    Config
	universe  UniverseSource
	providers []contracts.TickProvider // fixed priority order, first success wins
	cache     contracts.DailyCacheStore

	detector *washtrade.Detector
	flow     *orderflow.Analyzer
	micro    *microstructure.Analyzer
	momentum *momentum.Extractor
	engine   *scoring.Engine

	logger *logger.Logger
}

// NewOrchestrator wires a ranking pass from its collaborators.
func NewOrchestrator(
	cfg Config,
	source UniverseSource,
	providers []contracts.TickProvider,
	cache contracts.DailyCacheStore,
	detector *washtrade.Detector,
	flow *orderflow.Analyzer,
	micro *microstructure.Analyzer,
	mom *momentum.Extractor,
	engine *scoring.Engine,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		config:    cfg,
		universe:  source,
		providers: providers,
		cache:     cache,
		detector:  detector,
		flow:      flow,
		micro:     micro,
		momentum:  mom,
		engine:    engine,
		logger:    log,
	}
}

// cachedMeta is the per-symbol artifact kept in the daily cache.
type cachedMeta struct {
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	TickCount int     `json:"tick_count"`
}

// Run executes one batch pass over today's universe.
func (o *Orchestrator) Run(ctx context.Context) (*contracts.RankingSnapshot, error) {
	started := time.Now()
	dayKey := market.DayKey(started)

	u, err := o.universe.Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("build universe: %w", err)
	}
	if len(u.Instruments) == 0 {
		return nil, fmt.Errorf("empty universe after filtering")
	}

	// Read the daily cache once; the snapshot stays immutable for the
	// whole parallel phase.
	cached, err := o.cache.Get(ctx, dayKey)
	if err != nil {
		o.logger.WithError(err).Warn("Daily cache miss, running without prior metadata")
		cached = map[string]json.RawMessage{}
	}

	o.logger.WithFields(map[string]interface{}{
		"instruments": len(u.Instruments),
		"workers":     o.config.Workers,
		"version":     o.engine.Version(),
	}).Info("Starting ranking pass")

	resultCh := make(chan *contracts.RankedStock, len(u.Instruments))
	instrumentCh := make(chan contracts.Instrument, len(u.Instruments))

	var wg sync.WaitGroup
	for i := 0; i < o.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.worker(ctx, instrumentCh, resultCh)
		}()
	}

	for _, inst := range u.Instruments {
		instrumentCh <- inst
	}
	close(instrumentCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Results insert by unique code; failed instruments are simply absent.
	stocks := make([]contracts.RankedStock, 0, len(u.Instruments))
	for r := range resultCh {
		if r != nil {
			stocks = append(stocks, *r)
		}
	}

	sort.Slice(stocks, func(i, j int) bool {
		return stocks[i].Score > stocks[j].Score
	})
	for i := range stocks {
		stocks[i].Rank = i + 1
	}

	snapshot := &contracts.RankingSnapshot{
		Date:         started,
		ModelVersion: o.engine.Version(),
		Stocks:       stocks,
		Universe:     len(u.Instruments),
		Failed:       len(u.Instruments) - len(stocks),
		CreatedAt:    time.Now(),
	}

	o.mergeCache(ctx, dayKey, cached, stocks)

	o.logger.WithFields(map[string]interface{}{
		"ranked":   len(stocks),
		"failed":   snapshot.Failed,
		"duration": time.Since(started),
	}).Info("Ranking pass completed")

	return snapshot, nil
}

// worker analyzes instruments until the channel drains. Each task owns its
// series exclusively; the per-task timeout covers fetch and analysis both.
func (o *Orchestrator) worker(ctx context.Context, instruments <-chan contracts.Instrument, results chan<- *contracts.RankedStock) {
	for inst := range instruments {
		select {
		case <-ctx.Done():
			results <- nil
			return
		default:
		}

		taskCtx, cancel := context.WithTimeout(ctx, o.config.TaskTimeout)
		ranked, err := o.analyze(taskCtx, inst)
		cancel()

		if err != nil {
			o.logger.WithFields(map[string]interface{}{
				"code":  inst.Code,
				"error": err.Error(),
			}).Warn("Instrument dropped from pass")
			results <- nil
			continue
		}
		results <- ranked
	}
}

// analyze runs the full per-instrument pipeline: fetch, wash-trade cleanup,
// feature extraction, scoring.
func (o *Orchestrator) analyze(ctx context.Context, inst contracts.Instrument) (*contracts.RankedStock, error) {
	series, err := o.fetchTicks(ctx, inst.Code)
	if err != nil {
		return nil, err
	}

	clean, washRatio := o.detector.Clean(ctx, inst.Code, series)
	if len(clean) == 0 {
		return nil, contracts.ErrNoData
	}

	fv := contracts.FeatureVector{
		OrderFlow:      o.flow.Analyze(ctx, inst.Code, clean),
		Microstructure: o.micro.Analyze(ctx, inst.Code, clean),
		Momentum:       o.momentum.Extract(ctx, inst.Code, clean),
		WashTradeRatio: washRatio,
	}

	totalVolume := clean.TotalVolume()
	tickCount := len(clean)
	score := o.engine.Score(ctx, inst.Code, fv, totalVolume, tickCount)

	firstPrice := clean[0].Price
	lastPrice := clean[len(clean)-1].Price
	var change float64
	if firstPrice > 0 {
		change = (lastPrice - firstPrice) / firstPrice * 100
	}

	return &contracts.RankedStock{
		Code:           inst.Code,
		Name:           inst.Name,
		Score:          score,
		ModelVersion:   o.engine.Version(),
		CurrentPrice:   lastPrice,
		IntradayChange: change,
		TotalVolume:    totalVolume,
		TickCount:      tickCount,
		Features:       fv,
	}, nil
}

// fetchTicks tries the providers in priority order. The first success wins;
// responses are never merged across providers.
func (o *Orchestrator) fetchTicks(ctx context.Context, code string) (contracts.TickSeries, error) {
	var lastErr error
	for _, p := range o.providers {
		series, err := p.FetchTicks(ctx, code)
		if err == nil {
			return series, nil
		}
		lastErr = err

		o.logger.WithFields(map[string]interface{}{
			"code":     code,
			"provider": p.Name(),
			"error":    err.Error(),
		}).Debug("Provider failed, trying next")

		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = contracts.ErrProviderUnavailable
	}
	return nil, fmt.Errorf("%s: %w", code, lastErr)
}

// mergeCache extends the day's mapping once, after the parallel phase. Codes
// never collide across instruments, so the key union is conflict-free.
func (o *Orchestrator) mergeCache(ctx context.Context, dayKey string, snapshot map[string]json.RawMessage, stocks []contracts.RankedStock) {
	entries := make(map[string]json.RawMessage, len(stocks))
	for _, s := range stocks {
		raw, err := json.Marshal(cachedMeta{
			Name:      s.Name,
			Score:     s.Score,
			TickCount: s.TickCount,
		})
		if err != nil {
			continue
		}
		entries[s.Code] = raw
	}
	// Carry forward entries from earlier passes of the same day.
	for k, v := range snapshot {
		if _, ok := entries[k]; !ok {
			entries[k] = v
		}
	}

	if err := o.cache.Put(ctx, dayKey, entries); err != nil {
		o.logger.WithError(err).Warn("Daily cache merge failed, continuing")
	}
}
