package batch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/internal/dailycache"
	"github.com/qlab/tickscan/internal/market"
	"github.com/qlab/tickscan/internal/microstructure"
	"github.com/qlab/tickscan/internal/momentum"
	"github.com/qlab/tickscan/internal/orderflow"
	"github.com/qlab/tickscan/internal/scoring"
	"github.com/qlab/tickscan/internal/universe"
	"github.com/qlab/tickscan/internal/washtrade"
	"github.com/qlab/tickscan/pkg/logger"
)

type stubUniverse struct {
	instruments []contracts.Instrument
}

func (s *stubUniverse) Build(ctx context.Context) (*universe.Universe, error) {
	return &universe.Universe{
		Date:        time.Now(),
		Instruments: s.instruments,
		Excluded:    map[string]string{},
	}, nil
}

// stubProvider serves a synthetic session for every code, except the ones in
// stall, which block until the task context expires.
type stubProvider struct {
	stall map[string]bool
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchTicks(ctx context.Context, code string) (contracts.TickSeries, error) {
	if p.stall[code] {
		<-ctx.Done()
		return nil, fmt.Errorf("%w: %s", contracts.ErrProviderUnavailable, ctx.Err())
	}
	return syntheticSeries(), nil
}

func syntheticSeries() contracts.TickSeries {
	start := time.Date(2026, 8, 24, 9, 30, 0, 0, time.Local)
	series := make(contracts.TickSeries, 0, 30)
	price := 10.0
	for i := 0; i < 30; i++ {
		delta := 0.01
		side := contracts.SideBuy
		if i%3 == 2 {
			delta = -0.01
			side = contracts.SideSell
		}
		price += delta
		series = append(series, contracts.TickRecord{
			Time:       start.Add(time.Duration(i) * 10 * time.Second),
			Price:      price,
			PriceDelta: delta,
			Volume:     100,
			Side:       side,
		})
	}
	return series
}

func newOrchestrator(t *testing.T, cfg Config, source UniverseSource, providers []contracts.TickProvider, cache contracts.DailyCacheStore) *Orchestrator {
	t.Helper()
	log := logger.Nop()

	preset, err := scoring.PresetFor(scoring.DefaultVersion)
	require.NoError(t, err)

	return NewOrchestrator(
		cfg,
		source,
		providers,
		cache,
		washtrade.NewDetector(washtrade.DefaultConfig(), log),
		orderflow.NewAnalyzer(log),
		microstructure.NewAnalyzer(log),
		momentum.NewExtractor(momentum.DefaultConfig(), log),
		scoring.NewEngine(preset, log),
		log,
	)
}

func TestRunDropsTimedOutInstruments(t *testing.T) {
	instruments := make([]contracts.Instrument, 0, 50)
	stall := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := fmt.Sprintf("SH600%03d", i)
		instruments = append(instruments, contracts.Instrument{Code: code, Name: fmt.Sprintf("股票%d", i)})
		if i < 5 {
			stall[code] = true
		}
	}

	o := newOrchestrator(t,
		Config{Workers: 10, TaskTimeout: 200 * time.Millisecond},
		&stubUniverse{instruments: instruments},
		[]contracts.TickProvider{&stubProvider{stall: stall}},
		dailycache.NewMemory(),
	)

	started := time.Now()
	snapshot, err := o.Run(context.Background())
	elapsed := time.Since(started)

	require.NoError(t, err)

	// Exactly the 45 healthy instruments are ranked; the 5 stalled ones
	// are absent, not null-scored.
	assert.Len(t, snapshot.Stocks, 45)
	assert.Equal(t, 50, snapshot.Universe)
	assert.Equal(t, 5, snapshot.Failed)
	for _, s := range snapshot.Stocks {
		assert.False(t, stall[s.Code])
	}

	// Pool parallelism keeps the wall clock near one task timeout, far
	// from 50 sequential fetches.
	assert.Less(t, elapsed, 3*time.Second)
}

func TestRunRanksByScoreDescending(t *testing.T) {
	instruments := []contracts.Instrument{
		{Code: "SH600001", Name: "A"},
		{Code: "SH600002", Name: "B"},
		{Code: "SH600003", Name: "C"},
	}

	o := newOrchestrator(t,
		Config{Workers: 2, TaskTimeout: time.Second},
		&stubUniverse{instruments: instruments},
		[]contracts.TickProvider{&stubProvider{}},
		dailycache.NewMemory(),
	)

	snapshot, err := o.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot.Stocks, 3)

	for i, s := range snapshot.Stocks {
		assert.Equal(t, i+1, s.Rank)
		if i > 0 {
			assert.GreaterOrEqual(t, snapshot.Stocks[i-1].Score, s.Score)
		}
		assert.GreaterOrEqual(t, s.Score, -100.0)
		assert.LessOrEqual(t, s.Score, 100.0)
	}
}

func TestRunMergesDailyCache(t *testing.T) {
	cache := dailycache.NewMemory()

	o := newOrchestrator(t,
		Config{Workers: 2, TaskTimeout: time.Second},
		&stubUniverse{instruments: []contracts.Instrument{{Code: "SH600001", Name: "A"}}},
		[]contracts.TickProvider{&stubProvider{}},
		cache,
	)

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	entries, err := cache.Get(context.Background(), market.DayKey(time.Now()))
	require.NoError(t, err)
	assert.Contains(t, entries, "SH600001")
}

// failingProvider always reports unavailable; used to exercise priority
// fallback.
type failingProvider struct{}

func (failingProvider) Name() string { return "failing" }
func (failingProvider) FetchTicks(ctx context.Context, code string) (contracts.TickSeries, error) {
	return nil, contracts.ErrProviderUnavailable
}

func TestRunFallsBackToSecondProvider(t *testing.T) {
	o := newOrchestrator(t,
		Config{Workers: 1, TaskTimeout: time.Second},
		&stubUniverse{instruments: []contracts.Instrument{{Code: "SH600001", Name: "A"}}},
		[]contracts.TickProvider{failingProvider{}, &stubProvider{}},
		dailycache.NewMemory(),
	)

	snapshot, err := o.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot.Stocks, 1)
}

func TestRunAllInstrumentsFailed(t *testing.T) {
	o := newOrchestrator(t,
		Config{Workers: 2, TaskTimeout: time.Second},
		&stubUniverse{instruments: []contracts.Instrument{{Code: "SH600001", Name: "A"}}},
		[]contracts.TickProvider{failingProvider{}},
		dailycache.NewMemory(),
	)

	snapshot, err := o.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, snapshot.Stocks)
	assert.Equal(t, 1, snapshot.Failed)
}
