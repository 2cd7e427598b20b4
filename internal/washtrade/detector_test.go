package washtrade

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/logger"
)

var sessionStart = time.Date(2026, 8, 24, 9, 30, 0, 0, time.Local)

// baselineSeries builds an inconspicuous series: steady volume around 100,
// alternating sides, visible price movement, 10s spacing.
func baselineSeries(n int) contracts.TickSeries {
	series := make(contracts.TickSeries, 0, n)
	price := 10.00
	for i := 0; i < n; i++ {
		delta := 0.02
		if i%2 == 1 {
			delta = -0.02
		}
		price += delta
		side := contracts.SideBuy
		if i%2 == 1 {
			side = contracts.SideSell
		}
		vol := int64(100)
		if i%3 == 0 {
			vol = 110
		} else if i%3 == 1 {
			vol = 90
		}
		series = append(series, contracts.TickRecord{
			Time:       sessionStart.Add(time.Duration(i) * 10 * time.Second),
			Price:      price,
			PriceDelta: delta,
			Volume:     vol,
			Side:       side,
		})
	}
	return series
}

func newDetector() *Detector {
	return NewDetector(DefaultConfig(), logger.Nop())
}

func TestShortSeriesUnchanged(t *testing.T) {
	series := baselineSeries(19)

	clean, ratio := newDetector().Clean(context.Background(), "sh600000", series)

	assert.Equal(t, series, clean)
	assert.Zero(t, ratio)
}

func TestEmptySeries(t *testing.T) {
	clean, ratio := newDetector().Clean(context.Background(), "sh600000", nil)

	assert.Empty(t, clean)
	assert.Zero(t, ratio)
}

func TestCleanSeriesNotFlagged(t *testing.T) {
	series := baselineSeries(40)

	clean, ratio := newDetector().Clean(context.Background(), "sh600000", series)

	assert.Len(t, clean, 40)
	assert.Zero(t, ratio)
}

func TestCancellingPairFlagged(t *testing.T) {
	series := baselineSeries(80)
	last := series[len(series)-1]

	// Injected pair: opposite sides, near-equal spike volumes, price deltas
	// that cancel, 2s apart.
	pairTime := last.Time.Add(10 * time.Second)
	series = append(series,
		contracts.TickRecord{
			Time:       pairTime,
			Price:      last.Price + 0.01,
			PriceDelta: 0.01,
			Volume:     1000,
			Side:       contracts.SideBuy,
		},
		contracts.TickRecord{
			Time:       pairTime.Add(2 * time.Second),
			Price:      last.Price,
			PriceDelta: -0.01,
			Volume:     940,
			Side:       contracts.SideSell,
		},
	)

	clean, ratio := newDetector().Clean(context.Background(), "sh600000", series)

	require.Len(t, clean, 80, "both injected records should be excluded")
	for _, rec := range clean {
		assert.Less(t, rec.Volume, int64(500))
	}

	total := series.TotalVolume()
	assert.InDelta(t, 1940.0/float64(total), ratio, 1e-12)
}

func TestPairWithDriftingPriceNotFlagged(t *testing.T) {
	series := baselineSeries(80)
	last := series[len(series)-1]

	// Same shape but the deltas do not cancel: genuine momentum, not wash.
	pairTime := last.Time.Add(10 * time.Second)
	series = append(series,
		contracts.TickRecord{
			Time:       pairTime,
			Price:      last.Price + 0.10,
			PriceDelta: 0.10,
			Volume:     1000,
			Side:       contracts.SideBuy,
		},
		contracts.TickRecord{
			Time:       pairTime.Add(2 * time.Second),
			Price:      last.Price + 0.05,
			PriceDelta: -0.05,
			Volume:     940,
			Side:       contracts.SideSell,
		},
	)

	clean, ratio := newDetector().Clean(context.Background(), "sh600000", series)

	assert.Len(t, clean, 82)
	assert.Zero(t, ratio)
}

func TestDivergenceSpikeFlagged(t *testing.T) {
	series := baselineSeries(80)
	last := series[len(series)-1]

	// Huge volume, zero price movement.
	series = append(series, contracts.TickRecord{
		Time:       last.Time.Add(10 * time.Second),
		Price:      last.Price,
		PriceDelta: 0,
		Volume:     50000,
		Side:       contracts.SideBuy,
	})

	clean, ratio := newDetector().Clean(context.Background(), "sh600000", series)

	assert.Len(t, clean, 80)
	assert.Greater(t, ratio, 0.0)
}

func TestHighFrequencyRunFlagged(t *testing.T) {
	series := baselineSeries(24)
	last := series[len(series)-1]

	// A burst of trades 100ms apart, flat price, volume at the rolling mean.
	// The first burst record still has a long gap behind it, so a 4-trade
	// burst yields 3 consecutive qualifying records.
	start := last.Time.Add(10 * time.Second)
	for i := 0; i < 4; i++ {
		side := contracts.SideBuy
		if i%2 == 1 {
			side = contracts.SideSell
		}
		series = append(series, contracts.TickRecord{
			Time:       start.Add(time.Duration(i) * 100 * time.Millisecond),
			Price:      last.Price,
			PriceDelta: 0,
			Volume:     100,
			Side:       side,
		})
	}

	clean, _ := newDetector().Clean(context.Background(), "sh600000", series)

	assert.Len(t, clean, 25, "the three rapid-fire records should be excluded")
}

func TestOrderPreserved(t *testing.T) {
	series := baselineSeries(40)

	clean, _ := newDetector().Clean(context.Background(), "sh600000", series)

	for i := 1; i < len(clean); i++ {
		assert.False(t, clean[i].Time.Before(clean[i-1].Time))
	}
}
