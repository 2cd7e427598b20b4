package orderflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/logger"
)

var morning = time.Date(2026, 8, 24, 10, 0, 0, 0, time.Local)
var afternoon = time.Date(2026, 8, 24, 13, 30, 0, 0, time.Local)
var closing = time.Date(2026, 8, 24, 14, 50, 0, 0, time.Local)

func tick(at time.Time, side contracts.Side, volume int64, delta float64) contracts.TickRecord {
	return contracts.TickRecord{
		Time:       at,
		Price:      10 + delta,
		PriceDelta: delta,
		Volume:     volume,
		Side:       side,
	}
}

func TestEmptySeriesDefaults(t *testing.T) {
	a := NewAnalyzer(logger.Nop())

	m := a.Analyze(context.Background(), "sh600000", nil)

	assert.Equal(t, 0.5, m.ActiveBuyRatio)
	assert.Zero(t, m.NetBuyVolume)
	assert.Zero(t, m.MomentumRatio)
}

func TestAllBuySeries(t *testing.T) {
	a := NewAnalyzer(logger.Nop())
	series := contracts.TickSeries{
		tick(morning, contracts.SideBuy, 100, 0.01),
		tick(morning.Add(time.Minute), contracts.SideBuy, 200, 0.02),
		tick(morning.Add(2*time.Minute), contracts.SideBuy, 300, 0.01),
	}

	m := a.Analyze(context.Background(), "sh600000", series)

	assert.Equal(t, int64(600), m.NetBuyVolume)
	assert.Equal(t, 1.0, m.ActiveBuyRatio)
	assert.Zero(t, m.AvgSellSize)
	assert.Zero(t, m.SellImpact)
}

func TestActiveBuyRatioBounds(t *testing.T) {
	a := NewAnalyzer(logger.Nop())
	series := contracts.TickSeries{
		tick(morning, contracts.SideBuy, 300, 0.01),
		tick(morning.Add(time.Second), contracts.SideSell, 100, -0.01),
	}

	m := a.Analyze(context.Background(), "sh600000", series)

	assert.Equal(t, 0.75, m.ActiveBuyRatio)
	assert.GreaterOrEqual(t, m.ActiveBuyRatio, 0.0)
	assert.LessOrEqual(t, m.ActiveBuyRatio, 1.0)
	assert.Equal(t, int64(200), m.NetBuyVolume)
}

func TestSessionNets(t *testing.T) {
	a := NewAnalyzer(logger.Nop())
	series := contracts.TickSeries{
		tick(morning, contracts.SideBuy, 500, 0.01),
		tick(morning.Add(time.Minute), contracts.SideSell, 200, -0.01),
		tick(afternoon, contracts.SideBuy, 400, 0.02),
		tick(afternoon.Add(time.Minute), contracts.SideSell, 100, -0.01),
		tick(closing, contracts.SideBuy, 250, 0.01),
	}

	m := a.Analyze(context.Background(), "sh600000", series)

	assert.Equal(t, int64(300), m.MorningNet)
	// Closing trades also fall inside the afternoon window.
	assert.Equal(t, int64(550), m.AfternoonNet)
	assert.Equal(t, int64(250), m.ClosingNet)

	net := float64(m.NetBuyVolume)
	assert.InDelta(t, 550/net, m.MomentumRatio, 1e-12)
	assert.InDelta(t, 250/net, m.ClosingRatio, 1e-12)
}

func TestMomentumRatioZeroWhenNetZero(t *testing.T) {
	a := NewAnalyzer(logger.Nop())
	series := contracts.TickSeries{
		tick(morning, contracts.SideBuy, 100, 0.01),
		tick(afternoon, contracts.SideSell, 100, -0.01),
	}

	m := a.Analyze(context.Background(), "sh600000", series)

	assert.Zero(t, m.NetBuyVolume)
	assert.Zero(t, m.MomentumRatio)
	assert.Zero(t, m.ClosingRatio)
}

func TestLargeOrderRatios(t *testing.T) {
	a := NewAnalyzer(logger.Nop())

	// Nine small buys and one huge sell: the sell is the only trade above
	// the 80th volume percentile.
	series := contracts.TickSeries{}
	for i := 0; i < 9; i++ {
		series = append(series, tick(morning.Add(time.Duration(i)*time.Minute), contracts.SideBuy, 100, 0.01))
	}
	series = append(series, tick(morning.Add(10*time.Minute), contracts.SideSell, 5000, -0.01))

	m := a.Analyze(context.Background(), "sh600000", series)

	assert.Zero(t, m.LargeBuyRatio)
	assert.Equal(t, 1.0, m.LargeSellRatio)
}

func TestLongestRun(t *testing.T) {
	a := NewAnalyzer(logger.Nop())

	// Three buys 1s apart, a 10s gap, then two more buys.
	series := contracts.TickSeries{
		tick(morning, contracts.SideBuy, 100, 0.01),
		tick(morning.Add(1*time.Second), contracts.SideBuy, 100, 0.01),
		tick(morning.Add(2*time.Second), contracts.SideBuy, 100, 0.01),
		tick(morning.Add(12*time.Second), contracts.SideBuy, 100, 0.01),
		tick(morning.Add(13*time.Second), contracts.SideBuy, 100, 0.01),
		tick(morning.Add(14*time.Second), contracts.SideSell, 100, -0.01),
	}

	m := a.Analyze(context.Background(), "sh600000", series)

	assert.Equal(t, 3, m.BuyRuns)
	assert.Equal(t, 1, m.SellRuns)
}

func TestConcentration(t *testing.T) {
	a := NewAnalyzer(logger.Nop())

	// All buy volume inside one 15-minute bucket.
	series := contracts.TickSeries{}
	for i := 0; i < 6; i++ {
		series = append(series, tick(morning.Add(time.Duration(i)*time.Minute), contracts.SideBuy, 100, 0.01))
	}

	m := a.Analyze(context.Background(), "sh600000", series)
	assert.InDelta(t, 1.0, m.BuyConcentration, 1e-12)

	// Fewer than 5 sell records: concentration reported as 0.
	assert.Zero(t, m.SellConcentration)
}

func TestConcentrationSpread(t *testing.T) {
	a := NewAnalyzer(logger.Nop())

	// Equal volume in two separate buckets: HHI = 0.5.
	series := contracts.TickSeries{
		tick(morning, contracts.SideBuy, 100, 0.01),
		tick(morning.Add(time.Minute), contracts.SideBuy, 100, 0.01),
		tick(morning.Add(2*time.Minute), contracts.SideBuy, 100, 0.01),
		tick(morning.Add(30*time.Minute), contracts.SideBuy, 100, 0.01),
		tick(morning.Add(31*time.Minute), contracts.SideBuy, 100, 0.01),
		tick(morning.Add(32*time.Minute), contracts.SideBuy, 100, 0.01),
	}

	m := a.Analyze(context.Background(), "sh600000", series)

	assert.InDelta(t, 0.5, m.BuyConcentration, 1e-12)
}

func TestStrengthChange(t *testing.T) {
	a := NewAnalyzer(logger.Nop())

	// First five buys at 100, next five at 200: +100% strength change.
	series := contracts.TickSeries{}
	for i := 0; i < 10; i++ {
		vol := int64(100)
		if i >= 5 {
			vol = 200
		}
		series = append(series, tick(morning.Add(time.Duration(i)*time.Minute), contracts.SideBuy, vol, 0.01))
	}

	m := a.Analyze(context.Background(), "sh600000", series)

	assert.InDelta(t, 1.0, m.BuyStrengthChange, 1e-12)
	assert.Zero(t, m.SellStrengthChange)
}
