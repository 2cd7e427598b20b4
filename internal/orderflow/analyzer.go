package orderflow

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/internal/market"
	"github.com/qlab/tickscan/pkg/logger"
)

const (
	// largeOrderQuantile marks the volume percentile above which a trade
	// counts as a large order.
	largeOrderQuantile = 0.8

	// runGap is the maximum spacing between same-side trades that still
	// counts as one continuous run.
	runGap = 5 * time.Second

	// concentrationBucket is the time-bucket width for the Herfindahl
	// concentration index.
	concentrationBucket = 15 * time.Minute

	// minConcentrationRecords is the per-side record count below which
	// concentration is reported as 0.
	minConcentrationRecords = 5

	// minStrengthRecords is the per-side record count below which the
	// half-session strength change is reported as 0.
	minStrengthRecords = 10
)

// Analyzer computes directional trade statistics from a cleaned tick series.
type Analyzer struct {
	logger *logger.Logger
}

// NewAnalyzer creates a new order-flow analyzer.
func NewAnalyzer(log *logger.Logger) *Analyzer {
	return &Analyzer{logger: log}
}

// Default returns the neutral metrics documented for an empty series.
func Default() contracts.OrderFlowMetrics {
	return contracts.OrderFlowMetrics{ActiveBuyRatio: 0.5}
}

// Analyze computes the full order-flow metric set. An empty series yields the
// documented neutral defaults; no input raises an error.
func (a *Analyzer) Analyze(ctx context.Context, code string, series contracts.TickSeries) contracts.OrderFlowMetrics {
	if len(series) == 0 {
		return Default()
	}

	m := contracts.OrderFlowMetrics{}

	buyVolume := series.SideVolume(contracts.SideBuy)
	sellVolume := series.SideVolume(contracts.SideSell)
	totalVolume := buyVolume + sellVolume

	m.NetBuyVolume = buyVolume - sellVolume
	if totalVolume > 0 {
		m.ActiveBuyRatio = float64(buyVolume) / float64(totalVolume)
	} else {
		m.ActiveBuyRatio = 0.5
	}

	m.BuyImpact = meanImpact(series, contracts.SideBuy)
	m.SellImpact = meanImpact(series, contracts.SideSell)
	m.AvgBuySize = meanVolume(series, contracts.SideBuy)
	m.AvgSellSize = meanVolume(series, contracts.SideSell)

	m.LargeBuyRatio, m.LargeSellRatio = largeOrderRatios(series, buyVolume, sellVolume)

	m.MorningNet, m.AfternoonNet, m.ClosingNet = sessionNets(series)
	if m.NetBuyVolume != 0 {
		m.MomentumRatio = float64(m.AfternoonNet) / float64(m.NetBuyVolume)
		m.ClosingRatio = float64(m.ClosingNet) / float64(m.NetBuyVolume)
	}

	m.BuyRuns = longestRun(series, contracts.SideBuy)
	m.SellRuns = longestRun(series, contracts.SideSell)

	m.BuyConcentration = concentration(series, contracts.SideBuy)
	m.SellConcentration = concentration(series, contracts.SideSell)

	m.BuyStrengthChange = strengthChange(series, contracts.SideBuy)
	m.SellStrengthChange = strengthChange(series, contracts.SideSell)

	a.logger.WithFields(map[string]interface{}{
		"code":             code,
		"net_buy_volume":   m.NetBuyVolume,
		"active_buy_ratio": m.ActiveBuyRatio,
		"momentum_ratio":   m.MomentumRatio,
	}).Debug("Computed order flow metrics")

	return m
}

// meanImpact averages the signed per-unit impact of one side's trades.
func meanImpact(series contracts.TickSeries, side contracts.Side) float64 {
	var sum float64
	var n int
	for _, t := range series {
		if t.Side != side {
			continue
		}
		sum += t.Impact()
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func meanVolume(series contracts.TickSeries, side contracts.Side) float64 {
	var sum float64
	var n int
	for _, t := range series {
		if t.Side != side {
			continue
		}
		sum += float64(t.Volume)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// largeOrderRatios returns, per side, the volume share of trades strictly
// above the 80th volume percentile.
func largeOrderRatios(series contracts.TickSeries, buyVolume, sellVolume int64) (float64, float64) {
	threshold := volumeQuantile(series, largeOrderQuantile)

	var largeBuy, largeSell int64
	for _, t := range series {
		if float64(t.Volume) <= threshold {
			continue
		}
		if t.Side == contracts.SideBuy {
			largeBuy += t.Volume
		} else {
			largeSell += t.Volume
		}
	}

	var buyRatio, sellRatio float64
	if buyVolume > 0 {
		buyRatio = float64(largeBuy) / float64(buyVolume)
	}
	if sellVolume > 0 {
		sellRatio = float64(largeSell) / float64(sellVolume)
	}
	return buyRatio, sellRatio
}

// volumeQuantile computes the q-quantile of volume with linear interpolation
// between order statistics.
func volumeQuantile(series contracts.TickSeries, q float64) float64 {
	if len(series) == 0 {
		return 0
	}

	vols := make([]float64, len(series))
	for i, t := range series {
		vols[i] = float64(t.Volume)
	}
	sort.Float64s(vols)

	pos := q * float64(len(vols)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return vols[lo]
	}
	frac := pos - float64(lo)
	return vols[lo]*(1-frac) + vols[hi]*frac
}

// sessionNets splits net volume into morning (<11:30), afternoon (>=13:00)
// and closing (>=14:45) windows.
func sessionNets(series contracts.TickSeries) (morning, afternoon, closing int64) {
	for _, t := range series {
		signed := t.Volume
		if t.Side == contracts.SideSell {
			signed = -signed
		}

		if market.MorningClose.After(t.Time) {
			morning += signed
		}
		if market.AfternoonOpen.AtOrBefore(t.Time) {
			afternoon += signed
		}
		if market.ClosingWindow.AtOrBefore(t.Time) {
			closing += signed
		}
	}
	return morning, afternoon, closing
}

// longestRun finds the longest chain of one side's trades with no more than
// runGap between consecutive fills.
func longestRun(series contracts.TickSeries, side contracts.Side) int {
	best, current := 0, 0
	var last time.Time

	for _, t := range series {
		if t.Side != side {
			continue
		}
		if current > 0 && t.Time.Sub(last) < runGap {
			current++
		} else {
			current = 1
		}
		if current > best {
			best = current
		}
		last = t.Time
	}
	return best
}

// concentration computes the Herfindahl index of one side's volume over
// 15-minute buckets. Sides with fewer than 5 records score 0.
func concentration(series contracts.TickSeries, side contracts.Side) float64 {
	buckets := make(map[int64]float64)
	var total float64
	var n int

	for _, t := range series {
		if t.Side != side {
			continue
		}
		n++
		key := t.Time.Truncate(concentrationBucket).Unix()
		buckets[key] += float64(t.Volume)
		total += float64(t.Volume)
	}

	if n < minConcentrationRecords || total == 0 {
		return 0
	}

	var hhi float64
	for _, v := range buckets {
		share := v / total
		hhi += share * share
	}
	return hhi
}

// strengthChange compares one side's mean volume in the second half of its
// records against the first half.
func strengthChange(series contracts.TickSeries, side contracts.Side) float64 {
	var vols []float64
	for _, t := range series {
		if t.Side == side {
			vols = append(vols, float64(t.Volume))
		}
	}
	if len(vols) < minStrengthRecords {
		return 0
	}

	mid := len(vols) / 2
	firstMean := mean(vols[:mid])
	secondMean := mean(vols[mid:])
	if firstMean == 0 {
		return 0
	}
	return (secondMean - firstMean) / firstMean
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
