package microstructure

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/logger"
)

const (
	// largeTradeQuantile marks the volume percentile above which a trade's
	// impact counts toward the large-trade impact average.
	largeTradeQuantile = 0.8

	// minTrendRecords is the record count required before the rolling
	// volume trend, elasticity and reversal metrics are computed.
	minTrendRecords = 20

	// minAmihudRecords is the record count required before the Amihud
	// illiquidity estimate is computed.
	minAmihudRecords = 10

	// volumeTrendWindow is the rolling-mean window for the volume trend.
	volumeTrendWindow = 10

	// amihudBucket is the wall-clock bucket width for the Amihud estimate.
	amihudBucket = time.Minute
)

// Analyzer estimates price-impact and liquidity metrics from a cleaned tick
// series.
type Analyzer struct {
	logger *logger.Logger
}

// NewAnalyzer creates a new microstructure analyzer.
func NewAnalyzer(log *logger.Logger) *Analyzer {
	return &Analyzer{logger: log}
}

// Default returns the neutral metrics documented for an empty series.
func Default() contracts.MicrostructureMetrics {
	return contracts.MicrostructureMetrics{PressureRatio: 1.0}
}

// Analyze computes the full microstructure metric set. An empty series yields
// the documented neutral defaults; no input raises an error.
func (a *Analyzer) Analyze(ctx context.Context, code string, series contracts.TickSeries) contracts.MicrostructureMetrics {
	if len(series) == 0 {
		return Default()
	}

	m := contracts.MicrostructureMetrics{}

	m.AvgAbsImpact = avgAbsImpact(series)
	m.ImpactAsymmetry = meanImpact(series, contracts.SideBuy) - meanImpact(series, contracts.SideSell)
	m.KyleLambda = kyleLambda(series, m.AvgAbsImpact)
	m.EffectiveSpread = 2 * m.AvgAbsImpact
	m.VWAPVolatility = vwapVolatility(series)
	m.TradeIntensity = tradeIntensity(series)
	m.LargeImpact = largeImpact(series)
	m.PriceTrend = priceTrend(series)
	m.VolumeTrend = volumeTrend(series)
	m.PressureRatio = pressureRatio(series)
	m.PriceElasticity = priceElasticity(series)
	m.PriceReversal = priceReversal(series)
	m.LiquidityIndex = liquidityIndex(series)
	m.AmihudIlliquidity = amihudIlliquidity(series)

	a.logger.WithFields(map[string]interface{}{
		"code":           code,
		"kyle_lambda":    m.KyleLambda,
		"pressure_ratio": m.PressureRatio,
		"amihud":         m.AmihudIlliquidity,
	}).Debug("Computed microstructure metrics")

	return m
}

func avgAbsImpact(series contracts.TickSeries) float64 {
	var sum float64
	for _, t := range series {
		sum += math.Abs(t.Impact())
	}
	return sum / float64(len(series))
}

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

// kyleLambda fits an ordinary least-squares regression of price delta on
// volume and returns its slope. A degenerate fit, such as constant volume,
// falls back to the average absolute impact.
func kyleLambda(series contracts.TickSeries, fallback float64) float64 {
	n := float64(len(series))
	if n < 2 {
		return fallback
	}

	var sumX, sumY, sumXX, sumXY float64
	for _, t := range series {
		x := float64(t.Volume)
		y := t.PriceDelta
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return fallback
	}
	return (n*sumXY - sumX*sumY) / denom
}

// vwapVolatility is the volume-weighted RMS deviation of trade prices from
// the session VWAP.
func vwapVolatility(series contracts.TickSeries) float64 {
	var priceVolume, volume float64
	for _, t := range series {
		priceVolume += t.Price * float64(t.Volume)
		volume += float64(t.Volume)
	}
	if volume == 0 {
		return 0
	}
	vwap := priceVolume / volume

	var sq float64
	for _, t := range series {
		dev := t.Price - vwap
		sq += dev * dev * float64(t.Volume)
	}
	return math.Sqrt(sq / volume)
}

// tradeIntensity is the inverse of the mean inter-arrival gap. The first
// record contributes a zero gap.
func tradeIntensity(series contracts.TickSeries) float64 {
	var sum float64
	for i := range series {
		sum += series.Gap(i).Seconds()
	}
	meanGap := sum / float64(len(series))
	return 1 / (meanGap + 0.001)
}

// largeImpact averages the absolute impact of trades strictly above the 80th
// volume percentile.
func largeImpact(series contracts.TickSeries) float64 {
	threshold := volumeQuantile(series, largeTradeQuantile)

	var sum float64
	var n int
	for _, t := range series {
		if float64(t.Volume) <= threshold {
			continue
		}
		sum += math.Abs(t.Impact())
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func volumeQuantile(series contracts.TickSeries, q float64) float64 {
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

func priceTrend(series contracts.TickSeries) float64 {
	if len(series) < 2 {
		return 0
	}
	first := series[0].Price
	last := series[len(series)-1].Price
	if first == 0 {
		return 0
	}
	return (last - first) / first
}

// volumeTrend is the mean percentage change of a 10-record rolling mean of
// trade volume. Series at or below 20 records score 0.
func volumeTrend(series contracts.TickSeries) float64 {
	if len(series) <= minTrendRecords {
		return 0
	}

	rolled := make([]float64, 0, len(series)-volumeTrendWindow+1)
	var window float64
	for i, t := range series {
		window += float64(t.Volume)
		if i >= volumeTrendWindow {
			window -= float64(series[i-volumeTrendWindow].Volume)
		}
		if i >= volumeTrendWindow-1 {
			rolled = append(rolled, window/float64(volumeTrendWindow))
		}
	}

	var sum float64
	var n int
	for i := 1; i < len(rolled); i++ {
		if rolled[i-1] == 0 {
			continue
		}
		sum += (rolled[i] - rolled[i-1]) / rolled[i-1]
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// pressureRatio compares mean absolute buy impact against mean absolute sell
// impact. A one-sided series reports the neutral 1.0.
func pressureRatio(series contracts.TickSeries) float64 {
	var buySum, sellSum float64
	var buyN, sellN int
	for _, t := range series {
		impact := math.Abs(t.Impact())
		if t.Side == contracts.SideBuy {
			buySum += impact
			buyN++
		} else {
			sellSum += impact
			sellN++
		}
	}

	var buyPressure, sellPressure float64
	if buyN > 0 {
		buyPressure = buySum / float64(buyN)
	}
	if sellN > 0 {
		sellPressure = sellSum / float64(sellN)
	}
	if sellPressure == 0 {
		return 1.0
	}
	return buyPressure / sellPressure
}

// priceElasticity averages |delta|/volume per trade. Series at or below 20
// records score 0.
func priceElasticity(series contracts.TickSeries) float64 {
	if len(series) <= minTrendRecords {
		return 0
	}
	var sum float64
	for _, t := range series {
		sum += math.Abs(t.PriceDelta) / float64(t.Volume)
	}
	return sum / float64(len(series))
}

// priceReversal is the negated lag-1 autocorrelation of price deltas. Series
// at or below 20 records, or with degenerate variance, score 0.
func priceReversal(series contracts.TickSeries) float64 {
	if len(series) <= minTrendRecords {
		return 0
	}

	n := len(series) - 1
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = series[i].PriceDelta
		ys[i] = series[i+1].PriceDelta
	}

	xMean := mean(xs)
	yMean := mean(ys)

	var cov, xVar, yVar float64
	for i := 0; i < n; i++ {
		dx := xs[i] - xMean
		dy := ys[i] - yMean
		cov += dx * dy
		xVar += dx * dx
		yVar += dy * dy
	}
	if xVar == 0 || yVar == 0 {
		return 0
	}
	return -cov / math.Sqrt(xVar*yVar)
}

// liquidityIndex averages the relative deviation of each trade price from
// the running cumulative VWAP.
func liquidityIndex(series contracts.TickSeries) float64 {
	var cumPriceVolume, cumVolume float64
	var sum float64
	var n int
	for _, t := range series {
		cumPriceVolume += t.Price * float64(t.Volume)
		cumVolume += float64(t.Volume)
		if cumVolume == 0 {
			continue
		}
		vwap := cumPriceVolume / cumVolume
		if vwap == 0 {
			continue
		}
		sum += math.Abs((t.Price - vwap) / vwap)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// amihudIlliquidity averages |bucket price change|/bucket volume over
// one-minute wall-clock buckets holding more than one trade. Series at or
// below 10 records score 0.
func amihudIlliquidity(series contracts.TickSeries) float64 {
	if len(series) <= minAmihudRecords {
		return 0
	}

	type bucket struct {
		first  float64
		last   float64
		volume int64
		count  int
	}

	buckets := make(map[int64]*bucket)
	order := make([]int64, 0)
	for _, t := range series {
		key := t.Time.Truncate(amihudBucket).Unix()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{first: t.Price}
			buckets[key] = b
			order = append(order, key)
		}
		b.last = t.Price
		b.volume += t.Volume
		b.count++
	}

	var sum float64
	var n int
	for _, key := range order {
		b := buckets[key]
		if b.count < 2 || b.volume == 0 {
			continue
		}
		sum += math.Abs(b.last-b.first) / float64(b.volume)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
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
