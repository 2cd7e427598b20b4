package washtrade

import (
	"context"
	"math"
	"time"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/logger"
)

// Config holds the detection thresholds. The values are empirical; they came
// out of live tuning against manipulated A-share sessions, so they are
// configuration rather than invariants.
type Config struct {
	MinRecords         int // below this the series is returned untouched
	BaselineWindow     int // trailing volume window for mean/stdev
	BaselineMinPeriods int
	SpikeStdMultiplier float64 // spike threshold = mean + k*stdev

	// Single-record divergence: volume far above the spike threshold while
	// the price does not move.
	DivergenceMultiplier float64
	PriceEpsilon         float64 // |price delta| below this counts as zero

	// Adjacent-pair cancellation
	PairMaxGap          time.Duration
	PairVolumeTolerance float64 // relative volume difference
	PairPriceTolerance  float64 // |summed price deltas| bound

	// High-frequency balanced pattern
	HighFreqMaxGap  time.Duration
	HighFreqRun     int
	HighFreqVolLow  float64 // lower bound as multiple of rolling mean
	HighFreqVolHigh float64

	// Alternating-large-order window
	WindowSize          int
	WindowPriceRange    float64
	WindowVolMultiplier float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinRecords:         20,
		BaselineWindow:     20,
		BaselineMinPeriods: 5,
		SpikeStdMultiplier: 2.0,

		DivergenceMultiplier: 2.0,
		PriceEpsilon:         0.001,

		PairMaxGap:          5 * time.Second,
		PairVolumeTolerance: 0.15,
		PairPriceTolerance:  0.01,

		HighFreqMaxGap:  500 * time.Millisecond,
		HighFreqRun:     3,
		HighFreqVolLow:  0.5,
		HighFreqVolHigh: 1.5,

		WindowSize:          6,
		WindowPriceRange:    0.01,
		WindowVolMultiplier: 1.5,
	}
}

// Detector flags suspected self-crossing ("wash") trades in a raw tick
// series. Flagged records are excluded from all downstream analysis; the
// flagged volume share feeds the scoring penalty.
type Detector struct {
	cfg    Config
	logger *logger.Logger
}

// NewDetector creates a new detector.
func NewDetector(cfg Config, log *logger.Logger) *Detector {
	return &Detector{cfg: cfg, logger: log}
}

// Clean returns the series with flagged records removed and the wash-trade
// ratio (flagged volume / total volume). Series shorter than MinRecords have
// no statistical baseline and are returned unchanged with ratio 0.
func (d *Detector) Clean(ctx context.Context, code string, series contracts.TickSeries) (contracts.TickSeries, float64) {
	if len(series) < d.cfg.MinRecords {
		return series, 0
	}

	totalVolume := series.TotalVolume()
	if totalVolume == 0 {
		return series, 0
	}

	mean, stdev := d.rollingVolumeStats(series)
	threshold := make([]float64, len(series))
	for i := range series {
		threshold[i] = mean[i] + d.cfg.SpikeStdMultiplier*stdev[i]
	}

	flagged := make([]bool, len(series))
	d.flagDivergence(series, threshold, flagged)
	d.flagCancellingPairs(series, threshold, flagged)
	d.flagHighFreqPattern(series, mean, flagged)
	d.flagAlternatingWindows(series, mean, flagged)

	var flaggedVolume int64
	clean := make(contracts.TickSeries, 0, len(series))
	for i, t := range series {
		if flagged[i] {
			flaggedVolume += t.Volume
			continue
		}
		clean = append(clean, t)
	}

	ratio := float64(flaggedVolume) / float64(totalVolume)
	if ratio > 0.01 {
		d.logger.WithFields(map[string]interface{}{
			"code":             code,
			"wash_trade_ratio": ratio,
			"flagged_records":  len(series) - len(clean),
		}).Debug("Wash trade suspicion detected")
	}

	return clean, ratio
}

// rollingVolumeStats computes the trailing mean and sample stdev of volume.
// The window is capped at a quarter of the series; positions with fewer than
// BaselineMinPeriods observations fall back to the whole-series statistics.
func (d *Detector) rollingVolumeStats(series contracts.TickSeries) (mean, stdev []float64) {
	window := d.cfg.BaselineWindow
	if quarter := len(series) / 4; quarter < window {
		window = quarter
	}

	globalMean, globalStd := volumeStats(series, 0, len(series))

	mean = make([]float64, len(series))
	stdev = make([]float64, len(series))
	for i := range series {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		if i-start+1 < d.cfg.BaselineMinPeriods {
			mean[i] = globalMean
			stdev[i] = globalStd
			continue
		}
		mean[i], stdev[i] = volumeStats(series, start, i+1)
	}
	return mean, stdev
}

// volumeStats returns mean and sample standard deviation of volume over
// series[start:end).
func volumeStats(series contracts.TickSeries, start, end int) (float64, float64) {
	n := end - start
	if n == 0 {
		return 0, 0
	}

	var sum float64
	for _, t := range series[start:end] {
		sum += float64(t.Volume)
	}
	mean := sum / float64(n)

	if n < 2 {
		return mean, 0
	}
	var ss float64
	for _, t := range series[start:end] {
		dv := float64(t.Volume) - mean
		ss += dv * dv
	}
	return mean, math.Sqrt(ss / float64(n-1))
}

// flagDivergence flags records whose volume is far above the spike threshold
// while the price barely moves.
func (d *Detector) flagDivergence(series contracts.TickSeries, threshold []float64, flagged []bool) {
	for i, t := range series {
		if float64(t.Volume) > threshold[i]*d.cfg.DivergenceMultiplier &&
			math.Abs(t.PriceDelta) < d.cfg.PriceEpsilon {
			flagged[i] = true
		}
	}
}

// flagCancellingPairs flags adjacent opposite-side spikes of near-equal
// volume whose price deltas cancel out.
func (d *Detector) flagCancellingPairs(series contracts.TickSeries, threshold []float64, flagged []bool) {
	for i := 1; i < len(series); i++ {
		if flagged[i] || flagged[i-1] {
			continue
		}

		cur, prev := series[i], series[i-1]

		if cur.Time.Sub(prev.Time) > d.cfg.PairMaxGap {
			continue
		}

		if float64(cur.Volume) <= threshold[i] || float64(prev.Volume) <= threshold[i-1] {
			continue
		}

		maxVol := cur.Volume
		if prev.Volume > maxVol {
			maxVol = prev.Volume
		}
		diffRatio := math.Abs(float64(cur.Volume-prev.Volume)) / float64(maxVol)
		if diffRatio > d.cfg.PairVolumeTolerance {
			continue
		}

		if cur.Side == prev.Side {
			continue
		}

		if math.Abs(cur.PriceDelta+prev.PriceDelta) > d.cfg.PairPriceTolerance {
			continue
		}

		flagged[i] = true
		flagged[i-1] = true
	}
}

// flagHighFreqPattern flags runs of rapid-fire trades with near-zero price
// movement and volume hugging the rolling mean.
func (d *Detector) flagHighFreqPattern(series contracts.TickSeries, mean []float64, flagged []bool) {
	qualifies := make([]bool, len(series))
	for i, t := range series {
		gap := series.Gap(i)
		vol := float64(t.Volume)
		qualifies[i] = gap < d.cfg.HighFreqMaxGap &&
			math.Abs(t.PriceDelta) < d.cfg.PriceEpsilon &&
			vol > mean[i]*d.cfg.HighFreqVolLow &&
			vol < mean[i]*d.cfg.HighFreqVolHigh
	}

	run := d.cfg.HighFreqRun
	for i := run - 1; i < len(series); i++ {
		all := true
		for j := i - run + 1; j <= i; j++ {
			if !qualifies[j] {
				all = false
				break
			}
		}
		if all {
			for j := i - run + 1; j <= i; j++ {
				flagged[j] = true
			}
		}
	}
}

// flagAlternatingWindows flags fixed-size windows that mix both sides, move
// the price less than WindowPriceRange, and carry volume well above the
// rolling baseline.
func (d *Detector) flagAlternatingWindows(series contracts.TickSeries, mean []float64, flagged []bool) {
	size := d.cfg.WindowSize
	if len(series) <= size+4 {
		return
	}

	for i := size - 1; i < len(series); i++ {
		start := i - size + 1

		var hasBuy, hasSell bool
		minPrice, maxPrice := math.Inf(1), math.Inf(-1)
		var volSum float64
		for j := start; j <= i; j++ {
			t := series[j]
			if t.Side == contracts.SideBuy {
				hasBuy = true
			} else {
				hasSell = true
			}
			minPrice = math.Min(minPrice, t.Price)
			maxPrice = math.Max(maxPrice, t.Price)
			volSum += float64(t.Volume)
		}

		if !hasBuy || !hasSell {
			continue
		}
		if maxPrice-minPrice >= d.cfg.WindowPriceRange {
			continue
		}
		if volSum/float64(size) <= mean[i]*d.cfg.WindowVolMultiplier {
			continue
		}

		for j := start; j <= i; j++ {
			flagged[j] = true
		}
	}
}
