package momentum

import (
	"context"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/logger"
)

const (
	// accelerationSegments is the number of contiguous partitions the
	// session is split into for the acceleration estimate.
	accelerationSegments = 5

	// minSustainabilityRecords is the record count below which the streak
	// ratio is not estimated.
	minSustainabilityRecords = 10
)

// Config holds the empirical policy defaults of the extractor.
type Config struct {
	// NeutralSustainability is reported when the series is too short or
	// has no down-streaks to compare against.
	NeutralSustainability float64
}

// DefaultConfig returns the policy defaults used in production scans.
func DefaultConfig() Config {
	return Config{NeutralSustainability: 1.0}
}

// Extractor derives intraday momentum features from a cleaned tick series.
type Extractor struct {
	cfg    Config
	logger *logger.Logger
}

// NewExtractor creates a momentum extractor with the given policy config.
func NewExtractor(cfg Config, log *logger.Logger) *Extractor {
	return &Extractor{cfg: cfg, logger: log}
}

// Default returns the neutral metrics documented for an empty series.
func (e *Extractor) Default() contracts.MomentumMetrics {
	return contracts.MomentumMetrics{Sustainability: e.cfg.NeutralSustainability}
}

// Extract computes acceleration and sustainability. An empty series yields
// the documented neutral defaults; no input raises an error.
func (e *Extractor) Extract(ctx context.Context, code string, series contracts.TickSeries) contracts.MomentumMetrics {
	if len(series) == 0 {
		return e.Default()
	}

	m := contracts.MomentumMetrics{
		Acceleration:   acceleration(series),
		Sustainability: e.sustainability(series),
	}

	e.logger.WithFields(map[string]interface{}{
		"code":           code,
		"acceleration":   m.Acceleration,
		"sustainability": m.Sustainability,
	}).Debug("Computed momentum metrics")

	return m
}

// acceleration splits the series into 5 contiguous segments (the last one
// absorbs the remainder) and returns last-segment return minus first-segment
// return. Fewer than 3 usable segment returns score 0.
func acceleration(series contracts.TickSeries) float64 {
	if len(series) < accelerationSegments {
		return 0
	}

	segSize := len(series) / accelerationSegments
	if segSize == 0 {
		return 0
	}

	var returns []float64
	for i := 0; i < accelerationSegments; i++ {
		start := i * segSize
		end := start + segSize
		if i == accelerationSegments-1 {
			end = len(series)
		}
		seg := series[start:end]
		if len(seg) == 0 {
			continue
		}
		first := seg[0].Price
		last := seg[len(seg)-1].Price
		if first <= 0 {
			continue
		}
		returns = append(returns, (last-first)/first)
	}

	if len(returns) < 3 {
		return 0
	}
	return returns[len(returns)-1] - returns[0]
}

// sustainability is the ratio of mean up-streak length to mean down-streak
// length over consecutive same-sign price deltas. Zero deltas end neither
// kind of streak and are ignored. A series without down-streaks divides by
// the implicit 1-record down-streak; one without up-streaks scores 0.
func (e *Extractor) sustainability(series contracts.TickSeries) float64 {
	if len(series) < minSustainabilityRecords {
		return e.cfg.NeutralSustainability
	}

	var upStreaks, downStreaks []float64
	current := 0

	for _, t := range series {
		switch {
		case t.PriceDelta > 0:
			if current >= 0 {
				current++
			} else {
				downStreaks = append(downStreaks, float64(-current))
				current = 1
			}
		case t.PriceDelta < 0:
			if current <= 0 {
				current--
			} else {
				upStreaks = append(upStreaks, float64(current))
				current = -1
			}
		}
	}
	if current > 0 {
		upStreaks = append(upStreaks, float64(current))
	} else if current < 0 {
		downStreaks = append(downStreaks, float64(-current))
	}

	avgUp := mean(upStreaks)
	avgDown := 1.0
	if len(downStreaks) > 0 {
		avgDown = mean(downStreaks)
	}
	if avgDown == 0 {
		return e.cfg.NeutralSustainability
	}
	return avgUp / avgDown
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
