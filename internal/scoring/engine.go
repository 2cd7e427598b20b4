package scoring

import (
	"context"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/logger"
)

// Engine turns one instrument's FeatureVector into a bounded score. Scoring
// is a pure function of the inputs and the selected preset; the engine keeps
// no per-instrument state.
type Engine struct {
	preset Preset
	logger *logger.Logger
}

// NewEngine creates a scoring engine bound to one model preset.
func NewEngine(preset Preset, log *logger.Logger) *Engine {
	return &Engine{preset: preset, logger: log}
}

// Version reports the model version the engine scores with.
func (e *Engine) Version() string {
	return e.preset.Version
}

// Score computes the composite score for one instrument. Every term is
// clipped independently before summing; the grand total is clipped to
// [-100, 100].
func (e *Engine) Score(ctx context.Context, code string, fv contracts.FeatureVector, totalVolume int64, tickCount int) float64 {
	p := e.preset

	var relativeNetBuy float64
	if totalVolume > 0 {
		relativeNetBuy = float64(fv.OrderFlow.NetBuyVolume) / float64(totalVolume)
	}

	liquidity := p.liquidityGate(totalVolume, tickCount)
	netBuy := clip(relativeNetBuy*p.NetBuyWeight, -p.NetBuyCap, p.NetBuyCap)
	pressure := p.pressureScore(fv.Microstructure.PressureRatio)
	largeTrade := clip((fv.OrderFlow.LargeBuyRatio-fv.OrderFlow.LargeSellRatio)*p.LargeTradeWeight, -p.LargeTradeCap, p.LargeTradeCap)
	momentum := p.momentumScore(fv.OrderFlow.MomentumRatio)
	closing := p.closingScore(fv.OrderFlow.ClosingRatio)
	acceleration := clip(fv.Momentum.Acceleration*p.AccelerationWeight, -p.AccelerationCap, p.AccelerationCap)
	sustainability := clip((fv.Momentum.Sustainability-1)*p.SustainabilityWeight, -p.SustainabilityCap, p.SustainabilityCap)
	asymmetry := clip(fv.Microstructure.ImpactAsymmetry*p.AsymmetryWeight, -p.AsymmetryCap, p.AsymmetryCap)
	volumeTrend := clip(fv.Microstructure.VolumeTrend*p.VolumeTrendWeight, -p.VolumeTrendCap, p.VolumeTrendCap)
	reversal := clip(fv.Microstructure.PriceReversal*p.ReversalWeight, -p.ReversalCap, p.ReversalCap)
	concentration := clip((fv.OrderFlow.BuyConcentration-p.ConcentrationBase)*p.ConcentrationWeight, -p.ConcentrationCap, p.ConcentrationCap)
	activeBuy := clip((fv.OrderFlow.ActiveBuyRatio-0.5)*p.ActiveBuyWeight, -p.ActiveBuyCap, p.ActiveBuyCap)
	washPenalty := clip(fv.WashTradeRatio*p.WashPenaltyWeight, 0, p.WashPenaltyCap)

	total := netBuy + pressure + largeTrade +
		momentum + closing +
		acceleration + sustainability +
		asymmetry + volumeTrend + reversal +
		concentration + activeBuy +
		liquidity -
		washPenalty

	score := clip(total, -100, 100)

	e.logger.WithFields(map[string]interface{}{
		"code":    code,
		"version": p.Version,
		"score":   score,
	}).Debug("Scored instrument")

	return score
}

// liquidityGate is a discrete step score, not a proportional term.
func (p Preset) liquidityGate(totalVolume int64, tickCount int) float64 {
	switch {
	case totalVolume < p.LowVolume:
		return p.LowVolumePenalty
	case totalVolume < p.ModerateVolume:
		return p.ModerateVolumePenalty
	case tickCount < p.MinTickCount:
		return p.LowTickPenalty
	case totalVolume > p.HighVolume:
		return p.HighVolumeBonus
	default:
		return 0
	}
}

// pressureScore is active only outside the neutral pressure band.
func (p Preset) pressureScore(ratio float64) float64 {
	if ratio > p.PressureUpper {
		return min((ratio-p.PressureUpper)*p.PressureWeight, p.PressureCap)
	}
	if ratio < p.PressureLower {
		return max((ratio-p.PressureLower)*p.PressureWeight, -p.PressureCap)
	}
	return 0
}

// momentumScore rewards afternoon-dominated net buying and penalizes a
// negative momentum ratio outright.
func (p Preset) momentumScore(ratio float64) float64 {
	if ratio > p.MomentumThreshold {
		return p.MomentumCap * min((ratio-p.MomentumThreshold)/p.MomentumBand, 1.0)
	}
	if ratio < 0 {
		return -p.MomentumCap
	}
	return 0
}

// closingScore is active only outside the neutral closing-ratio band.
func (p Preset) closingScore(ratio float64) float64 {
	if ratio > p.ClosingThreshold {
		return p.ClosingCap * min((ratio-p.ClosingThreshold)/p.ClosingBand, 1.0)
	}
	if ratio < -p.ClosingThreshold {
		return -p.ClosingCap * min((-ratio-p.ClosingThreshold)/p.ClosingBand, 1.0)
	}
	return 0
}

func clip(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
