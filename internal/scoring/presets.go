package scoring

import (
	"fmt"
	"sort"
)

// Preset is one model version's full weight and threshold table. Changing
// any value defines a new version; historical presets are kept verbatim so
// past runs stay reproducible.
type Preset struct {
	Version string

	// Liquidity gate (lots and tick counts).
	LowVolume             int64
	ModerateVolume        int64
	HighVolume            int64
	MinTickCount          int
	LowVolumePenalty      float64
	ModerateVolumePenalty float64
	LowTickPenalty        float64
	HighVolumeBonus       float64

	// Relative net buy.
	NetBuyWeight float64
	NetBuyCap    float64

	// Pressure ratio band.
	PressureUpper  float64
	PressureLower  float64
	PressureWeight float64
	PressureCap    float64

	// Large-order imbalance.
	LargeTradeWeight float64
	LargeTradeCap    float64

	// Afternoon momentum.
	MomentumThreshold float64
	MomentumBand      float64
	MomentumCap       float64

	// Closing window.
	ClosingThreshold float64
	ClosingBand      float64
	ClosingCap       float64

	// Intraday momentum features.
	AccelerationWeight   float64
	AccelerationCap      float64
	SustainabilityWeight float64
	SustainabilityCap    float64

	// Microstructure terms.
	AsymmetryWeight   float64
	AsymmetryCap      float64
	VolumeTrendWeight float64
	VolumeTrendCap    float64
	ReversalWeight    float64
	ReversalCap       float64

	// Order-flow terms.
	ConcentrationBase   float64
	ConcentrationWeight float64
	ConcentrationCap    float64
	ActiveBuyWeight     float64
	ActiveBuyCap        float64

	// Wash-trade penalty, always subtracted.
	WashPenaltyWeight float64
	WashPenaltyCap    float64
}

// DefaultVersion is the model version production scans run with.
const DefaultVersion = "v8.4-intraday"

// v84Intraday is the current production table. Pure tick inputs, no index
// dependence; momentum acceleration and sustainability terms added over v8.0.
var v84Intraday = Preset{
	Version: "v8.4-intraday",

	LowVolume:             100_000,
	ModerateVolume:        300_000,
	HighVolume:            1_000_000,
	MinTickCount:          500,
	LowVolumePenalty:      -20,
	ModerateVolumePenalty: -10,
	LowTickPenalty:        -5,
	HighVolumeBonus:       5,

	NetBuyWeight: 175,
	NetBuyCap:    35,

	PressureUpper:  1.2,
	PressureLower:  0.8,
	PressureWeight: 20,
	PressureCap:    20,

	LargeTradeWeight: 40,
	LargeTradeCap:    20,

	MomentumThreshold: 0.6,
	MomentumBand:      0.4,
	MomentumCap:       15,

	ClosingThreshold: 0.2,
	ClosingBand:      0.3,
	ClosingCap:       20,

	AccelerationWeight:   200,
	AccelerationCap:      10,
	SustainabilityWeight: 10,
	SustainabilityCap:    10,

	AsymmetryWeight:   200,
	AsymmetryCap:      10,
	VolumeTrendWeight: 100,
	VolumeTrendCap:    10,
	ReversalWeight:    20,
	ReversalCap:       10,

	ConcentrationBase:   0.2,
	ConcentrationWeight: 45,
	ConcentrationCap:    15,

	ActiveBuyWeight: 60,
	ActiveBuyCap:    15,

	WashPenaltyWeight: 35,
	WashPenaltyCap:    10,
}

// v80 predates the intraday momentum terms; their weights are zeroed so the
// formula reduces to the older twelve-term sum.
var v80 = func() Preset {
	p := v84Intraday
	p.Version = "v8.0"
	p.AccelerationWeight = 0
	p.AccelerationCap = 0
	p.SustainabilityWeight = 0
	p.SustainabilityCap = 0
	return p
}()

// v70 predates the liquidity gate and weighted the wash penalty higher.
var v70 = func() Preset {
	p := v80
	p.Version = "v7.0"
	p.LowVolumePenalty = 0
	p.ModerateVolumePenalty = 0
	p.LowTickPenalty = 0
	p.HighVolumeBonus = 0
	p.WashPenaltyWeight = 50
	p.WashPenaltyCap = 15
	return p
}()

var presets = map[string]Preset{
	v84Intraday.Version: v84Intraday,
	v80.Version:         v80,
	v70.Version:         v70,
}

// PresetFor looks up the weight table of one model version.
func PresetFor(version string) (Preset, error) {
	p, ok := presets[version]
	if !ok {
		return Preset{}, fmt.Errorf("unknown model version %q", version)
	}
	return p, nil
}

// Versions lists the registered model versions.
func Versions() []string {
	out := make([]string, 0, len(presets))
	for v := range presets {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
