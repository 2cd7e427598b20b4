package contracts

// OrderFlowMetrics holds directional trade statistics for one instrument,
// computed from the cleaned tick series.
type OrderFlowMetrics struct {
	NetBuyVolume   int64   // buy volume - sell volume
	ActiveBuyRatio float64 // buy / (buy + sell), 0.5 when no volume

	BuyImpact  float64 // mean signed impact of buy trades
	SellImpact float64

	AvgBuySize  float64
	AvgSellSize float64

	LargeBuyRatio  float64 // volume share of buys above the 80th volume percentile
	LargeSellRatio float64

	MorningNet    int64 // net volume before 11:30
	AfternoonNet  int64 // net volume from 13:00
	ClosingNet    int64 // net volume from 14:45
	MomentumRatio float64
	ClosingRatio  float64

	BuyRuns  int // longest same-side run under 5s adjacency
	SellRuns int

	BuyConcentration  float64 // Herfindahl index over 15-minute buckets
	SellConcentration float64

	BuyStrengthChange  float64 // second-half vs first-half mean volume change
	SellStrengthChange float64
}

// MicrostructureMetrics holds price-impact and liquidity estimators.
type MicrostructureMetrics struct {
	AvgAbsImpact    float64
	ImpactAsymmetry float64 // buy mean impact - sell mean impact
	KyleLambda      float64 // OLS slope of price delta on volume
	EffectiveSpread float64 // 2 * AvgAbsImpact
	VWAPVolatility  float64 // volume-weighted RMS deviation from session VWAP
	TradeIntensity  float64 // inverse mean inter-arrival time

	LargeImpact float64 // mean |impact| of top-quintile-volume trades
	PriceTrend  float64 // total session return
	VolumeTrend float64 // mean pct change of a 10-record rolling mean volume

	PressureRatio   float64 // buy mean |impact| / sell mean |impact|, 1.0 if no sell impact
	PriceElasticity float64 // mean |delta| / volume
	PriceReversal   float64 // negative lag-1 autocorrelation of price deltas

	LiquidityIndex    float64 // mean |price - running VWAP| / running VWAP
	AmihudIlliquidity float64 // mean over 1-minute buckets of |price change| / volume
}

// MomentumMetrics holds intraday return-acceleration features.
type MomentumMetrics struct {
	Acceleration   float64 // last-segment return minus first-segment return
	Sustainability float64 // mean up-streak length / mean down-streak length
}

// FeatureVector is the complete per-instrument feature set handed to the
// scoring engine. Built once per instrument per pass and never mutated.
type FeatureVector struct {
	OrderFlow      OrderFlowMetrics
	Microstructure MicrostructureMetrics
	Momentum       MomentumMetrics
	WashTradeRatio float64 // flagged volume / total volume, in [0,1]
}
