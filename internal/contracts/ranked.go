package contracts

import "time"

// RankedStock is one entry of the final ranking.
type RankedStock struct {
	Rank         int     `json:"rank"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Score        float64 `json:"score"` // composite score in [-100,100]
	ModelVersion string  `json:"model_version"`

	CurrentPrice   float64 `json:"current_price"`
	IntradayChange float64 `json:"intraday_change"` // percent, first tick to last

	TotalVolume int64 `json:"total_volume"`
	TickCount   int   `json:"tick_count"`

	Features FeatureVector `json:"features"`
}

// RankingSnapshot is one completed batch pass.
type RankingSnapshot struct {
	Date         time.Time     `json:"date"`
	ModelVersion string        `json:"model_version"`
	Stocks       []RankedStock `json:"stocks"`
	Universe     int           `json:"universe"` // candidates attempted
	Failed       int           `json:"failed"`   // instruments dropped this pass
	CreatedAt    time.Time     `json:"created_at"`
}
