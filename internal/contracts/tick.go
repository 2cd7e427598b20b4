package contracts

import "time"

// Side is the initiating side of an executed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// TickRecord is one executed trade as reported by a tick provider.
// PriceDelta is the signed change versus the previous trade; providers that
// do not report it directly derive it by differencing consecutive prices.
type TickRecord struct {
	Time       time.Time
	Price      float64
	PriceDelta float64
	Volume     int64 // lots, always > 0 after provider normalization
	Side       Side
}

// Impact returns the per-unit price impact of the trade (signed price delta
// divided by volume).
func (t TickRecord) Impact() float64 {
	if t.Volume == 0 {
		return 0
	}
	return t.PriceDelta / float64(t.Volume)
}

// TickSeries is the ordered trade sequence of one instrument for one session.
// It is immutable once fetched; the analysis task that fetched it is its only
// owner for the task's lifetime.
type TickSeries []TickRecord

// TotalVolume sums the volume of all records.
func (s TickSeries) TotalVolume() int64 {
	var total int64
	for _, t := range s {
		total += t.Volume
	}
	return total
}

// SideVolume sums the volume of records on one side.
func (s TickSeries) SideVolume(side Side) int64 {
	var total int64
	for _, t := range s {
		if t.Side == side {
			total += t.Volume
		}
	}
	return total
}

// Gap returns the inter-arrival time before record i. The first record has a
// zero gap.
func (s TickSeries) Gap(i int) time.Duration {
	if i <= 0 || i >= len(s) {
		return 0
	}
	return s[i].Time.Sub(s[i-1].Time)
}

// Instrument identifies one candidate from the daily universe.
type Instrument struct {
	Code string `json:"code"` // e.g. "sh600000"
	Name string `json:"name"`
}
