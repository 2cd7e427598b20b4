package contracts

import (
	"context"
	"encoding/json"
)

// TickProvider fetches the current session's trade-by-trade data for one
// instrument. Implementations must return records in timestamp order with
// positive volume only. Multiple providers may be tried in fixed priority
// order; the first success wins.
type TickProvider interface {
	Name() string
	FetchTicks(ctx context.Context, code string) (TickSeries, error)
}

// UniverseProvider supplies the day's candidate instruments.
type UniverseProvider interface {
	FetchCandidates(ctx context.Context) ([]Candidate, error)
}

// Candidate is one raw entry from a universe provider, before exclusion
// filtering.
type Candidate struct {
	Code      string
	Name      string
	Price     float64
	ChangePct float64
}

// NotificationSink delivers the final ranking to subscribers. Implementations
// must no-op (log only) on an empty ranked list.
type NotificationSink interface {
	Send(ctx context.Context, snapshot *RankingSnapshot) error
}

// DailyCacheStore persists slow-changing per-symbol artifacts keyed by
// calendar day (YYYY-MM-DD). A read under a different day key returns an
// empty mapping. Any I/O failure is reported as an error but callers must
// treat it as a cache miss, never as fatal.
type DailyCacheStore interface {
	Get(ctx context.Context, dayKey string) (map[string]json.RawMessage, error)
	Put(ctx context.Context, dayKey string, entries map[string]json.RawMessage) error
}
