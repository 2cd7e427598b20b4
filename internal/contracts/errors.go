package contracts

import "errors"

var (
	// ErrProviderUnavailable marks a fetch that failed or timed out at the
	// provider boundary. The instrument is excluded from the current pass and
	// not retried in-process.
	ErrProviderUnavailable = errors.New("tick provider unavailable")

	// ErrNoData marks a provider response that parsed successfully but
	// contained no usable trades.
	ErrNoData = errors.New("no tick data")

	// ErrCacheUnavailable marks a daily cache I/O failure. Callers treat it
	// as an empty cache and continue.
	ErrCacheUnavailable = errors.New("daily cache unavailable")
)
