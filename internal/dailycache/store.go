package dailycache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qlab/tickscan/internal/contracts"
	"github.com/qlab/tickscan/pkg/logger"
	"github.com/qlab/tickscan/pkg/redis"
)

// Store persists day-keyed per-symbol artifacts in Redis. Entries written
// under one day key are invisible under any other day key; the TTL clears
// them shortly after the day rolls over.
type Store struct {
	cache  *redis.Cache
	kind   string
	logger *logger.Logger
}

// NewStore creates a day-keyed store for one artifact kind, e.g.
// "instruments".
func NewStore(cache *redis.Cache, kind string, log *logger.Logger) *Store {
	return &Store{
		cache:  cache,
		kind:   kind,
		logger: log,
	}
}

// Get loads the full mapping for one day. A missing key or any Redis failure
// comes back as an empty mapping with ErrCacheUnavailable wrapped; callers
// treat both as a cache miss.
func (s *Store) Get(ctx context.Context, dayKey string) (map[string]json.RawMessage, error) {
	var entries map[string]json.RawMessage
	found, err := s.cache.Get(ctx, redis.DayKey(s.kind, dayKey), &entries)
	if err != nil {
		s.logger.WithError(err).Warn("Daily cache read failed, treating as miss")
		return map[string]json.RawMessage{}, fmt.Errorf("%w: %s", contracts.ErrCacheUnavailable, err)
	}
	if !found || entries == nil {
		return map[string]json.RawMessage{}, nil
	}
	return entries, nil
}

// Put merges entries into the day's mapping by key union; existing keys are
// overwritten, other keys stay. The mapping expires on its own after the
// session day.
func (s *Store) Put(ctx context.Context, dayKey string, entries map[string]json.RawMessage) error {
	if len(entries) == 0 {
		return nil
	}

	current, err := s.Get(ctx, dayKey)
	if err != nil {
		// Merge over an empty snapshot; losing stale keys beats failing
		// the batch.
		current = map[string]json.RawMessage{}
	}
	for k, v := range entries {
		current[k] = v
	}

	if err := s.cache.Set(ctx, redis.DayKey(s.kind, dayKey), current, redis.TTLDaily); err != nil {
		s.logger.WithError(err).Warn("Daily cache write failed")
		return fmt.Errorf("%w: %s", contracts.ErrCacheUnavailable, err)
	}
	return nil
}
