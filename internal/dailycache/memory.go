package dailycache

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory is an in-process DailyCacheStore. It backs tests and deployments
// that run without Redis.
type Memory struct {
	mu   sync.RWMutex
	days map[string]map[string]json.RawMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{days: make(map[string]map[string]json.RawMessage)}
}

// Get returns a copy of the day's mapping, empty when the day is unknown.
func (m *Memory) Get(ctx context.Context, dayKey string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]json.RawMessage, len(m.days[dayKey]))
	for k, v := range m.days[dayKey] {
		out[k] = v
	}
	return out, nil
}

// Put merges entries into the day's mapping by key union.
func (m *Memory) Put(ctx context.Context, dayKey string, entries map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	day, ok := m.days[dayKey]
	if !ok {
		day = make(map[string]json.RawMessage, len(entries))
		m.days[dayKey] = day
	}
	for k, v := range entries {
		day[k] = v
	}
	return nil
}
