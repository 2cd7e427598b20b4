package dailycache

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDayIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	entries := map[string]json.RawMessage{
		"SH600000": json.RawMessage(`{"name":"浦发银行"}`),
		"SZ000001": json.RawMessage(`{"name":"平安银行"}`),
	}
	require.NoError(t, m.Put(ctx, "2026-08-24", entries))

	// Same day: all entries retrievable.
	got, err := m.Get(ctx, "2026-08-24")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.JSONEq(t, `{"name":"浦发银行"}`, string(got["SH600000"]))

	// Next day: empty regardless of what the previous day holds.
	next, err := m.Get(ctx, "2026-08-25")
	require.NoError(t, err)
	assert.Empty(t, next)
}

func TestPutMergesByKeyUnion(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "2026-08-24", map[string]json.RawMessage{
		"SH600000": json.RawMessage(`1`),
		"SZ000001": json.RawMessage(`1`),
	}))
	require.NoError(t, m.Put(ctx, "2026-08-24", map[string]json.RawMessage{
		"SZ000001": json.RawMessage(`2`), // overwrites
		"SH600123": json.RawMessage(`3`), // new key
	}))

	got, err := m.Get(ctx, "2026-08-24")
	require.NoError(t, err)

	assert.Len(t, got, 3)
	assert.Equal(t, "1", string(got["SH600000"]))
	assert.Equal(t, "2", string(got["SZ000001"]))
	assert.Equal(t, "3", string(got["SH600123"]))
}

func TestGetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "2026-08-24", map[string]json.RawMessage{
		"SH600000": json.RawMessage(`1`),
	}))

	got, _ := m.Get(ctx, "2026-08-24")
	got["SH600000"] = json.RawMessage(`99`)

	again, _ := m.Get(ctx, "2026-08-24")
	assert.Equal(t, "1", string(again["SH600000"]))
}
