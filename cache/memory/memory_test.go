package memory

import (
	"context"
	"testing"
	"time"

	"github.com/anoixa/watchbox/cache/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string  `json:"id"`
	Price float64 `json:"price"`
}

func newTestMemory(t *testing.T) *Memory {
	m, err := NewMemory(Config{NumCounters: 1000, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestMemory_SetGet(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	items := []item{{ID: "a", Price: 10}, {ID: "b", Price: 5}}
	require.NoError(t, m.Set(ctx, "list", items, time.Minute))

	// 修改原切片不影响缓存
	items[0].Price = 99

	var got []item
	require.NoError(t, m.Get(ctx, "list", &got))
	assert.Equal(t, 10.0, got[0].Price)

	exists, err := m.Exists(ctx, "list")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMemory_Miss(t *testing.T) {
	m := newTestMemory(t)
	ctx := context.Background()

	var got []item
	err := m.Get(ctx, "missing", &got)
	assert.ErrorIs(t, err, types.ErrCacheMiss)

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	require.NoError(t, m.Delete(ctx, "k"))

	var s string
	assert.ErrorIs(t, m.Get(ctx, "k", &s), types.ErrCacheMiss)
	assert.NoError(t, m.Health(ctx))
	assert.Equal(t, "memory", m.Name())
}
