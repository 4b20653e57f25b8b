package watermark

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterQuery(t *testing.T) {
	tests := []struct {
		name         string
		base         string
		internalDate int64
		want         string
	}{
		{"无水位线保持原查询", "is:important", 0, "is:important"},
		{"无水位线空查询", "", 0, ""},
		{"毫秒向下取整到秒", "", 1736851800123, "after:1736851800"},
		{"追加到已有查询", "from:boss", 1736851800000, "from:boss after:1736851800"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AfterQuery(tt.base, tt.internalDate))
		})
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("未知用户返回零", func(t *testing.T) {
		mark, err := store.Get(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Zero(t, mark)
	})

	t.Run("水位线只前进不后退", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "a@example.com", 1000))
		require.NoError(t, store.Set(ctx, "a@example.com", 500))

		mark, err := store.Get(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), mark)

		require.NoError(t, store.Set(ctx, "a@example.com", 2000))
		mark, _ = store.Get(ctx, "a@example.com")
		assert.Equal(t, int64(2000), mark)
	})

	t.Run("用户之间互不影响", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "b@example.com", 42))
		mark, _ := store.Get(ctx, "a@example.com")
		assert.Equal(t, int64(2000), mark)
	})
}
