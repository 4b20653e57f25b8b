package gsuite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePages 用预置页面构造 pageFunc，并记录每次请求的游标与页大小
type fakePages struct {
	pages      map[string]struct {
		items []string
		next  string
	}
	gotTokens []string
	gotSizes  []int64
}

func (f *fakePages) fetch(_ context.Context, token string, size int64) ([]string, string, error) {
	f.gotTokens = append(f.gotTokens, token)
	f.gotSizes = append(f.gotSizes, size)
	p, ok := f.pages[token]
	if !ok {
		return nil, "", errors.New("unknown page token")
	}
	return p.items, p.next, nil
}

func newFakePages(pages map[string]struct {
	items []string
	next  string
}) *fakePages {
	return &fakePages{pages: pages}
}

func TestDrainPages(t *testing.T) {
	ctx := context.Background()

	t.Run("游标耗尽时取完整序列", func(t *testing.T) {
		f := newFakePages(map[string]struct {
			items []string
			next  string
		}{
			"":   {items: []string{"a", "b"}, next: "p2"},
			"p2": {items: []string{"c"}, next: "p3"},
			"p3": {items: []string{"d", "e"}, next: ""},
		})

		items, err := drainPages(ctx, 2, 0, f.fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, items)
		// 游标必须原样透传
		assert.Equal(t, []string{"", "p2", "p3"}, f.gotTokens)
	})

	t.Run("达到上限即停止且不超额请求", func(t *testing.T) {
		f := newFakePages(map[string]struct {
			items []string
			next  string
		}{
			"":   {items: []string{"a", "b", "c"}, next: "p2"},
			"p2": {items: []string{"d", "e", "f"}, next: "p3"},
		})

		items, err := drainPages(ctx, 3, 5, f.fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, items)
		// 第二页只应请求剩余预算 min(3, 5-3)=2
		assert.Equal(t, []int64{3, 2}, f.gotSizes)
		// 不应再请求第三页
		assert.Len(t, f.gotTokens, 2)
	})

	t.Run("上限恰好等于总量", func(t *testing.T) {
		f := newFakePages(map[string]struct {
			items []string
			next  string
		}{
			"": {items: []string{"a", "b"}, next: ""},
		})

		items, err := drainPages(ctx, 10, 2, f.fetch)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, items)
	})

	t.Run("空结果", func(t *testing.T) {
		f := newFakePages(map[string]struct {
			items []string
			next  string
		}{
			"": {items: nil, next: ""},
		})

		items, err := drainPages(ctx, 10, 0, f.fetch)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("请求错误直接上抛", func(t *testing.T) {
		f := newFakePages(map[string]struct {
			items []string
			next  string
		}{
			"": {items: []string{"a"}, next: "missing"},
		})

		_, err := drainPages(ctx, 10, 0, f.fetch)
		assert.Error(t, err)
	})
}
