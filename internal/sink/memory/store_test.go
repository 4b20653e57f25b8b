package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmailscraper/backend/internal/domain"
)

func TestStore_WriteAndRecords(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.EnsureSchema(ctx))
	assert.True(t, store.SchemaReady())

	n, err := store.Write(ctx, []domain.EmailRecord{
		{MessageID: "m1", UserEmail: "a@example.com"},
		{MessageID: "m2", UserEmail: "a@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, store.Records(), 2)
}

func TestStore_FailureInjection(t *testing.T) {
	ctx := context.Background()

	t.Run("模式创建失败", func(t *testing.T) {
		store := NewStore()
		store.FailEnsureSchema(errors.New("sink unreachable"))
		assert.Error(t, store.EnsureSchema(ctx))
		assert.False(t, store.SchemaReady())
	})

	t.Run("写入错误上抛", func(t *testing.T) {
		store := NewStore()
		store.FailWrite(errors.New("write failed"))
		_, err := store.Write(ctx, []domain.EmailRecord{{MessageID: "m"}})
		assert.Error(t, err)
	})

	t.Run("拒绝模式返回零行不报错", func(t *testing.T) {
		store := NewStore()
		store.RejectWrites(true)
		n, err := store.Write(ctx, []domain.EmailRecord{{MessageID: "m"}})
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, store.Records())
	})
}
