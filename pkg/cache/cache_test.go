package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedQueryMissThenHit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	calls := 0
	producer := func() ([]uint, error) {
		calls++
		return []uint{3, 1, 2}, nil
	}

	got, err := CachedQuery(ctx, store, "k", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1, 2}, got)
	assert.Equal(t, 1, calls)

	// 第二次读取命中缓存，producer 不再执行
	got, err = CachedQuery(ctx, store, "k", time.Minute, producer)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 1, 2}, got)
	assert.Equal(t, 1, calls)
}

func TestCachedQueryProducerError(t *testing.T) {
	store := NewMemoryStore()

	wantErr := errors.New("db down")
	_, err := CachedQuery(context.Background(), store, "k", time.Minute, func() (int, error) {
		return 0, wantErr
	})
	assert.ErrorIs(t, err, wantErr)
	// 失败结果不得入缓存
	assert.Equal(t, 0, store.Len())
}

func TestCachedQueryCorruptEntryEvicted(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	store.Set(ctx, "k", "not-json{", time.Minute)

	got, err := CachedQuery(ctx, store, "k", time.Minute, func() ([]uint, error) {
		return []uint{7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []uint{7}, got)

	// 脏数据被剔除并回填为合法值
	raw, ok := store.Get(ctx, "k")
	require.True(t, ok)
	assert.JSONEq(t, "[7]", raw)
}

// failingStore 模拟缓存层整体不可用
type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (string, bool) { return "", false }

func (failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	return false
}

func (failingStore) Delete(ctx context.Context, keys ...string) bool        { return false }
func (failingStore) DeleteByPattern(ctx context.Context, prefix string) int { return 0 }
func (failingStore) Ping(ctx context.Context) error                         { return errors.New("unreachable") }
func (failingStore) Close() error                                           { return nil }

func TestCachedQueryFailOpen(t *testing.T) {
	calls := 0
	producer := func() (string, error) {
		calls++
		return "value", nil
	}

	// 缓存不可用时每次都走 producer，但不报错
	for i := 0; i < 3; i++ {
		got, err := CachedQuery(context.Background(), failingStore{}, "k", time.Minute, producer)
		require.NoError(t, err)
		assert.Equal(t, "value", got)
	}
	assert.Equal(t, 3, calls)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, "k", "v", 10*time.Millisecond)
	_, ok := store.Get(ctx, "k")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryStoreDeleteByPattern(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Set(ctx, QuestionKey(1), "a", 0)
	store.Set(ctx, QuestionKey(2), "b", 0)
	store.Set(ctx, UserPerfKey(1), "c", 0)

	deleted := store.DeleteByPattern(ctx, PrefixQuestion)
	assert.Equal(t, 2, deleted)
	assert.Equal(t, 1, store.Len())
}
