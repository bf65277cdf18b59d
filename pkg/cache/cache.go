package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store 缓存存取契约。所有实现必须 fail-open：
// 底层存储不可用时 Get 按未命中处理，Set/Delete 返回 false，绝不向上抛错。
// ttl <= 0 表示不过期（慎用，默认路径必须给有界TTL）。
type Store interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration) bool
	Delete(ctx context.Context, keys ...string) bool
	// DeleteByPattern 删除指定前缀下的全部键，返回删除数量
	DeleteByPattern(ctx context.Context, prefix string) int
	Ping(ctx context.Context) error
	Close() error
}

// CachedQuery 是生产代码读取可缓存数据的唯一正道：
// get -> (miss) -> producer() -> set -> return。
// 缓存不可用与未命中同样走 producer，结果尽力回填。
func CachedQuery[T any](ctx context.Context, store Store, key string, ttl time.Duration, producer func() (T, error)) (T, error) {
	var value T

	if raw, ok := store.Get(ctx, key); ok {
		if err := json.Unmarshal([]byte(raw), &value); err == nil {
			return value, nil
		}
		// 反序列化失败按脏数据处理，剔除后走 producer
		store.Delete(ctx, key)
	}

	value, err := producer()
	if err != nil {
		return value, err
	}

	if raw, err := json.Marshal(value); err == nil {
		store.Set(ctx, key, string(raw), ttl)
	}

	return value, nil
}
