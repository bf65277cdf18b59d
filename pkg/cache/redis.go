package cache

import (
	"context"
	"time"

	"exam_prep_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// RedisStore 基于 go-redis 的 Store 实现。构造于进程启动、注入到各服务，
// 进程退出时统一 Close（不再是包级单例）。
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		// fail-open：存储故障等同未命中
		logger.Log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return val, true
}

func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0 // redis 中 0 即不过期
	}
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		logger.Log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) bool {
	if len(keys) == 0 {
		return true
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		logger.Log.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return false
	}
	return true
}

func (s *RedisStore) DeleteByPattern(ctx context.Context, prefix string) int {
	deleted := 0
	iter := s.client.Scan(ctx, 0, prefix+"*", 200).Iterator()

	batch := make([]string, 0, 200)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 200 {
			if s.Delete(ctx, batch...) {
				deleted += len(batch)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		logger.Log.Warn("cache scan failed", zap.String("prefix", prefix), zap.Error(err))
	}
	if len(batch) > 0 && s.Delete(ctx, batch...) {
		deleted += len(batch)
	}
	return deleted
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
