package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore 进程内 Store 实现，供测试替身与本地开发使用。
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
}

type memoryItem struct {
	value     string
	expiresAt time.Time // 零值表示不过期
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem)}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, bool) {
	s.mu.RLock()
	item, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return "", false
	}
	if !item.expiresAt.IsZero() && time.Now().After(item.expiresAt) {
		s.mu.Lock()
		delete(s.items, key)
		s.mu.Unlock()
		return "", false
	}
	return item.value, true
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) bool {
	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.items[key] = item
	s.mu.Unlock()
	return true
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) bool {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.items, key)
	}
	s.mu.Unlock()
	return true
}

func (s *MemoryStore) DeleteByPattern(ctx context.Context, prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
			deleted++
		}
	}
	return deleted
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// Len 返回当前未过期淘汰前的条目数（测试用）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
