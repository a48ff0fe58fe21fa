package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value    []byte
	expireAt time.Time
}

// MemoryCache 进程内 TTL 缓存，未配置 Redis 时使用
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get 获取缓存值，过期条目惰性删除
func (mc *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	e, ok := mc.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expireAt.IsZero() && !mc.now().Before(e.expireAt) {
		delete(mc.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set 设置缓存值，expiration <= 0 表示不过期
func (mc *MemoryCache) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries[key] = mc.entry(value, expiration)
	return nil
}

// SetNX 仅当 key 不存在（或已过期）时设置值
func (mc *MemoryCache) SetNX(_ context.Context, key string, value []byte, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if e, ok := mc.entries[key]; ok && (e.expireAt.IsZero() || mc.now().Before(e.expireAt)) {
		return false, nil
	}
	mc.entries[key] = mc.entry(value, expiration)
	return true, nil
}

// Delete 删除缓存
func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, k := range keys {
		delete(mc.entries, k)
	}
	return nil
}

func (mc *MemoryCache) entry(value []byte, expiration time.Duration) memoryEntry {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if expiration > 0 {
		e.expireAt = mc.now().Add(expiration)
	}
	return e
}
