package utils

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	defaultCacheTTL = time.Hour
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// memStore is the single-instance fallback used when Redis is not available.
type memStore struct {
	mu    sync.Mutex
	items map[string]memEntry
}

var memCache = &memStore{items: map[string]memEntry{}}

func (m *memStore) get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(m.items, key)
		return nil, false
	}
	return e.value, true
}

func (m *memStore) set(key string, b []byte, ttl time.Duration) {
	m.mu.Lock()
	m.items[key] = memEntry{value: b, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
}

// setNX stores the value only when the key is absent or expired.
func (m *memStore) setNX(key string, b []byte, ttl time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[key]; ok && time.Now().Before(e.expiresAt) {
		return false
	}
	m.items[key] = memEntry{value: b, expiresAt: time.Now().Add(ttl)}
	return true
}

func (m *memStore) take(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok {
		return nil, false
	}
	delete(m.items, key)
	if time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (m *memStore) incr(key string, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	n := 0
	if ok && time.Now().Before(e.expiresAt) {
		n = atoiSafe(string(e.value))
	} else {
		e.expiresAt = time.Now().Add(ttl)
	}
	n++
	e.value = []byte(itoa(n))
	m.items[key] = e
	return n
}

func (m *memStore) deletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
			n++
		}
	}
	return n
}

// CacheGetBytes returns cached bytes for a key, from Redis when configured.
func CacheGetBytes(key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return memCache.get(key)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores bytes; a non-positive ttl means one hour.
func CacheSetBytes(key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	rc := GetRedis()
	if rc == nil {
		memCache.set(key, b, ttl)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidateByPrefix deletes keys that match the given prefix and returns how many were removed.
func InvalidateByPrefix(prefix string) int {
	// the memory store may hold entries written while Redis was down
	removed := memCache.deletePrefix(prefix)
	rc := GetRedis()
	if rc == nil {
		return removed
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var cursor uint64
	for i := 0; i < 10; i++ { // limit rounds to avoid long loops
		keys, cur, err := rc.Scan(ctx, cursor, prefix+"*", 1000).Result()
		if err != nil {
			Sugar.Warnf("cache scan failed prefix=%s err=%v", prefix, err)
			break
		}
		cursor = cur
		if len(keys) > 0 {
			pipe := rc.Pipeline()
			for _, k := range keys {
				pipe.Del(ctx, k)
			}
			if _, err := pipe.Exec(ctx); err == nil {
				removed += len(keys)
			}
		}
		if cursor == 0 {
			break
		}
	}
	return removed
}
