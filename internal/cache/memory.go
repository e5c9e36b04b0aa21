package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process TTL cache for computed responses (dashboard
// aggregates, directory listings). Entries are evicted lazily on read.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	hits    int64
	misses  int64
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
	}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.misses++
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		m.misses++
		return nil, false
	}
	m.hits++
	return e.value, true
}

func (m *Memory) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(m.ttl)}
}

func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *Memory) Stats(_ context.Context) (TierStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var size int64
	for k, e := range m.entries {
		size += int64(len(k) + len(e.value))
	}
	return TierStats{
		SizeBytes: size,
		ItemCount: int64(len(m.entries)),
		Hits:      m.hits,
		Misses:    m.misses,
	}, nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	return nil
}
