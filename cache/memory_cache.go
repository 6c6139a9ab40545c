package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	snap      SessionSnapshot
	expiresAt time.Time
}

// MemorySessionCache is a process-local SessionCache used by tests and by
// deployments running without redis. Entries honor their TTL on read.
type MemorySessionCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{entries: make(map[string]memoryEntry)}
}

func (m *MemorySessionCache) Get(_ context.Context, token string) (*SessionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[sessionKey(token)]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(m.entries, sessionKey(token))
		return nil, nil
	}
	snap := entry.snap
	return &snap, nil
}

func (m *MemorySessionCache) Set(_ context.Context, snap *SessionSnapshot, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sessionKey(snap.Token)] = memoryEntry{
		snap:      *snap,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

func (m *MemorySessionCache) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sessionKey(token))
	return nil
}
