package revocation

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Checker for single-instance deployments and
// tests. Expired entries are swept opportunistically on writes.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]time.Time // token id -> expiry of the entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]time.Time)}
}

func (m *Memory) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	if tokenID == "" || ttl <= 0 {
		return nil
	}

	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, expiry := range m.entries {
		if expiry.Before(now) {
			delete(m.entries, id)
		}
	}
	m.entries[tokenID] = now.Add(ttl)
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.RLock()
	expiry, ok := m.entries[tokenID]
	m.mu.RUnlock()

	return ok && expiry.After(time.Now()), nil
}
