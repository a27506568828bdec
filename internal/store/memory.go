package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
)

type memoryItem struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is an in-process Store. Expired keys are dropped lazily on
// access and by Sweep.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	clock quartz.Clock
}

func NewMemoryStore(clock quartz.Clock) *MemoryStore {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &MemoryStore{items: make(map[string]memoryItem), clock: clock}
}

func (m *MemoryStore) expired(it memoryItem, now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	it, ok := m.items[key]
	m.mu.RUnlock()

	if !ok || m.expired(it, m.clock.Now()) {
		return "", ErrMiss
	}
	return it.value, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	it := memoryItem{value: value}
	if ttl > 0 {
		it.expiresAt = m.clock.Now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = it
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			delete(m.items, k)
		}
	}
	return nil
}

// Sweep removes expired keys and returns how many were dropped.
func (m *MemoryStore) Sweep() int {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, it := range m.items {
		if m.expired(it, now) {
			delete(m.items, k)
			removed++
		}
	}
	return removed
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
