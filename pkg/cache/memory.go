// Package cache provides the response cache used around generation calls:
// a TTL-bound in-memory tier, an optional durable tier and the Memoize
// decorator that applies a per-operation caching policy.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/versewright/versewright/pkg/models"
)

// DefaultTTL is how long an in-memory entry stays valid.
const DefaultTTL = 24 * time.Hour

type entry struct {
	value    any
	storedAt time.Time
}

// Memory is a process-lifetime key/value store with time-based expiry.
// It has no size bound.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// MemoryOption customizes a Memory cache.
type MemoryOption func(*Memory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an in-memory cache. A non-positive ttl selects DefaultTTL.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Memory{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured time-to-live.
func (m *Memory) TTL() time.Duration { return m.ttl }

// Set stores value under key, replacing any previous entry.
func (m *Memory) Set(key string, value any) {
	m.mu.Lock()
	m.entries[key] = entry{value: value, storedAt: m.now()}
	m.mu.Unlock()
}

// Get returns the value stored under key. Entries older than the TTL are
// evicted and reported as missing.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	if m.now().Sub(e.storedAt) >= m.ttl {
		delete(m.entries, key)
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return e.value, true
}

// Delete removes key if present.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

// Clear evicts every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones that
// have not been read since they expired.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Stats reports entry count and lookup counters.
func (m *Memory) Stats() (models.CacheStats, error) {
	return models.CacheStats{
		Tier:    TierMemory,
		Entries: int64(m.Len()),
		Hits:    m.hits.Load(),
		Misses:  m.misses.Load(),
	}, nil
}
