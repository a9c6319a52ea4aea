package cache

import (
	"errors"
	"sync"
	"time"
)

// Common cache errors.
var (
	ErrCacheNotFound   = errors.New("cache entry not found")
	ErrCacheExpired    = errors.New("cache entry expired")
	ErrInvalidCacheKey = errors.New("cache key cannot be empty")
	ErrCacheDisabled   = errors.New("cache is disabled")
)

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Invalidations uint64
	Entries       int
}

// MemoryStore is a bounded in-memory TTL cache. Safe for concurrent use.
type MemoryStore[V any] struct {
	enabled    bool
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.RWMutex
	entries map[string]Entry[V]
	byTag   map[string]map[string]struct{}
	stats   Stats
}

// Option customizes a MemoryStore.
type Option[V any] func(*MemoryStore[V])

// WithClock overrides the time source. Intended for tests.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(s *MemoryStore[V]) { s.now = now }
}

// NewMemoryStore creates a cache. A ttl <= 0 or enabled=false yields a store
// that never retains entries. maxEntries <= 0 means unbounded.
func NewMemoryStore[V any](enabled bool, ttl time.Duration, maxEntries int, opts ...Option[V]) *MemoryStore[V] {
	s := &MemoryStore[V]{
		enabled:    enabled && ttl > 0,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]Entry[V]),
		byTag:      make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves a value by key.
// Returns ErrCacheNotFound if absent and ErrCacheExpired if stale.
func (s *MemoryStore[V]) Get(key string) (V, error) {
	var zero V
	if !s.enabled {
		return zero, ErrCacheDisabled
	}
	if key == "" {
		return zero, ErrInvalidCacheKey
	}

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.count(func(st *Stats) { st.Misses++ })
		return zero, ErrCacheNotFound
	}
	if entry.IsExpiredAt(s.now()) {
		s.mu.Lock()
		if current, still := s.entries[key]; still && current.ExpiresAt.Equal(entry.ExpiresAt) {
			s.removeLocked(key)
		}
		s.stats.Misses++
		s.mu.Unlock()
		return zero, ErrCacheExpired
	}

	s.count(func(st *Stats) { st.Hits++ })
	return entry.Value, nil
}

// Set stores value under key, grouped under tag. Existing entries are replaced.
func (s *MemoryStore[V]) Set(key, tag string, value V) error {
	if !s.enabled {
		return ErrCacheDisabled
	}
	if key == "" {
		return ErrInvalidCacheKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; exists {
		s.removeLocked(key)
	}
	if s.maxEntries > 0 && len(s.entries) >= s.maxEntries {
		s.evictLocked()
	}

	s.entries[key] = NewEntry(key, tag, value, s.ttl, s.now())
	keys, ok := s.byTag[tag]
	if !ok {
		keys = make(map[string]struct{})
		s.byTag[tag] = keys
	}
	keys[key] = struct{}{}
	return nil
}

// Delete removes a single entry. Deleting a missing key is a no-op.
func (s *MemoryStore[V]) Delete(key string) error {
	if !s.enabled {
		return ErrCacheDisabled
	}
	if key == "" {
		return ErrInvalidCacheKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
	return nil
}

// InvalidateTag removes every entry stored under tag and returns how many were dropped.
func (s *MemoryStore[V]) InvalidateTag(tag string) int {
	if !s.enabled {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.byTag[tag]
	for key := range keys {
		delete(s.entries, key)
	}
	delete(s.byTag, tag)
	s.stats.Invalidations++
	return len(keys)
}

// Clear removes all entries.
func (s *MemoryStore[V]) Clear() {
	if !s.enabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry[V])
	s.byTag = make(map[string]map[string]struct{})
	s.stats.Invalidations++
}

// CleanupExpired removes all expired entries.
func (s *MemoryStore[V]) CleanupExpired() int {
	if !s.enabled {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, entry := range s.entries {
		if entry.IsExpiredAt(now) {
			s.removeLocked(key)
			removed++
		}
	}
	return removed
}

// Count returns the number of entries, including expired ones not yet collected.
func (s *MemoryStore[V]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of the cache counters.
func (s *MemoryStore[V]) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.Entries = len(s.entries)
	return st
}

// IsEnabled returns true if caching is enabled.
func (s *MemoryStore[V]) IsEnabled() bool {
	return s.enabled
}

// TTL returns the entry time-to-live.
func (s *MemoryStore[V]) TTL() time.Duration {
	return s.ttl
}

func (s *MemoryStore[V]) count(fn func(*Stats)) {
	s.mu.Lock()
	fn(&s.stats)
	s.mu.Unlock()
}

// removeLocked deletes key from both indexes. Must be called with mu held.
func (s *MemoryStore[V]) removeLocked(key string) {
	entry, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	if keys, ok := s.byTag[entry.Tag]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(s.byTag, entry.Tag)
		}
	}
}

// evictLocked drops the entry closest to expiry. Must be called with mu held.
func (s *MemoryStore[V]) evictLocked() {
	var victim string
	var soonest time.Time
	for key, entry := range s.entries {
		if victim == "" || entry.ExpiresAt.Before(soonest) {
			victim = key
			soonest = entry.ExpiresAt
		}
	}
	if victim != "" {
		s.removeLocked(victim)
		s.stats.Evictions++
	}
}
