package cache

import "time"

// Entry is a single cached value with TTL metadata.
type Entry[V any] struct {
	// Key is the cache key (SHA256 of the lookup parameters).
	Key string
	// Tag groups entries for bulk invalidation.
	Tag string
	// Value is the cached value.
	Value V
	// CreatedAt is the timestamp when the entry was created.
	CreatedAt time.Time
	// ExpiresAt is the timestamp when the entry expires.
	ExpiresAt time.Time
}

// NewEntry creates an entry created at now and expiring after ttl.
func NewEntry[V any](key, tag string, value V, ttl time.Duration, now time.Time) Entry[V] {
	return Entry[V]{
		Key:       key,
		Tag:       tag,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpiredAt reports whether the entry has expired at now.
func (e Entry[V]) IsExpiredAt(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Age returns the duration since the entry was created.
func (e Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// TimeUntilExpiration returns the duration until the entry expires, or 0.
func (e Entry[V]) TimeUntilExpiration(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
