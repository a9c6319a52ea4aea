// Package cache provides an in-memory TTL cache with tag-based invalidation.
//
// It backs the emission factor lookup path. Key features:
//   - Bounded TTL per entry (default 15 minutes), configurable via config file or
//     CARBONFOCUS_CACHE_TTL_SECONDS
//   - Bounded size; the entry closest to expiry is evicted first when full
//   - Explicit invalidation by tag (a category id) so corrected factors are
//     never served after the write that changed them
//   - SHA256-based keys for deterministic lookups
//
// Readers take a shared lock; writes and invalidation take the exclusive lock.
package cache
