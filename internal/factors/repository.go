// Package factors selects the emission factor that applies to an activity.
package factors

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/engine/cache"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/metrics"
	"github.com/rshade/carbonfocus/internal/store"
)

// Finder resolves the best factor for a lookup. Absence is (nil, nil).
type Finder interface {
	FindBestMatch(ctx context.Context, categoryID, unit, country string, date time.Time) (*emission.Factor, error)
	FindSpendBasedFactor(ctx context.Context, categoryID, currency, country string, date time.Time) (*emission.Factor, error)
}

// cached wraps a lookup result so negative results can be stored.
type cached struct {
	factor *emission.Factor
}

// Repository reads factors from a store through a TTL cache.
type Repository struct {
	store   store.FactorStore
	cache   *cache.MemoryStore[cached]
	group   singleflight.Group
	metrics *metrics.Metrics

	// generation changes on every invalidation. Lookups started under an
	// older generation neither share flights with newer ones nor write the cache.
	// owners maps factor IDs seen by cached lookups to their category.
	mu         sync.Mutex
	generation uint64
	owners     map[string]string
}

var _ Finder = (*Repository)(nil)

// Option customizes a Repository.
type Option func(*Repository)

// WithCacheConfig enables the lookup cache. Without it every lookup reads the store.
func WithCacheConfig(enabled bool, ttl time.Duration, maxEntries int) Option {
	return func(r *Repository) { r.cache = cache.NewMemoryStore[cached](enabled, ttl, maxEntries) }
}

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// NewRepository returns a repository over s.
func NewRepository(s store.FactorStore, opts ...Option) *Repository {
	r := &Repository{
		store:  s,
		cache:  cache.NewMemoryStore[cached](false, 0, 0),
		owners: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindBestMatch returns the factor for categoryID whose unit matches unit and
// whose validity window contains date. An exact country match wins over a
// generic factor, which wins over any other survivor. Within a tier, higher
// priority, then later valid_from, then smaller id wins. It returns nil, nil
// when nothing matches; only store failures are errors.
func (r *Repository) FindBestMatch(
	ctx context.Context, categoryID, unit, country string, date time.Time,
) (*emission.Factor, error) {
	unit = emission.CanonicalUnit(unit)
	country = emission.NormalizeCountry(country)
	key := cache.GenerateKey(cache.KeyParams{CategoryID: categoryID, Unit: unit, Country: country, Date: date})

	if hit, err := r.cache.Get(key); err == nil {
		if hit.factor == nil {
			r.metrics.FactorLookup(metrics.ResultNegative)
			return nil, nil
		}
		r.metrics.FactorLookup(metrics.ResultHit)
		f := hit.factor.Clone()
		return &f, nil
	}
	r.metrics.FactorLookup(metrics.ResultMiss)

	gen := r.currentGeneration()
	v, err, _ := r.group.Do(strconv.FormatUint(gen, 10)+":"+key, func() (any, error) {
		candidates, err := r.store.ListFactors(ctx, categoryID, unit)
		if err != nil {
			return nil, fmt.Errorf("listing factors for %s/%s: %w", categoryID, unit, err)
		}
		best := Select(candidates, unit, country, date)
		entry := cached{factor: best}
		if setErr := r.remember(gen, key, categoryID, entry, candidates); setErr != nil {
			logging.FromContext(ctx).Warn().
				Str("component", "factors").
				Str("operation", "cache_set").
				Err(setErr).
				Msg("failed to cache factor lookup")
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	entry, _ := v.(cached)
	if entry.factor == nil {
		return nil, nil
	}
	f := entry.factor.Clone()
	return &f, nil
}

// FindSpendBasedFactor looks a factor up by currency code.
func (r *Repository) FindSpendBasedFactor(
	ctx context.Context, categoryID, currency, country string, date time.Time,
) (*emission.Factor, error) {
	return r.FindBestMatch(ctx, categoryID, strings.ToUpper(strings.TrimSpace(currency)), country, date)
}

// SaveFactor writes a factor. The cache entries of its category, and of the
// category it previously belonged to, are dropped before the write so no
// lookup after SaveFactor returns can see the old value.
func (r *Repository) SaveFactor(ctx context.Context, f emission.Factor) error {
	tags := []string{f.CategoryID}
	r.mu.Lock()
	if prev, ok := r.owners[f.ID]; ok && prev != f.CategoryID {
		tags = append(tags, prev)
	}
	r.mu.Unlock()

	r.Invalidate(tags...)
	if err := r.store.SaveFactor(ctx, f); err != nil {
		return err
	}
	r.mu.Lock()
	r.invalidateLocked(tags)
	delete(r.owners, f.ID)
	r.mu.Unlock()
	r.metrics.FactorInvalidation()
	return nil
}

// Invalidate drops every cached lookup for the given categories.
func (r *Repository) Invalidate(categoryIDs ...string) {
	r.mu.Lock()
	r.invalidateLocked(categoryIDs)
	r.mu.Unlock()
	r.metrics.FactorInvalidation()
}

// InvalidateAll drops every cached lookup.
func (r *Repository) InvalidateAll() {
	r.mu.Lock()
	r.generation++
	r.cache.Clear()
	clear(r.owners)
	r.mu.Unlock()
	r.metrics.FactorInvalidation()
}

// invalidateLocked must be called with mu held.
func (r *Repository) invalidateLocked(categoryIDs []string) {
	r.generation++
	for _, id := range categoryIDs {
		r.cache.InvalidateTag(id)
	}
}

func (r *Repository) currentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// remember caches entry unless an invalidation happened since gen, and
// records the category of every candidate the entry was chosen from.
func (r *Repository) remember(gen uint64, key, tag string, entry cached, candidates []emission.Factor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen {
		return nil
	}
	err := r.cache.Set(key, tag, entry)
	if errors.Is(err, cache.ErrCacheDisabled) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, f := range candidates {
		r.owners[f.ID] = tag
	}
	return nil
}

// CacheStats reports cache counters.
func (r *Repository) CacheStats() cache.Stats {
	return r.cache.Stats()
}

// Select applies the matching rules to candidates without I/O.
func Select(candidates []emission.Factor, unit, country string, date time.Time) *emission.Factor {
	unit = emission.CanonicalUnit(unit)
	country = emission.NormalizeCountry(country)

	var exact, generic, other []emission.Factor
	for _, f := range candidates {
		if !emission.SameUnit(f.Unit, unit) || !f.ValidAt(date) {
			continue
		}
		fc := emission.NormalizeCountry(f.Country)
		switch {
		case country != "" && fc == country:
			exact = append(exact, f)
		case fc == "":
			generic = append(generic, f)
		default:
			other = append(other, f)
		}
	}

	for _, tier := range [][]emission.Factor{exact, generic, other} {
		if len(tier) == 0 {
			continue
		}
		best := slices.MinFunc(tier, compareCandidates)
		out := best.Clone()
		return &out
	}
	return nil
}

// compareCandidates orders preferred factors first.
func compareCandidates(a, b emission.Factor) int {
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	if c := b.ValidFrom.Compare(a.ValidFrom); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
