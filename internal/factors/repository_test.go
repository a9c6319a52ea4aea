package factors_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/factors"
	"github.com/rshade/carbonfocus/internal/metrics"
	"github.com/rshade/carbonfocus/internal/store/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// countingStore wraps the memory store and counts ListFactors calls.
type countingStore struct {
	*memory.Store
	lists atomic.Int64
	fail  error
	delay time.Duration
}

func (c *countingStore) ListFactors(ctx context.Context, categoryID, unit string) ([]emission.Factor, error) {
	c.lists.Add(1)
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	if c.fail != nil {
		return nil, c.fail
	}
	return c.Store.ListFactors(ctx, categoryID, unit)
}

func seeded(t *testing.T, fs ...emission.Factor) *countingStore {
	t.Helper()
	s := &countingStore{Store: memory.New()}
	for _, f := range fs {
		require.NoError(t, s.SaveFactor(context.Background(), f))
	}
	return s
}

func TestSelect(t *testing.T) {
	date := day(2024, 6, 1)
	tests := []struct {
		name       string
		candidates []emission.Factor
		unit       string
		country    string
		wantID     string
	}{
		{
			name: "exact country beats generic",
			candidates: []emission.Factor{
				{ID: "generic", Unit: "kWh"},
				{ID: "fr", Unit: "kWh", Country: "FR"},
			},
			unit: "kWh", country: "fr", wantID: "fr",
		},
		{
			name: "generic beats other country",
			candidates: []emission.Factor{
				{ID: "de", Unit: "kWh", Country: "DE"},
				{ID: "generic", Unit: "kWh"},
			},
			unit: "kWh", country: "FR", wantID: "generic",
		},
		{
			name:       "any survivor as last resort",
			candidates: []emission.Factor{{ID: "de", Unit: "kWh", Country: "DE"}},
			unit:       "kWh", country: "FR", wantID: "de",
		},
		{
			name:       "no country falls to generic",
			candidates: []emission.Factor{{ID: "de", Unit: "kWh", Country: "DE"}, {ID: "g", Unit: "kWh"}},
			unit:       "kWh", wantID: "g",
		},
		{
			name: "unit canonicalization",
			candidates: []emission.Factor{
				{ID: "liters", Unit: "liters"},
				{ID: "kwh", Unit: "kWh"},
			},
			unit: "L", wantID: "liters",
		},
		{
			name: "expired and future factors skipped",
			candidates: []emission.Factor{
				{ID: "old", Unit: "kWh", ValidUntil: day(2023, 12, 31)},
				{ID: "future", Unit: "kWh", ValidFrom: day(2025, 1, 1)},
				{ID: "current", Unit: "kWh", ValidFrom: day(2024, 1, 1), ValidUntil: day(2024, 12, 31)},
			},
			unit: "kWh", wantID: "current",
		},
		{
			name: "validity bounds are inclusive",
			candidates: []emission.Factor{
				{ID: "edge", Unit: "kWh", ValidFrom: date, ValidUntil: date},
			},
			unit: "kWh", wantID: "edge",
		},
		{
			name: "priority wins ties",
			candidates: []emission.Factor{
				{ID: "a", Unit: "kWh", Priority: 1},
				{ID: "b", Unit: "kWh", Priority: 5},
			},
			unit: "kWh", wantID: "b",
		},
		{
			name: "later valid_from wins equal priority",
			candidates: []emission.Factor{
				{ID: "a", Unit: "kWh", ValidFrom: day(2020, 1, 1)},
				{ID: "b", Unit: "kWh", ValidFrom: day(2023, 1, 1)},
			},
			unit: "kWh", wantID: "b",
		},
		{
			name: "smallest id breaks remaining ties",
			candidates: []emission.Factor{
				{ID: "zz", Unit: "kWh"},
				{ID: "aa", Unit: "kWh"},
				{ID: "mm", Unit: "kWh"},
			},
			unit: "kWh", wantID: "aa",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := factors.Select(tt.candidates, tt.unit, tt.country, date)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestSelect_OrderIndependent(t *testing.T) {
	date := day(2024, 6, 1)
	candidates := []emission.Factor{
		{ID: "c", Unit: "kWh", Priority: 2, ValidFrom: day(2022, 1, 1)},
		{ID: "b", Unit: "kWh", Priority: 2, ValidFrom: day(2022, 1, 1)},
		{ID: "a", Unit: "kWh", Priority: 1, ValidFrom: day(2024, 1, 1)},
	}
	reversed := []emission.Factor{candidates[2], candidates[1], candidates[0]}

	assert.Equal(t, "b", factors.Select(candidates, "kWh", "", date).ID)
	assert.Equal(t, "b", factors.Select(reversed, "kWh", "", date).ID)
}

func TestSelect_NoMatch(t *testing.T) {
	assert.Nil(t, factors.Select(nil, "kWh", "FR", day(2024, 1, 1)))
	assert.Nil(t, factors.Select([]emission.Factor{{ID: "x", Unit: "km"}}, "kWh", "FR", day(2024, 1, 1)))
}

func TestFindBestMatch_Cache(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, emission.Factor{ID: "f1", CategoryID: "elec", Unit: "kWh", Country: "FR", FactorKgCO2e: 0.052})
	m := metrics.New()
	repo := factors.NewRepository(s, factors.WithCacheConfig(true, time.Minute, 100), factors.WithMetrics(m))

	for range 3 {
		f, err := repo.FindBestMatch(ctx, "elec", "kwh", "fr", day(2024, 3, 1))
		require.NoError(t, err)
		require.NotNil(t, f)
		assert.Equal(t, "f1", f.ID)
	}
	assert.Equal(t, int64(1), s.lists.Load())

	stats := repo.CacheStats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, 1, stats.Entries)

	count, err := testutil.GatherAndCount(m.Registry(), "carbonfocus_factor_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "hit and miss series")
}

func TestFindBestMatch_NegativeResultCached(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	repo := factors.NewRepository(s, factors.WithCacheConfig(true, time.Minute, 100))

	for range 2 {
		f, err := repo.FindBestMatch(ctx, "elec", "kWh", "FR", day(2024, 3, 1))
		require.NoError(t, err)
		assert.Nil(t, f)
	}
	assert.Equal(t, int64(1), s.lists.Load())
}

func TestFindBestMatch_ReturnsDetachedCopies(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, emission.Factor{ID: "f1", CategoryID: "elec", Unit: "kWh", FactorKgCO2: emission.Float(1)})
	repo := factors.NewRepository(s, factors.WithCacheConfig(true, time.Minute, 100))

	f, err := repo.FindBestMatch(ctx, "elec", "kWh", "", day(2024, 1, 1))
	require.NoError(t, err)
	*f.FactorKgCO2 = 42

	again, err := repo.FindBestMatch(ctx, "elec", "kWh", "", day(2024, 1, 1))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, *again.FactorKgCO2, 1e-12)
}

func TestSaveFactor_InvalidatesBeforeNextRead(t *testing.T) {
	ctx := context.Background()
	s := seeded(t, emission.Factor{ID: "f1", CategoryID: "elec", Unit: "kWh", FactorKgCO2e: 0.1})
	repo := factors.NewRepository(s, factors.WithCacheConfig(true, time.Hour, 100))

	f, err := repo.FindBestMatch(ctx, "elec", "kWh", "", day(2024, 1, 1))
	require.NoError(t, err)
	assert.InDelta(t, 0.1, f.FactorKgCO2e, 1e-12)

	require.NoError(t, repo.SaveFactor(ctx, emission.Factor{ID: "f1", CategoryID: "elec", Unit: "kWh", FactorKgCO2e: 0.2}))

	f, err = repo.FindBestMatch(ctx, "elec", "kWh", "", day(2024, 1, 1))
	require.NoError(t, err)
	assert.InDelta(t, 0.2, f.FactorKgCO2e, 1e-12)
}

func TestFindBestMatch_CacheAgreesWithSelectWithinADay(t *testing.T) {
	ctx := context.Background()
	fs := []emission.Factor{
		{ID: "fr-2024", CategoryID: "elec", Unit: "kWh", Country: "FR", ValidUntil: day(2024, 12, 31)},
		{ID: "generic", CategoryID: "elec", Unit: "kWh"},
	}
	midnight := day(2024, 12, 31)
	afternoon := midnight.Add(15 * time.Hour)

	uncached := factors.NewRepository(seeded(t, fs...))
	want, err := uncached.FindBestMatch(ctx, "elec", "kWh", "FR", afternoon)
	require.NoError(t, err)
	require.NotNil(t, want)
	assert.Equal(t, "fr-2024", want.ID, "validity covers the whole last day")

	for _, first := range []time.Time{midnight, afternoon} {
		repo := factors.NewRepository(seeded(t, fs...), factors.WithCacheConfig(true, time.Hour, 100))
		_, err := repo.FindBestMatch(ctx, "elec", "kWh", "FR", first)
		require.NoError(t, err)
		for _, at := range []time.Time{midnight, afternoon} {
			got, err := repo.FindBestMatch(ctx, "elec", "kWh", "FR", at)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, want.ID, got.ID, "first=%s at=%s", first, at)
		}
	}
}

func TestSaveFactor_CategoryMoveInvalidatesOldCategory(t *testing.T) {
	ctx := context.Background()
	s := seeded(t)
	repo := factors.NewRepository(s, factors.WithCacheConfig(true, time.Hour, 100))

	require.NoError(t, repo.SaveFactor(ctx, emission.Factor{ID: "f1", CategoryID: "a", Unit: "kWh"}))
	f, err := repo.FindBestMatch(ctx, "a", "kWh", "", day(2024, 1, 1))
	require.NoError(t, err)
	require.NotNil(t, f)

	require.NoError(t, repo.SaveFactor(ctx, emission.Factor{ID: "f1", CategoryID: "b", Unit: "kWh"}))

	f, err = repo.FindBestMatch(ctx, "a", "kWh", "", day(2024, 1, 1))
	require.NoError(t, err)
	assert.Nil(t, f, "moved factor is no longer served for its old category")

	f, err = repo.FindBestMatch(ctx, "b", "kWh", "", day(2024, 1, 1))
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "b", f.CategoryID)
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	s := seeded(t,
		emission.Factor{ID: "e", CategoryID: "elec", Unit: "kWh"},
		emission.Factor{ID: "g", CategoryID: "gas", Unit: "m3"},
	)
	repo := factors.NewRepository(s, factors.WithCacheConfig(true, time.Hour, 100))
	lookupBoth := func() {
		_, err := repo.FindBestMatch(ctx, "elec", "kWh", "", day(2024, 1, 1))
		require.NoError(t, err)
		_, err = repo.FindBestMatch(ctx, "gas", "m3", "", day(2024, 1, 1))
		require.NoError(t, err)
	}

	lookupBoth()
	require.Equal(t, int64(2), s.lists.Load())

	repo.Invalidate("elec")
	lookupBoth()
	assert.Equal(t, int64(3), s.lists.Load(), "only elec is reloaded")

	repo.InvalidateAll()
	lookupBoth()
	assert.Equal(t, int64(5), s.lists.Load())
}

func TestFindBestMatch_StoreFailure(t *testing.T) {
	s := seeded(t)
	s.fail = errors.New("disk on fire")
	repo := factors.NewRepository(s, factors.WithCacheConfig(true, time.Minute, 100))

	f, err := repo.FindBestMatch(context.Background(), "elec", "kWh", "", day(2024, 1, 1))
	require.Error(t, err)
	assert.Nil(t, f)

	s.fail = nil
	_, err = repo.FindBestMatch(context.Background(), "elec", "kWh", "", day(2024, 1, 1))
	require.NoError(t, err, "failures are not cached")
}

func TestFindBestMatch_CollapsesConcurrentMisses(t *testing.T) {
	s := seeded(t, emission.Factor{ID: "f1", CategoryID: "elec", Unit: "kWh"})
	s.delay = 50 * time.Millisecond
	repo := factors.NewRepository(s, factors.WithCacheConfig(true, time.Minute, 100))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := repo.FindBestMatch(context.Background(), "elec", "kWh", "", day(2024, 1, 1))
			assert.NoError(t, err)
			assert.NotNil(t, f)
		}()
	}
	wg.Wait()
	assert.Less(t, s.lists.Load(), int64(10))
}

func TestFindBestMatch_WithoutCache(t *testing.T) {
	s := seeded(t, emission.Factor{ID: "f1", CategoryID: "elec", Unit: "kWh"})
	repo := factors.NewRepository(s)
	for range 2 {
		_, err := repo.FindBestMatch(context.Background(), "elec", "kWh", "", day(2024, 1, 1))
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), s.lists.Load())
}

func TestFindSpendBasedFactor(t *testing.T) {
	s := seeded(t, emission.Factor{ID: "eur", CategoryID: "travel", Unit: "EUR", FactorKgCO2e: 0.25})
	repo := factors.NewRepository(s)

	f, err := repo.FindSpendBasedFactor(context.Background(), "travel", " eur ", "FR", day(2024, 1, 1))
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "eur", f.ID)
}
