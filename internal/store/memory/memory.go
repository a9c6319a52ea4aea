// Package memory provides a mutex-guarded in-memory store.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps every entity in maps. Safe for concurrent use.
type Store struct {
	mu            sync.RWMutex
	categories    map[string]emission.Category
	factors       map[string]emission.Factor
	organizations map[string]emission.Organization
	sites         map[string]emission.Site
	transactions  map[string]emission.Transaction
	activities    map[string]emission.Activity
	records       map[emission.RecordKey]emission.Record
}

// New returns an empty store.
func New() *Store {
	return &Store{
		categories:    make(map[string]emission.Category),
		factors:       make(map[string]emission.Factor),
		organizations: make(map[string]emission.Organization),
		sites:         make(map[string]emission.Site),
		transactions:  make(map[string]emission.Transaction),
		activities:    make(map[string]emission.Activity),
		records:       make(map[emission.RecordKey]emission.Record),
	}
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// GetCategory implements store.CategoryStore.
func (s *Store) GetCategory(ctx context.Context, id string) (*emission.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.categories[id]
	if !ok {
		return nil, fmt.Errorf("category %q: %w", id, emission.ErrNotFound)
	}
	return &c, nil
}

// ListCategories implements store.CategoryStore.
func (s *Store) ListCategories(ctx context.Context) ([]emission.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]emission.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b emission.Category) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ListFactors implements store.FactorStore.
func (s *Store) ListFactors(ctx context.Context, categoryID, unit string) ([]emission.Factor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []emission.Factor
	for _, f := range s.factors {
		if f.CategoryID != categoryID {
			continue
		}
		if unit != "" && !emission.SameUnit(f.Unit, unit) {
			continue
		}
		out = append(out, f.Clone())
	}
	slices.SortFunc(out, func(a, b emission.Factor) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// SaveFactor implements store.FactorStore.
func (s *Store) SaveFactor(ctx context.Context, factor emission.Factor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := store.ValidateFactor(factor); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.factors[factor.ID] = factor.Clone()
	return nil
}

// ListTransactions implements store.SourceStore.
func (s *Store) ListTransactions(ctx context.Context, orgID string) ([]emission.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []emission.Transaction
	for _, tx := range s.transactions {
		if tx.OrganizationID == orgID {
			out = append(out, tx)
		}
	}
	slices.SortFunc(out, func(a, b emission.Transaction) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ListActivities implements store.SourceStore.
func (s *Store) ListActivities(ctx context.Context, orgID string) ([]emission.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []emission.Activity
	for _, act := range s.activities {
		if act.OrganizationID == orgID {
			out = append(out, act)
		}
	}
	slices.SortFunc(out, func(a, b emission.Activity) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// GetOrganization implements store.SourceStore.
func (s *Store) GetOrganization(ctx context.Context, id string) (*emission.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organizations[id]
	if !ok {
		return nil, fmt.Errorf("organization %q: %w", id, emission.ErrNotFound)
	}
	return &org, nil
}

// GetSite implements store.SourceStore.
func (s *Store) GetSite(ctx context.Context, id string) (*emission.Site, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	site, ok := s.sites[id]
	if !ok {
		return nil, fmt.Errorf("site %q: %w", id, emission.ErrNotFound)
	}
	return &site, nil
}

// UpsertRecord implements store.RecordStore.
func (s *Store) UpsertRecord(ctx context.Context, record emission.Record) (emission.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return emission.Record{}, false, err
	}
	key := record.Key()
	if err := store.ValidateRecordKey(key); err != nil {
		return emission.Record{}, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, found := s.records[key]
	stored := record.Clone()
	if found {
		stored.ID = existing.ID
	}
	if stored.ID == "" {
		return emission.Record{}, false, fmt.Errorf("%w: missing id for %s", emission.ErrInvalidRecord, key)
	}
	s.records[key] = stored
	return stored.Clone(), !found, nil
}

// GetRecordBySource implements store.RecordStore.
func (s *Store) GetRecordBySource(ctx context.Context, key emission.RecordKey) (*emission.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("record %s: %w", key, emission.ErrNotFound)
	}
	out := r.Clone()
	return &out, nil
}

// ListRecords implements store.RecordStore.
func (s *Store) ListRecords(ctx context.Context, orgID string, year *int) ([]emission.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []emission.Record
	for key, r := range s.records {
		if key.OrganizationID != orgID {
			continue
		}
		if year != nil && r.Date.UTC().Year() != *year {
			continue
		}
		out = append(out, r.Clone())
	}
	slices.SortFunc(out, func(a, b emission.Record) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

// CountRecords implements store.RecordStore.
func (s *Store) CountRecords(ctx context.Context, orgID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for key := range s.records {
		if key.OrganizationID == orgID {
			n++
		}
	}
	return n, nil
}

// PutCategory implements store.SeedWriter.
func (s *Store) PutCategory(ctx context.Context, category emission.Category) error {
	return put(ctx, &s.mu, s.categories, category.ID, category)
}

// PutOrganization implements store.SeedWriter.
func (s *Store) PutOrganization(ctx context.Context, org emission.Organization) error {
	return put(ctx, &s.mu, s.organizations, org.ID, org)
}

// PutSite implements store.SeedWriter.
func (s *Store) PutSite(ctx context.Context, site emission.Site) error {
	return put(ctx, &s.mu, s.sites, site.ID, site)
}

// PutTransaction implements store.SeedWriter.
func (s *Store) PutTransaction(ctx context.Context, tx emission.Transaction) error {
	return put(ctx, &s.mu, s.transactions, tx.ID, tx)
}

// PutActivity implements store.SeedWriter.
func (s *Store) PutActivity(ctx context.Context, act emission.Activity) error {
	return put(ctx, &s.mu, s.activities, act.ID, act)
}

func put[V any](ctx context.Context, mu *sync.RWMutex, m map[string]V, id string, v V) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if id == "" {
		return emission.ErrMissingID
	}
	mu.Lock()
	defer mu.Unlock()
	m[id] = v
	return nil
}
