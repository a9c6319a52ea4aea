// Package store defines the persistence contracts consumed by the emission
// engine. Implementations live in the memory and sqlstore subpackages.
//
// Lookups of a single entity return an error wrapping emission.ErrNotFound
// when the entity does not exist. List operations return an empty slice.
package store

import (
	"context"
	"fmt"

	"github.com/rshade/carbonfocus/internal/emission"
)

// CategoryStore reads emission categories.
type CategoryStore interface {
	GetCategory(ctx context.Context, id string) (*emission.Category, error)
	ListCategories(ctx context.Context) ([]emission.Category, error)
}

// FactorStore reads and writes emission factors.
type FactorStore interface {
	// ListFactors returns the factors of a category whose unit matches unit
	// after canonicalization. An empty unit returns every factor of the category.
	ListFactors(ctx context.Context, categoryID, unit string) ([]emission.Factor, error)
	// SaveFactor inserts or replaces a factor by id.
	SaveFactor(ctx context.Context, factor emission.Factor) error
}

// SourceStore reads the raw activity data of an organization.
type SourceStore interface {
	ListTransactions(ctx context.Context, orgID string) ([]emission.Transaction, error)
	ListActivities(ctx context.Context, orgID string) ([]emission.Activity, error)
	GetOrganization(ctx context.Context, id string) (*emission.Organization, error)
	GetSite(ctx context.Context, id string) (*emission.Site, error)
}

// RecordStore persists calculated emission records.
type RecordStore interface {
	// UpsertRecord stores record keyed by (organization_id, source_type,
	// source_id). An existing record keeps its id. created reports whether a
	// new row was inserted.
	UpsertRecord(ctx context.Context, record emission.Record) (stored emission.Record, created bool, err error)
	GetRecordBySource(ctx context.Context, key emission.RecordKey) (*emission.Record, error)
	// ListRecords returns an organization's records ordered by date then id.
	// A non-nil year restricts results to that calendar year (UTC).
	ListRecords(ctx context.Context, orgID string, year *int) ([]emission.Record, error)
	CountRecords(ctx context.Context, orgID string) (int, error)
}

// SeedWriter loads reference and source data into a store.
type SeedWriter interface {
	PutCategory(ctx context.Context, category emission.Category) error
	PutOrganization(ctx context.Context, org emission.Organization) error
	PutSite(ctx context.Context, site emission.Site) error
	PutTransaction(ctx context.Context, tx emission.Transaction) error
	PutActivity(ctx context.Context, act emission.Activity) error
}

// Store is the union of every contract plus lifecycle.
type Store interface {
	CategoryStore
	FactorStore
	SourceStore
	RecordStore
	SeedWriter
	Close() error
}

// ValidateRecordKey checks that a record carries its upsert identity.
func ValidateRecordKey(key emission.RecordKey) error {
	if key.OrganizationID == "" || key.SourceID == "" || !key.SourceType.IsValid() {
		return fmt.Errorf("%w: got %q", emission.ErrInvalidRecord, key.String())
	}
	return nil
}

// ValidateFactor checks that a factor can be stored and matched.
func ValidateFactor(f emission.Factor) error {
	if f.ID == "" || f.CategoryID == "" || f.Unit == "" {
		return fmt.Errorf("%w: got id=%q category=%q unit=%q", emission.ErrInvalidFactor, f.ID, f.CategoryID, f.Unit)
	}
	return nil
}
