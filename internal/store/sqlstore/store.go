// Package sqlstore provides database/sql backed stores for SQLite
// (modernc.org/sqlite) and Postgres (pgx). Both share one schema shape;
// timestamps are stored as UTC unix milliseconds and JSON columns as text.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/store"
	"github.com/rshade/carbonfocus/internal/store/sqlstore/migrations"
)

var _ store.Store = (*Store)(nil)

// ErrUnsupportedDriver is returned by Open for an unknown driver name.
var ErrUnsupportedDriver = errors.New("unsupported sql driver")

// Store is a SQL-backed store.Store.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to driver ("sqlite" or "postgres") at dsn and applies migrations.
// For sqlite, dsn is a file path; WAL, busy_timeout and a single writer
// connection are configured automatically.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	log := logging.FromContext(ctx).With().
		Str("component", "sqlstore").
		Str("driver", driver).
		Logger()

	var (
		d      Dialect
		source string
	)
	switch driver {
	case SQLite.Name:
		d = SQLite
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		cleanPath := filepath.Clean(dsn)
		if err := os.MkdirAll(filepath.Dir(cleanPath), 0o750); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		source = "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	case Postgres.Name:
		d = Postgres
		source = dsn
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(d.DriverName, source)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name, err)
	}
	if d == SQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.Name, err)
	}
	if err := applyMigrations(ctx, db, d, migrations.FS, d.Name); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	log.Debug().Str("operation", "open").Msg("store ready")
	return &Store{db: db, dialect: d}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(query), args...)
	return err
}

// GetCategory implements store.CategoryStore.
func (s *Store) GetCategory(ctx context.Context, id string) (*emission.Category, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id, name, scope, ghg_category, scope_3_category, calculation_method
		   FROM categories WHERE id = ?`), id)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", id, emission.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

// ListCategories implements store.CategoryStore.
func (s *Store) ListCategories(ctx context.Context) ([]emission.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, scope, ghg_category, scope_3_category, calculation_method
		   FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collect(rows, scanCategory)
}

// PutCategory implements store.SeedWriter.
func (s *Store) PutCategory(ctx context.Context, c emission.Category) error {
	if c.ID == "" {
		return emission.ErrMissingID
	}
	err := s.exec(ctx,
		`INSERT INTO categories (id, name, scope, ghg_category, scope_3_category, calculation_method)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name,
		   scope = excluded.scope,
		   ghg_category = excluded.ghg_category,
		   scope_3_category = excluded.scope_3_category,
		   calculation_method = excluded.calculation_method`,
		c.ID, c.Name, int(c.Scope), string(c.GHGCategory), c.Scope3Category, string(c.CalculationMethod))
	if err != nil {
		return fmt.Errorf("put category: %w", err)
	}
	return nil
}

// ListFactors implements store.FactorStore.
func (s *Store) ListFactors(ctx context.Context, categoryID, unit string) ([]emission.Factor, error) {
	query := `SELECT id, category_id, name, factor_kg_co2e, factor_kg_co2, factor_kg_ch4, factor_kg_n2o,
	                 unit, country, source, fuel_type, uncertainty_percent, valid_from, valid_until, priority
	            FROM emission_factors WHERE category_id = ?`
	args := []any{categoryID}
	if unit != "" {
		query += ` AND unit_key = ?`
		args = append(args, unitKey(unit))
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list factors: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collect(rows, scanFactor)
}

// SaveFactor implements store.FactorStore.
func (s *Store) SaveFactor(ctx context.Context, f emission.Factor) error {
	if err := store.ValidateFactor(f); err != nil {
		return err
	}
	err := s.exec(ctx,
		`INSERT INTO emission_factors (
		   id, category_id, name, factor_kg_co2e, factor_kg_co2, factor_kg_ch4, factor_kg_n2o,
		   unit, unit_key, country, source, fuel_type, uncertainty_percent, valid_from, valid_until, priority
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   category_id = excluded.category_id,
		   name = excluded.name,
		   factor_kg_co2e = excluded.factor_kg_co2e,
		   factor_kg_co2 = excluded.factor_kg_co2,
		   factor_kg_ch4 = excluded.factor_kg_ch4,
		   factor_kg_n2o = excluded.factor_kg_n2o,
		   unit = excluded.unit,
		   unit_key = excluded.unit_key,
		   country = excluded.country,
		   source = excluded.source,
		   fuel_type = excluded.fuel_type,
		   uncertainty_percent = excluded.uncertainty_percent,
		   valid_from = excluded.valid_from,
		   valid_until = excluded.valid_until,
		   priority = excluded.priority`,
		f.ID, f.CategoryID, f.Name, f.FactorKgCO2e,
		nullFloat(f.FactorKgCO2), nullFloat(f.FactorKgCH4), nullFloat(f.FactorKgN2O),
		f.Unit, unitKey(f.Unit), f.Country, f.Source, f.FuelType, f.UncertaintyPercent,
		nullMillis(f.ValidFrom), nullMillis(f.ValidUntil), f.Priority)
	if err != nil {
		return fmt.Errorf("save factor: %w", err)
	}
	return nil
}

// GetOrganization implements store.SourceStore.
func (s *Store) GetOrganization(ctx context.Context, id string) (*emission.Organization, error) {
	var org emission.Organization
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id, name, country FROM organizations WHERE id = ?`), id).
		Scan(&org.ID, &org.Name, &org.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("organization %q: %w", id, emission.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return &org, nil
}

// PutOrganization implements store.SeedWriter.
func (s *Store) PutOrganization(ctx context.Context, org emission.Organization) error {
	if org.ID == "" {
		return emission.ErrMissingID
	}
	err := s.exec(ctx,
		`INSERT INTO organizations (id, name, country) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name, country = excluded.country`,
		org.ID, org.Name, org.Country)
	if err != nil {
		return fmt.Errorf("put organization: %w", err)
	}
	return nil
}

// GetSite implements store.SourceStore.
func (s *Store) GetSite(ctx context.Context, id string) (*emission.Site, error) {
	var site emission.Site
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id, organization_id, name, country FROM sites WHERE id = ?`), id).
		Scan(&site.ID, &site.OrganizationID, &site.Name, &site.Country)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("site %q: %w", id, emission.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get site: %w", err)
	}
	return &site, nil
}

// PutSite implements store.SeedWriter.
func (s *Store) PutSite(ctx context.Context, site emission.Site) error {
	if site.ID == "" {
		return emission.ErrMissingID
	}
	err := s.exec(ctx,
		`INSERT INTO sites (id, organization_id, name, country) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   organization_id = excluded.organization_id, name = excluded.name, country = excluded.country`,
		site.ID, site.OrganizationID, site.Name, site.Country)
	if err != nil {
		return fmt.Errorf("put site: %w", err)
	}
	return nil
}

// ListTransactions implements store.SourceStore.
func (s *Store) ListTransactions(ctx context.Context, orgID string) ([]emission.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT id, organization_id, site_id, category_id, date, amount, currency, label, country, is_excluded
		   FROM transactions WHERE organization_id = ? ORDER BY id`), orgID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collect(rows, func(sc scanner) (emission.Transaction, error) {
		var (
			tx       emission.Transaction
			date     int64
			excluded int
		)
		err := sc.Scan(&tx.ID, &tx.OrganizationID, &tx.SiteID, &tx.CategoryID, &date,
			&tx.Amount, &tx.Currency, &tx.Label, &tx.Country, &excluded)
		tx.Date = fromMillis(date)
		tx.Excluded = excluded != 0
		return tx, err
	})
}

// PutTransaction implements store.SeedWriter.
func (s *Store) PutTransaction(ctx context.Context, tx emission.Transaction) error {
	if tx.ID == "" {
		return emission.ErrMissingID
	}
	err := s.exec(ctx,
		`INSERT INTO transactions (id, organization_id, site_id, category_id, date, amount, currency, label, country, is_excluded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   organization_id = excluded.organization_id,
		   site_id = excluded.site_id,
		   category_id = excluded.category_id,
		   date = excluded.date,
		   amount = excluded.amount,
		   currency = excluded.currency,
		   label = excluded.label,
		   country = excluded.country,
		   is_excluded = excluded.is_excluded`,
		tx.ID, tx.OrganizationID, tx.SiteID, tx.CategoryID, toMillis(tx.Date),
		tx.Amount, tx.Currency, tx.Label, tx.Country, boolInt(tx.Excluded))
	if err != nil {
		return fmt.Errorf("put transaction: %w", err)
	}
	return nil
}

// ListActivities implements store.SourceStore.
func (s *Store) ListActivities(ctx context.Context, orgID string) ([]emission.Activity, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT id, organization_id, site_id, category_id, date, quantity, unit, country, description, measured
		   FROM activities WHERE organization_id = ? ORDER BY id`), orgID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collect(rows, func(sc scanner) (emission.Activity, error) {
		var (
			act      emission.Activity
			date     int64
			measured int
		)
		err := sc.Scan(&act.ID, &act.OrganizationID, &act.SiteID, &act.CategoryID, &date,
			&act.Quantity, &act.Unit, &act.Country, &act.Description, &measured)
		act.Date = fromMillis(date)
		act.Measured = measured != 0
		return act, err
	})
}

// PutActivity implements store.SeedWriter.
func (s *Store) PutActivity(ctx context.Context, act emission.Activity) error {
	if act.ID == "" {
		return emission.ErrMissingID
	}
	err := s.exec(ctx,
		`INSERT INTO activities (id, organization_id, site_id, category_id, date, quantity, unit, country, description, measured)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   organization_id = excluded.organization_id,
		   site_id = excluded.site_id,
		   category_id = excluded.category_id,
		   date = excluded.date,
		   quantity = excluded.quantity,
		   unit = excluded.unit,
		   country = excluded.country,
		   description = excluded.description,
		   measured = excluded.measured`,
		act.ID, act.OrganizationID, act.SiteID, act.CategoryID, toMillis(act.Date),
		act.Quantity, act.Unit, act.Country, act.Description, boolInt(act.Measured))
	if err != nil {
		return fmt.Errorf("put activity: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

func scanCategory(sc scanner) (emission.Category, error) {
	var (
		c      emission.Category
		scope  int
		ghg    string
		method string
	)
	err := sc.Scan(&c.ID, &c.Name, &scope, &ghg, &c.Scope3Category, &method)
	c.Scope = emission.Scope(scope)
	c.GHGCategory = emission.GHGCategory(ghg)
	c.CalculationMethod = emission.CalculationMethod(method)
	return c, err
}

func scanFactor(sc scanner) (emission.Factor, error) {
	var (
		f                 emission.Factor
		co2, ch4, n2o     sql.NullFloat64
		validFrom, validU sql.NullInt64
	)
	err := sc.Scan(&f.ID, &f.CategoryID, &f.Name, &f.FactorKgCO2e, &co2, &ch4, &n2o,
		&f.Unit, &f.Country, &f.Source, &f.FuelType, &f.UncertaintyPercent, &validFrom, &validU, &f.Priority)
	f.FactorKgCO2 = floatPtr(co2)
	f.FactorKgCH4 = floatPtr(ch4)
	f.FactorKgN2O = floatPtr(n2o)
	f.ValidFrom = timeOrZero(validFrom)
	f.ValidUntil = timeOrZero(validU)
	return f, err
}

func unitKey(unit string) string {
	return strings.ToLower(emission.CanonicalUnit(unit))
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(t), Valid: true}
}

func timeOrZero(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return fromMillis(v.Int64)
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return emission.Float(v.Float64)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
