package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/store"
)

const recordColumns = `id, organization_id, site_id, category_id, emission_factor_id, date, scope, ghg_category,
	quantity, unit, factor_snapshot, co2e_kg, co2_kg, ch4_kg, n2o_kg, is_estimated, notes, data_quality,
	source_type, source_id, calculation_method, metadata, calculated_at`

// UpsertRecord implements store.RecordStore. The lookup and the upsert share
// one transaction; ON CONFLICT keeps the natural key unique under races.
func (s *Store) UpsertRecord(ctx context.Context, r emission.Record) (_ emission.Record, created bool, retErr error) {
	key := r.Key()
	if err := store.ValidateRecordKey(key); err != nil {
		return emission.Record{}, false, err
	}

	snapshot, err := json.Marshal(r.FactorSnapshot)
	if err != nil {
		return emission.Record{}, false, fmt.Errorf("encode factor snapshot: %w", err)
	}
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return emission.Record{}, false, fmt.Errorf("encode metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return emission.Record{}, false, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var existingID string
	err = tx.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT id FROM emission_records WHERE organization_id = ? AND source_type = ? AND source_id = ?`),
		key.OrganizationID, string(key.SourceType), key.SourceID).Scan(&existingID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		created = true
	case err != nil:
		return emission.Record{}, false, fmt.Errorf("lookup record %s: %w", key, err)
	default:
		r.ID = existingID
	}
	if r.ID == "" {
		return emission.Record{}, false, fmt.Errorf("%w: missing id for %s", emission.ErrInvalidRecord, key)
	}

	_, err = tx.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO emission_records (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (organization_id, source_type, source_id) DO UPDATE SET
		   site_id = excluded.site_id,
		   category_id = excluded.category_id,
		   emission_factor_id = excluded.emission_factor_id,
		   date = excluded.date,
		   scope = excluded.scope,
		   ghg_category = excluded.ghg_category,
		   quantity = excluded.quantity,
		   unit = excluded.unit,
		   factor_snapshot = excluded.factor_snapshot,
		   co2e_kg = excluded.co2e_kg,
		   co2_kg = excluded.co2_kg,
		   ch4_kg = excluded.ch4_kg,
		   n2o_kg = excluded.n2o_kg,
		   is_estimated = excluded.is_estimated,
		   notes = excluded.notes,
		   data_quality = excluded.data_quality,
		   calculation_method = excluded.calculation_method,
		   metadata = excluded.metadata,
		   calculated_at = excluded.calculated_at`),
		r.ID, r.OrganizationID, r.SiteID, r.CategoryID, r.EmissionFactorID, toMillis(r.Date),
		int(r.Scope), string(r.GHGCategory), r.Quantity, r.Unit, string(snapshot), r.CO2eKg,
		nullFloat(r.CO2Kg), nullFloat(r.CH4Kg), nullFloat(r.N2OKg), boolInt(r.IsEstimated), r.Notes,
		string(r.DataQuality), string(r.SourceType), r.SourceID, string(r.CalculationMethod),
		string(meta), toMillis(r.CalculatedAt))
	if err != nil {
		return emission.Record{}, false, fmt.Errorf("upsert record %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return emission.Record{}, false, fmt.Errorf("commit upsert: %w", err)
	}
	return r.Clone(), created, nil
}

// GetRecordBySource implements store.RecordStore.
func (s *Store) GetRecordBySource(ctx context.Context, key emission.RecordKey) (*emission.Record, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT `+recordColumns+` FROM emission_records
		  WHERE organization_id = ? AND source_type = ? AND source_id = ?`),
		key.OrganizationID, string(key.SourceType), key.SourceID)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", key, emission.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return &r, nil
}

// ListRecords implements store.RecordStore.
func (s *Store) ListRecords(ctx context.Context, orgID string, year *int) ([]emission.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM emission_records WHERE organization_id = ?`
	args := []any{orgID}
	if year != nil {
		start := time.Date(*year, time.January, 1, 0, 0, 0, 0, time.UTC)
		query += ` AND date >= ? AND date < ?`
		args = append(args, toMillis(start), toMillis(start.AddDate(1, 0, 0)))
	}
	query += ` ORDER BY date, id`

	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return collect(rows, scanRecord)
}

// CountRecords implements store.RecordStore.
func (s *Store) CountRecords(ctx context.Context, orgID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.dialect.Rebind(
		`SELECT COUNT(*) FROM emission_records WHERE organization_id = ?`), orgID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func scanRecord(sc scanner) (emission.Record, error) {
	var (
		r                          emission.Record
		date, calculatedAt         int64
		scope, estimated           int
		ghg, quality, srcType, mth string
		snapshot, meta             string
		co2, ch4, n2o              sql.NullFloat64
	)
	if err := sc.Scan(&r.ID, &r.OrganizationID, &r.SiteID, &r.CategoryID, &r.EmissionFactorID, &date,
		&scope, &ghg, &r.Quantity, &r.Unit, &snapshot, &r.CO2eKg, &co2, &ch4, &n2o, &estimated,
		&r.Notes, &quality, &srcType, &r.SourceID, &mth, &meta, &calculatedAt); err != nil {
		return emission.Record{}, err
	}
	if err := json.Unmarshal([]byte(snapshot), &r.FactorSnapshot); err != nil {
		return emission.Record{}, fmt.Errorf("decode factor snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
		return emission.Record{}, fmt.Errorf("decode metadata: %w", err)
	}
	if len(r.Metadata) == 0 {
		r.Metadata = nil
	}
	r.Date = fromMillis(date)
	r.CalculatedAt = fromMillis(calculatedAt)
	r.Scope = emission.Scope(scope)
	r.GHGCategory = emission.GHGCategory(ghg)
	r.DataQuality = emission.DataQuality(quality)
	r.SourceType = emission.SourceType(srcType)
	r.CalculationMethod = emission.CalculationMethod(mth)
	r.IsEstimated = estimated != 0
	r.CO2Kg = floatPtr(co2)
	r.CH4Kg = floatPtr(ch4)
	r.N2OKg = floatPtr(n2o)
	return r, nil
}
