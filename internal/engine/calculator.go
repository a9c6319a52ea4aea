// Package engine turns raw transactions and activities into emission records.
//
// A calculation resolves the category's scope calculator, selects the best
// emission factor (falling back to a spend-based factor for currency
// amounts), computes the GHG breakdown and upserts a record keyed by
// (organization, source type, source id). Every call returns an
// emission.Outcome; expected gaps in reference data are NotFound outcomes,
// never errors.
package engine

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/engine/batch"
	"github.com/rshade/carbonfocus/internal/factors"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/metrics"
	"github.com/rshade/carbonfocus/internal/scope"
	"github.com/rshade/carbonfocus/internal/store"
)

// Input is one item to calculate.
type Input struct {
	Category       emission.Category
	Quantity       float64
	Unit           string
	Date           time.Time
	Country        string
	SourceType     emission.SourceType
	SourceID       string
	OrganizationID string
	SiteID         string
	Metadata       map[string]string
}

// Stores groups the collaborators the calculator reads and writes.
type Stores struct {
	Categories store.CategoryStore
	Sources    store.SourceStore
	Records    store.RecordStore
}

// Calculator orchestrates factor lookup, scope dispatch and record upsert.
// Safe for concurrent use.
type Calculator struct {
	stores    Stores
	factors   factors.Finder
	scopes    scope.Registry
	quality   QualityPolicy
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
	batchSize int
	workers   int
}

// Option customizes a Calculator.
type Option func(*Calculator)

// WithScopes replaces the scope calculators.
func WithScopes(r scope.Registry) Option {
	return func(c *Calculator) { c.scopes = r }
}

// WithQualityPolicy replaces the data-quality source lists.
func WithQualityPolicy(p QualityPolicy) Option {
	return func(c *Calculator) { c.quality = p }
}

// WithMetrics records outcomes and batch statistics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Calculator) { c.metrics = m }
}

// WithClock overrides the time source used for calculated_at.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) { c.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(c *Calculator) { c.newID = newID }
}

// WithBatch sets the recalculation chunk size and worker count.
func WithBatch(batchSize, workers int) Option {
	return func(c *Calculator) {
		c.batchSize = batchSize
		c.workers = workers
	}
}

// New returns a Calculator.
func New(stores Stores, finder factors.Finder, opts ...Option) *Calculator {
	c := &Calculator{
		stores:    stores,
		factors:   finder,
		scopes:    scope.DefaultRegistry(),
		quality:   DefaultQualityPolicy(),
		now:       time.Now,
		newID:     logging.NewID,
		batchSize: batch.DefaultBatchSize,
		workers:   batch.DefaultWorkers,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate computes and stores the record for one input.
func (c *Calculator) Calculate(ctx context.Context, in Input) emission.Outcome {
	log := logging.FromContext(ctx).With().
		Str("component", "engine").
		Str("operation", "calculate").
		Str("source_type", string(in.SourceType)).
		Str("source_id", in.SourceID).
		Str("category_id", in.Category.ID).
		Logger()

	outcome := c.calculate(ctx, in, &log)
	c.observe(outcome)
	return outcome
}

func (c *Calculator) calculate(ctx context.Context, in Input, log *zerolog.Logger) emission.Outcome {
	cat := in.Category
	if cat.IsExcluded() {
		log.Debug().Msg("category excluded from accounting")
		return emission.NotFound(emission.ReasonExcludedCategory)
	}

	calc, ok := c.scopes.Lookup(cat.Scope)
	if !ok {
		err := fmt.Errorf("%w: %d (category %s)", emission.ErrUnknownScope, int(cat.Scope), cat.ID)
		log.Error().Err(err).Int("scope", int(cat.Scope)).Msg("no calculator for scope")
		return emission.ConfigError(emission.ReasonUnknownScope, err)
	}

	factor, err := c.resolveFactor(ctx, in)
	if err != nil {
		log.Error().Err(err).Msg("factor lookup failed")
		return emission.Failed(err)
	}
	if factor == nil {
		log.Debug().Str("unit", in.Unit).Str("country", in.Country).Msg("no emission factor matched")
		return emission.NotFound(emission.ReasonMissingFactor)
	}

	breakdown := calc.Calculate(in.Quantity, *factor, scopeContext(cat, in.Metadata))
	now := c.now().UTC()
	record := emission.Record{
		ID:                c.newID(),
		OrganizationID:    in.OrganizationID,
		SiteID:            in.SiteID,
		CategoryID:        cat.ID,
		EmissionFactorID:  factor.ID,
		Date:              in.Date,
		Scope:             cat.Scope,
		GHGCategory:       cat.GHGCategory,
		Quantity:          in.Quantity,
		Unit:              emission.CanonicalUnit(in.Unit),
		FactorSnapshot:    factor.Snapshot(now),
		CO2eKg:            breakdown.CO2eKg,
		CO2Kg:             breakdown.CO2Kg,
		CH4Kg:             breakdown.CH4Kg,
		N2OKg:             breakdown.N2OKg,
		IsEstimated:       breakdown.IsEstimated,
		Notes:             breakdown.Notes,
		DataQuality:       c.quality.Tier(in.SourceType, factor.Source),
		SourceType:        in.SourceType,
		SourceID:          in.SourceID,
		CalculationMethod: cat.CalculationMethod.OrDefault(),
		Metadata:          maps.Clone(in.Metadata),
		CalculatedAt:      now,
	}

	stored, created, err := c.stores.Records.UpsertRecord(ctx, record)
	if err != nil {
		log.Error().Err(err).Msg("record upsert failed")
		return emission.Failed(err)
	}

	log.Debug().
		Str("record_id", stored.ID).
		Str("factor_id", factor.ID).
		Float64("co2e_kg", stored.CO2eKg).
		Bool("created", created).
		Msg("emission record stored")
	if created {
		return emission.Inserted(stored)
	}
	return emission.Ok(stored)
}

// resolveFactor looks the factor up by unit, retrying by currency code when
// the unit is monetary.
func (c *Calculator) resolveFactor(ctx context.Context, in Input) (*emission.Factor, error) {
	factor, err := c.factors.FindBestMatch(ctx, in.Category.ID, in.Unit, in.Country, in.Date)
	if err != nil || factor != nil {
		return factor, err
	}
	if !emission.IsCurrency(in.Unit) {
		return nil, nil
	}
	return c.factors.FindSpendBasedFactor(ctx, in.Category.ID, in.Unit, in.Country, in.Date)
}

func scopeContext(cat emission.Category, metadata map[string]string) scope.Context {
	ctx := scope.Context{}
	for _, k := range []string{scope.KeyMethodology, scope.KeyFuelType} {
		if v, ok := metadata[k]; ok {
			ctx[k] = v
		}
	}
	if cat.Scope3Category > 0 {
		ctx[scope.KeyScope3Category] = strconv.Itoa(cat.Scope3Category)
	}
	return ctx
}

func (c *Calculator) observe(o emission.Outcome) {
	c.metrics.Outcome(o.Kind.String(), string(o.Reason))
	if o.IsOK() {
		c.metrics.Emissions(o.Record.Scope.String(), o.Record.CO2eKg)
	}
}
