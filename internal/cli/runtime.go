package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/engine"
	"github.com/rshade/carbonfocus/internal/engine/cache"
	"github.com/rshade/carbonfocus/internal/factors"
	"github.com/rshade/carbonfocus/internal/ingest"
	"github.com/rshade/carbonfocus/internal/metrics"
	"github.com/rshade/carbonfocus/internal/store"
	"github.com/rshade/carbonfocus/internal/store/memory"
	"github.com/rshade/carbonfocus/internal/store/sqlstore"
)

// runtime is the wired calculation stack for one command invocation.
type runtime struct {
	cfg     *config.Config
	store   store.Store
	metrics *metrics.Metrics
	factors *factors.Repository
	engine  *engine.Calculator
}

// newRuntime validates cfg, opens the configured store and wires the factor
// repository and the calculation engine on top of it.
func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	if cfg == nil {
		cfg = config.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	ttl, err := cache.TTLFromSeconds(cfg.Cache.FactorTTLSeconds)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	m := metrics.New()
	repo := factors.NewRepository(st,
		factors.WithCacheConfig(cfg.Cache.Enabled, ttl, cfg.Cache.MaxEntries),
		factors.WithMetrics(m),
	)
	eng := engine.New(
		engine.Stores{Categories: st, Sources: st, Records: st},
		repo,
		engine.WithQualityPolicy(engine.NewQualityPolicy(
			cfg.Quality.MeasurementSources, cfg.Quality.AuthoritativeSources,
		)),
		engine.WithMetrics(m),
		engine.WithBatch(cfg.Batch.BatchSize, cfg.Batch.Workers),
	)

	logger.Debug().Ctx(ctx).
		Str("operation", "new_runtime").
		Str("store_driver", cfg.Store.Driver).
		Bool("cache_enabled", cfg.Cache.Enabled).
		Int("workers", cfg.Batch.Workers).
		Msg("calculation stack ready")

	return &runtime{cfg: cfg, store: st, metrics: m, factors: repo, engine: eng}, nil
}

func openStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case config.DriverMemory, "":
		return memory.New(), nil
	case config.DriverSQLite, config.DriverPostgres:
		st, err := sqlstore.Open(ctx, sc.Driver, sc.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening %s store: %w", sc.Driver, err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: got %q", config.ErrUnknownDriver, sc.Driver)
	}
}

// loadDataset reads a dataset from a local path or s3:// URL and writes it
// through the factor repository so cached lookups stay consistent.
func (r *runtime) loadDataset(ctx context.Context, location string) (ingest.LoadStats, error) {
	s3cfg, err := ingest.S3ConfigFromEnv()
	if err != nil {
		return ingest.LoadStats{}, err
	}
	ds, err := ingest.NewReader(ingest.WithS3Config(s3cfg)).Load(ctx, location)
	if err != nil {
		return ingest.LoadStats{}, err
	}
	stats, err := ingest.Apply(ctx, ds, r.store, r.factors)
	if err != nil {
		return stats, fmt.Errorf("applying dataset %s: %w", location, err)
	}
	return stats, nil
}

// isEphemeral reports whether data written now is lost when the command exits.
func (r *runtime) isEphemeral() bool {
	return r.cfg.Store.Driver == config.DriverMemory || r.cfg.Store.Driver == ""
}

// Close releases the store.
func (r *runtime) Close() error {
	if r == nil || r.store == nil {
		return nil
	}
	if err := r.store.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

// closeRuntime closes rt and joins the close error into err.
func closeRuntime(rt *runtime, err *error) {
	if closeErr := rt.Close(); closeErr != nil {
		*err = errors.Join(*err, closeErr)
	}
}

// prepare loads dataset when set. On an ephemeral store the organization is
// also recalculated so read commands see records.
func (r *runtime) prepare(ctx context.Context, dataset, org string) error {
	if dataset == "" {
		return nil
	}
	if _, err := r.loadDataset(ctx, dataset); err != nil {
		return err
	}
	if !r.isEphemeral() || org == "" {
		return nil
	}
	if _, err := r.engine.RecalculateForOrganization(ctx, org); err != nil {
		return fmt.Errorf("recalculating %s: %w", org, err)
	}
	return nil
}
