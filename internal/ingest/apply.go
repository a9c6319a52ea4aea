package ingest

import (
	"context"
	"fmt"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/store"
)

// FactorSaver writes emission factors. factors.Repository satisfies it and
// keeps its lookup cache consistent.
type FactorSaver interface {
	SaveFactor(ctx context.Context, factor emission.Factor) error
}

// LoadStats counts the entities written by Apply.
type LoadStats struct {
	Categories    int `json:"categories"`
	Factors       int `json:"factors"`
	Organizations int `json:"organizations"`
	Sites         int `json:"sites"`
	Transactions  int `json:"transactions"`
	Activities    int `json:"activities"`
}

// Apply writes a dataset. Reference data goes first so sources never point at
// a missing category or organization. Writes are upserts, so re-applying a
// dataset is idempotent. The first failing entity aborts the load.
func Apply(ctx context.Context, ds *Dataset, seeds store.SeedWriter, factors FactorSaver) (LoadStats, error) {
	var stats LoadStats
	if ds == nil {
		return stats, nil
	}

	for _, c := range ds.Categories {
		if err := seeds.PutCategory(ctx, c); err != nil {
			return stats, fmt.Errorf("category %s: %w", c.ID, err)
		}
		stats.Categories++
	}
	for _, o := range ds.Organizations {
		if err := seeds.PutOrganization(ctx, o); err != nil {
			return stats, fmt.Errorf("organization %s: %w", o.ID, err)
		}
		stats.Organizations++
	}
	for _, s := range ds.Sites {
		if err := seeds.PutSite(ctx, s); err != nil {
			return stats, fmt.Errorf("site %s: %w", s.ID, err)
		}
		stats.Sites++
	}
	for _, row := range ds.Factors {
		f, err := row.Factor()
		if err != nil {
			return stats, err
		}
		if err := factors.SaveFactor(ctx, f); err != nil {
			return stats, fmt.Errorf("factor %s: %w", f.ID, err)
		}
		stats.Factors++
	}
	for _, row := range ds.Transactions {
		tx, err := row.Transaction()
		if err != nil {
			return stats, err
		}
		if err := seeds.PutTransaction(ctx, tx); err != nil {
			return stats, fmt.Errorf("transaction %s: %w", tx.ID, err)
		}
		stats.Transactions++
	}
	for _, row := range ds.Activities {
		act, err := row.Activity()
		if err != nil {
			return stats, err
		}
		if err := seeds.PutActivity(ctx, act); err != nil {
			return stats, fmt.Errorf("activity %s: %w", act.ID, err)
		}
		stats.Activities++
	}

	logging.FromContext(ctx).Info().
		Str("component", "ingest").
		Str("operation", "apply_dataset").
		Int("categories", stats.Categories).
		Int("factors", stats.Factors).
		Int("organizations", stats.Organizations).
		Int("sites", stats.Sites).
		Int("transactions", stats.Transactions).
		Int("activities", stats.Activities).
		Msg("dataset loaded")
	return stats, nil
}
