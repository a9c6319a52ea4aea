package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/engine/batch"
	"github.com/rshade/carbonfocus/internal/logging"
)

// BatchStats summarizes a recalculation run.
type BatchStats struct {
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Skipped   int           `json:"skipped"`
	Errors    int           `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// workItem is either a transaction or an activity.
type workItem struct {
	tx  *emission.Transaction
	act *emission.Activity
}

func (w workItem) key() string {
	if w.tx != nil {
		return string(emission.SourceTransaction) + ":" + w.tx.ID
	}
	return string(emission.SourceActivity) + ":" + w.act.ID
}

// RecalculateForOrganization recalculates every eligible transaction and
// activity of an organization. Each item is committed on its own; a failing
// item is counted and never aborts the run. On cancellation the stats cover
// the items that completed and ctx.Err() is returned.
func (c *Calculator) RecalculateForOrganization(ctx context.Context, orgID string) (BatchStats, error) {
	start := time.Now()
	log := logging.FromContext(ctx).With().
		Str("component", "engine").
		Str("operation", "recalculate").
		Str("organization_id", orgID).
		Logger()

	items, err := c.eligibleItems(ctx, orgID)
	if err != nil {
		return BatchStats{}, err
	}

	processor, err := batch.NewProcessor[workItem](c.batchSize, c.workers)
	if err != nil {
		return BatchStats{}, fmt.Errorf("configuring batch: %w", err)
	}
	processor.WithProgressCallback(func(p batch.ProgressSnapshot) {
		log.Debug().
			Int("processed", p.ProcessedItems).
			Int("total", p.TotalItems).
			Int("failed", p.FailedItems).
			Msg("recalculation progress")
	})

	var created, updated, skipped atomic.Int64
	result, runErr := processor.Run(ctx, items, workItem.key, func(ctx context.Context, it workItem) error {
		var outcome emission.Outcome
		if it.tx != nil {
			outcome = c.CalculateForTransaction(ctx, *it.tx)
		} else {
			outcome = c.CalculateForActivity(ctx, *it.act)
		}
		switch {
		case outcome.IsOK() && outcome.Created:
			created.Add(1)
		case outcome.IsOK():
			updated.Add(1)
		case outcome.IsNotFound():
			skipped.Add(1)
		default:
			return outcome.Error()
		}
		return nil
	})

	for _, itemErr := range result.Errors {
		log.Error().Str("source", itemErr.Key).Err(itemErr.Err).Msg("item recalculation failed")
	}

	stats := BatchStats{
		Processed: result.Processed,
		Created:   int(created.Load()),
		Updated:   int(updated.Load()),
		Skipped:   int(skipped.Load()),
		Errors:    len(result.Errors),
		Duration:  time.Since(start),
	}
	c.metrics.Recalculation(stats.Duration, stats.Created, stats.Updated, stats.Skipped, stats.Errors)

	event := log.Info()
	if runErr != nil {
		event = log.Warn().Err(runErr)
	}
	event.
		Int("items", len(items)).
		Int("processed", stats.Processed).
		Int("created", stats.Created).
		Int("updated", stats.Updated).
		Int("skipped", stats.Skipped).
		Int("errors", stats.Errors).
		Dur("duration", stats.Duration).
		Msg("recalculation finished")

	return stats, runErr
}

// eligibleItems lists non-excluded categorized transactions and all activities.
func (c *Calculator) eligibleItems(ctx context.Context, orgID string) ([]workItem, error) {
	txs, err := c.stores.Sources.ListTransactions(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	acts, err := c.stores.Sources.ListActivities(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}

	items := make([]workItem, 0, len(txs)+len(acts))
	for i := range txs {
		if txs[i].Excluded || txs[i].CategoryID == "" {
			continue
		}
		items = append(items, workItem{tx: &txs[i]})
	}
	for i := range acts {
		items = append(items, workItem{act: &acts[i]})
	}
	return items, nil
}
