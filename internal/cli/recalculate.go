package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ErrItemsFailed is returned when a recalculation finished with item errors.
var ErrItemsFailed = errors.New("recalculation finished with errors")

type recalculateParams struct {
	org        string
	dataset    string
	workers    int
	metricsOut string
}

// NewRecalculateCmd creates the recalculate command, which recomputes every
// emission record of an organization.
func NewRecalculateCmd(opts *globalOptions) *cobra.Command {
	var params recalculateParams

	cmd := &cobra.Command{
		Use:   "recalculate",
		Short: "Recalculate all emission records of an organization",
		Long: `Recalculates an emission record for every non-excluded transaction and every
activity of the organization. Records are upserted by source, so running the
command twice updates records instead of duplicating them.

With --dataset, categories, factors and sources are loaded from a YAML or JSON
dataset (local path or s3://bucket/key) before recalculating.`,
		Example: `  # Recalculate from a local dataset held in memory
  carbonfocus recalculate --org acme --dataset data.yaml

  # Recalculate a SQLite store with 8 workers and export metrics
  carbonfocus recalculate --org acme --store sqlite --dsn carbon.db --workers 8 --metrics-out carbon.prom`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecalculate(cmd, opts, params)
		},
	}

	cmd.Flags().StringVar(&params.org, "org", "", "organization id (required)")
	cmd.Flags().StringVar(&params.dataset, "dataset", "", "dataset to load first (path or s3://bucket/key)")
	cmd.Flags().IntVar(&params.workers, "workers", 0, "parallel workers (0 = use config)")
	cmd.Flags().StringVar(&params.metricsOut, "metrics-out", "", "write Prometheus metrics to this textfile")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}

func runRecalculate(cmd *cobra.Command, opts *globalOptions, params recalculateParams) (err error) {
	ctx := commandContext(cmd)
	if params.workers > 0 {
		opts.cfg.Batch.Workers = params.workers
	}
	render, err := opts.renderer(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer closeRuntime(rt, &err)

	if params.dataset != "" {
		if _, loadErr := rt.loadDataset(ctx, params.dataset); loadErr != nil {
			return loadErr
		}
	}

	stats, runErr := rt.engine.RecalculateForOrganization(ctx, params.org)
	if renderErr := render.BatchStats(params.org, stats); renderErr != nil {
		return renderErr
	}
	if params.metricsOut != "" {
		if writeErr := rt.metrics.WriteTextfile(params.metricsOut); writeErr != nil {
			return writeErr
		}
	}
	if runErr != nil {
		return fmt.Errorf("recalculating %s: %w", params.org, runErr)
	}
	if stats.Errors > 0 {
		return fmt.Errorf("%w: %d of %d items failed", ErrItemsFailed, stats.Errors, stats.Processed)
	}
	return nil
}
