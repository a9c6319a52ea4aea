package cli

import (
	"github.com/spf13/cobra"
)

type summaryParams struct {
	org     string
	year    int
	dataset string
}

// NewSummaryCmd creates the summary command.
func NewSummaryCmd(opts *globalOptions) *cobra.Command {
	var params summaryParams

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize an organization's emissions by scope, category, quality and month",
		Long: `Aggregates stored emission records. With --dataset and the in-memory store,
the dataset is loaded and recalculated first so the summary has records to
aggregate.`,
		Example: `  # 2024 summary from a SQLite store
  carbonfocus summary --org acme --year 2024 --store sqlite --dsn carbon.db

  # One-shot summary of a dataset
  carbonfocus summary --org acme --dataset data.yaml -o json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSummary(cmd, opts, params)
		},
	}

	cmd.Flags().StringVar(&params.org, "org", "", "organization id (required)")
	cmd.Flags().IntVar(&params.year, "year", 0, "restrict to a calendar year (0 = all years)")
	cmd.Flags().StringVar(&params.dataset, "dataset", "", "dataset to load first (path or s3://bucket/key)")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}

func runSummary(cmd *cobra.Command, opts *globalOptions, params summaryParams) (err error) {
	ctx := commandContext(cmd)
	render, err := opts.renderer(cmd)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer closeRuntime(rt, &err)

	if err := rt.prepare(ctx, params.dataset, params.org); err != nil {
		return err
	}

	var year *int
	if params.year > 0 {
		year = &params.year
	}
	summary, err := rt.engine.GetSummary(ctx, params.org, year)
	if err != nil {
		return err
	}
	return render.Summary(summary)
}
