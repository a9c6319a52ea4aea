package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/cli/pagination"
)

type recordsParams struct {
	org     string
	year    int
	dataset string
	sort    string
	page    pagination.Params
}

// NewRecordsCmd creates the records command group.
func NewRecordsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "records", Short: "Inspect calculated emission records"}
	cmd.AddCommand(newRecordsListCmd(opts))
	return cmd
}

func newRecordsListCmd(opts *globalOptions) *cobra.Command {
	params := recordsParams{page: pagination.NewParams()}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an organization's emission records",
		Example: `  # Ten largest records of 2024
  carbonfocus records list --org acme --year 2024 --sort co2e:desc --limit 10

  # Second page of 50
  carbonfocus records list --org acme --page 2 --page-size 50`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecordsList(cmd, opts, params)
		},
	}

	cmd.Flags().StringVar(&params.org, "org", "", "organization id (required)")
	cmd.Flags().IntVar(&params.year, "year", 0, "restrict to a calendar year (0 = all years)")
	cmd.Flags().StringVar(&params.dataset, "dataset", "", "dataset to load first (path or s3://bucket/key)")
	cmd.Flags().StringVar(&params.sort, "sort", "", "sort as field[:asc|desc]; fields: date, co2e, category, scope, source")
	cmd.Flags().IntVar(&params.page.Limit, "limit", pagination.DefaultLimit, "maximum records (0 = unlimited)")
	cmd.Flags().IntVar(&params.page.Offset, "offset", 0, "records to skip")
	cmd.Flags().IntVar(&params.page.Page, "page", 0, "1-based page number (page-based mode)")
	cmd.Flags().IntVar(&params.page.PageSize, "page-size", 0, "records per page (requires --page)")
	_ = cmd.MarkFlagRequired("org")

	return cmd
}

func runRecordsList(cmd *cobra.Command, opts *globalOptions, params recordsParams) (err error) {
	ctx := commandContext(cmd)
	if err := params.page.Validate(); err != nil {
		return err
	}
	field, order, err := pagination.ParseSort(params.sort)
	if err != nil {
		return err
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

	if err := rt.prepare(ctx, params.dataset, params.org); err != nil {
		return err
	}

	var year *int
	if params.year > 0 {
		year = &params.year
	}
	records, err := rt.store.ListRecords(ctx, params.org, year)
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}
	sorted, err := pagination.SortRecords(records, field, order)
	if err != nil {
		return err
	}
	window := pagination.Apply(params.page, sorted)
	meta := pagination.NewMeta(params.page, len(sorted), len(window))

	footer := fmt.Sprintf("Showing %d-%d of %d records", meta.Offset+1, meta.Offset+meta.Returned, meta.TotalItems)
	if meta.Returned == 0 {
		footer = fmt.Sprintf("Showing 0 of %d records", meta.TotalItems)
	}
	return render.Records(window, meta, footer)
}
