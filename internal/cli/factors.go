package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/emission"
)

type factorMatchParams struct {
	category string
	unit     string
	country  string
	date     string
	dataset  string
}

// NewFactorsCmd creates the factors command group.
func NewFactorsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "factors", Short: "Emission factor lookups"}
	cmd.AddCommand(newFactorsMatchCmd(opts))
	return cmd
}

func newFactorsMatchCmd(opts *globalOptions) *cobra.Command {
	var params factorMatchParams

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Show the factor selected for a category, unit, country and date",
		Long: `Runs the factor selection used by calculations: validity window, unit,
country (exact, then generic, then any), then priority, most recent
valid_from and smallest id. Currency units fall back to spend-based factors.`,
		Example: `  carbonfocus factors match --category electricity --unit kWh --country FR --date 2024-06-01 --dataset data.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFactorsMatch(cmd, opts, params)
		},
	}

	cmd.Flags().StringVar(&params.category, "category", "", "category id (required)")
	cmd.Flags().StringVar(&params.unit, "unit", "", "activity unit or ISO currency code (required)")
	cmd.Flags().StringVar(&params.country, "country", "", "ISO 3166 alpha-2 country code")
	cmd.Flags().StringVar(&params.date, "date", "", "activity date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&params.dataset, "dataset", "", "dataset to load first (path or s3://bucket/key)")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("unit")

	return cmd
}

func runFactorsMatch(cmd *cobra.Command, opts *globalOptions, params factorMatchParams) (err error) {
	ctx := commandContext(cmd)
	date := time.Now().UTC()
	if params.date != "" {
		date, err = time.Parse(time.DateOnly, params.date)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", params.date, err)
		}
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

	if err := rt.prepare(ctx, params.dataset, ""); err != nil {
		return err
	}

	country := emission.NormalizeCountry(params.country)
	f, err := rt.factors.FindBestMatch(ctx, params.category, params.unit, country, date)
	if err != nil {
		return err
	}
	if f == nil && emission.IsCurrency(params.unit) {
		if f, err = rt.factors.FindSpendBasedFactor(ctx, params.category, params.unit, country, date); err != nil {
			return err
		}
	}
	return render.Factor(f)
}
