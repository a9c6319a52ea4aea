package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/emission"
	"github.com/rshade/carbonfocus/internal/targets"
)

// ErrScope3Inputs is returned when targets scope3 gets neither --org nor scope values.
var ErrScope3Inputs = errors.New("provide --org or at least one of --scope1, --scope2, --scope3")

// NewTargetsCmd creates the targets command group for SBTi calculations.
func NewTargetsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Science-based reduction targets",
		Long: `Derives and checks emission reduction targets using the annual linear
reduction rates of each ambition tier (1.5c, well_below_2c, 2c by default,
configurable under targets.ambitions).`,
	}
	cmd.AddCommand(
		newTargetsCalculateCmd(opts),
		newTargetsGapCmd(opts),
		newTargetsValidateCmd(opts),
		newTargetsScope3Cmd(opts),
	)
	return cmd
}

func targetCalculator(opts *globalOptions) (*targets.Calculator, error) {
	if opts.cfg == nil {
		return targets.NewCalculator(), nil
	}
	return targets.FromConfig(opts.cfg.Targets)
}

func newTargetsCalculateCmd(opts *globalOptions) *cobra.Command {
	var (
		base                              float64
		baseYear, targetYear, currentYear int
		ambition                          string
	)

	cmd := &cobra.Command{
		Use:     "calculate",
		Short:   "Derive scope 1+2 and scope 3 targets, trajectory and milestones",
		Example: `  carbonfocus targets calculate --base 1200 --base-year 2020 --target-year 2030 --ambition 1.5c`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			calc, err := targetCalculator(opts)
			if err != nil {
				return err
			}
			result, err := calc.CalculateTargets(base, baseYear, targetYear, ambition, currentYear)
			if err != nil {
				return err
			}
			render, err := opts.renderer(cmd)
			if err != nil {
				return err
			}
			return render.Targets(result)
		},
	}

	cmd.Flags().Float64Var(&base, "base", 0, "base-year emissions (required)")
	cmd.Flags().IntVar(&baseYear, "base-year", 0, "base year (required)")
	cmd.Flags().IntVar(&targetYear, "target-year", 0, "target year (required)")
	cmd.Flags().StringVar(&ambition, "ambition", targets.Ambition15C, "ambition tier")
	cmd.Flags().IntVar(&currentYear, "current-year", time.Now().UTC().Year(), "year the near-term milestone is counted from")
	for _, name := range []string{"base", "base-year", "target-year"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newTargetsGapCmd(opts *globalOptions) *cobra.Command {
	var (
		base, current                     float64
		baseYear, currentYear, targetYear int
		ambition                          string
	)

	cmd := &cobra.Command{
		Use:     "gap",
		Short:   "Compare current emissions with the expected trajectory",
		Example: `  carbonfocus targets gap --base 1000 --base-year 2020 --current 900 --current-year 2024 --target-year 2030`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			calc, err := targetCalculator(opts)
			if err != nil {
				return err
			}
			gap, err := calc.CalculateGap(base, baseYear, current, currentYear, targetYear, ambition)
			if err != nil {
				return err
			}
			render, err := opts.renderer(cmd)
			if err != nil {
				return err
			}
			return render.Gap(gap)
		},
	}

	cmd.Flags().Float64Var(&base, "base", 0, "base-year emissions (required)")
	cmd.Flags().IntVar(&baseYear, "base-year", 0, "base year (required)")
	cmd.Flags().Float64Var(&current, "current", 0, "current emissions (required)")
	cmd.Flags().IntVar(&currentYear, "current-year", time.Now().UTC().Year(), "year of the current emissions")
	cmd.Flags().IntVar(&targetYear, "target-year", 0, "target year (required)")
	cmd.Flags().StringVar(&ambition, "ambition", targets.Ambition15C, "ambition tier")
	for _, name := range []string{"base", "base-year", "current", "target-year"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newTargetsValidateCmd(opts *globalOptions) *cobra.Command {
	var (
		base, target         float64
		baseYear, targetYear int
	)

	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Check a proposed target against every ambition tier",
		Example: `  carbonfocus targets validate --base 1000 --target 580 --base-year 2020 --target-year 2030`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			calc, err := targetCalculator(opts)
			if err != nil {
				return err
			}
			v, err := calc.ValidateTarget(base, target, baseYear, targetYear)
			if err != nil {
				return err
			}
			render, err := opts.renderer(cmd)
			if err != nil {
				return err
			}
			return render.Validation(v)
		},
	}

	cmd.Flags().Float64Var(&base, "base", 0, "base-year emissions (required)")
	cmd.Flags().Float64Var(&target, "target", 0, "proposed target-year emissions (required)")
	cmd.Flags().IntVar(&baseYear, "base-year", 0, "base year (required)")
	cmd.Flags().IntVar(&targetYear, "target-year", 0, "target year (required)")
	for _, name := range []string{"base", "target", "base-year", "target-year"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

type scope3Params struct {
	scope1, scope2, scope3 float64
	org                    string
	year                   int
	dataset                string
}

func newTargetsScope3Cmd(opts *globalOptions) *cobra.Command {
	var params scope3Params

	cmd := &cobra.Command{
		Use:   "scope3",
		Short: "Check whether scope 3 targets are required",
		Long: `Scope 3 targets are required when scope 3 is at least the configured share
(40% by default) of scope 1+2+3, or when scope 3 has not been measured.
Values come from flags, or from an organization's stored records with --org.`,
		Example: `  carbonfocus targets scope3 --scope1 300 --scope2 200 --scope3 900
  carbonfocus targets scope3 --org acme --year 2024 --store sqlite --dsn carbon.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTargetsScope3(cmd, opts, params)
		},
	}

	cmd.Flags().Float64Var(&params.scope1, "scope1", 0, "scope 1 emissions")
	cmd.Flags().Float64Var(&params.scope2, "scope2", 0, "scope 2 emissions")
	cmd.Flags().Float64Var(&params.scope3, "scope3", 0, "scope 3 emissions (omit when not measured)")
	cmd.Flags().StringVar(&params.org, "org", "", "read scope totals from this organization's records")
	cmd.Flags().IntVar(&params.year, "year", 0, "restrict --org totals to a calendar year")
	cmd.Flags().StringVar(&params.dataset, "dataset", "", "dataset to load first (path or s3://bucket/key)")
	return cmd
}

func runTargetsScope3(cmd *cobra.Command, opts *globalOptions, params scope3Params) (err error) {
	calc, err := targetCalculator(opts)
	if err != nil {
		return err
	}
	render, err := opts.renderer(cmd)
	if err != nil {
		return err
	}

	flagValue := func(name string, v float64) *float64 {
		if !cmd.Flags().Changed(name) {
			return nil
		}
		return &v
	}
	s1 := flagValue("scope1", params.scope1)
	s2 := flagValue("scope2", params.scope2)
	s3 := flagValue("scope3", params.scope3)

	if params.org != "" {
		ctx := commandContext(cmd)
		rt, rtErr := newRuntime(ctx, opts.cfg)
		if rtErr != nil {
			return rtErr
		}
		defer closeRuntime(rt, &err)

		if err := rt.prepare(ctx, params.dataset, params.org); err != nil {
			return err
		}
		var year *int
		if params.year > 0 {
			year = &params.year
		}
		summary, sumErr := rt.engine.GetSummary(ctx, params.org, year)
		if sumErr != nil {
			return sumErr
		}
		s1 = summary.ScopeKg(emission.Scope1)
		s2 = summary.ScopeKg(emission.Scope2)
		s3 = summary.ScopeKg(emission.Scope3)
	} else if s1 == nil && s2 == nil && s3 == nil {
		return ErrScope3Inputs
	}

	return render.Scope3(calc.Scope3Required(s1, s2, s3))
}
