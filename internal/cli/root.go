// Package cli implements the carbonfocus command tree.
package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/logging"
	"github.com/rshade/carbonfocus/internal/report"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// globalOptions carries persistent flags and the state resolved from them
// before any subcommand runs.
type globalOptions struct {
	configPath string
	debug      bool
	logFormat  string
	output     string
	driver     string
	dsn        string

	cfg       *config.Config
	logResult *logging.LogPathResult
}

// NewRootCmd creates the root Cobra command for the carbonfocus CLI.
func NewRootCmd(ver string) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           "carbonfocus",
		Short:         "Greenhouse gas accounting and science-based targets",
		Long:          "carbonfocus: calculate scope 1, 2 and 3 emissions from activity data and derive SBTi reduction targets",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return cleanupLogging(cmd, opts.logResult)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default $CARBONFOCUS_HOME/config.yaml or ~/.carbonfocus/config.yaml)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: json or console (overrides config)")
	flags.StringVarP(&opts.output, "output", "o", "", "output format: table or json (default from config)")
	flags.StringVar(&opts.driver, "store", "", "store driver: memory, sqlite or postgres (overrides config)")
	flags.StringVar(&opts.dsn, "dsn", "", "store DSN: sqlite file path or postgres connection string")

	cmd.AddCommand(
		NewRecalculateCmd(opts),
		NewSummaryCmd(opts),
		NewRecordsCmd(opts),
		NewFactorsCmd(opts),
		NewTargetsCmd(opts),
		NewConfigCmd(opts),
	)
	return cmd
}

// resolve loads configuration, applies flag overrides and sets up logging.
func (o *globalOptions) resolve(cmd *cobra.Command) error {
	cfg, err := config.Resolve(cmd.Context(), o.configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if o.driver != "" {
		cfg.Store.Driver = o.driver
	}
	if o.dsn != "" {
		cfg.Store.DSN = o.dsn
	}
	o.cfg = cfg

	result := setupLogging(cmd, o)
	o.logResult = &result
	return nil
}

// renderer returns a report.Renderer for the command's stdout honoring
// --output, then the configured default.
func (o *globalOptions) renderer(cmd *cobra.Command) (*report.Renderer, error) {
	raw := o.output
	precision := report.DefaultPrecision
	if o.cfg != nil {
		if raw == "" {
			raw = o.cfg.Output.DefaultFormat
		}
		precision = o.cfg.Output.Precision
	}
	format, err := report.ParseFormat(raw)
	if err != nil {
		return nil, err
	}
	return report.New(cmd.OutOrStdout(), format, report.WithPrecision(precision)), nil
}

// commandContext returns the command context, never nil.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

const rootCmdExample = `  # Load a dataset into SQLite and recalculate an organization
  carbonfocus recalculate --org acme --dataset data.yaml --store sqlite --dsn carbon.db

  # Summarize 2024 emissions as JSON
  carbonfocus summary --org acme --year 2024 --store sqlite --dsn carbon.db -o json

  # Find the factor used for French electricity
  carbonfocus factors match --category electricity --unit kWh --country FR --dataset s3://bucket/factors.yaml

  # Derive 1.5°C targets from a 2020 baseline
  carbonfocus targets calculate --base 1200 --base-year 2020 --target-year 2030 --ambition 1.5c

  # Initialize configuration
  carbonfocus config init`
