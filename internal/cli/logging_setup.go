package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/carbonfocus/internal/config"
	"github.com/rshade/carbonfocus/internal/logging"
)

// setupLogging configures logging from the resolved config and CLI flags and
// stores the logger and a trace id in the command context.
func setupLogging(cmd *cobra.Command, opts *globalOptions) logging.LogPathResult {
	loggingCfg := opts.cfg.Logging
	if opts.debug {
		loggingCfg.Level = "debug"
		loggingCfg.Format = logging.FormatConsole
		loggingCfg.File = ""
	}
	if opts.logFormat != "" {
		loggingCfg.Format = opts.logFormat
	}

	if loggingCfg.File != "" {
		if err := config.EnsureLogDir(&config.Config{Logging: loggingCfg}); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not create log directory: %v\n", err)
		}
	}

	result := logging.NewLoggerWithPath(loggingCfg.ToLoggingConfig())
	logging.SetGlobal(result.Logger)
	logger = logging.ComponentLogger(result.Logger, "cli")

	if result.UsingFile {
		logging.PrintLogPathMessage(cmd.ErrOrStderr(), result.FilePath)
	} else if result.FallbackUsed {
		logging.PrintFallbackWarning(cmd.ErrOrStderr(), result.FallbackReason)
	}

	ctx := commandContext(cmd)
	traceID := logging.GetOrGenerateTraceID(ctx)
	ctx = logging.ContextWithTraceID(ctx, traceID)
	ctx = logger.WithContext(ctx)
	cmd.SetContext(ctx)

	logger.Debug().Ctx(ctx).Str("command", cmd.CommandPath()).Str("trace_id", traceID).Msg("command started")
	return result
}

// cleanupLogging closes the log file opened by setupLogging.
func cleanupLogging(cmd *cobra.Command, result *logging.LogPathResult) error {
	if result == nil {
		return nil
	}
	logger.Debug().Ctx(commandContext(cmd)).Str("command", cmd.CommandPath()).Msg("command finished")
	if err := result.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}
	return nil
}
