package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/issueflow/internal/config"
	"github.com/mrz1836/issueflow/internal/errors"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalLogger stores the initialized logger for use by subcommands.
// This is set during PersistentPreRunE and should be accessed via GetLogger.
// Access is protected by globalLoggerMu for thread safety.
var (
	globalLogger   zerolog.Logger //nolint:gochecknoglobals // CLI logger requires global access
	globalLoggerMu sync.RWMutex   //nolint:gochecknoglobals // Protects globalLogger
)

// GetLogger returns the initialized logger for use by subcommands.
//
// IMPORTANT: This function MUST only be called after the root command's
// PersistentPreRunE has executed. Calling it before initialization will
// return a zero-value logger that discards all log output.
//
// This function is safe for concurrent use.
func GetLogger() zerolog.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// app carries per-invocation state from the root command to its subcommands.
type app struct {
	flags *GlobalFlags
	cfg   *config.Config
}

// newRootCmd creates and returns the root command for the issueflow CLI.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	v := viper.New()
	a := &app{flags: flags}

	cmd := &cobra.Command{
		Use:   "issueflow",
		Short: "Issue lifecycle and execution queue scheduler",
		Long: `issueflow tracks issues from registration to completion, binds each issue to
a planned solution, and schedules bound solutions into execution queues.

Queues are ordered by explicit dependencies and by the files each solution
touches, so work that edits the same file never runs in parallel. Executors
pull work with 'queue next' and report back with 'queue done'.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			applyEnvDefaults(v, cmd, flags)

			if !IsValidOutputFormat(flags.Output) {
				return errors.NewExitCode2Error(
					fmt.Errorf("%w: %q must be one of %v", errors.ErrInvalidOutputFormat, flags.Output, ValidOutputFormats()))
			}

			cfg, err := config.LoadWithOverrides(contextOf(cmd), &config.Config{
				Store: config.StoreConfig{Dir: flags.Dir},
			})
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger := InitLogger(flags.Verbose, flags.Quiet, cfg.Log).
				With().Str("run_id", uuid.NewString()).Logger()

			globalLoggerMu.Lock()
			globalLogger = logger
			globalLoggerMu.Unlock()

			cmd.SetContext(logger.WithContext(contextOf(cmd)))
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			CloseLogFile()
		},
		SilenceUsage: true,
	}

	AddGlobalFlags(cmd, flags)

	cmd.AddCommand(
		newIssueCmd(a),
		newSolutionCmd(a),
		newQueueCmd(a),
		newConfigCmd(a),
	)

	return cmd
}

// contextOf returns the command context, or Background when the command was
// executed without one.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	//nolint:contextcheck // Cobra command pattern uses cmd.Context() internally
	cmd := newRootCmd(flags, info)
	return cmd.ExecuteContext(ctx)
}
