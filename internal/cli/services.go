package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mrz1836/issueflow/internal/clock"
	"github.com/mrz1836/issueflow/internal/config"
	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/errors"
	"github.com/mrz1836/issueflow/internal/flock"
	"github.com/mrz1836/issueflow/internal/issue"
	"github.com/mrz1836/issueflow/internal/queue"
	"github.com/mrz1836/issueflow/internal/solution"
	"github.com/mrz1836/issueflow/internal/store"
	"github.com/mrz1836/issueflow/internal/tui"
)

// services is the wired set of managers a command operates on.
type services struct {
	store     store.Store
	issues    *issue.Manager
	solutions *solution.Binder
	queues    *queue.Manager
}

// openServices opens the configured store and wires the managers over it.
func openServices(ctx context.Context, cfg *config.Config) (*services, error) {
	st, err := store.Open(ctx, store.Options{Dir: cfg.Store.Dir, Backend: cfg.Store.Backend})
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", cfg.Store.Dir, err)
	}

	locker := flock.NewLocker(filepath.Join(cfg.Store.Dir, constants.LocksDir), cfg.Store.LockTimeout)
	clk := clock.RealClock{}

	issues := issue.NewManager(st, locker, clk)
	solutions := solution.NewBinder(st, locker, issues, clk)
	queues := queue.NewManager(st, locker, issues, solutions, clk, queue.Options{
		FailurePolicy:           cfg.Queue.FailurePolicy,
		DefaultGroup:            cfg.Queue.DefaultGroup,
		DefaultSemanticPriority: cfg.Queue.DefaultSemanticPriority,
	})

	return &services{store: st, issues: issues, solutions: solutions, queues: queues}, nil
}

// env is what a store-backed command body works with.
type env struct {
	svc *services
	out tui.Output
	// w is the raw command output, for views that are not messages or tables.
	w    io.Writer
	json bool
}

// runFunc is the body of a store-backed command.
type runFunc func(ctx context.Context, e *env, args []string) error

// withServices adapts fn into a cobra RunE: it opens the store, runs fn and
// renders any error in the selected output format.
func (a *app) withServices(fn runFunc) func(*cobra.Command, []string) error {
	return a.withOutput(func(cmd *cobra.Command, out tui.Output, args []string) error {
		ctx := contextOf(cmd)
		svc, err := openServices(ctx, a.cfg)
		if err != nil {
			return err
		}
		defer func() { _ = svc.store.Close() }()
		return fn(ctx, &env{svc: svc, out: out, w: cmd.OutOrStdout(), json: a.flags.Output == OutputJSON}, args)
	})
}

// withOutput adapts fn into a cobra RunE with error rendering.
func (a *app) withOutput(fn func(cmd *cobra.Command, out tui.Output, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		tui.CheckNoColor()
		out := tui.NewOutput(cmd.OutOrStdout(), a.flags.Output)
		err := fn(cmd, out, args)
		if err == nil {
			return nil
		}
		return a.reportError(cmd, out, err)
	}
}

// reportError prints err with a suggested next step and returns the error
// the process exit code is derived from. Cobra's own printing is silenced.
func (a *app) reportError(cmd *cobra.Command, out tui.Output, err error) error {
	logger := GetLogger()
	logger.Debug().Err(err).Str("command", cmd.CommandPath()).Msg("command failed")

	if stderrors.Is(err, errors.ErrOperationCanceled) {
		out.Info("Operation canceled.")
		return nil
	}

	hint, action := errors.Actionable(err)
	actionable := tui.NewActionableError(err.Error(), action).WithHint(hint).Wrap(err)

	cmd.SilenceErrors = true
	if a.flags.Output == OutputJSON {
		out.Error(actionable)
		err = fmt.Errorf("%w: %w", errors.ErrJSONErrorOutput, err)
	} else {
		tui.NewOutput(cmd.ErrOrStderr(), OutputText).Error(actionable)
	}

	if isValidationError(err) && !errors.IsExitCode2Error(err) {
		return errors.NewExitCode2Error(err)
	}
	return err
}
