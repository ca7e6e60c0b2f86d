package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mrz1836/issueflow/internal/errors"
	"github.com/mrz1836/issueflow/internal/store"
)

// deleteResult is the JSON shape of 'queue delete'.
type deleteResult struct {
	QueueID string `json:"queue_id"`
	Deleted bool   `json:"deleted"`
}

func newQueueDeleteCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <queue-id>",
		Short: "Delete a queue",
		Long: `Delete a queue record. Issues keep their current status; run
'issueflow issue update' to move them if needed.

This operation cannot be undone. Use --force to skip confirmation.

Examples:
  issueflow queue delete QUE-20260101120000           # Confirm and delete
  issueflow queue delete QUE-20260101120000 --force   # Delete without confirmation`,
		Args: cobra.ExactArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			id := args[0]
			if err := store.ValidateID("queue", id); err != nil {
				return err
			}
			// Surface a missing queue before asking for confirmation.
			q, err := e.svc.queues.Get(ctx, id)
			if err != nil {
				return err
			}

			if err := confirmQueueDelete(id, len(q.Items), force); err != nil {
				return err
			}

			if err := e.svc.queues.Delete(ctx, id); err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(deleteResult{QueueID: id, Deleted: true})
			}
			e.out.Success(fmt.Sprintf("Deleted queue %s", id))
			return nil
		}),
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")
	return cmd
}

// confirmQueueDelete returns nil when the deletion may proceed.
func confirmQueueDelete(id string, items int, force bool) error {
	if force {
		return nil
	}
	if !terminalCheck() {
		return fmt.Errorf("cannot delete queue '%s': %w", id, errors.ErrNonInteractiveMode)
	}

	confirmed, err := confirmForm(
		fmt.Sprintf("Delete queue '%s'?", id),
		fmt.Sprintf("It holds %d item(s). This cannot be undone.", items),
	)
	if err != nil {
		return fmt.Errorf("failed to get confirmation: %w", err)
	}
	if !confirmed {
		return errors.ErrOperationCanceled
	}
	return nil
}

// confirmForm asks a yes/no question. It is a variable so tests can answer it.
//
//nolint:gochecknoglobals // Required for test injection of the prompt
var confirmForm = func(title, description string) (bool, error) {
	var confirm bool

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes, delete").
				Negative("No, cancel").
				Value(&confirm),
		),
	)

	if err := form.Run(); err != nil {
		return false, err
	}
	return confirm, nil
}

// terminalCheck is a variable for the terminal check function, allowing tests to override it.
//
//nolint:gochecknoglobals // Required for test injection of terminal detection
var terminalCheck = isTerminal

// isTerminal returns true if stdin is a terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
