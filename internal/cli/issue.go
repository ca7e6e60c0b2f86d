package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/domain"
	"github.com/mrz1836/issueflow/internal/issue"
	"github.com/mrz1836/issueflow/internal/tui"
)

// newIssueCmd creates the issue command group.
func newIssueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Register issues and move them through their lifecycle",
		Long: `Manage issues: registered -> planning -> planned -> queued -> executing -> completed | failed.

Completed issues leave the active set and are archived to history.`,
	}

	cmd.AddCommand(
		newIssueCreateCmd(a),
		newIssueListCmd(a),
		newIssueShowCmd(a),
		newIssueUpdateCmd(a),
		newIssueHistoryCmd(a),
		newIssueSyncCmd(a),
	)
	return cmd
}

func newIssueCreateCmd(a *app) *cobra.Command {
	var in issue.CreateInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new issue",
		Long: `Register a new issue with status 'registered'.

Examples:
  issueflow issue create --title "Fix login redirect"
  issueflow issue create --id ISS-7 --title "Add audit log" --priority 2 --type feature`,
		Args: cobra.NoArgs,
		RunE: a.withServices(func(ctx context.Context, e *env, _ []string) error {
			created, err := e.svc.issues.Create(ctx, in)
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(created)
			}
			e.out.Success(fmt.Sprintf("Created issue %s", created.ID))
			return nil
		}),
	}

	cmd.Flags().StringVar(&in.Title, "title", "", "issue title (required)")
	cmd.Flags().StringVar(&in.ID, "id", "", "issue id (generated when omitted)")
	cmd.Flags().StringVar(&in.Type, "type", constants.DefaultIssueType, "issue type")
	cmd.Flags().IntVar(&in.Priority, "priority", constants.DefaultIssuePriority, "priority, 1 (highest) to 5")
	cmd.Flags().StringVar(&in.Context, "context", "", "free-form markdown context")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newIssueListCmd(a *app) *cobra.Command {
	var (
		statuses  []string
		issueType string
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List active issues",
		Long: `List issues in the active set, optionally filtered.

Examples:
  issueflow issue list
  issueflow issue list --status planned,queued
  issueflow issue list --output json`,
		Args: cobra.NoArgs,
		RunE: a.withServices(func(ctx context.Context, e *env, _ []string) error {
			filter := domain.IssueFilter{Type: issueType}
			for _, s := range statuses {
				status, err := domain.ParseIssueStatus(strings.TrimSpace(s))
				if err != nil {
					return err
				}
				filter.Status = append(filter.Status, status)
			}

			issues, err := e.svc.issues.List(ctx, filter)
			if err != nil {
				return err
			}
			return renderIssues(e, issues, "No issues. Run 'issueflow issue create --title ...' to register one.")
		}),
	}

	cmd.Flags().StringSliceVar(&statuses, "status", nil, "filter by status (comma separated)")
	cmd.Flags().StringVar(&issueType, "type", "", "filter by type")
	return cmd
}

func newIssueHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List archived (completed) issues",
		Args:  cobra.NoArgs,
		RunE: a.withServices(func(ctx context.Context, e *env, _ []string) error {
			issues, err := e.svc.issues.History(ctx)
			if err != nil {
				return err
			}
			return renderIssues(e, issues, "No archived issues.")
		}),
	}
}

// renderIssues prints issues as a table, or as a JSON array.
func renderIssues(e *env, issues []domain.Issue, empty string) error {
	if e.json {
		if issues == nil {
			issues = []domain.Issue{}
		}
		return e.out.JSON(issues)
	}
	if len(issues) == 0 {
		e.out.Info(empty)
		return nil
	}

	rows := make([][]string, 0, len(issues))
	for _, is := range issues {
		rows = append(rows, []string{
			is.ID,
			tui.FormatStatus(string(is.Status), tui.IssueStatusColor(is.Status)),
			strconv.Itoa(is.Priority),
			is.Type,
			valueOr(is.BoundSolutionID, "-"),
			is.Title,
			tui.RelativeTime(is.UpdatedAt),
		})
	}
	e.out.Table([]string{"ID", "STATUS", "PRI", "TYPE", "SOLUTION", "TITLE", "UPDATED"}, rows)
	return nil
}

// issueDetail is the JSON shape of 'issue show'.
type issueDetail struct {
	Issue     *domain.Issue     `json:"issue"`
	Archived  bool              `json:"archived"`
	Solutions []domain.Solution `json:"solutions"`
}

func newIssueShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <issue-id>",
		Short: "Show an issue and its candidate solutions",
		Args:  cobra.ExactArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			found, archived, err := e.svc.issues.Find(ctx, args[0])
			if err != nil {
				return err
			}
			sols, err := e.svc.solutions.List(ctx, found.ID)
			if err != nil {
				return err
			}
			if sols == nil {
				sols = []domain.Solution{}
			}

			if e.json {
				return e.out.JSON(issueDetail{Issue: found, Archived: archived, Solutions: sols})
			}
			writeIssueDetail(e.w, found, archived, sols)
			return nil
		}),
	}
}

// writeIssueDetail prints a human-readable issue view. The context is
// rendered as markdown.
func writeIssueDetail(w io.Writer, is *domain.Issue, archived bool, sols []domain.Solution) {
	styles := tui.NewOutputStyles()

	title := is.ID + "  " + is.Title
	if archived {
		title += "  (archived)"
	}
	_, _ = fmt.Fprintln(w, tui.StyleBold.Render(title))
	_, _ = fmt.Fprintf(w, "  Status:    %s\n", tui.FormatStatus(string(is.Status), tui.IssueStatusColor(is.Status)))
	_, _ = fmt.Fprintf(w, "  Type:      %s\n", is.Type)
	_, _ = fmt.Fprintf(w, "  Priority:  %d\n", is.Priority)
	_, _ = fmt.Fprintf(w, "  Solution:  %s\n", valueOr(is.BoundSolutionID, "-"))
	_, _ = fmt.Fprintf(w, "  Created:   %s\n", tui.RelativeTime(is.CreatedAt))
	_, _ = fmt.Fprintf(w, "  Updated:   %s\n", tui.RelativeTime(is.UpdatedAt))
	if is.PlannedAt != nil {
		_, _ = fmt.Fprintf(w, "  Planned:   %s\n", tui.RelativeTime(*is.PlannedAt))
	}
	if is.QueuedAt != nil {
		_, _ = fmt.Fprintf(w, "  Queued:    %s\n", tui.RelativeTime(*is.QueuedAt))
	}
	if is.CompletedAt != nil {
		_, _ = fmt.Fprintf(w, "  Completed: %s\n", tui.RelativeTime(*is.CompletedAt))
	}

	if is.Context != "" {
		_, _ = fmt.Fprintln(w)
		tui.RenderMarkdown(w, is.Context)
	}

	if len(sols) > 0 {
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, styles.Info.Render("Solutions:"))
		for _, sol := range sols {
			marker := " "
			if sol.IsBound {
				marker = "*"
			}
			_, _ = fmt.Fprintf(w, "  %s %s  %d task(s)  %s\n", marker, sol.ID, len(sol.Tasks), sol.Description)
		}
	}
}

func newIssueUpdateCmd(a *app) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "update <issue-id>",
		Short: "Set an issue's status",
		Long: `Set an issue's status.

Statuses from planned onward require a bound solution. Moving an issue back to
registered or planning releases its binding. Setting completed archives the
issue to history.

Examples:
  issueflow issue update ISS-7 --status planning
  issueflow issue update ISS-7 --status completed`,
		Args: cobra.ExactArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			updated, err := e.svc.issues.Update(ctx, args[0], status)
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(updated)
			}
			e.out.Success(fmt.Sprintf("Issue %s is now %s", updated.ID, updated.Status))
			return nil
		}),
	}

	cmd.Flags().StringVar(&status, "status", "", "new status")
	_ = cmd.MarkFlagRequired("status")
	return cmd
}

// syncResult is the JSON shape of 'issue sync'.
type syncResult struct {
	Updated []string `json:"updated"`
}

func newIssueSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Move planned issues that already sit in an active queue to queued",
		Args:  cobra.NoArgs,
		RunE: a.withServices(func(ctx context.Context, e *env, _ []string) error {
			updated, err := e.svc.issues.SyncFromQueues(ctx)
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(syncResult{Updated: updated})
			}
			if len(updated) == 0 {
				e.out.Info("All issues are in sync with their queues.")
				return nil
			}
			e.out.Success(fmt.Sprintf("Moved %d issue(s) to queued: %s", len(updated), strings.Join(updated, ", ")))
			return nil
		}),
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
