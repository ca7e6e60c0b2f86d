package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/issueflow/internal/dag"
	"github.com/mrz1836/issueflow/internal/domain"
	"github.com/mrz1836/issueflow/internal/queue"
	"github.com/mrz1836/issueflow/internal/tui"
)

func newQueueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Build execution queues and hand out work",
		Long: `Queues hold the bound solutions of issues as items. Items run in dependency
order, and items that touch the same file never run in the same batch.

Executors call 'queue next' to receive an item and 'queue done' to report it.`,
	}
	cmd.AddCommand(
		newQueueAddCmd(a),
		newQueueListCmd(a),
		newQueueShowCmd(a),
		newQueueStatusCmd(a),
		newQueueDAGCmd(a),
		newQueueDeleteCmd(a),
		newQueueNextCmd(a),
		newQueueDoneCmd(a),
		newQueueRetryCmd(a),
	)
	return cmd
}

// addResult is the JSON shape of 'queue add'.
type addResult struct {
	QueueID      string            `json:"queue_id"`
	Item         *domain.QueueItem `json:"item"`
	Created      bool              `json:"created"`
	QueueCreated bool              `json:"queue_created"`
	Conflicts    []domain.Conflict `json:"conflicts"`
}

func newQueueAddCmd(a *app) *cobra.Command {
	var (
		opts     queue.AddOptions
		priority float64
	)

	cmd := &cobra.Command{
		Use:   "add <issue-id>",
		Short: "Queue an issue's bound solution",
		Long: `Add the bound solution of an issue to the active queue, creating a queue
when none is active. Adding the same solution twice is a no-op.

Examples:
  issueflow queue add ISS-7
  issueflow queue add ISS-8 --depends-on S-1 --group P2 --priority 0.9`,
		Args: cobra.ExactArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			res, err := e.svc.queues.Add(ctx, args[0], opts)
			if err != nil {
				return err
			}

			if e.json {
				conflicts := res.Queue.Conflicts
				if conflicts == nil {
					conflicts = []domain.Conflict{}
				}
				return e.out.JSON(addResult{
					QueueID:      res.Queue.ID,
					Item:         res.Item,
					Created:      res.Created,
					QueueCreated: res.QueueCreated,
					Conflicts:    conflicts,
				})
			}

			if res.QueueCreated {
				e.out.Info(fmt.Sprintf("Created queue %s", res.Queue.ID))
			}
			if !res.Created {
				e.out.Info(fmt.Sprintf("%s is already queued as %s in %s", args[0], res.Item.ItemID, res.Queue.ID))
				return nil
			}
			e.out.Success(fmt.Sprintf("Queued %s as %s in %s", args[0], res.Item.ItemID, res.Queue.ID))
			for _, c := range res.Queue.Conflicts {
				if slices.Contains(c.ItemIDs, res.Item.ItemID) {
					e.out.Warning(fmt.Sprintf("%s is also touched by %s", c.File, strings.Join(c.ItemIDs, ", ")))
				}
			}
			return nil
		}),
		PreRun: func(cmd *cobra.Command, _ []string) {
			if cmd.Flags().Changed("priority") {
				opts.SemanticPriority = &priority
			}
		},
	}

	cmd.Flags().StringSliceVar(&opts.DependsOn, "depends-on", nil, "item ids in the queue that must complete first")
	cmd.Flags().StringVar(&opts.ExecutionGroup, "group", "", "execution group label (default from queue.default_group)")
	cmd.Flags().Float64Var(&priority, "priority", 0, "semantic priority in [0,1] (default from queue.default_semantic_priority)")
	return cmd
}

func newQueueListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List queues",
		Args:    cobra.NoArgs,
		RunE: a.withServices(func(ctx context.Context, e *env, _ []string) error {
			summaries, err := e.svc.queues.List(ctx)
			if err != nil {
				return err
			}
			if e.json {
				if summaries == nil {
					summaries = []domain.QueueSummary{}
				}
				return e.out.JSON(summaries)
			}
			if len(summaries) == 0 {
				e.out.Info("No queues. Run 'issueflow queue add <issue-id>' to create one.")
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				rows = append(rows, []string{
					s.ID,
					tui.FormatStatus(string(s.Status), tui.QueueStatusColor(s.Status)),
					strconv.Itoa(s.IssueCount),
					strconv.Itoa(s.ItemCount),
					tui.RelativeTime(s.CreatedAt),
					tui.RelativeTime(s.UpdatedAt),
				})
			}
			e.out.Table([]string{"ID", "STATUS", "ISSUES", "ITEMS", "CREATED", "UPDATED"}, rows)
			return nil
		}),
	}
}

func newQueueShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [queue-id]",
		Short: "Show a queue and its items (default: the active queue)",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			q, err := e.svc.queues.Get(ctx, optionalArg(args))
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(q)
			}
			writeQueue(e, q)
			return nil
		}),
	}
}

// writeQueue prints the queue header, its items and any conflicts.
func writeQueue(e *env, q *domain.Queue) {
	_, _ = fmt.Fprintf(e.w, "%s  %s\n",
		tui.StyleBold.Render(q.ID),
		tui.FormatStatus(string(q.Status), tui.QueueStatusColor(q.Status)))
	_, _ = fmt.Fprintf(e.w, "Issues: %s\n\n", strings.Join(q.IssueIDs, ", "))

	if len(q.Items) == 0 {
		e.out.Info("No items.")
		return
	}

	rows := make([][]string, 0, len(q.Items))
	for _, it := range q.Items {
		rows = append(rows, []string{
			it.ItemID,
			tui.ItemStatusIcon(it.Status) + " " + tui.FormatStatus(string(it.Status), tui.ItemStatusColor(it.Status)),
			it.IssueID,
			it.SolutionID,
			strconv.Itoa(it.ExecutionOrder),
			it.ExecutionGroup,
			strconv.FormatFloat(it.SemanticPriority, 'f', -1, 64),
			valueOr(strings.Join(it.DependsOn, ","), "-"),
			strconv.Itoa(len(it.FilesTouched)),
		})
	}
	e.out.Table([]string{"ITEM", "STATUS", "ISSUE", "SOLUTION", "ORDER", "GROUP", "PRIORITY", "DEPENDS ON", "FILES"}, rows)

	for _, it := range q.Items {
		if it.Status == domain.ItemStatusFailed && it.FailureReason != "" {
			e.out.Warning(fmt.Sprintf("%s failed: %s", it.ItemID, it.FailureReason))
		}
	}
	writeConflicts(e.w, q.Conflicts)
}

func writeConflicts(w io.Writer, conflicts []domain.Conflict) {
	if len(conflicts) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, tui.StyleBold.Render("File conflicts:"))
	for _, c := range conflicts {
		_, _ = fmt.Fprintf(w, "  %s  %s\n", c.File, tui.StyleDim.Render(strings.Join(c.ItemIDs, ", ")))
	}
}

func newQueueStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status [queue-id]",
		Short: "Summarize a queue's progress (default: the active queue)",
		Args:  cobra.MaximumNArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			report, err := e.svc.queues.Status(ctx, optionalArg(args))
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(report)
			}

			c := report.Counts
			_, _ = fmt.Fprintf(e.w, "%s  %s\n",
				tui.StyleBold.Render(report.ID),
				tui.FormatStatus(string(report.Status), tui.QueueStatusColor(report.Status)))
			_, _ = fmt.Fprintf(e.w, "  Total: %d  Pending: %d  Executing: %d  Completed: %d  Failed: %d\n",
				c.Total, c.Pending, c.Executing, c.Completed, c.Failed)
			_, _ = fmt.Fprintf(e.w, "  Ready:     %s\n", valueOr(strings.Join(report.Ready, ", "), "-"))
			_, _ = fmt.Fprintf(e.w, "  Executing: %s\n", valueOr(strings.Join(report.Executing, ", "), "-"))
			writeConflicts(e.w, report.Conflicts)
			return nil
		}),
	}
}

func newQueueDAGCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dag [queue-id]",
		Short: "Show the dependency graph and parallel batches (default: the active queue)",
		Long: `Show the queue's dependency graph: nodes, edges, and the batches of items that
can run in parallel. Items sharing a file or a dependency edge are never placed
in the same batch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			g, err := e.svc.queues.DAG(ctx, optionalArg(args))
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(g)
			}
			writeGraph(e, g)
			return nil
		}),
	}
}

func writeGraph(e *env, g *dag.Graph) {
	_, _ = fmt.Fprintf(e.w, "%s  %d node(s), %d edge(s), %d batch(es)\n\n",
		tui.StyleBold.Render(g.QueueID), len(g.Nodes), len(g.Edges), g.BatchesNeeded)

	rows := make([][]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ready := ""
		if n.Ready {
			ready = "yes"
		}
		rows = append(rows, []string{
			n.ItemID,
			tui.ItemStatusIcon(n.Status) + " " + tui.FormatStatus(string(n.Status), tui.ItemStatusColor(n.Status)),
			n.IssueID,
			ready,
			valueOr(strings.Join(n.BlockedBy, ","), "-"),
		})
	}
	e.out.Table([]string{"ITEM", "STATUS", "ISSUE", "READY", "BLOCKED BY"}, rows)

	if len(g.Edges) > 0 {
		_, _ = fmt.Fprintln(e.w)
		for _, edge := range g.Edges {
			_, _ = fmt.Fprintf(e.w, "  %s -> %s\n", edge.From, edge.To)
		}
	}

	_, _ = fmt.Fprintln(e.w)
	for i, batch := range g.ParallelBatches {
		_, _ = fmt.Fprintf(e.w, "Batch %d: %s\n", i+1, strings.Join(batch, ", "))
	}
}

func newQueueNextCmd(a *app) *cobra.Command {
	var queueID string

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Hand out the next ready item and mark it executing",
		Long: `Hand out the next ready item: pending, with all dependencies completed.
Ties go to the lowest execution order, then the higher semantic priority.
Shared files only split the batches shown by 'queue dag'; they never hold an
item back, so order conflicting items with --depends-on. Without --queue,
active queues are scanned oldest first. Prints an empty result when nothing
is ready.`,
		Args: cobra.NoArgs,
		RunE: a.withServices(func(ctx context.Context, e *env, _ []string) error {
			res, err := e.svc.queues.Next(ctx, queueID)
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(res)
			}
			if res.Empty() {
				e.out.Info("Nothing is ready to run.")
				return nil
			}
			it := res.Item
			e.out.Success(fmt.Sprintf("%s (%s, %s) is now executing in %s", it.ItemID, it.IssueID, it.SolutionID, res.QueueID))
			if len(it.FilesTouched) > 0 {
				_, _ = fmt.Fprintf(e.w, "  Files: %s\n", strings.Join(it.FilesTouched, ", "))
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&queueID, "queue", "", "queue id (default: scan active queues)")
	return cmd
}

func newQueueDoneCmd(a *app) *cobra.Command {
	var (
		in     queue.DoneInput
		result string
	)

	cmd := &cobra.Command{
		Use:   "done <item-id>",
		Short: "Report an item as completed or failed",
		Long: `Report the outcome of an item handed out by 'queue next'.

Examples:
  issueflow queue done S-1 --result '{"commit":"abc123"}'
  issueflow queue done S-2 --fail --reason "tests failed" --error-type test_failure
  issueflow queue done S-1 --queue QUE-20260101120000`,
		Args: cobra.ExactArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			if result != "" {
				in.Result = []byte(result)
			}
			res, err := e.svc.queues.Done(ctx, args[0], in)
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(res)
			}
			if in.Fail {
				e.out.Warning(fmt.Sprintf("%s marked failed; queue %s is %s", res.Item.ItemID, res.QueueID, res.QueueStatus))
				return nil
			}
			e.out.Success(fmt.Sprintf("%s completed; queue %s is %s", res.Item.ItemID, res.QueueID, res.QueueStatus))
			return nil
		}),
	}

	cmd.Flags().StringVar(&result, "result", "", "JSON result payload")
	cmd.Flags().BoolVar(&in.Fail, "fail", false, "mark the item failed")
	cmd.Flags().StringVar(&in.Reason, "reason", "", "failure reason")
	cmd.Flags().StringVar(&in.ErrorType, "error-type", "", "failure classification (default execution_failed)")
	cmd.Flags().StringVar(&in.QueueID, "queue", "", "queue id holding the item")
	return cmd
}

func newQueueRetryCmd(a *app) *cobra.Command {
	var queueID string

	cmd := &cobra.Command{
		Use:   "retry <issue-id>",
		Short: "Reset an issue's failed items to pending",
		Long: `Reset the failed items of an issue to pending, keeping their failure history,
and reopen the queue. Without --queue the newest queue holding failed items
for the issue is used. Refused when the same solution is already pending or
executing in another active queue.`,
		Args: cobra.ExactArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			res, err := e.svc.queues.Retry(ctx, args[0], queueID)
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(res)
			}
			ids := make([]string, 0, len(res.Items))
			for _, it := range res.Items {
				ids = append(ids, it.ItemID)
			}
			e.out.Success(fmt.Sprintf("Retrying %s in %s", strings.Join(ids, ", "), res.QueueID))
			return nil
		}),
	}

	cmd.Flags().StringVar(&queueID, "queue", "", "queue id (default: newest queue with failures)")
	return cmd
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

