package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrz1836/issueflow/internal/domain"
	"github.com/mrz1836/issueflow/internal/errors"
	"github.com/mrz1836/issueflow/internal/solution"
)

func newSolutionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solution",
		Short: "Register candidate solutions and bind one to an issue",
	}
	cmd.AddCommand(
		newSolutionListCmd(a),
		newSolutionAddCmd(a),
		newSolutionBindCmd(a),
	)
	return cmd
}

func newSolutionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list <issue-id>",
		Aliases: []string{"ls"},
		Short:   "List an issue's candidate solutions",
		Args:    cobra.ExactArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			sols, err := e.svc.solutions.List(ctx, args[0])
			if err != nil {
				return err
			}
			if e.json {
				if sols == nil {
					sols = []domain.Solution{}
				}
				return e.out.JSON(sols)
			}
			if len(sols) == 0 {
				e.out.Info(fmt.Sprintf("No solutions for %s. Run 'issueflow solution add %s --file plan.yaml'.", args[0], args[0]))
				return nil
			}

			rows := make([][]string, 0, len(sols))
			for _, sol := range sols {
				bound := ""
				if sol.IsBound {
					bound = "yes"
				}
				rows = append(rows, []string{
					sol.ID,
					bound,
					strconv.Itoa(len(sol.Tasks)),
					strings.Join(sol.FilesTouched(), ", "),
					sol.Description,
				})
			}
			e.out.Table([]string{"ID", "BOUND", "TASKS", "FILES", "DESCRIPTION"}, rows)
			return nil
		}),
	}
}

func newSolutionAddCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "add <issue-id>",
		Short: "Register an unbound candidate solution from a YAML or JSON file",
		Long: `Register a candidate solution for an issue without binding it.

The file holds a description, an approach and a list of tasks; each task
lists the modification points (files) it touches:

  description: Replace session cookie handling
  tasks:
    - id: T1
      title: Rewrite middleware
      modification_points:
        - file: internal/auth/session.go

Examples:
  issueflow solution add ISS-7 --file plan.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			in, err := solution.LoadInput(file)
			if err != nil {
				return err
			}
			sol, err := e.svc.solutions.Register(ctx, args[0], in)
			if err != nil {
				return err
			}
			if e.json {
				return e.out.JSON(sol)
			}
			e.out.Success(fmt.Sprintf("Registered %s for %s (%d task(s))", sol.ID, args[0], len(sol.Tasks)))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "solution file (YAML or JSON)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// bindResult is the JSON shape of 'solution bind'.
type bindResult struct {
	Solution *domain.Solution `json:"solution"`
	Issue    *domain.Issue    `json:"issue"`
}

func newSolutionBindCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "bind <issue-id> [solution-id]",
		Short: "Bind a solution to an issue and mark the issue planned",
		Long: `Bind exactly one solution to an issue. Any previously bound solution of the
issue is released. The issue moves to planned.

Pass either an existing solution id or --solution with a solution file, which
is registered and bound in one step.

Examples:
  issueflow solution bind ISS-7 SOL-ISS-7-2
  issueflow solution bind ISS-7 --solution plan.yaml`,
		Args: cobra.RangeArgs(1, 2),
		RunE: a.withServices(func(ctx context.Context, e *env, args []string) error {
			var (
				sol *domain.Solution
				is  *domain.Issue
				err error
			)
			switch {
			case len(args) == 2 && file != "":
				return fmt.Errorf("%w: pass a solution id or --solution, not both", errors.ErrInvalidArgument)
			case len(args) == 2:
				sol, is, err = e.svc.solutions.Bind(ctx, args[0], args[1])
			case file != "":
				sol, is, err = e.svc.solutions.BindFromFile(ctx, args[0], file)
			default:
				return fmt.Errorf("%w: a solution id or --solution is required", errors.ErrInvalidArgument)
			}
			if err != nil {
				return err
			}

			if e.json {
				return e.out.JSON(bindResult{Solution: sol, Issue: is})
			}
			e.out.Success(fmt.Sprintf("Bound %s to %s; issue is now %s", sol.ID, is.ID, is.Status))
			return nil
		}),
	}

	cmd.Flags().StringVar(&file, "solution", "", "solution file (YAML or JSON) to register and bind")
	return cmd
}
