// Package solution manages each issue's family of candidate solutions and
// the single bound solution that the queue will execute.
package solution

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/issueflow/internal/clock"
	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/domain"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
	"github.com/mrz1836/issueflow/internal/flock"
	"github.com/mrz1836/issueflow/internal/issue"
	"github.com/mrz1836/issueflow/internal/store"
)

// maxSolutionFileSize caps external solution files (1MB).
const maxSolutionFileSize = 1024 * 1024

// Input is the content of a solution supplied from outside, typically a
// planner's YAML or JSON file.
type Input struct {
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Approach    string        `json:"approach,omitempty" yaml:"approach,omitempty"`
	Tasks       []domain.Task `json:"tasks" yaml:"tasks"`
}

// Binder registers and binds solutions.
type Binder struct {
	store  store.Store
	locker *flock.Locker
	issues *issue.Manager
	clock  clock.Clock
}

// NewBinder creates a Binder. A nil clock uses the system clock.
func NewBinder(st store.Store, locker *flock.Locker, issues *issue.Manager, clk clock.Clock) *Binder {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Binder{store: st, locker: locker, issues: issues, clock: clk}
}

// List returns the solutions registered for an issue. It never mutates.
func (b *Binder) List(ctx context.Context, issueID string) ([]domain.Solution, error) {
	if _, _, err := b.issues.Find(ctx, issueID); err != nil {
		return nil, err
	}
	sols, err := b.store.ListSolutions(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions for %s: %w", issueID, err)
	}
	return sols, nil
}

// Bound returns the bound solution of an issue, or ErrNoBoundSolution.
func (b *Binder) Bound(ctx context.Context, issueID string) (*domain.Solution, error) {
	sols, err := b.store.ListSolutions(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions for %s: %w", issueID, err)
	}
	for i := range sols {
		if sols[i].IsBound {
			return &sols[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", flowerrors.ErrNoBoundSolution, issueID)
}

// Get returns one solution of an issue.
func (b *Binder) Get(ctx context.Context, issueID, solutionID string) (*domain.Solution, error) {
	sols, err := b.store.ListSolutions(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions for %s: %w", issueID, err)
	}
	for i := range sols {
		if sols[i].ID == solutionID {
			return &sols[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s for issue %s", flowerrors.ErrSolutionNotFound, solutionID, issueID)
}

// Register adds an unbound solution to an active issue's family.
func (b *Binder) Register(ctx context.Context, issueID string, in Input) (*domain.Solution, error) {
	unlock, err := b.locker.Lock(ctx, issue.SolutionsLockKey(issueID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := b.issues.Get(ctx, issueID); err != nil {
		return nil, err
	}
	sols, err := b.store.ListSolutions(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions for %s: %w", issueID, err)
	}
	sol, sols := b.appendSolution(issueID, sols, in)
	if err := b.store.SaveSolutions(ctx, issueID, sols); err != nil {
		return nil, fmt.Errorf("failed to save solutions for %s: %w", issueID, err)
	}

	zerolog.Ctx(ctx).Info().Str("issue_id", issueID).Str("solution_id", sol.ID).Msg("solution registered")
	return sol, nil
}

func (b *Binder) appendSolution(issueID string, sols []domain.Solution, in Input) (*domain.Solution, []domain.Solution) {
	tasks := in.Tasks
	if tasks == nil {
		tasks = []domain.Task{}
	}
	sols = append(sols, domain.Solution{
		ID:          NextID(issueID, sols),
		IssueID:     issueID,
		Description: in.Description,
		Approach:    in.Approach,
		Tasks:       tasks,
		CreatedAt:   b.clock.Now().UTC(),
	})
	return &sols[len(sols)-1], sols
}

// NextID returns SOL-<issueID>-<n> where n is one past the highest sequence
// already used in sols.
func NextID(issueID string, sols []domain.Solution) string {
	prefix := constants.SolutionIDPrefix + issueID + "-"
	highest := 0
	for _, s := range sols {
		rest, ok := strings.CutPrefix(s.ID, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	return prefix + strconv.Itoa(highest+1)
}

// Bind makes solutionID the bound solution of issueID and moves the issue to
// planned. Any other bound solution in the family is released. Nothing is
// written when the issue or solution is missing.
func (b *Binder) Bind(ctx context.Context, issueID, solutionID string) (*domain.Solution, *domain.Issue, error) {
	unlock, err := b.locker.Lock(ctx, issue.SolutionsLockKey(issueID))
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	sols, err := b.bindable(ctx, issueID)
	if err != nil {
		return nil, nil, err
	}
	return b.bindLocked(ctx, issueID, sols, solutionID)
}

// BindFromFile registers a solution read from path and binds it.
func (b *Binder) BindFromFile(ctx context.Context, issueID, path string) (*domain.Solution, *domain.Issue, error) {
	in, err := LoadInput(path)
	if err != nil {
		return nil, nil, err
	}

	unlock, err := b.locker.Lock(ctx, issue.SolutionsLockKey(issueID))
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	sols, err := b.bindable(ctx, issueID)
	if err != nil {
		return nil, nil, err
	}
	sol, sols := b.appendSolution(issueID, sols, in)
	return b.bindLocked(ctx, issueID, sols, sol.ID)
}

// bindable loads the family of an issue that may be (re)bound. An issue
// whose work is queued or running keeps its binding until it fails or is
// moved back.
func (b *Binder) bindable(ctx context.Context, issueID string) ([]domain.Solution, error) {
	is, err := b.issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if is.Status == domain.IssueStatusQueued || is.Status == domain.IssueStatusExecuting {
		return nil, fmt.Errorf("%w: issue %s is %s", flowerrors.ErrInvalidTransition, issueID, is.Status)
	}
	sols, err := b.store.ListSolutions(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions for %s: %w", issueID, err)
	}
	return sols, nil
}

func (b *Binder) bindLocked(ctx context.Context, issueID string, sols []domain.Solution, solutionID string) (*domain.Solution, *domain.Issue, error) {
	target := -1
	for i := range sols {
		if sols[i].ID == solutionID {
			target = i
			break
		}
	}
	if target < 0 {
		return nil, nil, fmt.Errorf("%w: %s for issue %s", flowerrors.ErrSolutionNotFound, solutionID, issueID)
	}

	now := b.clock.Now().UTC()
	for i := range sols {
		sols[i].IsBound = i == target
	}
	sols[target].BoundAt = &now

	if err := b.store.SaveSolutions(ctx, issueID, sols); err != nil {
		return nil, nil, fmt.Errorf("failed to save solutions for %s: %w", issueID, err)
	}
	is, err := b.issues.Plan(ctx, issueID, solutionID)
	if err != nil {
		return nil, nil, err
	}

	zerolog.Ctx(ctx).Info().Str("issue_id", issueID).Str("solution_id", solutionID).Msg("solution bound")
	bound := sols[target]
	return &bound, is, nil
}

// LoadInput reads a solution file. Files ending in .json are decoded as
// JSON; anything else as YAML.
func LoadInput(path string) (Input, error) {
	var in Input
	info, err := os.Stat(path)
	if err != nil {
		return in, fmt.Errorf("failed to read solution file: %w", err)
	}
	if info.Size() > maxSolutionFileSize {
		return in, fmt.Errorf("%w: solution file %s exceeds %d bytes", flowerrors.ErrInvalidArgument, path, maxSolutionFileSize)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return in, fmt.Errorf("failed to read solution file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &in)
	} else {
		err = yaml.Unmarshal(data, &in)
	}
	if err != nil {
		return in, fmt.Errorf("%w: failed to parse solution file %s: %w", flowerrors.ErrInvalidArgument, path, err)
	}
	if len(in.Tasks) == 0 {
		return in, fmt.Errorf("%w: solution file %s has no tasks", flowerrors.ErrEmptyValue, path)
	}
	return in, nil
}
