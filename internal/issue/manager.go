// Package issue implements the issue lifecycle: creation, status transitions
// with stage timestamps, archival of completed issues, and reconciliation of
// issue status against the queues that hold its bound solution.
//
// Status flows registered → planning → planned → queued → executing and ends
// in completed or failed. Issues in planned or any later status always carry
// a bound solution id; issues in registered or planning never do.
package issue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/issueflow/internal/clock"
	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/domain"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
	"github.com/mrz1836/issueflow/internal/flock"
	"github.com/mrz1836/issueflow/internal/store"
)

// LockKey guards every read-modify-write of the active issue set.
const LockKey = "issues"

// SolutionsLockKey returns the lock key guarding an issue's solution family.
func SolutionsLockKey(issueID string) string {
	return "solutions-" + issueID
}

// CreateInput describes a new issue. Zero values select defaults.
type CreateInput struct {
	ID       string
	Title    string
	Type     string
	Priority int
	Context  string
}

// Manager owns issue records. It is safe for concurrent use; writers are
// serialized through the Locker.
type Manager struct {
	store  store.Store
	locker *flock.Locker
	clock  clock.Clock
}

// NewManager creates a Manager. A nil clock uses the system clock.
func NewManager(st store.Store, locker *flock.Locker, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Manager{store: st, locker: locker, clock: clk}
}

// Create registers a new issue with status registered.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*domain.Issue, error) {
	if in.Title == "" {
		return nil, fmt.Errorf("issue title %w", flowerrors.ErrEmptyValue)
	}
	if in.Priority == 0 {
		in.Priority = constants.DefaultIssuePriority
	}
	if in.Priority < constants.MinIssuePriority || in.Priority > constants.MaxIssuePriority {
		return nil, fmt.Errorf("%w: priority %d must be between %d and %d",
			flowerrors.ErrValueOutOfRange, in.Priority, constants.MinIssuePriority, constants.MaxIssuePriority)
	}
	if in.Type == "" {
		in.Type = constants.DefaultIssueType
	}
	if in.ID != "" {
		if err := store.ValidateID("issue", in.ID); err != nil {
			return nil, err
		}
	}

	unlock, err := m.locker.Lock(ctx, LockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	taken, err := m.knownIDs(ctx)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now().UTC()
	id := in.ID
	if id == "" {
		id = nextID(now, taken)
	} else if _, ok := taken[id]; ok {
		return nil, fmt.Errorf("%w: %s", flowerrors.ErrIssueExists, id)
	}

	issue := &domain.Issue{
		ID:        id,
		Title:     in.Title,
		Type:      in.Type,
		Status:    domain.IssueStatusRegistered,
		Priority:  in.Priority,
		Context:   in.Context,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.PutIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("failed to save issue %s: %w", id, err)
	}

	zerolog.Ctx(ctx).Info().Str("issue_id", id).Msg("issue registered")
	return issue, nil
}

// knownIDs collects ids from both the active set and the history so an
// archived id is never reissued.
func (m *Manager) knownIDs(ctx context.Context) (map[string]struct{}, error) {
	active, err := m.store.ListIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	history, err := m.store.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue history: %w", err)
	}
	ids := make(map[string]struct{}, len(active)+len(history))
	for _, is := range active {
		ids[is.ID] = struct{}{}
	}
	for _, is := range history {
		ids[is.ID] = struct{}{}
	}
	return ids, nil
}

func nextID(now time.Time, taken map[string]struct{}) string {
	base := constants.IssueIDPrefix + now.Format(constants.IDTimestampLayout)
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// Get returns an issue from the active set.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Issue, error) {
	issue, err := m.store.GetIssue(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", id, err)
	}
	return issue, nil
}

// Find looks in the active set, then the history. archived reports which
// one held the issue.
func (m *Manager) Find(ctx context.Context, id string) (issue *domain.Issue, archived bool, err error) {
	issue, err = m.store.GetIssue(ctx, id)
	if err == nil {
		return issue, false, nil
	}
	if !errors.Is(err, flowerrors.ErrIssueNotFound) {
		return nil, false, fmt.Errorf("failed to get issue %s: %w", id, err)
	}

	history, err := m.store.ListHistory(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to list issue history: %w", err)
	}
	// Newest archived copy wins.
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].ID == id {
			found := history[i]
			return &found, true, nil
		}
	}
	return nil, false, fmt.Errorf("%w: %s", flowerrors.ErrIssueNotFound, id)
}

// List returns active issues matching filter, in insertion order.
func (m *Manager) List(ctx context.Context, filter domain.IssueFilter) ([]domain.Issue, error) {
	all, err := m.store.ListIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	out := make([]domain.Issue, 0, len(all))
	for _, is := range all {
		if filter.Match(is) {
			out = append(out, is)
		}
	}
	return out, nil
}

// History returns archived issues, oldest first.
func (m *Manager) History(ctx context.Context) ([]domain.Issue, error) {
	history, err := m.store.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue history: %w", err)
	}
	return history, nil
}

// Update moves an issue to status. An unrecognized status is rejected before
// anything is read. Moving to planned or later requires a bound solution;
// moving back to registered or planning releases the binding on both the
// issue and its solution family. A queued or executing issue keeps its
// binding until it fails or completes. Completing an issue archives it.
func (m *Manager) Update(ctx context.Context, id, status string) (*domain.Issue, error) {
	target, err := domain.ParseIssueStatus(status)
	if err != nil {
		return nil, err
	}

	// Solution family first, matching the global lock order.
	unlockSolutions, err := m.locker.Lock(ctx, SolutionsLockKey(id))
	if err != nil {
		return nil, err
	}
	defer unlockSolutions()

	unlock, err := m.locker.Lock(ctx, LockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	issue, err := m.store.GetIssue(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", id, err)
	}

	if !domain.RequiresBinding(target) &&
		(issue.Status == domain.IssueStatusQueued || issue.Status == domain.IssueStatusExecuting) {
		return nil, fmt.Errorf("%w: issue %s is %s", flowerrors.ErrInvalidTransition, id, issue.Status)
	}
	if !domain.RequiresBinding(target) && issue.BoundSolutionID != "" {
		if err := m.releaseBinding(ctx, id); err != nil {
			return nil, err
		}
		issue.BoundSolutionID = ""
	}

	return m.apply(ctx, issue, target)
}

func (m *Manager) releaseBinding(ctx context.Context, issueID string) error {
	solutions, err := m.store.ListSolutions(ctx, issueID)
	if err != nil {
		return fmt.Errorf("failed to list solutions for %s: %w", issueID, err)
	}
	changed := false
	for i := range solutions {
		if solutions[i].IsBound {
			solutions[i].IsBound = false
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := m.store.SaveSolutions(ctx, issueID, solutions); err != nil {
		return fmt.Errorf("failed to save solutions for %s: %w", issueID, err)
	}
	return nil
}

// Transition moves an issue to target on behalf of the solution binder and
// the queue. The caller must not hold LockKey. It returns the issue as
// stored, or as archived when target is completed.
func (m *Manager) Transition(ctx context.Context, id string, target domain.IssueStatus) (*domain.Issue, error) {
	return m.mutate(ctx, id, func(*domain.Issue) (domain.IssueStatus, error) {
		return target, nil
	})
}

// Plan binds solutionID to the issue and moves it to planned. The caller
// holds the issue's solution family lock and has already marked the solution
// bound in the family.
func (m *Manager) Plan(ctx context.Context, id, solutionID string) (*domain.Issue, error) {
	return m.mutate(ctx, id, func(issue *domain.Issue) (domain.IssueStatus, error) {
		issue.BoundSolutionID = solutionID
		return domain.IssueStatusPlanned, nil
	})
}

// AdvanceIfPlanned moves a planned issue to queued and leaves any other
// status untouched. changed reports whether a write happened.
func (m *Manager) AdvanceIfPlanned(ctx context.Context, id string) (issue *domain.Issue, changed bool, err error) {
	unlock, err := m.locker.Lock(ctx, LockKey)
	if err != nil {
		return nil, false, err
	}
	defer unlock()

	current, err := m.store.GetIssue(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get issue %s: %w", id, err)
	}
	if current.Status != domain.IssueStatusPlanned {
		return current, false, nil
	}
	updated, err := m.apply(ctx, current, domain.IssueStatusQueued)
	if err != nil {
		return nil, false, err
	}
	return updated, true, nil
}

func (m *Manager) mutate(ctx context.Context, id string, fn func(*domain.Issue) (domain.IssueStatus, error)) (*domain.Issue, error) {
	unlock, err := m.locker.Lock(ctx, LockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	issue, err := m.store.GetIssue(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %s: %w", id, err)
	}
	target, err := fn(issue)
	if err != nil {
		return nil, err
	}
	return m.apply(ctx, issue, target)
}

// apply sets status and timestamps and persists the issue. Callers hold
// LockKey.
func (m *Manager) apply(ctx context.Context, issue *domain.Issue, target domain.IssueStatus) (*domain.Issue, error) {
	if domain.RequiresBinding(target) && issue.BoundSolutionID == "" {
		return nil, fmt.Errorf("%w: %s cannot move to %s", flowerrors.ErrNoBoundSolution, issue.ID, target)
	}

	now := m.clock.Now().UTC()
	if now.Before(issue.UpdatedAt) {
		now = issue.UpdatedAt
	}

	from := issue.Status
	issue.Status = target
	issue.UpdatedAt = now
	switch target {
	case domain.IssueStatusPlanned:
		issue.PlannedAt = stamp(issue.PlannedAt, now)
	case domain.IssueStatusQueued:
		issue.QueuedAt = stamp(issue.QueuedAt, now)
	case domain.IssueStatusCompleted:
		issue.CompletedAt = stamp(issue.CompletedAt, now)
	case domain.IssueStatusRegistered, domain.IssueStatusPlanning,
		domain.IssueStatusExecuting, domain.IssueStatusFailed:
	}

	logger := zerolog.Ctx(ctx).With().
		Str("issue_id", issue.ID).
		Str("from", from.String()).
		Str("to", target.String()).
		Logger()

	if target == domain.IssueStatusCompleted {
		if err := m.store.ArchiveIssue(ctx, issue); err != nil {
			return nil, fmt.Errorf("failed to archive issue %s: %w", issue.ID, err)
		}
		logger.Info().Msg("issue completed and archived")
		return issue, nil
	}

	if err := m.store.PutIssue(ctx, issue); err != nil {
		return nil, fmt.Errorf("failed to save issue %s: %w", issue.ID, err)
	}
	logger.Debug().Msg("issue status updated")
	return issue, nil
}

func stamp(existing *time.Time, now time.Time) *time.Time {
	if existing != nil {
		return existing
	}
	t := now
	return &t
}
