// Package queue forms execution queues from bound solutions and moves their
// items through pending, executing, completed and failed.
//
// Every read-modify-write of a queue holds that queue's lock. Operations that
// pick a queue by status also hold the index lock so the choice cannot race a
// concurrent add or delete. Locks are taken in the order index, queue,
// solutions, issues.
package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/issueflow/internal/clock"
	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/dag"
	"github.com/mrz1836/issueflow/internal/domain"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
	"github.com/mrz1836/issueflow/internal/flock"
	"github.com/mrz1836/issueflow/internal/issue"
	"github.com/mrz1836/issueflow/internal/solution"
	"github.com/mrz1836/issueflow/internal/store"
)

// IndexLockKey guards queue creation, deletion and selection by status.
const IndexLockKey = "queue-index"

// LockKey returns the lock key of one queue.
func LockKey(queueID string) string {
	return "queue-" + queueID
}

// Options tunes queue behavior. Zero values select the defaults.
type Options struct {
	// FailurePolicy is constants.FailurePolicyQueue (an item failure fails
	// the whole queue) or constants.FailurePolicyItem (only the item fails).
	FailurePolicy string

	// DefaultGroup labels new items.
	DefaultGroup string

	// DefaultSemanticPriority is the tie-breaker given to new items.
	DefaultSemanticPriority float64
}

func (o Options) withDefaults() Options {
	if o.FailurePolicy == "" {
		o.FailurePolicy = constants.FailurePolicyQueue
	}
	if o.DefaultGroup == "" {
		o.DefaultGroup = constants.DefaultExecutionGroup
	}
	if o.DefaultSemanticPriority == 0 {
		o.DefaultSemanticPriority = constants.DefaultSemanticPriority
	}
	return o
}

// Manager is the queue builder and execution cursor.
type Manager struct {
	store     store.Store
	locker    *flock.Locker
	issues    *issue.Manager
	solutions *solution.Binder
	clock     clock.Clock
	opts      Options
}

// NewManager creates a Manager. A nil clock uses the system clock.
func NewManager(st store.Store, locker *flock.Locker, issues *issue.Manager, solutions *solution.Binder, clk clock.Clock, opts Options) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Manager{
		store:     st,
		locker:    locker,
		issues:    issues,
		solutions: solutions,
		clock:     clk,
		opts:      opts.withDefaults(),
	}
}

// Index loads the current queue index.
func (m *Manager) Index(ctx context.Context) (Index, error) {
	queues, err := m.store.ListQueues(ctx)
	if err != nil {
		return Index{}, fmt.Errorf("failed to list queues: %w", err)
	}
	return NewIndex(queues), nil
}

// AddOptions customizes a new queue item.
type AddOptions struct {
	// DependsOn names items of the target queue that must complete first.
	DependsOn []string

	// ExecutionGroup overrides the default group label.
	ExecutionGroup string

	// SemanticPriority overrides the default tie-breaker when non-nil.
	SemanticPriority *float64
}

// AddResult reports what Add did.
type AddResult struct {
	Queue *domain.Queue
	Item  *domain.QueueItem

	// Created is false when the issue's bound solution was already queued.
	Created bool

	// QueueCreated is true when no active queue existed.
	QueueCreated bool
}

// Add queues the bound solution of issueID in the active queue, creating one
// if none is active. Adding the same issue and solution again changes
// nothing but still advances a planned issue to queued.
func (m *Manager) Add(ctx context.Context, issueID string, opts AddOptions) (*AddResult, error) {
	if opts.SemanticPriority != nil && (*opts.SemanticPriority < 0 || *opts.SemanticPriority > 1) {
		return nil, fmt.Errorf("%w: semantic priority %v must be within [0,1]", flowerrors.ErrValueOutOfRange, *opts.SemanticPriority)
	}

	unlockIndex, err := m.locker.Lock(ctx, IndexLockKey)
	if err != nil {
		return nil, err
	}
	defer unlockIndex()

	is, err := m.issues.Get(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if is.BoundSolutionID == "" {
		return nil, fmt.Errorf("%w: %s", flowerrors.ErrNoBoundSolution, issueID)
	}
	sol, err := m.solutions.Get(ctx, issueID, is.BoundSolutionID)
	if err != nil {
		return nil, err
	}

	idx, err := m.Index(ctx)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now().UTC()
	result := &AddResult{}
	queueID, ok := idx.Active()
	if !ok {
		queueID = newQueueID(now, idx)
		result.QueueCreated = true
	}

	unlockQueue, err := m.locker.Lock(ctx, LockKey(queueID))
	if err != nil {
		return nil, err
	}
	defer unlockQueue()

	var q *domain.Queue
	if result.QueueCreated {
		q = &domain.Queue{
			ID:        queueID,
			Status:    domain.QueueStatusActive,
			IssueIDs:  []string{},
			Items:     []domain.QueueItem{},
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else if q, err = m.store.GetQueue(ctx, queueID); err != nil {
		return nil, fmt.Errorf("failed to load queue %s: %w", queueID, err)
	}
	result.Queue = q

	logger := zerolog.Ctx(ctx).With().Str("queue_id", q.ID).Str("issue_id", issueID).Logger()

	for i := range q.Items {
		if q.Items[i].IssueID == issueID && q.Items[i].SolutionID == sol.ID {
			result.Item = &q.Items[i]
			if _, _, err := m.issues.AdvanceIfPlanned(ctx, issueID); err != nil {
				return nil, err
			}
			logger.Debug().Str("item_id", q.Items[i].ItemID).Msg("solution already queued")
			return result, nil
		}
	}

	for _, dep := range opts.DependsOn {
		if q.Item(dep) == nil {
			return nil, fmt.Errorf("%w: %s is not in queue %s", flowerrors.ErrUnknownDependency, dep, q.ID)
		}
	}

	item := domain.QueueItem{
		ItemID:           nextItemID(q.Items),
		IssueID:          issueID,
		SolutionID:       sol.ID,
		Status:           domain.ItemStatusPending,
		ExecutionOrder:   len(q.Items) + 1,
		ExecutionGroup:   m.opts.DefaultGroup,
		DependsOn:        dedupe(opts.DependsOn),
		SemanticPriority: m.opts.DefaultSemanticPriority,
		FilesTouched:     sol.FilesTouched(),
		TaskCount:        len(sol.Tasks),
	}
	if opts.ExecutionGroup != "" {
		item.ExecutionGroup = opts.ExecutionGroup
	}
	if opts.SemanticPriority != nil {
		item.SemanticPriority = *opts.SemanticPriority
	}

	q.Items = append(q.Items, item)
	if !q.HasIssue(issueID) {
		q.IssueIDs = append(q.IssueIDs, issueID)
	}
	q.Conflicts = dag.Conflicts(q.Items)
	q.UpdatedAt = laterOf(now, q.UpdatedAt)

	if err := m.store.SaveQueue(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to save queue %s: %w", q.ID, err)
	}
	result.Item = &q.Items[len(q.Items)-1]
	result.Created = true

	if is.Status != domain.IssueStatusExecuting {
		if _, err := m.issues.Transition(ctx, issueID, domain.IssueStatusQueued); err != nil {
			return nil, err
		}
	}

	logger.Info().
		Str("item_id", item.ItemID).
		Int("files_touched", len(item.FilesTouched)).
		Bool("queue_created", result.QueueCreated).
		Msg("issue queued")
	return result, nil
}

// newQueueID derives a QUE-<timestamp> id from now, stepping one second
// forward past any id already taken.
func newQueueID(now time.Time, idx Index) string {
	for {
		id := constants.QueueIDPrefix + now.Format(constants.IDTimestampLayout)
		if !idx.Has(id) {
			return id
		}
		now = now.Add(time.Second)
	}
}

func nextItemID(items []domain.QueueItem) string {
	highest := len(items)
	for _, it := range items {
		rest, ok := strings.CutPrefix(it.ItemID, constants.ItemIDPrefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > highest {
			highest = n
		}
	}
	return constants.ItemIDPrefix + strconv.Itoa(highest+1)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func laterOf(now, prev time.Time) time.Time {
	if now.Before(prev) {
		return prev
	}
	return now
}

// List returns every queue summary, oldest first.
func (m *Manager) List(ctx context.Context) ([]domain.QueueSummary, error) {
	idx, err := m.Index(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Summaries(), nil
}

// Get loads a queue. An empty id selects the active queue.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Queue, error) {
	if id == "" {
		idx, err := m.Index(ctx)
		if err != nil {
			return nil, err
		}
		if id, err = idx.Resolve(""); err != nil {
			return nil, err
		}
	}
	q, err := m.store.GetQueue(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue %s: %w", id, err)
	}
	return q, nil
}

// Report summarizes a queue's progress.
type Report struct {
	domain.QueueSummary

	Counts domain.StatusCounts `json:"counts"`

	// Ready lists the items next would hand out, best first.
	Ready []string `json:"ready"`

	// Executing lists items handed out but not yet reported.
	Executing []string `json:"executing"`

	Conflicts []domain.Conflict `json:"conflicts"`
}

// Status reports item counts for a queue. An empty id selects the active
// queue.
func (m *Manager) Status(ctx context.Context, id string) (*Report, error) {
	q, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	report := &Report{
		QueueSummary: q.Summary(),
		Counts:       q.Counts(),
		Ready:        []string{},
		Executing:    []string{},
		Conflicts:    q.Conflicts,
	}
	if report.Conflicts == nil {
		report.Conflicts = []domain.Conflict{}
	}
	for _, item := range dag.Ready(q.Items) {
		report.Ready = append(report.Ready, item.ItemID)
	}
	for _, item := range q.Items {
		if item.Status == domain.ItemStatusExecuting {
			report.Executing = append(report.Executing, item.ItemID)
		}
	}
	return report, nil
}

// DAG computes the scheduling graph of a queue. An empty id selects the
// active queue.
func (m *Manager) DAG(ctx context.Context, id string) (*dag.Graph, error) {
	q, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return dag.Compute(q)
}

// Delete removes a queue record. Confirmation is the caller's concern.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := store.ValidateID("queue", id); err != nil {
		return err
	}
	unlockIndex, err := m.locker.Lock(ctx, IndexLockKey)
	if err != nil {
		return err
	}
	defer unlockIndex()

	unlock, err := m.locker.Lock(ctx, LockKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.store.DeleteQueue(ctx, id); err != nil {
		return fmt.Errorf("failed to delete queue %s: %w", id, err)
	}
	zerolog.Ctx(ctx).Info().Str("queue_id", id).Msg("queue deleted")
	return nil
}
