package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/dag"
	"github.com/mrz1836/issueflow/internal/domain"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
	"github.com/mrz1836/issueflow/internal/logging"
)

// NextResult is the outcome of Next. Item is nil when nothing is runnable.
type NextResult struct {
	QueueID string            `json:"queue_id,omitempty"`
	Item    *domain.QueueItem `json:"item"`
}

// Empty reports whether Next found no runnable item.
func (r *NextResult) Empty() bool {
	return r.Item == nil
}

// Next hands out the best ready item and marks it executing. Without a queue
// id, active queues are scanned oldest first. A queue that is not active
// never hands out work. Finding nothing is not an error.
func (m *Manager) Next(ctx context.Context, queueID string) (*NextResult, error) {
	unlockIndex, err := m.locker.Lock(ctx, IndexLockKey)
	if err != nil {
		return nil, err
	}
	defer unlockIndex()

	idx, err := m.Index(ctx)
	if err != nil {
		return nil, err
	}

	candidates := idx.WithStatus(domain.QueueStatusActive)
	if queueID != "" {
		if _, err := idx.Resolve(queueID); err != nil {
			return nil, err
		}
		candidates = []string{queueID}
	}

	for _, id := range candidates {
		res, err := m.nextIn(ctx, id)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	zerolog.Ctx(ctx).Debug().Str("queue_id", queueID).Msg("no ready item")
	return &NextResult{QueueID: queueID}, nil
}

func (m *Manager) nextIn(ctx context.Context, queueID string) (*NextResult, error) {
	unlock, err := m.locker.Lock(ctx, LockKey(queueID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	q, err := m.store.GetQueue(ctx, queueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue %s: %w", queueID, err)
	}
	if q.Status != domain.QueueStatusActive {
		return nil, nil //nolint:nilnil // nothing runnable in this queue
	}
	ready := dag.Ready(q.Items)
	if len(ready) == 0 {
		return nil, nil //nolint:nilnil // nothing runnable in this queue
	}

	item := q.Item(ready[0].ItemID)
	if err := m.requireBinding(ctx, item.IssueID); err != nil {
		return nil, err
	}
	now := laterOf(m.clock.Now().UTC(), q.UpdatedAt)
	item.Status = domain.ItemStatusExecuting
	item.StartedAt = &now
	q.UpdatedAt = now

	if err := m.store.SaveQueue(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to save queue %s: %w", q.ID, err)
	}
	if err := m.moveIssue(ctx, item.IssueID, domain.IssueStatusExecuting); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("queue_id", q.ID).Str("item_id", item.ItemID).Str("issue_id", item.IssueID).Msg("item started")
	handed := *item
	return &NextResult{QueueID: q.ID, Item: &handed}, nil
}

// DoneInput is an executor's report for one item.
type DoneInput struct {
	// QueueID restricts the search to one queue.
	QueueID string

	// Result is an optional JSON payload stored on the item.
	Result []byte

	// Fail marks the item failed instead of completed.
	Fail bool

	// Reason describes a failure.
	Reason string

	// ErrorType classifies a failure. Empty means execution_failed.
	ErrorType string
}

// DoneResult describes the state after a report.
type DoneResult struct {
	QueueID     string             `json:"queue_id"`
	QueueStatus domain.QueueStatus `json:"queue_status"`
	Item        domain.QueueItem   `json:"item"`
}

// Done records the outcome of an item. The item must be pending or
// executing. A success completes the owning issue and, once every item is
// completed, the queue. A failure fails the owning issue and, under the
// queue failure policy, the queue.
func (m *Manager) Done(ctx context.Context, itemID string, in DoneInput) (*DoneResult, error) {
	var result json.RawMessage
	if len(bytes.TrimSpace(in.Result)) > 0 {
		if !json.Valid(in.Result) {
			return nil, fmt.Errorf("%w: result for %s is not valid JSON", flowerrors.ErrInvalidResultPayload, itemID)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, in.Result); err != nil {
			return nil, fmt.Errorf("%w: %w", flowerrors.ErrInvalidResultPayload, err)
		}
		result = compact.Bytes()
	}

	unlockIndex, err := m.locker.Lock(ctx, IndexLockKey)
	if err != nil {
		return nil, err
	}
	defer unlockIndex()

	queueID, err := m.locateInFlight(ctx, itemID, in.QueueID)
	if err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, LockKey(queueID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	q, err := m.store.GetQueue(ctx, queueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue %s: %w", queueID, err)
	}
	item := q.Item(itemID)
	if item == nil {
		return nil, fmt.Errorf("%w: %s in queue %s", flowerrors.ErrQueueItemNotFound, itemID, queueID)
	}
	if item.Status != domain.ItemStatusPending && item.Status != domain.ItemStatusExecuting {
		return nil, fmt.Errorf("%w: item %s is %s", flowerrors.ErrInvalidTransition, itemID, item.Status)
	}
	if err := m.requireBinding(ctx, item.IssueID); err != nil {
		return nil, err
	}

	now := laterOf(m.clock.Now().UTC(), q.UpdatedAt)
	q.UpdatedAt = now
	logger := zerolog.Ctx(ctx).With().Str("queue_id", q.ID).Str("item_id", itemID).Str("issue_id", item.IssueID).Logger()

	var issueStatus domain.IssueStatus
	if in.Fail {
		errorType := in.ErrorType
		if errorType == "" {
			errorType = constants.DefaultFailureErrorType
		}
		item.Status = domain.ItemStatusFailed
		item.FailureReason = in.Reason
		item.FailureDetails = &domain.FailureDetails{ErrorType: errorType, Message: in.Reason, Timestamp: now}
		if len(result) > 0 {
			item.Result = result
		}
		if m.opts.FailurePolicy == constants.FailurePolicyQueue {
			q.Status = domain.QueueStatusFailed
		}
		issueStatus = domain.IssueStatusFailed
		logger.Warn().
			Str("error_type", errorType).
			Str("reason", logging.FilterSensitiveValue(in.Reason)).
			Str("queue_status", q.Status.String()).
			Msg("item failed")
	} else {
		item.Status = domain.ItemStatusCompleted
		item.CompletedAt = &now
		item.Result = result
		if q.AllCompleted() {
			q.Status = domain.QueueStatusCompleted
			q.CompletedAt = &now
		}
		issueStatus = domain.IssueStatusCompleted
		logger.Info().Str("queue_status", q.Status.String()).Msg("item completed")
		if len(result) > 0 {
			logger.Debug().Str("result", logging.PayloadPreview(result)).Msg("item result recorded")
		}
	}

	if err := m.store.SaveQueue(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to save queue %s: %w", q.ID, err)
	}
	if err := m.moveIssue(ctx, item.IssueID, issueStatus); err != nil {
		return nil, err
	}

	return &DoneResult{QueueID: q.ID, QueueStatus: q.Status, Item: *item}, nil
}

// locateInFlight finds the queue holding itemID. Without an explicit queue,
// active and failed queues are searched for a pending or executing item with
// that id. Item ids repeat across queues, so more than one hit is ambiguous.
func (m *Manager) locateInFlight(ctx context.Context, itemID, explicit string) (string, error) {
	idx, err := m.Index(ctx)
	if err != nil {
		return "", err
	}
	if explicit != "" {
		return idx.Resolve(explicit)
	}

	var inFlight, settled []string
	for _, id := range idx.WithStatus(domain.QueueStatusActive, domain.QueueStatusFailed) {
		q, err := m.store.GetQueue(ctx, id)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("queue_id", id).Msg("skipping unreadable queue")
			continue
		}
		item := q.Item(itemID)
		if item == nil {
			continue
		}
		if item.Status == domain.ItemStatusPending || item.Status == domain.ItemStatusExecuting {
			inFlight = append(inFlight, id)
		} else {
			settled = append(settled, id)
		}
	}

	switch {
	case len(inFlight) == 1:
		return inFlight[0], nil
	case len(inFlight) > 1:
		return "", fmt.Errorf("%w: %s is in flight in queues %v; pass a queue id", flowerrors.ErrAmbiguousItem, itemID, inFlight)
	case len(settled) > 0:
		return "", fmt.Errorf("%w: item %s has already been reported", flowerrors.ErrInvalidTransition, itemID)
	default:
		return "", fmt.Errorf("%w: %s", flowerrors.ErrQueueItemNotFound, itemID)
	}
}

// RetryResult lists the items returned to pending.
type RetryResult struct {
	QueueID string             `json:"queue_id"`
	Items   []domain.QueueItem `json:"items"`
}

// Retry returns the failed items of issueID to pending, keeping each prior
// failure in the item's history, reactivates the queue and moves the issue
// back to queued. Without a queue id, the newest queue holding a failed item
// for the issue is used. A solution that is already pending or executing in
// another active queue is not retried.
func (m *Manager) Retry(ctx context.Context, issueID, queueID string) (*RetryResult, error) {
	unlockIndex, err := m.locker.Lock(ctx, IndexLockKey)
	if err != nil {
		return nil, err
	}
	defer unlockIndex()

	idx, err := m.Index(ctx)
	if err != nil {
		return nil, err
	}
	if queueID != "" {
		if _, err := idx.Resolve(queueID); err != nil {
			return nil, err
		}
	} else {
		if queueID, err = m.newestWithFailure(ctx, idx, issueID); err != nil {
			return nil, err
		}
	}

	unlock, err := m.locker.Lock(ctx, LockKey(queueID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	q, err := m.store.GetQueue(ctx, queueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue %s: %w", queueID, err)
	}
	if err := m.requireBinding(ctx, issueID); err != nil {
		return nil, err
	}

	now := laterOf(m.clock.Now().UTC(), q.UpdatedAt)
	retried := make([]domain.QueueItem, 0)
	for i := range q.Items {
		item := &q.Items[i]
		if item.IssueID != issueID || item.Status != domain.ItemStatusFailed {
			continue
		}
		prior := domain.FailureDetails{
			ErrorType: constants.DefaultFailureErrorType,
			Message:   item.FailureReason,
			Timestamp: now,
		}
		if item.FailureDetails != nil {
			prior = *item.FailureDetails
		}
		item.FailureHistory = append(item.FailureHistory, prior)
		item.FailureReason = ""
		item.FailureDetails = nil
		item.Status = domain.ItemStatusPending
		item.StartedAt = nil
		item.CompletedAt = nil
		retried = append(retried, *item)
	}
	if len(retried) == 0 {
		return nil, fmt.Errorf("%w: %s in queue %s", flowerrors.ErrNoFailedItems, issueID, queueID)
	}
	if err := m.requeuedElsewhere(ctx, idx, q.ID, retried); err != nil {
		return nil, err
	}

	q.Status = domain.QueueStatusActive
	q.CompletedAt = nil
	q.UpdatedAt = now
	if err := m.store.SaveQueue(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to save queue %s: %w", q.ID, err)
	}
	if err := m.moveIssue(ctx, issueID, domain.IssueStatusQueued); err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Str("queue_id", q.ID).Str("issue_id", issueID).Int("items", len(retried)).Msg("failed items requeued")
	return &RetryResult{QueueID: q.ID, Items: retried}, nil
}

// requeuedElsewhere refuses a retry when another active queue already holds
// one of the retried solutions pending or executing, as happens when the
// issue was added again after its queue failed.
func (m *Manager) requeuedElsewhere(ctx context.Context, idx Index, queueID string, retried []domain.QueueItem) error {
	for _, id := range idx.WithStatus(domain.QueueStatusActive) {
		if id == queueID {
			continue
		}
		other, err := m.store.GetQueue(ctx, id)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("queue_id", id).Msg("skipping unreadable queue")
			continue
		}
		for _, item := range other.Items {
			if item.Status != domain.ItemStatusPending && item.Status != domain.ItemStatusExecuting {
				continue
			}
			for _, r := range retried {
				if item.IssueID == r.IssueID && item.SolutionID == r.SolutionID {
					return fmt.Errorf("%w: %s is already %s as %s in queue %s",
						flowerrors.ErrInvalidTransition, r.SolutionID, item.Status, item.ItemID, other.ID)
				}
			}
		}
	}
	return nil
}

func (m *Manager) newestWithFailure(ctx context.Context, idx Index, issueID string) (string, error) {
	summaries := idx.Summaries()
	for i := len(summaries) - 1; i >= 0; i-- {
		q, err := m.store.GetQueue(ctx, summaries[i].ID)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("queue_id", summaries[i].ID).Msg("skipping unreadable queue")
			continue
		}
		for _, item := range q.Items {
			if item.IssueID == issueID && item.Status == domain.ItemStatusFailed {
				return q.ID, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s", flowerrors.ErrNoFailedItems, issueID)
}

// requireBinding refuses to touch an item whose issue has lost its binding,
// leaving the queue as it was. An issue that has left the active set is not
// checked, matching moveIssue.
func (m *Manager) requireBinding(ctx context.Context, issueID string) error {
	is, err := m.issues.Get(ctx, issueID)
	if errors.Is(err, flowerrors.ErrIssueNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if is.BoundSolutionID == "" {
		return fmt.Errorf("%w: issue %s is %s; plan it again first", flowerrors.ErrNoBoundSolution, issueID, is.Status)
	}
	return nil
}

// moveIssue propagates an item transition to its issue. The queue record is
// already saved, so an issue that has left the active set is only logged.
func (m *Manager) moveIssue(ctx context.Context, issueID string, status domain.IssueStatus) error {
	_, err := m.issues.Transition(ctx, issueID, status)
	if err == nil {
		return nil
	}
	if errors.Is(err, flowerrors.ErrIssueNotFound) {
		zerolog.Ctx(ctx).Warn().Err(err).Str("issue_id", issueID).Str("status", status.String()).Msg("issue not active; status not propagated")
		return nil
	}
	return fmt.Errorf("queue saved but issue %s not moved to %s: %w", issueID, status, err)
}
