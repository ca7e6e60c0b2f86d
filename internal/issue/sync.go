package issue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mrz1836/issueflow/internal/domain"
)

type binding struct {
	issueID    string
	solutionID string
}

// SyncFromQueues advances every planned issue whose bound solution already
// sits in an active queue to queued. Queue insertion and the issue update are
// two writes, so a crash between them leaves the issue behind; this closes
// the gap. It returns the ids of the issues it changed.
func (m *Manager) SyncFromQueues(ctx context.Context) ([]string, error) {
	queues, err := m.store.ListQueues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}

	queued := make(map[binding]struct{})
	for _, q := range queues {
		if q.Status != domain.QueueStatusActive {
			continue
		}
		for _, item := range q.Items {
			queued[binding{issueID: item.IssueID, solutionID: item.SolutionID}] = struct{}{}
		}
	}
	if len(queued) == 0 {
		return []string{}, nil
	}

	unlock, err := m.locker.Lock(ctx, LockKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	issues, err := m.store.ListIssues(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}

	updated := []string{}
	for i := range issues {
		is := &issues[i]
		if is.Status != domain.IssueStatusPlanned {
			continue
		}
		if _, ok := queued[binding{issueID: is.ID, solutionID: is.BoundSolutionID}]; !ok {
			continue
		}
		if _, err := m.apply(ctx, is, domain.IssueStatusQueued); err != nil {
			return updated, err
		}
		updated = append(updated, is.ID)
	}

	if len(updated) > 0 {
		zerolog.Ctx(ctx).Info().Strs("issue_ids", updated).Msg("issues synced from queues")
	}
	return updated, nil
}
