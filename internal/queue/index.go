package queue

import (
	"fmt"
	"sort"

	"github.com/mrz1836/issueflow/internal/domain"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

// Index is a point-in-time view of every queue's summary, sorted by id.
// Queue ids embed their creation time, so id order is age order.
type Index struct {
	summaries []domain.QueueSummary
}

// NewIndex builds an Index from loaded queues.
func NewIndex(queues []domain.Queue) Index {
	summaries := make([]domain.QueueSummary, 0, len(queues))
	for i := range queues {
		summaries = append(summaries, queues[i].Summary())
	}
	sort.Slice(summaries, func(a, b int) bool { return summaries[a].ID < summaries[b].ID })
	return Index{summaries: summaries}
}

// Summaries returns every summary, oldest first.
func (ix Index) Summaries() []domain.QueueSummary {
	out := make([]domain.QueueSummary, len(ix.summaries))
	copy(out, ix.summaries)
	return out
}

// Has reports whether a queue with id exists.
func (ix Index) Has(id string) bool {
	for _, s := range ix.summaries {
		if s.ID == id {
			return true
		}
	}
	return false
}

// Active returns the newest active queue id.
func (ix Index) Active() (string, bool) {
	for i := len(ix.summaries) - 1; i >= 0; i-- {
		if ix.summaries[i].Status == domain.QueueStatusActive {
			return ix.summaries[i].ID, true
		}
	}
	return "", false
}

// WithStatus returns the ids of queues in any of statuses, oldest first.
func (ix Index) WithStatus(statuses ...domain.QueueStatus) []string {
	ids := make([]string, 0)
	for _, s := range ix.summaries {
		for _, want := range statuses {
			if s.Status == want {
				ids = append(ids, s.ID)
				break
			}
		}
	}
	return ids
}

// Resolve picks the queue an operation targets. An explicit id wins and must
// exist; otherwise the active queue is used.
func (ix Index) Resolve(explicit string) (string, error) {
	if explicit != "" {
		if !ix.Has(explicit) {
			return "", fmt.Errorf("%w: %s", flowerrors.ErrQueueNotFound, explicit)
		}
		return explicit, nil
	}
	id, ok := ix.Active()
	if !ok {
		return "", flowerrors.ErrNoActiveQueue
	}
	return id, nil
}
