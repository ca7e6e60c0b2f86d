package domain

import (
	"encoding/json"
	"time"
)

// Queue is an ordered, schedulable collection of bound solutions.
type Queue struct {
	// ID has the form QUE-<14 digit timestamp>; ids sort by creation time.
	ID string `json:"id"`

	Status QueueStatus `json:"status"`

	// IssueIDs lists each represented issue once, in insertion order.
	IssueIDs []string `json:"issue_ids"`

	// Items are kept in insertion order.
	Items []QueueItem `json:"items"`

	// Conflicts lists files touched by more than one item.
	Conflicts []Conflict `json:"conflicts,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// QueueItem is the scheduling unit for one issue's bound solution.
type QueueItem struct {
	// ItemID has the form S-<n> and is unique within its queue.
	ItemID     string     `json:"item_id"`
	IssueID    string     `json:"issue_id"`
	SolutionID string     `json:"solution_id"`
	Status     ItemStatus `json:"status"`

	// ExecutionOrder is the item count at insertion plus one.
	ExecutionOrder int `json:"execution_order"`

	// ExecutionGroup is an informational batch label.
	ExecutionGroup string `json:"execution_group"`

	// DependsOn names items that must complete first.
	DependsOn []string `json:"depends_on"`

	// SemanticPriority breaks ties between equally ordered items; higher wins.
	SemanticPriority float64 `json:"semantic_priority"`

	// FilesTouched is the deduplicated set of files the solution modifies.
	FilesTouched []string `json:"files_touched"`
	TaskCount    int      `json:"task_count"`

	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Result is the executor's JSON payload, stored verbatim.
	Result json.RawMessage `json:"result,omitempty"`

	FailureReason  string           `json:"failure_reason,omitempty"`
	FailureDetails *FailureDetails  `json:"failure_details,omitempty"`
	FailureHistory []FailureDetails `json:"failure_history,omitempty"`
}

// FailureDetails describes one reported execution failure.
type FailureDetails struct {
	ErrorType string    `json:"error_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Conflict records a file shared by several items of a queue.
type Conflict struct {
	File    string   `json:"file"`
	ItemIDs []string `json:"item_ids"`
}

// QueueSummary is the index view of a queue.
type QueueSummary struct {
	ID         string      `json:"id"`
	Status     QueueStatus `json:"status"`
	IssueCount int         `json:"issue_count"`
	ItemCount  int         `json:"item_count"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Summary returns the index view of q.
func (q *Queue) Summary() QueueSummary {
	return QueueSummary{
		ID:         q.ID,
		Status:     q.Status,
		IssueCount: len(q.IssueIDs),
		ItemCount:  len(q.Items),
		CreatedAt:  q.CreatedAt,
		UpdatedAt:  q.UpdatedAt,
	}
}

// Item returns a pointer to the item with id, or nil.
func (q *Queue) Item(id string) *QueueItem {
	for i := range q.Items {
		if q.Items[i].ItemID == id {
			return &q.Items[i]
		}
	}
	return nil
}

// HasIssue reports whether issueID is represented in the queue.
func (q *Queue) HasIssue(issueID string) bool {
	for _, id := range q.IssueIDs {
		if id == issueID {
			return true
		}
	}
	return false
}

// StatusCounts tallies items by status.
type StatusCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Executing int `json:"executing"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Counts tallies the queue's items by status.
func (q *Queue) Counts() StatusCounts {
	c := StatusCounts{Total: len(q.Items)}
	for _, item := range q.Items {
		switch item.Status {
		case ItemStatusPending:
			c.Pending++
		case ItemStatusExecuting:
			c.Executing++
		case ItemStatusCompleted:
			c.Completed++
		case ItemStatusFailed:
			c.Failed++
		}
	}
	return c
}

// AllCompleted reports whether the queue has items and every one completed.
func (q *Queue) AllCompleted() bool {
	if len(q.Items) == 0 {
		return false
	}
	for _, item := range q.Items {
		if item.Status != ItemStatusCompleted {
			return false
		}
	}
	return true
}
