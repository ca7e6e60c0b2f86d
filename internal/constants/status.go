package constants

// IssueStatus represents the stage of an issue in its lifecycle.
// Status values use lowercase for JSON serialization compatibility.
type IssueStatus string

// Issue status constants. The lifecycle runs:
//
//	registered → planning → planned → queued → executing → completed | failed
//	failed → queued (retry)
const (
	// IssueStatusRegistered indicates a newly recorded issue with no plan.
	IssueStatusRegistered IssueStatus = "registered"

	// IssueStatusPlanning indicates solutions are being prepared.
	IssueStatusPlanning IssueStatus = "planning"

	// IssueStatusPlanned indicates a solution has been bound.
	IssueStatusPlanned IssueStatus = "planned"

	// IssueStatusQueued indicates the bound solution is an item in a queue.
	IssueStatusQueued IssueStatus = "queued"

	// IssueStatusExecuting indicates a worker has taken the queue item.
	IssueStatusExecuting IssueStatus = "executing"

	// IssueStatusCompleted indicates the work finished. Completed issues live
	// in the history log, not in the active set.
	IssueStatusCompleted IssueStatus = "completed"

	// IssueStatusFailed indicates the work failed. It can be retried.
	IssueStatusFailed IssueStatus = "failed"
)

// String returns the string representation of the IssueStatus.
func (s IssueStatus) String() string {
	return string(s)
}

// QueueStatus represents the state of an execution queue.
type QueueStatus string

// Queue status constants.
const (
	// QueueStatusActive indicates the queue accepts items and hands out work.
	QueueStatusActive QueueStatus = "active"

	// QueueStatusCompleted indicates every item in the queue completed.
	QueueStatusCompleted QueueStatus = "completed"

	// QueueStatusFailed indicates an item failed and the queue awaits a retry.
	QueueStatusFailed QueueStatus = "failed"
)

// String returns the string representation of the QueueStatus.
func (s QueueStatus) String() string {
	return string(s)
}

// ItemStatus represents the state of a single queue item.
type ItemStatus string

// Queue item status constants.
const (
	// ItemStatusPending indicates the item waits for its dependencies or a worker.
	ItemStatusPending ItemStatus = "pending"

	// ItemStatusExecuting indicates a worker took the item via next.
	ItemStatusExecuting ItemStatus = "executing"

	// ItemStatusCompleted indicates the worker reported success.
	ItemStatusCompleted ItemStatus = "completed"

	// ItemStatusFailed indicates the worker reported failure.
	// Failed items never resume on their own.
	ItemStatusFailed ItemStatus = "failed"
)

// String returns the string representation of the ItemStatus.
func (s ItemStatus) String() string {
	return string(s)
}
