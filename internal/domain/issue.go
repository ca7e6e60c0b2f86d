package domain

import "time"

// Issue is a trackable unit of requested work.
//
// Example JSON representation:
//
//	{
//	    "id": "ISS-20260101120000",
//	    "title": "Null check in parseConfig",
//	    "type": "bug",
//	    "status": "queued",
//	    "priority": 2,
//	    "context": "parseConfig panics when the file is empty",
//	    "bound_solution_id": "SOL-ISS-20260101120000-1",
//	    "created_at": "2026-01-01T12:00:00Z",
//	    "updated_at": "2026-01-01T12:10:00Z",
//	    "planned_at": "2026-01-01T12:05:00Z",
//	    "queued_at": "2026-01-01T12:10:00Z"
//	}
type Issue struct {
	// ID is the stable identifier. Generated ids use ISS-<14 digit timestamp>.
	ID string `json:"id"`

	// Title is a one-line summary.
	Title string `json:"title"`

	// Type is a free-form category such as bug, feature or task.
	Type string `json:"type"`

	// Status is the lifecycle stage.
	Status IssueStatus `json:"status"`

	// Priority ranges from 1 (most urgent) to 5.
	Priority int `json:"priority"`

	// Context describes the problem in markdown.
	Context string `json:"context,omitempty"`

	// BoundSolutionID names the solution chosen for execution. It is set
	// exactly when Status is planned, queued, executing, completed or failed.
	BoundSolutionID string `json:"bound_solution_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Stage timestamps are set the first time the stage is entered and
	// never overwritten.
	PlannedAt   *time.Time `json:"planned_at,omitempty"`
	QueuedAt    *time.Time `json:"queued_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IssueFilter selects issues in listings. Zero fields match everything.
type IssueFilter struct {
	Status []IssueStatus
	Type   string
}

// Match reports whether issue passes the filter.
func (f IssueFilter) Match(issue Issue) bool {
	if f.Type != "" && f.Type != issue.Type {
		return false
	}
	if len(f.Status) == 0 {
		return true
	}
	for _, s := range f.Status {
		if s == issue.Status {
			return true
		}
	}
	return false
}
