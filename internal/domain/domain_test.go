package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

const exampleQueueItemJSON = `{
    "item_id": "S-2",
    "issue_id": "ISS-2",
    "solution_id": "SOL-ISS-2-1",
    "status": "failed",
    "execution_order": 2,
    "execution_group": "P1",
    "depends_on": ["S-1"],
    "semantic_priority": 0.5,
    "files_touched": ["src/b.ts"],
    "task_count": 1,
    "started_at": "2026-01-01T12:00:00Z",
    "failure_reason": "tests failed",
    "failure_details": {
        "error_type": "execution_failed",
        "message": "tests failed",
        "timestamp": "2026-01-01T12:05:00Z"
    },
    "result": {"exit": 1}
}`

func TestParseIssueStatus(t *testing.T) {
	for _, status := range ValidIssueStatuses() {
		t.Run(string(status), func(t *testing.T) {
			got, err := ParseIssueStatus(string(status))
			require.NoError(t, err)
			assert.Equal(t, status, got)
		})
	}

	t.Run("unknown value", func(t *testing.T) {
		_, err := ParseIssueStatus("done")
		require.ErrorIs(t, err, flowerrors.ErrInvalidIssueStatus)
		assert.Contains(t, err.Error(), `"done"`)
	})

	t.Run("case sensitive", func(t *testing.T) {
		_, err := ParseIssueStatus("Queued")
		require.ErrorIs(t, err, flowerrors.ErrInvalidIssueStatus)
	})
}

func TestRequiresBinding(t *testing.T) {
	assert.False(t, RequiresBinding(IssueStatusRegistered))
	assert.False(t, RequiresBinding(IssueStatusPlanning))
	for _, s := range []IssueStatus{IssueStatusPlanned, IssueStatusQueued, IssueStatusExecuting, IssueStatusCompleted, IssueStatusFailed} {
		assert.True(t, RequiresBinding(s), s)
	}
}

func TestIssueFilter_Match(t *testing.T) {
	issue := Issue{ID: "ISS-1", Type: "bug", Status: IssueStatusQueued}

	assert.True(t, IssueFilter{}.Match(issue))
	assert.True(t, IssueFilter{Type: "bug"}.Match(issue))
	assert.False(t, IssueFilter{Type: "feature"}.Match(issue))
	assert.True(t, IssueFilter{Status: []IssueStatus{IssueStatusPlanned, IssueStatusQueued}}.Match(issue))
	assert.False(t, IssueFilter{Status: []IssueStatus{IssueStatusFailed}}.Match(issue))
}

func TestSolution_FilesTouched(t *testing.T) {
	t.Run("deduplicates across tasks and points", func(t *testing.T) {
		sol := Solution{Tasks: []Task{
			{ModificationPoints: []ModificationPoint{{File: "src/a.ts"}, {File: "src/b.ts"}, {File: "src/a.ts"}}},
			{ModificationPoints: []ModificationPoint{{File: "src/b.ts"}, {File: ""}, {File: "src/c.ts"}}},
		}}
		assert.Equal(t, []string{"src/a.ts", "src/b.ts", "src/c.ts"}, sol.FilesTouched())
	})

	t.Run("no tasks yields empty non-nil slice", func(t *testing.T) {
		files := Solution{}.FilesTouched()
		require.NotNil(t, files)
		assert.Empty(t, files)
	})
}

func TestQueueItem_JSON(t *testing.T) {
	var item QueueItem
	require.NoError(t, json.Unmarshal([]byte(exampleQueueItemJSON), &item))

	assert.Equal(t, "S-2", item.ItemID)
	assert.Equal(t, ItemStatusFailed, item.Status)
	assert.Equal(t, []string{"S-1"}, item.DependsOn)
	require.NotNil(t, item.FailureDetails)
	assert.Equal(t, "execution_failed", item.FailureDetails.ErrorType)
	assert.JSONEq(t, `{"exit": 1}`, string(item.Result))
	assert.Nil(t, item.CompletedAt)

	out, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, exampleQueueItemJSON, string(out))
}

func TestQueue_Helpers(t *testing.T) {
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	q := &Queue{
		ID:        "QUE-20260101120000",
		Status:    QueueStatusActive,
		IssueIDs:  []string{"ISS-1", "ISS-2"},
		CreatedAt: created,
		UpdatedAt: created,
		Items: []QueueItem{
			{ItemID: "S-1", IssueID: "ISS-1", Status: ItemStatusCompleted},
			{ItemID: "S-2", IssueID: "ISS-2", Status: ItemStatusPending},
			{ItemID: "S-3", IssueID: "ISS-2", Status: ItemStatusFailed},
		},
	}

	t.Run("Item", func(t *testing.T) {
		item := q.Item("S-2")
		require.NotNil(t, item)
		item.Status = ItemStatusExecuting
		assert.Equal(t, ItemStatusExecuting, q.Items[1].Status, "Item must return a pointer into the slice")
		item.Status = ItemStatusPending
		assert.Nil(t, q.Item("S-9"))
	})

	t.Run("HasIssue", func(t *testing.T) {
		assert.True(t, q.HasIssue("ISS-2"))
		assert.False(t, q.HasIssue("ISS-3"))
	})

	t.Run("Counts", func(t *testing.T) {
		assert.Equal(t, StatusCounts{Total: 3, Pending: 1, Completed: 1, Failed: 1}, q.Counts())
	})

	t.Run("Summary", func(t *testing.T) {
		s := q.Summary()
		assert.Equal(t, QueueSummary{
			ID: q.ID, Status: QueueStatusActive, IssueCount: 2, ItemCount: 3,
			CreatedAt: created, UpdatedAt: created,
		}, s)
	})

	t.Run("AllCompleted", func(t *testing.T) {
		assert.False(t, q.AllCompleted())
		assert.False(t, (&Queue{}).AllCompleted(), "empty queue is not completed")
		done := &Queue{Items: []QueueItem{{Status: ItemStatusCompleted}, {Status: ItemStatusCompleted}}}
		assert.True(t, done.AllCompleted())
	})
}
