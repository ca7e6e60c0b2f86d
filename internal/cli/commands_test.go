package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/issueflow/internal/domain"
	"github.com/mrz1836/issueflow/internal/errors"
	"github.com/mrz1836/issueflow/internal/queue"
	"github.com/mrz1836/issueflow/internal/testutil"
)

// bindFromFile creates an issue and binds the solution in file to it.
func bindFromFile(t *testing.T, dir, issueID, file string) {
	t.Helper()
	res := runCLI(t, dir, "issue", "create", "--id", issueID, "--title", "work on "+issueID)
	require.NoError(t, res.err, res.stderr)
	res = runCLI(t, dir, "solution", "bind", issueID, "--solution", filepath.Join("testdata", file))
	require.NoError(t, res.err, res.stderr)
}

func TestIssueCommands(t *testing.T) {
	dir := isolate(t)

	var created domain.Issue
	runJSON(t, dir, &created, "issue", "create", "--id", "ISS-1", "--title", "Fix login",
		"--priority", "2", "--context", "# Steps\n\n1. open /login")
	assert.Equal(t, "ISS-1", created.ID)
	assert.Equal(t, domain.IssueStatusRegistered, created.Status)
	assert.Equal(t, 2, created.Priority)
	assert.Equal(t, "task", created.Type)

	res := runCLI(t, dir, "issue", "create", "--title", "Generated id")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Created issue ISS-")

	t.Run("list filters by status", func(t *testing.T) {
		res := runCLI(t, dir, "issue", "update", "ISS-1", "--status", "planning")
		require.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, "Issue ISS-1 is now planning")

		var issues []domain.Issue
		runJSON(t, dir, &issues, "issue", "list", "--status", "planning")
		require.Len(t, issues, 1)
		assert.Equal(t, "ISS-1", issues[0].ID)

		res = runCLI(t, dir, "issue", "list")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "ISS-1")
		assert.Contains(t, res.stdout, "Generated id")
	})

	t.Run("show renders context", func(t *testing.T) {
		res := runCLI(t, dir, "issue", "show", "ISS-1")
		require.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, "Fix login")
		assert.Contains(t, res.stdout, "Steps")

		var detail issueDetail
		runJSON(t, dir, &detail, "issue", "show", "ISS-1")
		assert.False(t, detail.Archived)
		assert.NotNil(t, detail.Solutions)
	})

	t.Run("planned without a solution is rejected", func(t *testing.T) {
		res := runCLI(t, dir, "issue", "update", "ISS-1", "--status", "planned")
		require.ErrorIs(t, res.err, errors.ErrNoBoundSolution)
		assert.Equal(t, ExitInvalidInput, ExitCodeForError(res.err))
		assert.Contains(t, res.stderr, "issueflow solution bind")
	})

	t.Run("unknown status is invalid input", func(t *testing.T) {
		res := runCLI(t, dir, "issue", "update", "ISS-1", "--status", "done")
		require.ErrorIs(t, res.err, errors.ErrInvalidIssueStatus)
		assert.Equal(t, ExitInvalidInput, ExitCodeForError(res.err))
	})

	t.Run("missing issue exits with 1", func(t *testing.T) {
		res := runCLI(t, dir, "issue", "show", "ISS-404")
		require.ErrorIs(t, res.err, errors.ErrIssueNotFound)
		assert.Equal(t, ExitError, ExitCodeForError(res.err))
	})

	t.Run("json errors go to stdout", func(t *testing.T) {
		res := runCLI(t, dir, "--output", "json", "issue", "show", "ISS-404")
		require.ErrorIs(t, res.err, errors.ErrJSONErrorOutput)
		require.ErrorIs(t, res.err, errors.ErrIssueNotFound)

		var payload map[string]string
		require.NoError(t, json.Unmarshal([]byte(res.stdout), &payload))
		assert.Equal(t, "error", payload["type"])
		assert.Contains(t, payload["message"], "ISS-404")
		assert.NotEmpty(t, payload["suggestion"])
		assert.Empty(t, res.stderr)
	})

	t.Run("sync with nothing queued", func(t *testing.T) {
		var out syncResult
		runJSON(t, dir, &out, "issue", "sync")
		assert.Empty(t, out.Updated)
	})
}

func TestSolutionCommands(t *testing.T) {
	dir := isolate(t)

	res := runCLI(t, dir, "issue", "create", "--id", "ISS-1", "--title", "Fix login")
	require.NoError(t, res.err)

	var first, second domain.Solution
	runJSON(t, dir, &first, "solution", "add", "ISS-1", "--file", filepath.Join("testdata", "login.yaml"))
	runJSON(t, dir, &second, "solution", "add", "ISS-1", "--file", filepath.Join("testdata", "session.json"))
	assert.Equal(t, "SOL-ISS-1-1", first.ID)
	assert.Equal(t, "SOL-ISS-1-2", second.ID)
	assert.False(t, first.IsBound)

	t.Run("bind by id", func(t *testing.T) {
		var out bindResult
		runJSON(t, dir, &out, "solution", "bind", "ISS-1", "SOL-ISS-1-2")
		assert.True(t, out.Solution.IsBound)
		assert.Equal(t, domain.IssueStatusPlanned, out.Issue.Status)
		assert.Equal(t, "SOL-ISS-1-2", out.Issue.BoundSolutionID)
	})

	t.Run("rebinding moves the binding", func(t *testing.T) {
		res := runCLI(t, dir, "solution", "bind", "ISS-1", "SOL-ISS-1-1")
		require.NoError(t, res.err, res.stderr)

		var sols []domain.Solution
		runJSON(t, dir, &sols, "solution", "list", "ISS-1")
		require.Len(t, sols, 2)
		assert.True(t, sols[0].IsBound)
		assert.False(t, sols[1].IsBound)

		res = runCLI(t, dir, "solution", "list", "ISS-1")
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "src/auth/login.ts")
	})

	t.Run("bind needs exactly one source", func(t *testing.T) {
		res := runCLI(t, dir, "solution", "bind", "ISS-1")
		require.ErrorIs(t, res.err, errors.ErrInvalidArgument)
		assert.Equal(t, ExitInvalidInput, ExitCodeForError(res.err))

		res = runCLI(t, dir, "solution", "bind", "ISS-1", "SOL-ISS-1-1", "--solution", "x.yaml")
		require.ErrorIs(t, res.err, errors.ErrInvalidArgument)
	})

	t.Run("unknown solution", func(t *testing.T) {
		res := runCLI(t, dir, "solution", "bind", "ISS-1", "SOL-ISS-1-9")
		require.ErrorIs(t, res.err, errors.ErrSolutionNotFound)
	})
}

func TestQueueLifecycle(t *testing.T) {
	dir := isolate(t)
	bindFromFile(t, dir, "ISS-1", "login.yaml")
	bindFromFile(t, dir, "ISS-2", "session.json")

	var added addResult
	runJSON(t, dir, &added, "queue", "add", "ISS-1")
	assert.True(t, added.QueueCreated)
	assert.True(t, added.Created)
	assert.Equal(t, "S-1", added.Item.ItemID)
	queueID := added.QueueID

	res := runCLI(t, dir, "queue", "add", "ISS-2", "--priority", "0.9")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, "Queued ISS-2 as S-2 in "+queueID)
	assert.Contains(t, res.stdout, "src/auth/session.ts")

	t.Run("adding again is a no-op", func(t *testing.T) {
		var again addResult
		runJSON(t, dir, &again, "queue", "add", "ISS-1")
		assert.False(t, again.Created)
		assert.Equal(t, "S-1", again.Item.ItemID)
	})

	t.Run("issues moved to queued", func(t *testing.T) {
		var issues []domain.Issue
		runJSON(t, dir, &issues, "issue", "list", "--status", "queued")
		assert.Len(t, issues, 2)
	})

	t.Run("shared file splits the dag", func(t *testing.T) {
		var g struct {
			ParallelBatches [][]string `json:"parallel_batches"`
			BatchesNeeded   int        `json:"batches_needed"`
		}
		runJSON(t, dir, &g, "queue", "dag")
		assert.Equal(t, [][]string{{"S-1"}, {"S-2"}}, g.ParallelBatches)
		assert.Equal(t, 2, g.BatchesNeeded)

		res := runCLI(t, dir, "queue", "dag", queueID)
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Batch 2: S-2")
	})

	t.Run("next hands out S-1 and leaves S-2 ready", func(t *testing.T) {
		var next queue.NextResult
		runJSON(t, dir, &next, "queue", "next")
		require.NotNil(t, next.Item)
		assert.Equal(t, "S-1", next.Item.ItemID)
		assert.Equal(t, domain.ItemStatusExecuting, next.Item.Status)

		var report queue.Report
		runJSON(t, dir, &report, "queue", "status")
		assert.Equal(t, []string{"S-1"}, report.Executing)
		assert.Equal(t, []string{"S-2"}, report.Ready)
	})

	t.Run("queued issue cannot go back to planning", func(t *testing.T) {
		res := runCLI(t, dir, "issue", "update", "ISS-2", "--status", "planning")
		require.ErrorIs(t, res.err, errors.ErrInvalidTransition)
	})

	t.Run("invalid result payload is rejected", func(t *testing.T) {
		res := runCLI(t, dir, "queue", "done", "S-1", "--result", "{not json")
		require.ErrorIs(t, res.err, errors.ErrInvalidResultPayload)
		assert.Equal(t, ExitInvalidInput, ExitCodeForError(res.err))
	})

	t.Run("done archives the issue", func(t *testing.T) {
		var done queue.DoneResult
		runJSON(t, dir, &done, "queue", "done", "S-1", "--result", `{"commit":"abc123"}`)
		assert.Equal(t, domain.ItemStatusCompleted, done.Item.Status)
		assert.Equal(t, domain.QueueStatusActive, done.QueueStatus)

		var history []domain.Issue
		runJSON(t, dir, &history, "issue", "history")
		require.Len(t, history, 1)
		assert.Equal(t, "ISS-1", history[0].ID)

		var detail issueDetail
		runJSON(t, dir, &detail, "issue", "show", "ISS-1")
		assert.True(t, detail.Archived)
	})

	t.Run("failure fails the queue and retry reopens it", func(t *testing.T) {
		var next queue.NextResult
		runJSON(t, dir, &next, "queue", "next")
		require.NotNil(t, next.Item)
		assert.Equal(t, "S-2", next.Item.ItemID)

		res := runCLI(t, dir, "queue", "done", "S-2", "--fail", "--reason", "tests failed")
		require.NoError(t, res.err, res.stderr)
		assert.Contains(t, res.stdout, "S-2 marked failed")

		var report queue.Report
		runJSON(t, dir, &report, "queue", "status", queueID)
		assert.Equal(t, domain.QueueStatusFailed, report.Status)
		assert.Equal(t, 1, report.Counts.Failed)

		var retried queue.RetryResult
		runJSON(t, dir, &retried, "queue", "retry", "ISS-2")
		require.Len(t, retried.Items, 1)
		assert.Equal(t, domain.ItemStatusPending, retried.Items[0].Status)
		require.Len(t, retried.Items[0].FailureHistory, 1)
		assert.Equal(t, "tests failed", retried.Items[0].FailureHistory[0].Message)

		var q domain.Queue
		runJSON(t, dir, &q, "queue", "show")
		assert.Equal(t, domain.QueueStatusActive, q.Status)

		res = runCLI(t, dir, "queue", "retry", "ISS-2")
		require.ErrorIs(t, res.err, errors.ErrNoFailedItems)
	})

	t.Run("text views", func(t *testing.T) {
		for _, args := range [][]string{{"queue", "list"}, {"queue", "show"}, {"queue", "status"}} {
			res := runCLI(t, dir, args...)
			require.NoError(t, res.err, res.stderr)
			assert.Contains(t, res.stdout, queueID)
		}
	})
}

func TestQueueAdd_Validation(t *testing.T) {
	dir := isolate(t)
	res := runCLI(t, dir, "issue", "create", "--id", "ISS-1", "--title", "unbound")
	require.NoError(t, res.err)

	res = runCLI(t, dir, "queue", "add", "ISS-1")
	require.ErrorIs(t, res.err, errors.ErrNoBoundSolution)

	bindFromFile(t, dir, "ISS-2", "login.yaml")
	res = runCLI(t, dir, "queue", "add", "ISS-2", "--priority", "1.5")
	require.ErrorIs(t, res.err, errors.ErrValueOutOfRange)

	res = runCLI(t, dir, "queue", "add", "ISS-2", "--depends-on", "S-7")
	require.ErrorIs(t, res.err, errors.ErrUnknownDependency)

	res = runCLI(t, dir, "queue", "next")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "Nothing is ready")

	res = runCLI(t, dir, "queue", "show")
	require.ErrorIs(t, res.err, errors.ErrNoActiveQueue)
}

func TestQueueDelete(t *testing.T) {
	dir := isolate(t)
	bindFromFile(t, dir, "ISS-1", "login.yaml")

	var added addResult
	runJSON(t, dir, &added, "queue", "add", "ISS-1")
	queueID := added.QueueID

	t.Run("non-interactive without force", func(t *testing.T) {
		restore := mockTerminalCheck(false)
		defer restore()

		res := runCLI(t, dir, "queue", "delete", queueID)
		require.ErrorIs(t, res.err, errors.ErrNonInteractiveMode)
		assert.Equal(t, ExitInvalidInput, ExitCodeForError(res.err))
	})

	t.Run("declined confirmation keeps the queue", func(t *testing.T) {
		restore := mockTerminalCheck(true)
		defer restore()
		restoreForm := mockConfirm(false, nil)
		defer restoreForm()

		res := runCLI(t, dir, "queue", "delete", queueID)
		require.NoError(t, res.err)
		assert.Contains(t, res.stdout, "Operation canceled.")

		var summaries []domain.QueueSummary
		runJSON(t, dir, &summaries, "queue", "list")
		assert.Len(t, summaries, 1)
	})

	t.Run("prompt failure", func(t *testing.T) {
		restore := mockTerminalCheck(true)
		defer restore()
		restoreForm := mockConfirm(false, testutil.ErrMockPrompt)
		defer restoreForm()

		res := runCLI(t, dir, "queue", "delete", queueID)
		require.ErrorIs(t, res.err, testutil.ErrMockPrompt)
		assert.Contains(t, res.err.Error(), "failed to get confirmation")
	})

	t.Run("force deletes", func(t *testing.T) {
		var out deleteResult
		runJSON(t, dir, &out, "queue", "delete", queueID, "--force")
		assert.True(t, out.Deleted)

		res := runCLI(t, dir, "queue", "delete", queueID, "--force")
		require.ErrorIs(t, res.err, errors.ErrQueueNotFound)
	})
}

func TestConfigShow(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ISSUEFLOW_QUEUE_FAILURE_POLICY", "item")

	var annotated AnnotatedConfig
	runJSON(t, dir, &annotated, "config", "show")

	assert.Equal(t, dir, annotated.Store["dir"].Value)
	assert.Equal(t, SourceFlag, annotated.Store["dir"].Source)
	assert.Equal(t, "item", annotated.Queue["failure_policy"].Value)
	assert.Equal(t, SourceEnv, annotated.Queue["failure_policy"].Source)
	assert.Equal(t, "file", annotated.Store["backend"].Value)
	assert.Equal(t, SourceDefault, annotated.Store["backend"].Source)

	res := runCLI(t, dir, "config", "show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "failure_policy: item  # env")
	assert.Contains(t, res.stdout, "Configuration files:")
}

func TestSQLiteBackend(t *testing.T) {
	dir := isolate(t)
	t.Setenv("ISSUEFLOW_STORE_BACKEND", "sqlite")

	bindFromFile(t, dir, "ISS-1", "login.yaml")
	var added addResult
	runJSON(t, dir, &added, "queue", "add", "ISS-1")

	var next queue.NextResult
	runJSON(t, dir, &next, "queue", "next")
	require.NotNil(t, next.Item)
	assert.Equal(t, "S-1", next.Item.ItemID)
	assert.FileExists(t, filepath.Join(dir, "issueflow.db"))
}

func mockTerminalCheck(isTerminal bool) func() {
	original := terminalCheck
	terminalCheck = func() bool { return isTerminal }
	return func() { terminalCheck = original }
}

func mockConfirm(answer bool, err error) func() {
	original := confirmForm
	confirmForm = func(_, _ string) (bool, error) { return answer, err }
	return func() { confirmForm = original }
}
