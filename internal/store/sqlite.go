package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/mrz1836/issueflow/internal/domain"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

const (
	pragmaJournalModeWAL = `PRAGMA journal_mode = WAL;`
	pragmaBusyTimeout    = `PRAGMA busy_timeout = 5000;`
)

// Records are stored as JSON documents; indexed columns are copies used for
// lookups only.
const (
	issuesSchema = `CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL
	);`

	historySchema = `CREATE TABLE IF NOT EXISTS issue_history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		data TEXT NOT NULL
	);`

	solutionsSchema = `CREATE TABLE IF NOT EXISTS solutions (
		issue_id TEXT NOT NULL,
		id TEXT NOT NULL,
		position INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (issue_id, id)
	);`

	queuesSchema = `CREATE TABLE IF NOT EXISTS queues (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL DEFAULT '',
		data TEXT NOT NULL
	);`
)

const (
	listIssuesSQL  = `SELECT id, data FROM issues ORDER BY rowid;`
	getIssueSQL    = `SELECT data FROM issues WHERE id = ?;`
	upsertIssueSQL = `INSERT INTO issues (id, status, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, data = excluded.data;`
	deleteIssueSQL   = `DELETE FROM issues WHERE id = ?;`
	insertHistorySQL = `INSERT INTO issue_history (id, data) VALUES (?, ?);`
	listHistorySQL   = `SELECT id, data FROM issue_history ORDER BY seq;`

	listSolutionsSQL   = `SELECT id, data FROM solutions WHERE issue_id = ? ORDER BY position;`
	deleteSolutionsSQL = `DELETE FROM solutions WHERE issue_id = ?;`
	insertSolutionSQL  = `INSERT INTO solutions (issue_id, id, position, data) VALUES (?, ?, ?, ?);`

	listQueuesSQL  = `SELECT id, data FROM queues ORDER BY id;`
	getQueueSQL    = `SELECT data FROM queues WHERE id = ?;`
	upsertQueueSQL = `INSERT INTO queues (id, status, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status, data = excluded.data;`
	deleteQueueSQL = `DELETE FROM queues WHERE id = ?;`
)

// SQLiteStore implements Store on a single sqlite database using the pure-Go
// modernc.org/sqlite driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path and ensures
// the schema exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("failed to open sqlite store: path %w", flowerrors.ErrEmptyValue)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	// One connection keeps per-connection pragmas in effect for every query.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range []string{
		pragmaJournalModeWAL,
		pragmaBusyTimeout,
		issuesSchema,
		historySchema,
		solutionsSchema,
		queuesSchema,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize sqlite schema: %w", err)
		}
	}
	return nil
}

// scanDocuments decodes (id, data) rows, skipping rows whose JSON is damaged.
func scanDocuments[T any](ctx context.Context, rows *sql.Rows, table string) ([]T, error) {
	defer func() { _ = rows.Close() }()

	logger := zerolog.Ctx(ctx)
	out := make([]T, 0)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		var rec T
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			logger.Warn().Err(err).Str("table", table).Str("id", id).Msg("skipping malformed record")
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return out, nil
}

// ListIssues returns the active issues in insertion order.
func (s *SQLiteStore) ListIssues(ctx context.Context) ([]domain.Issue, error) {
	rows, err := s.db.QueryContext(ctx, listIssuesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	return scanDocuments[domain.Issue](ctx, rows, "issues")
}

// GetIssue returns an active issue by id.
func (s *SQLiteStore) GetIssue(ctx context.Context, id string) (*domain.Issue, error) {
	var data string
	err := s.db.QueryRowContext(ctx, getIssueSQL, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", flowerrors.ErrIssueNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load issue %s: %w", id, err)
	}
	var issue domain.Issue
	if err := json.Unmarshal([]byte(data), &issue); err != nil {
		return nil, fmt.Errorf("%w: issue %s: %w", flowerrors.ErrRecordCorrupted, id, err)
	}
	return &issue, nil
}

// PutIssue inserts or replaces an active issue.
func (s *SQLiteStore) PutIssue(ctx context.Context, issue *domain.Issue) error {
	if issue == nil {
		return fmt.Errorf("failed to save issue: issue %w", flowerrors.ErrEmptyValue)
	}
	if err := ValidateID("issue", issue.ID); err != nil {
		return fmt.Errorf("failed to save issue: %w", err)
	}
	data, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("failed to marshal issue %s: %w", issue.ID, err)
	}
	if _, err := s.db.ExecContext(ctx, upsertIssueSQL, issue.ID, string(issue.Status), string(data)); err != nil {
		return fmt.Errorf("failed to save issue %s: %w", issue.ID, err)
	}
	return nil
}

// ArchiveIssue moves an issue to the history table in one transaction.
func (s *SQLiteStore) ArchiveIssue(ctx context.Context, issue *domain.Issue) error {
	if issue == nil {
		return fmt.Errorf("failed to archive issue: issue %w", flowerrors.ErrEmptyValue)
	}
	data, err := json.Marshal(issue)
	if err != nil {
		return fmt.Errorf("failed to marshal issue %s: %w", issue.ID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin archive: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, deleteIssueSQL, issue.ID)
	if err != nil {
		return fmt.Errorf("failed to remove archived issue %s: %w", issue.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to archive issue: %w: %s", flowerrors.ErrIssueNotFound, issue.ID)
	}
	if _, err := tx.ExecContext(ctx, insertHistorySQL, issue.ID, string(data)); err != nil {
		return fmt.Errorf("failed to archive issue %s: %w", issue.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}
	return nil
}

// ListHistory returns archived issues, oldest first.
func (s *SQLiteStore) ListHistory(ctx context.Context) ([]domain.Issue, error) {
	rows, err := s.db.QueryContext(ctx, listHistorySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list issue history: %w", err)
	}
	return scanDocuments[domain.Issue](ctx, rows, "issue_history")
}

// ListSolutions returns the solution family of an issue.
func (s *SQLiteStore) ListSolutions(ctx context.Context, issueID string) ([]domain.Solution, error) {
	rows, err := s.db.QueryContext(ctx, listSolutionsSQL, issueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list solutions for %s: %w", issueID, err)
	}
	return scanDocuments[domain.Solution](ctx, rows, "solutions")
}

// SaveSolutions replaces the solution family of an issue in one transaction.
func (s *SQLiteStore) SaveSolutions(ctx context.Context, issueID string, solutions []domain.Solution) error {
	if err := ValidateID("issue", issueID); err != nil {
		return fmt.Errorf("failed to save solutions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin solutions update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, deleteSolutionsSQL, issueID); err != nil {
		return fmt.Errorf("failed to clear solutions for %s: %w", issueID, err)
	}
	for i := range solutions {
		data, err := json.Marshal(solutions[i])
		if err != nil {
			return fmt.Errorf("failed to marshal solution %s: %w", solutions[i].ID, err)
		}
		if _, err := tx.ExecContext(ctx, insertSolutionSQL, issueID, solutions[i].ID, i, string(data)); err != nil {
			return fmt.Errorf("failed to save solution %s: %w", solutions[i].ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit solutions for %s: %w", issueID, err)
	}
	return nil
}

// ListQueues returns every readable queue sorted by id.
func (s *SQLiteStore) ListQueues(ctx context.Context) ([]domain.Queue, error) {
	rows, err := s.db.QueryContext(ctx, listQueuesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	return scanDocuments[domain.Queue](ctx, rows, "queues")
}

// GetQueue returns one queue.
func (s *SQLiteStore) GetQueue(ctx context.Context, id string) (*domain.Queue, error) {
	var data string
	err := s.db.QueryRowContext(ctx, getQueueSQL, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", flowerrors.ErrQueueNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load queue %s: %w", id, err)
	}
	var q domain.Queue
	if err := json.Unmarshal([]byte(data), &q); err != nil {
		return nil, fmt.Errorf("%w: queue %s: %w", flowerrors.ErrRecordCorrupted, id, err)
	}
	return &q, nil
}

// SaveQueue creates or replaces a queue.
func (s *SQLiteStore) SaveQueue(ctx context.Context, queue *domain.Queue) error {
	if queue == nil {
		return fmt.Errorf("failed to save queue: queue %w", flowerrors.ErrEmptyValue)
	}
	if err := ValidateID("queue", queue.ID); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}
	data, err := json.Marshal(queue)
	if err != nil {
		return fmt.Errorf("failed to marshal queue %s: %w", queue.ID, err)
	}
	if _, err := s.db.ExecContext(ctx, upsertQueueSQL, queue.ID, string(queue.Status), string(data)); err != nil {
		return fmt.Errorf("failed to save queue %s: %w", queue.ID, err)
	}
	return nil
}

// DeleteQueue removes a queue.
func (s *SQLiteStore) DeleteQueue(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, deleteQueueSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete queue %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", flowerrors.ErrQueueNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
