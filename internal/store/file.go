package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/ctxutil"
	"github.com/mrz1836/issueflow/internal/domain"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

// FileStore implements Store with JSON and JSONL files:
//
//	<dir>/issues/issues.jsonl
//	<dir>/issues/issue-history.jsonl
//	<dir>/issues/solutions/<issue id>.jsonl
//	<dir>/queues/<queue id>.json
type FileStore struct {
	dir string
}

// NewFileStore creates a FileStore rooted at dir. The directory is created
// lazily on first write.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("failed to create file store: dir %w", flowerrors.ErrEmptyValue)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve store dir: %w", err)
	}
	return &FileStore{dir: abs}, nil
}

// Dir returns the absolute store root.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) issuesPath() string {
	return filepath.Join(s.dir, constants.IssuesDir, constants.IssuesFileName)
}

func (s *FileStore) historyPath() string {
	return filepath.Join(s.dir, constants.IssuesDir, constants.IssueHistoryFileName)
}

func (s *FileStore) solutionsPath(issueID string) string {
	return filepath.Join(s.dir, constants.IssuesDir, constants.SolutionsDir, issueID+".jsonl")
}

func (s *FileStore) queuesDir() string {
	return filepath.Join(s.dir, constants.QueuesDir)
}

func (s *FileStore) queuePath(id string) string {
	return filepath.Join(s.queuesDir(), id+".json")
}

func hasIssueID(issue domain.Issue) bool { return issue.ID != "" }

func hasSolutionID(sol domain.Solution) bool { return sol.ID != "" }

// ListIssues returns the active issues in insertion order.
func (s *FileStore) ListIssues(ctx context.Context) ([]domain.Issue, error) {
	if err := ctxutil.Canceled(ctx, "list issues"); err != nil {
		return nil, err
	}
	return readJSONL(ctx, s.issuesPath(), hasIssueID)
}

// GetIssue returns an active issue by id.
func (s *FileStore) GetIssue(ctx context.Context, id string) (*domain.Issue, error) {
	issues, err := s.ListIssues(ctx)
	if err != nil {
		return nil, err
	}
	for i := range issues {
		if issues[i].ID == id {
			return &issues[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", flowerrors.ErrIssueNotFound, id)
}

// PutIssue inserts or replaces an active issue. Lines of issues.jsonl that
// cannot be decoded are kept at the end of the file.
func (s *FileStore) PutIssue(ctx context.Context, issue *domain.Issue) error {
	if issue == nil {
		return fmt.Errorf("failed to save issue: issue %w", flowerrors.ErrEmptyValue)
	}
	if err := ValidateID("issue", issue.ID); err != nil {
		return fmt.Errorf("failed to save issue: %w", err)
	}

	if err := ctxutil.Canceled(ctx, "save issue"); err != nil {
		return err
	}
	issues, rejected, err := scanJSONL(ctx, s.issuesPath(), hasIssueID)
	if err != nil {
		return err
	}

	replaced := false
	for i := range issues {
		if issues[i].ID == issue.ID {
			issues[i] = *issue
			replaced = true
			break
		}
	}
	if !replaced {
		issues = append(issues, *issue)
	}

	if err := writeJSONL(s.issuesPath(), issues, rejected); err != nil {
		return fmt.Errorf("failed to save issue %s: %w", issue.ID, err)
	}
	return nil
}

// ArchiveIssue moves an issue from the active set to the history log. The
// history append happens first, so an interrupted archive can leave a
// duplicate but never loses the record.
func (s *FileStore) ArchiveIssue(ctx context.Context, issue *domain.Issue) error {
	if issue == nil {
		return fmt.Errorf("failed to archive issue: issue %w", flowerrors.ErrEmptyValue)
	}
	if err := ctxutil.Canceled(ctx, "archive issue"); err != nil {
		return err
	}

	issues, rejected, err := scanJSONL(ctx, s.issuesPath(), hasIssueID)
	if err != nil {
		return err
	}

	remaining := make([]domain.Issue, 0, len(issues))
	found := false
	for _, existing := range issues {
		if existing.ID == issue.ID {
			found = true
			continue
		}
		remaining = append(remaining, existing)
	}
	if !found {
		return fmt.Errorf("failed to archive issue: %w: %s", flowerrors.ErrIssueNotFound, issue.ID)
	}

	if err := appendJSONL(s.historyPath(), issue); err != nil {
		return fmt.Errorf("failed to archive issue %s: %w", issue.ID, err)
	}
	if err := writeJSONL(s.issuesPath(), remaining, rejected); err != nil {
		return fmt.Errorf("failed to remove archived issue %s: %w", issue.ID, err)
	}
	return nil
}

// ListHistory returns archived issues, oldest first.
func (s *FileStore) ListHistory(ctx context.Context) ([]domain.Issue, error) {
	if err := ctxutil.Canceled(ctx, "list history"); err != nil {
		return nil, err
	}
	return readJSONL(ctx, s.historyPath(), hasIssueID)
}

// ListSolutions returns the solution family of an issue.
func (s *FileStore) ListSolutions(ctx context.Context, issueID string) ([]domain.Solution, error) {
	if err := ctxutil.Canceled(ctx, "list solutions"); err != nil {
		return nil, err
	}
	if err := ValidateID("issue", issueID); err != nil {
		return nil, fmt.Errorf("failed to list solutions: %w", err)
	}
	return readJSONL(ctx, s.solutionsPath(issueID), hasSolutionID)
}

// SaveSolutions replaces the solution family of an issue.
func (s *FileStore) SaveSolutions(ctx context.Context, issueID string, solutions []domain.Solution) error {
	if err := ctxutil.Canceled(ctx, "save solutions"); err != nil {
		return err
	}
	if err := ValidateID("issue", issueID); err != nil {
		return fmt.Errorf("failed to save solutions: %w", err)
	}
	_, rejected, err := scanJSONL(ctx, s.solutionsPath(issueID), hasSolutionID)
	if err != nil {
		return fmt.Errorf("failed to save solutions for %s: %w", issueID, err)
	}
	if err := writeJSONL(s.solutionsPath(issueID), solutions, rejected); err != nil {
		return fmt.Errorf("failed to save solutions for %s: %w", issueID, err)
	}
	return nil
}

// ListQueues loads every queue file concurrently. Unreadable queues are
// skipped with a warning.
func (s *FileStore) ListQueues(ctx context.Context) ([]domain.Queue, error) {
	if err := ctxutil.Canceled(ctx, "list queues"); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.queuesDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Queue{}, nil
		}
		return nil, fmt.Errorf("failed to read queues directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	results := make([]*domain.Queue, len(ids))
	logger := zerolog.Ctx(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(constants.MaxParallelReads)
	for i, id := range ids {
		g.Go(func() error {
			q, err := s.GetQueue(gctx, id)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Warn().Err(err).Str("queue_id", id).Msg("skipping unreadable queue")
				return nil
			}
			results[i] = q
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	queues := make([]domain.Queue, 0, len(results))
	for _, q := range results {
		if q != nil {
			queues = append(queues, *q)
		}
	}
	sort.Slice(queues, func(i, j int) bool { return queues[i].ID < queues[j].ID })
	return queues, nil
}

// GetQueue reads one queue file.
func (s *FileStore) GetQueue(ctx context.Context, id string) (*domain.Queue, error) {
	if err := ctxutil.Canceled(ctx, "get queue"); err != nil {
		return nil, err
	}
	if err := ValidateID("queue", id); err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}

	data, err := os.ReadFile(s.queuePath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", flowerrors.ErrQueueNotFound, id)
		}
		return nil, fmt.Errorf("failed to read queue %s: %w", id, err)
	}

	var q domain.Queue
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("%w: queue %s: %w", flowerrors.ErrRecordCorrupted, id, err)
	}
	if q.ID == "" {
		return nil, fmt.Errorf("%w: queue %s has no id", flowerrors.ErrRecordCorrupted, id)
	}
	return &q, nil
}

// SaveQueue writes a queue file atomically.
func (s *FileStore) SaveQueue(ctx context.Context, queue *domain.Queue) error {
	if err := ctxutil.Canceled(ctx, "save queue"); err != nil {
		return err
	}
	if queue == nil {
		return fmt.Errorf("failed to save queue: queue %w", flowerrors.ErrEmptyValue)
	}
	if err := ValidateID("queue", queue.ID); err != nil {
		return fmt.Errorf("failed to save queue: %w", err)
	}

	data, err := json.MarshalIndent(queue, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal queue %s: %w", queue.ID, err)
	}
	if err := atomicWrite(s.queuePath(queue.ID), data); err != nil {
		return fmt.Errorf("failed to save queue %s: %w", queue.ID, err)
	}
	return nil
}

// DeleteQueue removes a queue file and its backup.
func (s *FileStore) DeleteQueue(ctx context.Context, id string) error {
	if err := ctxutil.Canceled(ctx, "delete queue"); err != nil {
		return err
	}
	if err := ValidateID("queue", id); err != nil {
		return fmt.Errorf("failed to delete queue: %w", err)
	}

	path := s.queuePath(id)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", flowerrors.ErrQueueNotFound, id)
		}
		return fmt.Errorf("failed to delete queue %s: %w", id, err)
	}
	_ = os.Remove(path + constants.BackupSuffix)
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
