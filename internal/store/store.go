// Package store persists issueflow's three record families: issues (an
// active set plus an append-only history), per-issue solution families, and
// queues. It holds no business rules; callers serialize read-modify-write
// cycles with flock.Locker.
//
// Damaged records never fail a listing. Malformed lines or files are skipped
// and reported as warnings on the context logger.
package store

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/mrz1836/issueflow/internal/constants"
	"github.com/mrz1836/issueflow/internal/domain"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

// Directory and file permission constants.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// validIDRegex matches identifiers that are safe to embed in file names.
var validIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Store defines the persistence operations for issues, solutions and queues.
type Store interface {
	// ListIssues returns the active issues in insertion order.
	ListIssues(ctx context.Context) ([]domain.Issue, error)

	// GetIssue returns an active issue. Returns ErrIssueNotFound if absent.
	GetIssue(ctx context.Context, id string) (*domain.Issue, error)

	// PutIssue inserts or replaces an active issue.
	PutIssue(ctx context.Context, issue *domain.Issue) error

	// ArchiveIssue appends issue to the history log and removes it from the
	// active set. Returns ErrIssueNotFound if it is not active.
	ArchiveIssue(ctx context.Context, issue *domain.Issue) error

	// ListHistory returns archived issues, oldest first.
	ListHistory(ctx context.Context) ([]domain.Issue, error)

	// ListSolutions returns the solution family of an issue.
	ListSolutions(ctx context.Context, issueID string) ([]domain.Solution, error)

	// SaveSolutions replaces the solution family of an issue.
	SaveSolutions(ctx context.Context, issueID string, solutions []domain.Solution) error

	// ListQueues returns every readable queue sorted by id.
	ListQueues(ctx context.Context) ([]domain.Queue, error)

	// GetQueue returns one queue. Returns ErrQueueNotFound if absent and
	// ErrRecordCorrupted if it cannot be decoded.
	GetQueue(ctx context.Context, id string) (*domain.Queue, error)

	// SaveQueue creates or replaces a queue.
	SaveQueue(ctx context.Context, queue *domain.Queue) error

	// DeleteQueue removes a queue. Returns ErrQueueNotFound if absent.
	DeleteQueue(ctx context.Context, id string) error

	// Close releases backend resources.
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Dir is the store root.
	Dir string

	// Backend is constants.StoreBackendFile or constants.StoreBackendSQLite.
	// Empty means file.
	Backend string
}

// Open returns the backend selected by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", constants.StoreBackendFile:
		return NewFileStore(opts.Dir)
	case constants.StoreBackendSQLite:
		if opts.Dir == "" {
			return nil, fmt.Errorf("failed to open store: dir %w", flowerrors.ErrEmptyValue)
		}
		return NewSQLiteStore(ctx, filepath.Join(opts.Dir, constants.SQLiteFileName))
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", flowerrors.ErrConfigInvalidStore, opts.Backend)
	}
}

// ValidateID rejects identifiers that are empty or unsafe as file names.
func ValidateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s id %w", kind, flowerrors.ErrEmptyValue)
	}
	if !validIDRegex.MatchString(id) {
		return fmt.Errorf("%w: %s id %q contains unsupported characters", flowerrors.ErrInvalidArgument, kind, id)
	}
	return nil
}
