package flock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mrz1836/issueflow/internal/constants"
	flowerrors "github.com/mrz1836/issueflow/internal/errors"
)

const (
	lockDirPerm  = 0o750
	lockFilePerm = 0o600
)

// Locker hands out exclusive locks keyed by name.
//
// A key is held by at most one goroutine of one process at a time. Inside the
// process a per-key semaphore orders waiters; across processes a lock file in
// dir is flocked. Both waits share one deadline.
type Locker struct {
	dir     string
	timeout time.Duration

	mu   sync.Mutex
	sems map[string]chan struct{}
}

// NewLocker returns a Locker that keeps lock files in dir. A non-positive
// timeout falls back to constants.LockTimeout.
func NewLocker(dir string, timeout time.Duration) *Locker {
	if timeout <= 0 {
		timeout = constants.LockTimeout
	}
	return &Locker{
		dir:     dir,
		timeout: timeout,
		sems:    make(map[string]chan struct{}),
	}
}

// Lock blocks until key is held, the timeout elapses or ctx is done.
// The returned function releases the lock and is safe to call once.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	if key == "" {
		return nil, fmt.Errorf("lock key: %w", flowerrors.ErrEmptyValue)
	}

	deadline := time.Now().Add(l.timeout)
	sem := l.semaphore(key)

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, flowerrors.ErrLockTimeout)
	}

	f, err := l.lockFile(ctx, key, deadline)
	if err != nil {
		<-sem
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = unlock(f)
			_ = f.Close()
			<-sem
		})
	}, nil
}

func (l *Locker) semaphore(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	sem, ok := l.sems[key]
	if !ok {
		sem = make(chan struct{}, 1)
		l.sems[key] = sem
	}
	return sem
}

func (l *Locker) lockFile(ctx context.Context, key string, deadline time.Time) (*os.File, error) {
	if err := os.MkdirAll(l.dir, lockDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	path := filepath.Join(l.dir, sanitizeKey(key)+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePerm) //#nosec G304 -- path is built from a sanitized key
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, ctx.Err()
		default:
		}

		if err := tryLock(f); err == nil {
			return f, nil
		}

		if time.Now().After(deadline) {
			_ = f.Close()
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, flowerrors.ErrLockTimeout)
		}

		time.Sleep(constants.LockRetryInterval)
	}
}

func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.':
			return '_'
		}
		return r
	}, key)
}
