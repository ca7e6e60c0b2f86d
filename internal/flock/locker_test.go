package flock_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flowerrors "github.com/mrz1836/issueflow/internal/errors"
	"github.com/mrz1836/issueflow/internal/flock"
)

func TestLocker_Lock(t *testing.T) {
	t.Parallel()

	t.Run("creates lock file and releases", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "locks")
		locker := flock.NewLocker(dir, time.Second)

		unlock, err := locker.Lock(context.Background(), "queue-QUE-20260101000000")
		require.NoError(t, err)

		_, statErr := os.Stat(filepath.Join(dir, "queue-QUE-20260101000000.lock"))
		require.NoError(t, statErr)

		unlock()
		unlock()

		unlock, err = locker.Lock(context.Background(), "queue-QUE-20260101000000")
		require.NoError(t, err)
		unlock()
	})

	t.Run("rejects empty key", func(t *testing.T) {
		t.Parallel()
		locker := flock.NewLocker(t.TempDir(), time.Second)
		_, err := locker.Lock(context.Background(), "")
		require.ErrorIs(t, err, flowerrors.ErrEmptyValue)
	})

	t.Run("times out while held in process", func(t *testing.T) {
		t.Parallel()
		locker := flock.NewLocker(t.TempDir(), 100*time.Millisecond)

		unlock, err := locker.Lock(context.Background(), "issues")
		require.NoError(t, err)
		defer unlock()

		_, err = locker.Lock(context.Background(), "issues")
		require.ErrorIs(t, err, flowerrors.ErrLockTimeout)
	})

	t.Run("times out while held by another locker", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		first := flock.NewLocker(dir, time.Second)
		second := flock.NewLocker(dir, 150*time.Millisecond)

		unlock, err := first.Lock(context.Background(), "issues")
		require.NoError(t, err)
		defer unlock()

		_, err = second.Lock(context.Background(), "issues")
		require.ErrorIs(t, err, flowerrors.ErrLockTimeout)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		t.Parallel()
		locker := flock.NewLocker(t.TempDir(), 5*time.Second)

		unlock, err := locker.Lock(context.Background(), "issues")
		require.NoError(t, err)
		defer unlock()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = locker.Lock(ctx, "issues")
		require.ErrorIs(t, err, context.Canceled)
	})

	t.Run("different keys do not block", func(t *testing.T) {
		t.Parallel()
		locker := flock.NewLocker(t.TempDir(), 100*time.Millisecond)

		unlockA, err := locker.Lock(context.Background(), "queue-A")
		require.NoError(t, err)
		defer unlockA()

		unlockB, err := locker.Lock(context.Background(), "queue-B")
		require.NoError(t, err)
		unlockB()
	})
}

func TestLocker_SerializesWriters(t *testing.T) {
	t.Parallel()

	locker := flock.NewLocker(t.TempDir(), 5*time.Second)
	counter := 0

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "shared")
			if !assert.NoError(t, err) {
				return
			}
			v := counter
			time.Sleep(time.Millisecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, counter)
}
