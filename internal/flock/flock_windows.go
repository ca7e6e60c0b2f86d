//go:build windows

package flock

import (
	"os"

	"golang.org/x/sys/windows"
)

// The first byte of the lock file stands for the whole file.
const (
	rangeLow  = 1
	rangeHigh = 0
)

// tryLock takes an exclusive LockFileEx lock on f without blocking.
func tryLock(f *os.File) error {
	return windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		rangeLow,
		rangeHigh,
		&windows.Overlapped{},
	)
}

func unlock(f *os.File) error {
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, rangeLow, rangeHigh, &windows.Overlapped{})
}
