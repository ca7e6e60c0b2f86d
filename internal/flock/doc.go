// Package flock serializes issueflow writers by key.
//
// A Locker pairs an in-process semaphore per key with an exclusive lock on a
// file in the lock directory, so holders of the same key are serialized both
// inside one process and across processes that share the store.
//
// Usage:
//
//	locker := flock.NewLocker(filepath.Join(storeDir, "locks"), 5*time.Second)
//	unlock, err := locker.Lock(ctx, "queue-QUE-20260101120000")
//	if err != nil {
//	    return err
//	}
//	defer unlock()
package flock
