// Package filelock provides the advisory lock that serializes writers of a
// file-backed board: task id allocation, task rewrites and history appends.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	lockFileMode = 0o600
	retryStart   = time.Millisecond
	retryMax     = 50 * time.Millisecond
)

// errHeld is returned by tryLock when another descriptor holds the lock.
var errHeld = errors.New("lock held")

// Lock is an acquired board lock.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive advisory lock on path, creating the file if
// needed. It retries with a growing backoff until the lock is free or ctx
// is done.
//
// Every call opens its own descriptor, so two goroutines of one process
// exclude each other the same way two processes do.
func Acquire(ctx context.Context, path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFileMode) //nolint:gosec // board-owned path
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	wait := retryStart
	for {
		err := tryLock(f)
		if err == nil {
			return &Lock{f: f}, nil
		}
		if !errors.Is(err, errHeld) {
			_ = f.Close()
			return nil, err
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			_ = f.Close()
			return nil, fmt.Errorf("waiting for %s: %w", path, ctx.Err())
		case <-t.C:
		}
		wait = min(wait*2, retryMax)
	}
}

// Release drops the lock and closes its descriptor. Calling it twice is a
// no-op.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	return errors.Join(unlock(f), f.Close())
}
