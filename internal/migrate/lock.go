// ABOUTME: Advisory file lock serializing migrations of the same target.
// ABOUTME: Wraps gofrs/flock with a bounded, context-aware retry loop.
package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const lockPollInterval = 50 * time.Millisecond

// LockPath returns the lock file used for target.
func LockPath(target string) string {
	return target + ".lock"
}

// targetLock is an exclusive advisory lock next to the target file.
type targetLock struct {
	flock *flock.Flock
}

func newTargetLock(target string) *targetLock {
	return &targetLock{flock: flock.New(LockPath(target))}
}

// acquire polls for the exclusive lock until timeout or ctx is done.
// A zero timeout tries exactly once.
func (l *targetLock) acquire(ctx context.Context, timeout time.Duration) error {
	start := time.Now()

	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", l.flock.Path(), err)
	}
	if locked {
		return nil
	}
	if timeout == 0 {
		return fmt.Errorf("%w: %s is held by another process", ErrLocked, l.flock.Path())
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-timeoutCtx.Done():
			return fmt.Errorf("%w: waited %v for %s", ErrLocked, time.Since(start).Round(time.Millisecond), l.flock.Path())
		case <-ticker.C:
		}

		locked, err := l.flock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", l.flock.Path(), err)
		}
		if locked {
			return nil
		}
	}
}

// release unlocks. The lock file stays on disk: removing it would let a
// waiter lock an unlinked inode while a newcomer locks a fresh one.
func (l *targetLock) release() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.flock.Path(), err)
	}
	return nil
}
