package calsync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 50 * time.Millisecond

// acquireLock takes the cross-process sync lock at path, waiting up to wait.
// An empty path disables the lock.
func acquireLock(ctx context.Context, path string, wait time.Duration) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)

	var locked bool
	var err error
	if wait > 0 {
		lockCtx, cancel := context.WithTimeout(ctx, wait)
		defer cancel()
		locked, err = fl.TryLockContext(lockCtx, lockRetryDelay)
	} else {
		locked, err = fl.TryLock()
	}

	switch {
	case err != nil && ctx.Err() != nil:
		return nil, ctx.Err()
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: %s", ErrSyncInProgress, path)
	case err != nil:
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	case !locked:
		return nil, fmt.Errorf("%w: %s", ErrSyncInProgress, path)
	}

	return func() { _ = fl.Unlock() }, nil
}
