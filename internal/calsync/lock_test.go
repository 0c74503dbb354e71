package calsync

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// ===== Lock Tests =====

func TestAcquireLock_EmptyPath(t *testing.T) {
	unlock, err := acquireLock(context.Background(), "", 0)
	require.NoError(t, err)
	unlock()
}

func TestAcquireLock_Exclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sync.lock")

	unlock, err := acquireLock(context.Background(), path, 0)
	require.NoError(t, err)

	_, err = acquireLock(context.Background(), path, 0)
	require.ErrorIs(t, err, ErrSyncInProgress)

	_, err = acquireLock(context.Background(), path, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrSyncInProgress)

	unlock()

	unlock, err = acquireLock(context.Background(), path, 0)
	require.NoError(t, err)
	unlock()
}
