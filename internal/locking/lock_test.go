// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package locking

import (
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, MigrateLocks(db))
	return db
}

func TestAcquireAndRelease(t *testing.T) {
	locker := NewLocker(setupTestDB(t))

	acquired, err := locker.Acquire("proj-1", "agent-a")
	require.NoError(t, err)
	assert.True(t, acquired)

	locked, by, err := locker.IsLocked("proj-1")
	require.NoError(t, err)
	assert.True(t, locked)
	assert.Equal(t, "agent-a", by)

	require.NoError(t, locker.Release("proj-1", "agent-a"))

	locked, _, err = locker.IsLocked("proj-1")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestAcquire_HeldByOtherAgent(t *testing.T) {
	locker := NewLocker(setupTestDB(t))

	acquired, err := locker.Acquire("proj-1", "agent-a")
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = locker.Acquire("proj-1", "agent-b")
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestAcquire_Reentrant(t *testing.T) {
	locker := NewLocker(setupTestDB(t))

	acquired, err := locker.Acquire("proj-1", "agent-a")
	require.NoError(t, err)
	require.True(t, acquired)

	// Same agent may refresh its own lock
	acquired, err = locker.Acquire("proj-1", "agent-a")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestAcquire_ExpiredLockTakeover(t *testing.T) {
	locker := NewLocker(setupTestDB(t)).WithTTL(-time.Second)

	acquired, err := locker.Acquire("proj-1", "agent-a")
	require.NoError(t, err)
	require.True(t, acquired)

	// agent-a's lock is already expired, so agent-b takes over
	acquired, err = locker.Acquire("proj-1", "agent-b")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestLocksAreProjectScoped(t *testing.T) {
	locker := NewLocker(setupTestDB(t))

	acquired, err := locker.Acquire("proj-1", "agent-a")
	require.NoError(t, err)
	require.True(t, acquired)

	// A different project is independent
	acquired, err = locker.Acquire("proj-2", "agent-b")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestWithLock_RunsAndReleases(t *testing.T) {
	locker := NewLocker(setupTestDB(t))

	ran := false
	err := locker.WithLock("proj-1", "agent-a", func() error {
		ran = true
		locked, by, err := locker.IsLocked("proj-1")
		require.NoError(t, err)
		assert.True(t, locked)
		assert.Equal(t, "agent-a", by)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	locked, _, err := locker.IsLocked("proj-1")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestWithLock_Contention(t *testing.T) {
	locker := NewLocker(setupTestDB(t))

	acquired, err := locker.Acquire("proj-1", "agent-a")
	require.NoError(t, err)
	require.True(t, acquired)

	err = locker.WithLock("proj-1", "agent-b", func() error {
		t.Fatal("must not run while agent-a holds the lock")
		return nil
	})
	require.Error(t, err)

	var lockErr *LockError
	assert.True(t, errors.As(err, &lockErr))
	assert.Equal(t, "proj-1", lockErr.ProjectID)
}

func TestCleanupExpired(t *testing.T) {
	db := setupTestDB(t)
	locker := NewLocker(db).WithTTL(-time.Second)

	acquired, err := locker.Acquire("proj-1", "agent-a")
	require.NoError(t, err)
	require.True(t, acquired)

	removed, err := locker.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
