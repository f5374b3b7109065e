// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package locking

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DefaultLockTTL is the default time-to-live for project locks.
// Batch recompute of large projects can take a while, so the TTL is
// generous; a crashed holder is taken over once it expires.
const DefaultLockTTL = 5 * time.Minute

// Locker manages project-scoped locks
type Locker struct {
	db      *gorm.DB
	lockTTL time.Duration
}

// NewLocker creates a new locker instance
func NewLocker(db *gorm.DB) *Locker {
	return &Locker{
		db:      db,
		lockTTL: DefaultLockTTL,
	}
}

// WithTTL sets a custom TTL for locks
func (l *Locker) WithTTL(ttl time.Duration) *Locker {
	l.lockTTL = ttl
	return l
}

// Acquire attempts to acquire a project's lock.
// Returns true if acquired, false if another agent holds it.
func (l *Locker) Acquire(projectID, agentID string) (bool, error) {
	now := time.Now()
	expiresAt := now.Add(l.lockTTL)

	var existing ProjectLock
	err := l.db.Where("project_id = ?", projectID).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			return false, fmt.Errorf("failed to inspect lock: %w", err)
		}
		lock := ProjectLock{
			ProjectID: projectID,
			Version:   1,
			LockedBy:  agentID,
			LockedAt:  now,
			ExpiresAt: expiresAt,
		}
		if err := l.db.Create(&lock).Error; err != nil {
			// Lost the race to another creator
			return false, nil
		}
		return true, nil
	}

	// Lock exists - take over if expired or already ours
	if existing.IsExpired() || existing.LockedBy == agentID {
		result := l.db.Model(&ProjectLock{}).
			Where("project_id = ? AND version = ?", projectID, existing.Version).
			Updates(map[string]interface{}{
				"locked_by":  agentID,
				"locked_at":  now,
				"expires_at": expiresAt,
				"version":    existing.Version + 1,
			})
		if result.Error != nil {
			return false, result.Error
		}
		return result.RowsAffected > 0, nil
	}

	return false, nil
}

// Release releases a lock held by the specified agent
func (l *Locker) Release(projectID, agentID string) error {
	result := l.db.Where("project_id = ? AND locked_by = ?", projectID, agentID).
		Delete(&ProjectLock{})
	return result.Error
}

// IsLocked checks if a project is currently locked
func (l *Locker) IsLocked(projectID string) (bool, string, error) {
	var lock ProjectLock
	err := l.db.Where("project_id = ?", projectID).First(&lock).Error
	if err != nil {
		return false, "", nil // Not locked
	}
	if lock.IsExpired() {
		return false, "", nil // Expired
	}
	return true, lock.LockedBy, nil
}

// CleanupExpired removes all expired locks
func (l *Locker) CleanupExpired() (int64, error) {
	result := l.db.Where("expires_at < ?", time.Now()).Delete(&ProjectLock{})
	return result.RowsAffected, result.Error
}

// WithLock executes a function while holding a project's lock.
// The lock is released when the function returns.
func (l *Locker) WithLock(projectID, agentID string, fn func() error) error {
	acquired, err := l.Acquire(projectID, agentID)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		_, lockedBy, _ := l.IsLocked(projectID)
		return &LockError{ProjectID: projectID, LockedBy: lockedBy}
	}

	defer l.Release(projectID, agentID) //nolint:errcheck

	return fn()
}
