// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package locking

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// ProjectLock serializes writers of a project's graph. Batch recompute is
// a destructive delete-then-rebuild, so it must never interleave with
// another recompute or an incremental append on the same project.
type ProjectLock struct {
	ProjectID string    `gorm:"primaryKey" json:"project_id"`
	Version   int64     `gorm:"not null;default:1" json:"version"`
	LockedBy  string    `gorm:"not null" json:"locked_by"`
	LockedAt  time.Time `gorm:"not null" json:"locked_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

// TableName specifies the table name for ProjectLock
func (ProjectLock) TableName() string {
	return "sidera_project_locks"
}

// MigrateLocks runs migrations for the project lock table
func MigrateLocks(db *gorm.DB) error {
	return db.AutoMigrate(&ProjectLock{})
}

// IsExpired returns true if the lock has expired
func (l *ProjectLock) IsExpired() bool {
	return time.Now().After(l.ExpiresAt)
}

// LockError represents a locking failure
type LockError struct {
	ProjectID string
	LockedBy  string
}

func (e *LockError) Error() string {
	if e.LockedBy != "" {
		return fmt.Sprintf("project %s is locked by %s", e.ProjectID, e.LockedBy)
	}
	return fmt.Sprintf("failed to acquire lock for project %s", e.ProjectID)
}
