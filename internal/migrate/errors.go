// ABOUTME: Sentinel errors for migration failures.
// ABOUTME: Callers match them with errors.Is to tell safe failures from unsafe ones.
package migrate

import "errors"

var (
	// ErrRead means the original could not be read. Nothing was modified.
	ErrRead = errors.New("read failed")

	// ErrLocked means another migration holds the lock. Nothing was modified.
	ErrLocked = errors.New("migration already in progress")

	// ErrBackup means the backup could not be produced. The original is untouched.
	ErrBackup = errors.New("backup failed")

	// ErrRewrite means the new file could not be written. The backup holds the original data.
	ErrRewrite = errors.New("rewrite failed")
)
