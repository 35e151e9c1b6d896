// ABOUTME: Pre-migration backups of the target CSV.
// ABOUTME: Supports a fixed rename-based backup and a unique timestamped copy.
package migrate

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// backupTimeLayout matches the YYYYMMDD_HHMMSS suffix of timestamped backups.
const backupTimeLayout = "20060102_150405"

// maxBackupSuffix caps the _N suffixes tried when a timestamped name is taken.
const maxBackupSuffix = 1000

// FixedBackupPath returns <dir>/<stem>_backup<ext> for target.
func FixedBackupPath(target string) string {
	dir, stem, ext := splitTarget(target)
	return filepath.Join(dir, stem+"_backup"+ext)
}

// TimestampedBackupPath returns <dir>/<stem>_backup_<YYYYMMDD_HHMMSS><ext> for target.
func TimestampedBackupPath(target string, at time.Time) string {
	dir, stem, ext := splitTarget(target)
	return filepath.Join(dir, fmt.Sprintf("%s_backup_%s%s", stem, at.Format(backupTimeLayout), ext))
}

// PlanBackupPath returns the path Backup would use without creating anything.
func PlanBackupPath(target string, strategy BackupStrategy, at time.Time) string {
	if strategy == BackupFixed {
		return FixedBackupPath(target)
	}
	return TimestampedBackupPath(target, at)
}

func splitTarget(target string) (dir, stem, ext string) {
	dir = filepath.Dir(target)
	base := filepath.Base(target)
	ext = filepath.Ext(base)
	if ext == "" {
		ext = ".csv"
	}
	stem = strings.TrimSuffix(base, filepath.Ext(base))
	return dir, stem, ext
}

// Backup preserves target before any write to it and returns the backup path.
// Every failure wraps ErrBackup and leaves target untouched.
func Backup(target string, strategy BackupStrategy, at time.Time) (string, error) {
	switch strategy {
	case BackupFixed:
		return backupFixed(target)
	case BackupTimestamped:
		return backupTimestamped(target, at)
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", ErrBackup, strategy)
	}
}

// backupFixed removes any previous fixed backup, then moves target onto it.
// Until the rewrite lands, target does not exist.
func backupFixed(target string) (string, error) {
	dst := FixedBackupPath(target)
	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: remove previous backup %s: %v", ErrBackup, dst, err)
	}
	if err := os.Rename(target, dst); err != nil {
		return "", fmt.Errorf("%w: move %s to %s: %v", ErrBackup, target, dst, err)
	}
	return dst, nil
}

// backupTimestamped copies target to a fresh timestamped name. If a backup
// from the same second exists, _1, _2, ... is appended before the extension.
func backupTimestamped(target string, at time.Time) (string, error) {
	base := TimestampedBackupPath(target, at)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; i < maxBackupSuffix; i++ {
		dst := base
		if i > 0 {
			dst = fmt.Sprintf("%s_%d%s", stem, i, ext)
		}
		err := copyFile(target, dst)
		if err == nil {
			return dst, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: copy %s to %s: %v", ErrBackup, target, dst, err)
		}
	}
	return "", fmt.Errorf("%w: no free backup name for %s", ErrBackup, base)
}

// copyFile copies src to a new file dst, keeping permissions and modification
// time. It fails with fs.ErrExist if dst is already present.
func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	if err = os.Chmod(dst, info.Mode().Perm()); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
