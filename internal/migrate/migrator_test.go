// ABOUTME: Tests for the migration run state machine.
// ABOUTME: Covers skip paths, both policies, both backup strategies, and failures.
package migrate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"
	"github.com/harperreed/logmigrate/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMissingFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, DefaultTarget)

	res, err := newMigrator(t, Options{TargetPath: target}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Skipped())
	assert.Equal(t, ReasonNotFound, res.Reason)
	assert.Equal(t, FormatNotFound, res.Detection.Format)
	assert.Empty(t, listDir(t, dir), "no file should be created")
}

func TestRunLeavesNonOldHeadersUntouched(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"new header", newHeaderLine + "\n2024-01-01,i-1\n"},
		{"empty file", ""},
		{"blank first line", "\n" + oldHeaderLine + "\n"},
		{"reordered", "instance_id,timestamp,ip,status,message,vote_count\n"},
		{"space after comma", "timestamp, instance_id,ip,status,message,vote_count\n"},
		{"upper case", strings.ToUpper(oldHeaderLine) + "\n"},
		{"extra column", oldHeaderLine + ",extra\n"},
		{"quoted fields", `"timestamp","instance_id","ip","status","message","vote_count"` + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := writeTarget(t, tt.content)
			dir := filepath.Dir(target)

			res, err := newMigrator(t, Options{TargetPath: target}).Run(context.Background())
			require.NoError(t, err)

			assert.True(t, res.Skipped())
			assert.Equal(t, ReasonNotOldFormat, res.Reason)
			assert.Equal(t, tt.content, readFile(t, target))
			assert.Equal(t, []string{DefaultTarget}, listDir(t, dir), "no backup or lock file expected")
		})
	}
}

func TestRunResetWithFixedBackup(t *testing.T) {
	original := oldHeaderLine + "\n2024-01-01T00:00:00,i-1,1.2.3.4,success,ok,5\n"
	target := writeTarget(t, original)

	m := newMigrator(t, Options{
		TargetPath: target,
		Policy:     PolicyReset,
		Backup:     BackupFixed,
	})
	res, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Migrated())
	assert.Equal(t, newHeaderLine+"\n", readFile(t, target))
	assert.Equal(t, 1, res.RowsRead)
	assert.Equal(t, 0, res.RowsKept)
	assert.Equal(t, 1, res.RowsDropped)
	assert.Empty(t, res.Mismatches, "reset policy keeps no rows to misinterpret")

	backup := filepath.Join(filepath.Dir(target), "voting_logs_backup.csv")
	assert.Equal(t, backup, res.BackupPath)
	assert.Equal(t, original, readFile(t, backup))
}

func TestRunResetEmptyOldFile(t *testing.T) {
	original := oldHeaderLine + "\n"
	target := writeTarget(t, original)

	res, err := newMigrator(t, Options{
		TargetPath: target,
		Policy:     PolicyReset,
		Backup:     BackupFixed,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Migrated())
	assert.Equal(t, newHeaderLine+"\n", readFile(t, target))
	assert.Equal(t, original, readFile(t, res.BackupPath))
}

func TestRunFixedBackupReplacesPreviousBackup(t *testing.T) {
	original := oldHeaderLine + "\n"
	target := writeTarget(t, original)
	stale := FixedBackupPath(target)
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0644))

	res, err := newMigrator(t, Options{
		TargetPath: target,
		Backup:     BackupFixed,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, stale, res.BackupPath)
	assert.Equal(t, original, readFile(t, stale))
}

func TestRunPreserveKeepsRows(t *testing.T) {
	original := oldHeaderLine + "\n2024-01-01T00:00:00,i-1,1.2.3.4,success,ok,5\n"
	target := writeTarget(t, original)

	res, err := newMigrator(t, Options{
		TargetPath: target,
		Verify:     true,
	}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Migrated())
	assert.Equal(t, newHeaderLine+"\n2024-01-01T00:00:00,i-1,1.2.3.4,success,ok,5\n", readFile(t, target))

	wantBackup := filepath.Join(filepath.Dir(target), "voting_logs_backup_20240102_030405.csv")
	assert.Equal(t, wantBackup, res.BackupPath)
	assert.Equal(t, original, readFile(t, wantBackup))

	assert.Equal(t, 1, res.RowsKept)
	assert.Equal(t, 1, res.ShortRows)
	assert.Len(t, res.Mismatches, 4)
	assert.NotEmpty(t, res.Warnings())

	require.NotNil(t, res.Verification)
	assert.True(t, res.Verification.OK())
	assert.Equal(t, 17, res.Verification.Columns)
	assert.Equal(t, 1, res.Verification.DataRows)
	assert.Equal(t, "ok", res.Verification.FirstRowStatus)
	assert.Equal(t, "1.2.3.4", res.Verification.FirstRowInstance)
}

func TestRunPreserveSkipsEmptyRowsAndKeepsOrder(t *testing.T) {
	original := oldHeaderLine + "\n" +
		"a,1,x,ok,m,1\n" +
		"\n" +
		"b,2,y,ok,m,2\n" +
		"\n\n" +
		"c,3,z,fail,m,3\n"
	target := writeTarget(t, original)

	res, err := newMigrator(t, Options{TargetPath: target}).Run(context.Background())
	require.NoError(t, err)

	want := newHeaderLine + "\na,1,x,ok,m,1\nb,2,y,ok,m,2\nc,3,z,fail,m,3\n"
	assert.Equal(t, want, readFile(t, target))
	assert.Equal(t, 3, res.RowsKept)
	assert.Equal(t, original, readFile(t, res.BackupPath))
}

func TestRunPreserveKeepsFullWidthRows(t *testing.T) {
	row := strings.Repeat("v,", 16) + "v"
	target := writeTarget(t, oldHeaderLine+"\n"+row+"\n")

	res, err := newMigrator(t, Options{TargetPath: target}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.ShortRows)
	assert.Equal(t, newHeaderLine+"\n"+row+"\n", readFile(t, target))
}

func TestRunDetectsCRLFHeader(t *testing.T) {
	target := writeTarget(t, oldHeaderLine+"\r\na,1,x,ok,m,1\r\n")

	res, err := newMigrator(t, Options{TargetPath: target}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Migrated())
	assert.Equal(t, newHeaderLine+"\na,1,x,ok,m,1\n", readFile(t, target))
}

func TestRunIsIdempotent(t *testing.T) {
	target := writeTarget(t, oldHeaderLine+"\na,1,x,ok,m,1\n")
	dir := filepath.Dir(target)

	m := newMigrator(t, Options{TargetPath: target})
	first, err := m.Run(context.Background())
	require.NoError(t, err)
	require.True(t, first.Migrated())

	afterFirst := readFile(t, target)
	filesAfterFirst := listDir(t, dir)

	second, err := m.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, second.Skipped())
	assert.Equal(t, ReasonNotOldFormat, second.Reason)
	assert.Equal(t, afterFirst, readFile(t, target))
	assert.Equal(t, filesAfterFirst, listDir(t, dir))
}

func TestRunTimestampedBackupNeverCollides(t *testing.T) {
	target := writeTarget(t, oldHeaderLine+"\n")
	taken := TimestampedBackupPath(target, fixedTime)
	require.NoError(t, os.WriteFile(taken, []byte("earlier run"), 0644))

	res, err := newMigrator(t, Options{TargetPath: target}).Run(context.Background())
	require.NoError(t, err)

	want := filepath.Join(filepath.Dir(target), "voting_logs_backup_20240102_030405_1.csv")
	assert.Equal(t, want, res.BackupPath)
	assert.Equal(t, "earlier run", readFile(t, taken))
	assert.Equal(t, oldHeaderLine+"\n", readFile(t, want))
}

func TestRunKeepsFilePermissions(t *testing.T) {
	target := writeTarget(t, oldHeaderLine+"\n")
	require.NoError(t, os.Chmod(target, 0640))

	_, err := newMigrator(t, Options{TargetPath: target}).Run(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())
}

func TestRunDryRunChangesNothing(t *testing.T) {
	original := oldHeaderLine + "\na,1,x,ok,m,1\nb,2,y,ok,m,2\n"
	target := writeTarget(t, original)
	dir := filepath.Dir(target)

	res, err := newMigrator(t, Options{TargetPath: target, DryRun: true}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Skipped())
	assert.True(t, res.DryRun)
	assert.Equal(t, ReasonDryRun, res.Reason)
	assert.Equal(t, 2, res.RowsKept)
	assert.Equal(t, TimestampedBackupPath(target, fixedTime), res.BackupPath)
	assert.Equal(t, original, readFile(t, target))
	assert.Equal(t, []string{DefaultTarget}, listDir(t, dir))
}

func TestRunBackupFailureLeavesOriginal(t *testing.T) {
	original := oldHeaderLine + "\na,1,x,ok,m,1\n"
	target := writeTarget(t, original)

	// A non-empty directory where the fixed backup belongs cannot be removed.
	blocker := FixedBackupPath(target)
	require.NoError(t, os.MkdirAll(filepath.Join(blocker, "keep"), 0755))

	res, err := newMigrator(t, Options{
		TargetPath: target,
		Backup:     BackupFixed,
	}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBackup))
	assert.True(t, res.Failed())
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, original, readFile(t, target))
}

func TestRunRewriteFailureKeepsBackup(t *testing.T) {
	tests := []struct {
		name         string
		strategy     BackupStrategy
		targetRemain bool
	}{
		{"timestamped copy leaves target in place", BackupTimestamped, true},
		{"fixed rename leaves only the backup", BackupFixed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := oldHeaderLine + "\na,1,x,ok,m,1\n"
			target := writeTarget(t, original)
			dir := filepath.Dir(target)

			m := newMigrator(t, Options{TargetPath: target, Backup: tt.strategy})
			// Stage the new file under a path that cannot be a directory.
			m.rewrite = func(target string, schema models.Schema, rows []Row, perm os.FileMode) error {
				return Rewrite(filepath.Join(target, "unreachable"), schema, rows, perm)
			}

			res, err := m.Run(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrRewrite))
			assert.True(t, res.Failed())
			assert.Equal(t, StepRewrite, res.Steps[len(res.Steps)-1].Name)
			assert.Equal(t, StepFailed, res.Steps[len(res.Steps)-1].Status)

			require.NotEmpty(t, res.BackupPath)
			assert.Equal(t, original, readFile(t, res.BackupPath))

			if tt.targetRemain {
				assert.Equal(t, original, readFile(t, target))
				assert.Len(t, listDir(t, dir), 3, "target, backup, and lock file only")
			} else {
				assert.NoFileExists(t, target)
				assert.ElementsMatch(t, []string{filepath.Base(res.BackupPath), filepath.Base(LockPath(target))}, listDir(t, dir))
			}
		})
	}
}

func TestRunPreserveCopiesRowsVerbatim(t *testing.T) {
	rows := "2024-01-01T00:00:00, i-1, 1.2.3.4, success, ok, 5\n" +
		"2024-01-01T00:01:00,i-2,5.6.7.8,failed,said \"no\" twice,4\n" +
		"2024-01-01T00:02:00,i-3,9.9.9.9,success,\"a, b\",3\r\n"
	target := writeTarget(t, oldHeaderLine+"\n"+rows)

	res, err := newMigrator(t, Options{TargetPath: target}).Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Migrated())

	want := newHeaderLine + "\n" +
		"2024-01-01T00:00:00, i-1, 1.2.3.4, success, ok, 5\n" +
		"2024-01-01T00:01:00,i-2,5.6.7.8,failed,said \"no\" twice,4\n" +
		"2024-01-01T00:02:00,i-3,9.9.9.9,success,\"a, b\",3\n"
	assert.Equal(t, want, readFile(t, target))
	assert.Equal(t, 3, res.RowsKept)
}

func TestRunLockedTargetFails(t *testing.T) {
	original := oldHeaderLine + "\n"
	target := writeTarget(t, original)

	held := flock.New(LockPath(target))
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()

	res, err := newMigrator(t, Options{TargetPath: target}).Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLocked))
	assert.True(t, res.Failed())
	assert.Equal(t, original, readFile(t, target))
	assert.Equal(t, []string{DefaultTarget, DefaultTarget + ".lock"}, listDir(t, filepath.Dir(target)))
}

func TestRunStepsInOrder(t *testing.T) {
	target := writeTarget(t, oldHeaderLine+"\n")

	res, err := newMigrator(t, Options{TargetPath: target, Verify: true}).Run(context.Background())
	require.NoError(t, err)

	var names []string
	for _, s := range res.Steps {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		StepCheckExists, StepDetect, StepLock, StepRead, StepBackup, StepRewrite, StepVerify,
	}, names)
	assert.Equal(t, fixedTime, res.StartedAt)
	assert.Equal(t, fixedTime, res.FinishedAt)
}

func TestRunLogsEachStep(t *testing.T) {
	target := writeTarget(t, oldHeaderLine+"\n")
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	res, err := newMigrator(t, Options{TargetPath: target, Logger: logger}).Run(context.Background())
	require.NoError(t, err)

	out := buf.String()
	for _, step := range []string{StepCheckExists, StepDetect, StepBackup, StepRewrite} {
		assert.Contains(t, out, `"step":"`+step+`"`)
	}
	assert.Contains(t, out, res.RunID.String())
	assert.Contains(t, out, `"outcome":"migrated"`)
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"policy", Options{Policy: "merge"}},
		{"backup", Options{Backup: "cloud"}},
		{"same schemas", Options{OldSchema: []string{"a"}, NewSchema: []string{"a"}}},
		{"negative timeout", Options{LockTimeout: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			assert.Error(t, err)
		})
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	m, err := New(Options{})
	require.NoError(t, err)

	opts := m.Options()
	assert.Equal(t, DefaultTarget, opts.TargetPath)
	assert.Equal(t, PolicyPreserve, opts.Policy)
	assert.Equal(t, BackupTimestamped, opts.Backup)
	assert.Equal(t, 6, opts.OldSchema.Len())
	assert.Equal(t, 17, opts.NewSchema.Len())
	assert.NotNil(t, opts.Logger)
}
