// ABOUTME: Migrator runs the detect, backup, rewrite, verify procedure.
// ABOUTME: Each step is recorded on the Result and logged through slog.
package migrate

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/harperreed/logmigrate/internal/models"
)

// Migrator migrates one CSV file from the old header to the new one.
type Migrator struct {
	opts    Options
	rewrite func(target string, schema models.Schema, rows []Row, perm os.FileMode) error
}

// New validates opts, fills in defaults, and returns a Migrator.
func New(opts Options) (*Migrator, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return &Migrator{opts: opts, rewrite: Rewrite}, nil
}

// Options returns the effective options, defaults included.
func (m *Migrator) Options() Options {
	return m.opts
}

// run carries the state of a single Run call.
type run struct {
	opts   Options
	res    *Result
	logger *slog.Logger
}

func (r *run) step(name string, status StepStatus, format string, args ...any) {
	detail := fmt.Sprintf(format, args...)
	r.res.Steps = append(r.res.Steps, Step{
		Name:   name,
		Status: status,
		Detail: detail,
		At:     r.opts.Now(),
	})

	level := slog.LevelInfo
	switch status {
	case StepWarning:
		level = slog.LevelWarn
	case StepFailed:
		level = slog.LevelError
	}
	r.logger.Log(context.Background(), level, detail, "step", name, "status", string(status))
}

func (r *run) skip(reason string) *Result {
	r.res.Outcome = OutcomeSkipped
	r.res.Reason = reason
	return r.finish()
}

func (r *run) fail(name string, err error) (*Result, error) {
	r.step(name, StepFailed, "%v", err)
	r.res.Outcome = OutcomeFailed
	r.res.Error = err.Error()
	return r.finish(), err
}

func (r *run) finish() *Result {
	r.res.FinishedAt = r.opts.Now()
	r.logger.Info("run finished",
		"outcome", string(r.res.Outcome),
		"reason", r.res.Reason,
		"rows_kept", r.res.RowsKept,
		"backup", r.res.BackupPath)
	return r.res
}

// Run executes one migration. A missing file or a header other than the old
// one yields OutcomeSkipped without touching the filesystem. Errors are
// returned alongside a Result with OutcomeFailed; match them with errors.Is
// against ErrRead, ErrLocked, ErrBackup, and ErrRewrite.
func (m *Migrator) Run(ctx context.Context) (*Result, error) {
	opts := m.opts
	res := &Result{
		RunID:     uuid.New(),
		Target:    opts.TargetPath,
		Policy:    opts.Policy,
		Backup:    opts.Backup,
		DryRun:    opts.DryRun,
		StartedAt: opts.Now(),
	}
	r := &run{
		opts:   opts,
		res:    res,
		logger: opts.Logger.With("run_id", res.RunID.String(), "target", opts.TargetPath),
	}

	det, err := Detect(opts.TargetPath, opts.OldSchema)
	if err != nil {
		return r.fail(StepCheckExists, fmt.Errorf("%w: %v", ErrRead, err))
	}
	res.Detection = det
	if det.Format == FormatNotFound {
		r.step(StepCheckExists, StepSkipped, "%s not found", opts.TargetPath)
		return r.skip(ReasonNotFound), nil
	}
	r.step(StepCheckExists, StepOK, "found %s", opts.TargetPath)

	if det.Format != FormatOld {
		r.step(StepDetect, StepSkipped, "header %q is not the old format", det.Header)
		return r.skip(ReasonNotOldFormat), nil
	}
	r.step(StepDetect, StepOK, "old format detected")

	if opts.DryRun {
		return m.plan(r)
	}

	lock := newTargetLock(opts.TargetPath)
	if err := lock.acquire(ctx, opts.LockTimeout); err != nil {
		return r.fail(StepLock, err)
	}
	defer func() {
		if err := lock.release(); err != nil {
			r.logger.Warn("release lock", "error", err)
		}
	}()

	// Another migration may have finished while we waited for the lock.
	det, err = Detect(opts.TargetPath, opts.OldSchema)
	if err != nil {
		return r.fail(StepLock, fmt.Errorf("%w: %v", ErrRead, err))
	}
	if det.Format != FormatOld {
		res.Detection = det
		r.step(StepLock, StepSkipped, "file changed while waiting for the lock")
		if det.Format == FormatNotFound {
			return r.skip(ReasonNotFound), nil
		}
		return r.skip(ReasonNotOldFormat), nil
	}
	r.step(StepLock, StepOK, "acquired %s", LockPath(opts.TargetPath))

	info, err := os.Stat(opts.TargetPath)
	if err != nil {
		return r.fail(StepRead, fmt.Errorf("%w: %v", ErrRead, err))
	}
	kept, err := m.readRows(r)
	if err != nil {
		return r.fail(StepRead, err)
	}

	backupPath, err := Backup(opts.TargetPath, opts.Backup, res.StartedAt)
	if err != nil {
		return r.fail(StepBackup, err)
	}
	res.BackupPath = backupPath
	r.step(StepBackup, StepOK, "backed up to %s", backupPath)

	if err := m.rewrite(opts.TargetPath, opts.NewSchema, kept, info.Mode().Perm()); err != nil {
		return r.fail(StepRewrite, err)
	}
	r.step(StepRewrite, StepOK, "wrote header and %d data rows", len(kept))

	if opts.Verify {
		v := Verify(opts.TargetPath, opts.NewSchema)
		res.Verification = v
		if v.OK() {
			r.step(StepVerify, StepOK, "%d columns, %d data rows, first row status %s, instance %s",
				v.Columns, v.DataRows, v.FirstRowStatus, v.FirstRowInstance)
		} else {
			for _, w := range v.Warnings {
				r.step(StepVerify, StepWarning, "%s", w)
			}
		}
	}

	res.Outcome = OutcomeMigrated
	return r.finish(), nil
}

// readRows loads the data rows and applies the policy. It fills in the row
// counters on the result and returns the rows to write.
func (m *Migrator) readRows(r *run) ([]Row, error) {
	opts := m.opts
	rows, err := ReadRows(opts.TargetPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	r.res.RowsRead = len(rows)

	if opts.Policy == PolicyReset {
		r.res.RowsDropped = len(rows)
		r.step(StepRead, StepOK, "read %d data rows, all discarded by reset policy", len(rows))
		return nil, nil
	}

	r.res.RowsKept = len(rows)
	for _, row := range rows {
		if len(row.Fields) < opts.NewSchema.Len() {
			r.res.ShortRows++
		}
	}
	r.step(StepRead, StepOK, "read %d data rows", len(rows))

	if len(rows) > 0 {
		r.res.Mismatches = opts.OldSchema.Mismatches(opts.NewSchema)
		if len(r.res.Mismatches) > 0 {
			first := r.res.Mismatches[0]
			r.step(StepRead, StepWarning,
				"%d column positions change meaning (position %d: %s becomes %s); rows are kept as-is",
				len(r.res.Mismatches), first.Position+1, first.From, first.To)
		}
		if r.res.ShortRows > 0 {
			r.step(StepRead, StepWarning, "%d rows have fewer than %d fields",
				r.res.ShortRows, opts.NewSchema.Len())
		}
	}
	return rows, nil
}

// plan fills in what a real run would do and stops before any mutation.
func (m *Migrator) plan(r *run) (*Result, error) {
	if _, err := m.readRows(r); err != nil {
		return r.fail(StepRead, err)
	}
	r.res.BackupPath = PlanBackupPath(m.opts.TargetPath, m.opts.Backup, r.res.StartedAt)
	r.step(StepBackup, StepSkipped, "would back up to %s", r.res.BackupPath)
	r.step(StepRewrite, StepSkipped, "would write header and %d data rows", r.res.RowsKept)
	return r.skip(ReasonDryRun), nil
}
