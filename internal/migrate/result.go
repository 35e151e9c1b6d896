// ABOUTME: Structured outcome of a migration run.
// ABOUTME: Holds the outcome enum, per-step events, and row accounting.
package migrate

import (
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/logmigrate/internal/models"
)

// Outcome is the overall result of a run.
type Outcome string

const (
	OutcomeSkipped  Outcome = "skipped"
	OutcomeMigrated Outcome = "migrated"
	OutcomeFailed   Outcome = "failed"
)

// Reasons reported with OutcomeSkipped.
const (
	ReasonNotFound     = "target file not found"
	ReasonNotOldFormat = "header is not the old format"
	ReasonDryRun       = "dry run"
)

// StepStatus is the status of a single step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepSkipped StepStatus = "skipped"
	StepWarning StepStatus = "warning"
	StepFailed  StepStatus = "failed"
)

// Step names in execution order.
const (
	StepCheckExists = "check_exists"
	StepDetect      = "detect"
	StepLock        = "lock"
	StepRead        = "read"
	StepBackup      = "backup"
	StepRewrite     = "rewrite"
	StepVerify      = "verify"
)

// Step is one event in a run.
type Step struct {
	Name   string     `json:"name" yaml:"name"`
	Status StepStatus `json:"status" yaml:"status"`
	Detail string     `json:"detail,omitempty" yaml:"detail,omitempty"`
	At     time.Time  `json:"at" yaml:"at"`
}

// Result describes what a run did.
type Result struct {
	RunID        uuid.UUID         `json:"run_id" yaml:"run_id"`
	Target       string            `json:"target" yaml:"target"`
	Policy       Policy            `json:"policy" yaml:"policy"`
	Backup       BackupStrategy    `json:"backup" yaml:"backup"`
	Outcome      Outcome           `json:"outcome" yaml:"outcome"`
	Reason       string            `json:"reason,omitempty" yaml:"reason,omitempty"`
	DryRun       bool              `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Detection    Detection         `json:"detection" yaml:"detection"`
	RowsRead     int               `json:"rows_read" yaml:"rows_read"`
	RowsKept     int               `json:"rows_kept" yaml:"rows_kept"`
	RowsDropped  int               `json:"rows_dropped" yaml:"rows_dropped"`
	ShortRows    int               `json:"short_rows" yaml:"short_rows"`
	BackupPath   string            `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	Mismatches   []models.Mismatch `json:"mismatches,omitempty" yaml:"mismatches,omitempty"`
	Verification *Verification     `json:"verification,omitempty" yaml:"verification,omitempty"`
	Steps        []Step            `json:"steps" yaml:"steps"`
	Error        string            `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt    time.Time         `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time         `json:"finished_at" yaml:"finished_at"`
}

// Skipped reports whether the run decided there was nothing to do.
func (r *Result) Skipped() bool {
	return r.Outcome == OutcomeSkipped
}

// Migrated reports whether the target now carries the new header.
func (r *Result) Migrated() bool {
	return r.Outcome == OutcomeMigrated
}

// Failed reports whether the run stopped on an error.
func (r *Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

// Warnings collects the details of every step that finished with a warning.
func (r *Result) Warnings() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Status == StepWarning {
			out = append(out, s.Detail)
		}
	}
	return out
}

// Duration is the wall time between start and finish.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary flattens the result into a journal entry.
func (r *Result) Summary() *models.Run {
	return &models.Run{
		ID:             r.RunID,
		Target:         r.Target,
		Outcome:        string(r.Outcome),
		Reason:         r.Reason,
		Policy:         string(r.Policy),
		BackupStrategy: string(r.Backup),
		BackupPath:     r.BackupPath,
		RowsRead:       r.RowsRead,
		RowsKept:       r.RowsKept,
		RowsDropped:    r.RowsDropped,
		DryRun:         r.DryRun,
		Warnings:       len(r.Warnings()),
		Error:          r.Error,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
}
