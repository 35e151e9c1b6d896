// ABOUTME: Run model for the migration journal.
// ABOUTME: A flat summary of one migration run, suitable for storage and export.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Run summarizes one invocation of the migrator.
type Run struct {
	ID             uuid.UUID `json:"id" yaml:"id"`
	Target         string    `json:"target" yaml:"target"`
	Outcome        string    `json:"outcome" yaml:"outcome"`
	Reason         string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Policy         string    `json:"policy" yaml:"policy"`
	BackupStrategy string    `json:"backup_strategy" yaml:"backup_strategy"`
	BackupPath     string    `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	RowsRead       int       `json:"rows_read" yaml:"rows_read"`
	RowsKept       int       `json:"rows_kept" yaml:"rows_kept"`
	RowsDropped    int       `json:"rows_dropped" yaml:"rows_dropped"`
	DryRun         bool      `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Warnings       int       `json:"warnings" yaml:"warnings"`
	Error          string    `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt      time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt     time.Time `json:"finished_at" yaml:"finished_at"`
}

// Duration is the wall time the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
