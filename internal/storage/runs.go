// ABOUTME: Run CRUD operations for SQLite storage.
// ABOUTME: Implements Repository interface methods for the migration journal.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/logmigrate/internal/models"
)

// timeLayout is fixed-width so started_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, target, outcome, reason, policy, backup_strategy, backup_path,
	rows_read, rows_kept, rows_dropped, dry_run, warnings, error, started_at, finished_at`

// RecordRun stores a run in the journal.
func (d *DB) RecordRun(r *models.Run) error {
	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := d.db.Exec(query,
		r.ID.String(),
		r.Target,
		r.Outcome,
		nullString(r.Reason),
		r.Policy,
		r.BackupStrategy,
		nullString(r.BackupPath),
		r.RowsRead,
		r.RowsKept,
		r.RowsDropped,
		r.DryRun,
		r.Warnings,
		nullString(r.Error),
		r.StartedAt.UTC().Format(timeLayout),
		r.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID or ID prefix.
func (d *DB) GetRun(idOrPrefix string) (*models.Run, error) {
	id, err := d.resolveRunID(idOrPrefix)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	r, err := scanRun(d.db.QueryRow(query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("not found: %s", idOrPrefix)
		}
		return nil, err
	}
	return r, nil
}

// ListRuns retrieves runs with optional filtering by target path.
// Results are sorted by StartedAt descending (most recent first).
func (d *DB) ListRuns(target *string, limit int) ([]*models.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []interface{}

	if target != nil {
		query += ` WHERE target = ?`
		args = append(args, *target)
	}
	query += ` ORDER BY started_at DESC`

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// resolveRunID finds the full ID from a prefix.
func (d *DB) resolveRunID(idOrPrefix string) (string, error) {
	// If it looks like a full UUID, use it directly
	if len(idOrPrefix) == 36 && strings.Count(idOrPrefix, "-") == 4 {
		return idOrPrefix, nil
	}

	rows, err := d.db.Query(`SELECT id FROM runs WHERE id LIKE ? || '%'`, idOrPrefix)
	if err != nil {
		return "", fmt.Errorf("resolve run ID: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan run ID: %w", err)
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve run ID: %w", err)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("not found: %s", idOrPrefix)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("ambiguous prefix %s: matches multiple runs", idOrPrefix)
	}

	return matches[0], nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*models.Run, error) {
	var r models.Run
	var idStr, startedAt, finishedAt string
	var reason, backupPath, errMsg sql.NullString

	err := s.Scan(&idStr, &r.Target, &r.Outcome, &reason, &r.Policy, &r.BackupStrategy, &backupPath,
		&r.RowsRead, &r.RowsKept, &r.RowsDropped, &r.DryRun, &r.Warnings, &errMsg, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	r.ID, _ = uuid.Parse(idStr)
	r.Reason = reason.String
	r.BackupPath = backupPath.String
	r.Error = errMsg.String
	r.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	r.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedAt)

	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
