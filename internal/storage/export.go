// ABOUTME: Export functionality for the migration journal.
// ABOUTME: Supports JSON and YAML export formats.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/logmigrate/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for the journal.
type ExportData struct {
	Version    string        `json:"version" yaml:"version"`
	ExportedAt time.Time     `json:"exported_at" yaml:"exported_at"`
	Tool       string        `json:"tool" yaml:"tool"`
	Runs       []*models.Run `json:"runs" yaml:"runs"`
}

// GetAllData retrieves all runs for export.
func (d *DB) GetAllData() (*ExportData, error) {
	runs, err := d.ListRuns(nil, 0)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	if runs == nil {
		runs = []*models.Run{}
	}

	return &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Tool:       "logmigrate",
		Runs:       runs,
	}, nil
}

// ExportJSON exports all runs as JSON.
func ExportJSON(repo Repository) ([]byte, error) {
	data, err := repo.GetAllData()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all runs as YAML.
func ExportYAML(repo Repository) ([]byte, error) {
	data, err := repo.GetAllData()
	if err != nil {
		return nil, err
	}

	// Flatten to strings so ids and times read naturally.
	yamlData := struct {
		Version    string    `yaml:"version"`
		ExportedAt string    `yaml:"exported_at"`
		Tool       string    `yaml:"tool"`
		Runs       []yamlRun `yaml:"runs"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		Runs:       make([]yamlRun, 0, len(data.Runs)),
	}

	for _, r := range data.Runs {
		yamlData.Runs = append(yamlData.Runs, yamlRun{
			ID:         r.ID.String()[:8],
			Target:     r.Target,
			Outcome:    r.Outcome,
			Reason:     r.Reason,
			Policy:     r.Policy,
			Backup:     r.BackupPath,
			RowsKept:   r.RowsKept,
			Warnings:   r.Warnings,
			Error:      r.Error,
			StartedAt:  r.StartedAt.Format(time.RFC3339),
			DurationMS: r.Duration().Milliseconds(),
		})
	}

	return yaml.Marshal(yamlData)
}

type yamlRun struct {
	ID         string `yaml:"id"`
	Target     string `yaml:"target"`
	Outcome    string `yaml:"outcome"`
	Reason     string `yaml:"reason,omitempty"`
	Policy     string `yaml:"policy"`
	Backup     string `yaml:"backup,omitempty"`
	RowsKept   int    `yaml:"rows_kept"`
	Warnings   int    `yaml:"warnings,omitempty"`
	Error      string `yaml:"error,omitempty"`
	StartedAt  string `yaml:"started_at"`
	DurationMS int64  `yaml:"duration_ms"`
}
