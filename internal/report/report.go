// ABOUTME: Presentation of migration results and journal entries.
// ABOUTME: Renders colored text for operators and JSON or YAML for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/logmigrate/internal/migrate"
	"github.com/harperreed/logmigrate/internal/models"
	"gopkg.in/yaml.v3"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name. An empty string selects text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format: %s (use text, json, or yaml)", s)
	}
}

const rule = "============================================================"

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// Result writes res to w in the given format.
func Result(w io.Writer, res *migrate.Result, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, res)
	case FormatYAML:
		return writeYAML(w, res)
	default:
		return resultText(w, res)
	}
}

func resultText(w io.Writer, res *migrate.Result) error {
	var sb strings.Builder

	sb.WriteString(rule + "\n")
	sb.WriteString(bold.Sprintf("Migrate %s", res.Target) + "\n")
	sb.WriteString(rule + "\n\n")

	for _, s := range res.Steps {
		sb.WriteString(stepLine(s) + "\n")
	}
	if len(res.Mismatches) > 0 {
		sb.WriteString("\n")
		sb.WriteString(yellow.Sprint("Column positions that change meaning:") + "\n")
		for _, m := range res.Mismatches {
			sb.WriteString(fmt.Sprintf("  %2d  %-16s -> %s\n", m.Position+1, m.From, m.To))
		}
	}

	sb.WriteString("\n" + rule + "\n")
	switch res.Outcome {
	case migrate.OutcomeMigrated:
		sb.WriteString(green.Sprintf("✓ Migrated: %d data rows kept, %d dropped", res.RowsKept, res.RowsDropped) + "\n")
	case migrate.OutcomeSkipped:
		if res.DryRun {
			sb.WriteString(yellow.Sprintf("Dry run: %d data rows would be kept, %d dropped", res.RowsKept, res.RowsDropped) + "\n")
		} else {
			sb.WriteString(yellow.Sprintf("Nothing to do: %s", res.Reason) + "\n")
		}
	case migrate.OutcomeFailed:
		sb.WriteString(red.Sprintf("✗ Migration failed: %s", res.Error) + "\n")
	}
	sb.WriteString(rule + "\n")

	if res.BackupPath != "" && !res.DryRun {
		sb.WriteString(fmt.Sprintf("\nBackup saved to: %s\n", res.BackupPath))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func stepLine(s migrate.Step) string {
	label := padRight(s.Name, 13)
	switch s.Status {
	case migrate.StepOK:
		return green.Sprint("  ✓ ") + label + s.Detail
	case migrate.StepWarning:
		return yellow.Sprint("  ⚠ ") + label + s.Detail
	case migrate.StepFailed:
		return red.Sprint("  ✗ ") + label + s.Detail
	default:
		return faint.Sprint("  - ") + label + faint.Sprint(s.Detail)
	}
}

// Runs writes journal entries to w in the given format.
func Runs(w io.Writer, runs []*models.Run, format Format) error {
	switch format {
	case FormatJSON:
		if runs == nil {
			runs = []*models.Run{}
		}
		return writeJSON(w, runs)
	case FormatYAML:
		return writeYAML(w, runs)
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No migration runs recorded.")
		return err
	}

	for _, r := range runs {
		detail := r.Reason
		if r.Outcome == string(migrate.OutcomeMigrated) {
			detail = fmt.Sprintf("%d rows kept", r.RowsKept)
		}
		if r.Error != "" {
			detail = r.Error
		}
		if _, err := fmt.Fprintf(w, "%s %s %s %s %s\n",
			faint.Sprint(r.ID.String()[:8]),
			faint.Sprint(r.StartedAt.Local().Format("2006-01-02 15:04:05")),
			outcomeColor(r.Outcome).Sprint(padRight(r.Outcome, 9)),
			padRight(truncate(r.Target, 32), 32),
			truncate(detail, 60)); err != nil {
			return err
		}
	}
	return nil
}

func outcomeColor(outcome string) *color.Color {
	switch migrate.Outcome(outcome) {
	case migrate.OutcomeMigrated:
		return green
	case migrate.OutcomeFailed:
		return red
	default:
		return yellow
	}
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal YAML: %w", err)
	}
	return enc.Close()
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

// Detection writes the detected format of target to w. For a header that
// is not the old one, it lists where the header departs from it.
func Detection(w io.Writer, target string, det migrate.Detection, format Format) error {
	header := models.ParseSchema(det.Header)
	var diffs []models.Mismatch
	if det.Format == migrate.FormatAlreadyNewOrEmpty && header.Len() > 0 {
		diffs = header.Mismatches(models.OldSchema())
	}

	out := struct {
		Target            string `json:"target" yaml:"target"`
		migrate.Detection `yaml:",inline"`
		Columns           int               `json:"columns" yaml:"columns"`
		Differences       []models.Mismatch `json:"differences,omitempty" yaml:"differences,omitempty"`
	}{Target: target, Detection: det, Columns: header.Len(), Differences: diffs}

	switch format {
	case FormatJSON:
		return writeJSON(w, out)
	case FormatYAML:
		return writeYAML(w, out)
	}

	var sb strings.Builder
	switch det.Format {
	case migrate.FormatNotFound:
		sb.WriteString(yellow.Sprintf("%s not found", target) + "\n")
	case migrate.FormatOld:
		sb.WriteString(yellow.Sprintf("%s uses the old format and needs migration", target) + "\n")
	default:
		sb.WriteString(green.Sprintf("%s does not use the old format, nothing to migrate", target) + "\n")
	}
	if det.Header != "" {
		sb.WriteString(fmt.Sprintf("%s %s\n", faint.Sprint("header:"), truncate(det.Header, 100)))
	}
	if det.Format == migrate.FormatAlreadyNewOrEmpty && header.Len() > 0 {
		sb.WriteString(fmt.Sprintf("%s %d columns, the old header has %d\n",
			faint.Sprint("columns:"), header.Len(), models.OldSchema().Len()))
		for _, d := range diffs {
			sb.WriteString(fmt.Sprintf("  %2d  %-16s (old: %s)\n", d.Position+1, d.From, d.To))
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// RunDetail writes every field of one journal entry to w.
func RunDetail(w io.Writer, r *models.Run, format Format) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	}

	var sb strings.Builder
	field := func(name, value string) {
		if value == "" {
			return
		}
		sb.WriteString(faint.Sprint(padRight(name+":", 14)) + value + "\n")
	}

	field("ID", r.ID.String())
	field("Target", r.Target)
	field("Outcome", outcomeColor(r.Outcome).Sprint(r.Outcome))
	field("Reason", r.Reason)
	field("Policy", r.Policy)
	field("Backup", r.BackupStrategy)
	field("Backup path", r.BackupPath)
	field("Rows", fmt.Sprintf("%d read, %d kept, %d dropped", r.RowsRead, r.RowsKept, r.RowsDropped))
	if r.DryRun {
		field("Dry run", "yes")
	}
	field("Warnings", fmt.Sprintf("%d", r.Warnings))
	field("Error", r.Error)
	field("Started", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	field("Duration", r.Duration().String())

	_, err := io.WriteString(w, sb.String())
	return err
}
