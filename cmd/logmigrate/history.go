// ABOUTME: CLI commands for browsing the migration journal.
// ABOUTME: Lists recent runs, shows one run, and exports the journal.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/logmigrate/internal/report"
	"github.com/harperreed/logmigrate/internal/storage"
	"github.com/spf13/cobra"
)

var (
	historyLimit  int
	historyTarget string
	historyFormat string
	historyOutput string
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"log"},
	Short:   "List previous migration runs",
	Long: `List migration runs recorded in the journal, newest first.

OUTPUT FORMAT:

  Each line shows: ID  STARTED  OUTCOME  TARGET  DETAIL

  The ID is an 8-character prefix you can pass to 'history show'.

EXAMPLES:

  logmigrate history                     # Last 20 runs
  logmigrate history -n 5                # Last 5 runs
  logmigrate history --target voting_logs.csv
  logmigrate history show 3f2a9c1b       # Full details of one run
  logmigrate history export json -o runs.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(historyFormat)
		if err != nil {
			return err
		}

		journal, err := cfg.OpenJournal()
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer journal.Close()

		var target *string
		if historyTarget != "" {
			target = &historyTarget
		}
		runs, err := journal.ListRuns(target, historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		return report.Runs(cmd.OutOrStdout(), runs, format)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one migration run",
	Long: `Show every recorded field of one run. The ID may be a unique prefix.

EXAMPLES:

  logmigrate history show 3f2a9c1b
  logmigrate history show 3f2a --format yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(historyFormat)
		if err != nil {
			return err
		}

		journal, err := cfg.OpenJournal()
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer journal.Close()

		run, err := journal.GetRun(args[0])
		if err != nil {
			return err
		}
		return report.RunDetail(cmd.OutOrStdout(), run, format)
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export the whole journal",
	Long: `Export every recorded run.

FORMATS:

  json   Full JSON export
  yaml   YAML export (human-readable)

EXAMPLES:

  logmigrate history export json
  logmigrate history export yaml -o runs.yaml`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml"},
	RunE: func(cmd *cobra.Command, args []string) error {
		journal, err := cfg.OpenJournal()
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer journal.Close()

		var data []byte
		switch args[0] {
		case "json":
			data, err = storage.ExportJSON(journal)
		case "yaml":
			data, err = storage.ExportYAML(journal)
		default:
			return fmt.Errorf("unknown format: %s (use json or yaml)", args[0])
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if historyOutput != "" {
			if err := os.WriteFile(historyOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", historyOutput)
			return nil
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyTarget, "target", "", "only show runs for this file")
	historyCmd.PersistentFlags().StringVar(&historyFormat, "format", "text", "output format: text, json, or yaml")
	historyExportCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "output file (default: stdout)")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	rootCmd.AddCommand(historyCmd)
}
