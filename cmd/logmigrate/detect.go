// ABOUTME: CLI command that reports which header format a log file uses.
// ABOUTME: Read-only; never takes the lock or touches the file.
package main

import (
	"fmt"

	"github.com/harperreed/logmigrate/internal/migrate"
	"github.com/harperreed/logmigrate/internal/models"
	"github.com/harperreed/logmigrate/internal/report"
	"github.com/spf13/cobra"
)

var detectFormat string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Show whether the log file needs migration",
	Long: `Inspect the first line of the log file and report its format.

RESULTS:

  not found   The file does not exist
  old         The header is exactly the old 6-column header
  other       Anything else: the new header, an empty file, or a header
              that only looks similar. These are never migrated.

EXAMPLES:

  logmigrate detect
  logmigrate detect -f /srv/cloudvoter/voting_logs.csv --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(detectFormat)
		if err != nil {
			return err
		}

		target := targetPath()
		det, err := migrate.Detect(target, models.OldSchema())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", target, err)
		}
		return report.Detection(cmd.OutOrStdout(), target, det, format)
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectFormat, "format", "text", "output format: text, json, or yaml")
	rootCmd.AddCommand(detectCmd)
}
