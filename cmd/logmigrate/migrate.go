// ABOUTME: CLI command that migrates voting_logs.csv to the new header.
// ABOUTME: Renders the result and records it in the run journal.
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/logmigrate/internal/migrate"
	"github.com/harperreed/logmigrate/internal/report"
	"github.com/spf13/cobra"
)

var (
	migratePolicy      string
	migrateBackup      string
	migrateNoVerify    bool
	migrateDryRun      bool
	migrateNoJournal   bool
	migrateFormat      string
	migrateLockTimeout time.Duration
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the log file to the new format",
	Long: `Migrate voting_logs.csv from the old 6-column header to the new 17-column header.

STEPS:

  1. Check that the file exists (missing file: nothing to do)
  2. Compare the first line with the old header, exactly
  3. Back up the file
  4. Write the new header, plus the old rows when preserving
  5. Re-read the file and report on it (unless --no-verify)

POLICIES:

  preserve   Keep every data row as-is under the new header (default).
             Old rows are not converted: the old 'ip' column ends up under
             'instance_name' and so on. The report lists every such column.
  reset      Discard all data rows and keep only the new header.

BACKUPS:

  timestamped   Copy to voting_logs_backup_YYYYMMDD_HHMMSS.csv (default)
  fixed         Move to voting_logs_backup.csv, replacing an older backup

The new file is written to a temporary file and renamed into place, so an
interrupted run never leaves a half-written log.

EXIT STATUS:

  0 when the file was migrated or there was nothing to do, 1 on failure.

EXAMPLES:

  logmigrate migrate --dry-run
  logmigrate migrate -f /srv/cloudvoter/voting_logs.csv
  logmigrate migrate --policy reset --backup fixed
  logmigrate migrate --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd)
	},
}

// addMigrateFlags binds the migration flags on cmd. The root command and
// the migrate subcommand share the same variables.
func addMigrateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&migratePolicy, "policy", "", "old data policy: preserve or reset (default from config, else preserve)")
	cmd.Flags().StringVar(&migrateBackup, "backup", "", "backup strategy: timestamped or fixed (default from config, else timestamped)")
	cmd.Flags().BoolVar(&migrateNoVerify, "no-verify", false, "skip re-reading the migrated file")
	cmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "preview the migration without making changes")
	cmd.Flags().BoolVar(&migrateNoJournal, "no-journal", false, "do not record this run in the journal")
	cmd.Flags().StringVar(&migrateFormat, "format", "text", "output format: text, json, or yaml")
	cmd.Flags().DurationVar(&migrateLockTimeout, "lock-timeout", migrate.DefaultLockTimeout, "how long to wait for another migration of the same file")
}

func migrateOptions() (migrate.Options, error) {
	policy, err := cfg.GetPolicy()
	if err != nil {
		return migrate.Options{}, err
	}
	if migratePolicy != "" {
		if policy, err = migrate.ParsePolicy(migratePolicy); err != nil {
			return migrate.Options{}, err
		}
	}

	backup, err := cfg.GetBackup()
	if err != nil {
		return migrate.Options{}, err
	}
	if migrateBackup != "" {
		if backup, err = migrate.ParseBackupStrategy(migrateBackup); err != nil {
			return migrate.Options{}, err
		}
	}

	return migrate.Options{
		TargetPath:  targetPath(),
		Policy:      policy,
		Backup:      backup,
		Verify:      cfg.VerifyEnabled() && !migrateNoVerify,
		DryRun:      migrateDryRun,
		LockTimeout: migrateLockTimeout,
		Logger:      newLogger(),
	}, nil
}

func runMigrate(cmd *cobra.Command) error {
	format, err := report.ParseFormat(migrateFormat)
	if err != nil {
		return err
	}
	opts, err := migrateOptions()
	if err != nil {
		return err
	}
	m, err := migrate.New(opts)
	if err != nil {
		return err
	}

	res, runErr := m.Run(cmd.Context())

	if cfg.JournalEnabled() && !migrateNoJournal {
		if err := recordRun(res); err != nil {
			color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(), "⚠ Could not record run in journal: %v\n", err)
		}
	}

	if err := report.Result(cmd.OutOrStdout(), res, format); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return migrationError(res, runErr)
}

// migrationError turns a failed run into the command's error. After a
// rewrite failure it points at the backup holding the original data.
func migrationError(res *migrate.Result, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, migrate.ErrRewrite) && res.BackupPath != "" {
		return fmt.Errorf("migration failed: %w (original data is in %s)", err, res.BackupPath)
	}
	return fmt.Errorf("migration failed: %w", err)
}

func recordRun(res *migrate.Result) error {
	journal, err := cfg.OpenJournal()
	if err != nil {
		return err
	}
	defer journal.Close()

	if err := journal.RecordRun(res.Summary()); err != nil {
		return err
	}
	newLogger().Debug("recorded run", "run_id", res.RunID.String(), "journal", journal.Path())
	return nil
}

func init() {
	addMigrateFlags(migrateCmd)
	rootCmd.AddCommand(migrateCmd)
}
