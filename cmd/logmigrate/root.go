// ABOUTME: Root Cobra command for the logmigrate CLI.
// ABOUTME: Loads configuration in PersistentPreRunE; runs a migration when called bare.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/harperreed/logmigrate/internal/config"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config

	targetFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "logmigrate",
	Short: "Migrate voting_logs.csv to the 17-column format",
	Long: `logmigrate upgrades voting_logs.csv from the old 6-column header to the
new 17-column header used by the voting automation and its statistics view.

OLD FORMAT:

  timestamp,instance_id,ip,status,message,vote_count

NEW FORMAT:

  timestamp,instance_id,instance_name,time_of_click,status,voting_url,
  cooldown_message,failure_type,failure_reason,initial_vote_count,
  final_vote_count,vote_count_change,proxy_ip,session_id,click_attempts,
  error_message,browser_closed

QUICK START:

  $ logmigrate                       # Migrate ./voting_logs.csv with defaults
  $ logmigrate detect                # Show which format the file uses
  $ logmigrate migrate --dry-run     # Preview without touching anything
  $ logmigrate migrate --policy reset --backup fixed
  $ logmigrate history               # Show previous runs

Running with no subcommand is the same as 'logmigrate migrate'. Files that are
missing or do not carry the exact old header are left alone.

CONFIGURATION:

  Defaults are read from ~/.config/logmigrate/config.json:

  {
    "target": "~/cloudvoter/voting_logs.csv",
    "policy": "preserve",
    "backup": "timestamped",
    "verify": true,
    "journal": true
  }

  Runs are recorded in ~/.local/share/logmigrate/journal.db.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config %s: %w", config.GetConfigPath(), err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// targetPath returns --file when given, otherwise the configured target.
func targetPath() string {
	if targetFlag != "" {
		return config.ExpandPath(targetFlag)
	}
	return cfg.GetTarget()
}

// newLogger returns a stderr text logger with --verbose, otherwise a silent one.
func newLogger() *slog.Logger {
	if !verboseFlag {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&targetFlag, "file", "f", "", "CSV file to migrate (default: config target or voting_logs.csv)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log each step to stderr")
	addMigrateFlags(rootCmd)
}
