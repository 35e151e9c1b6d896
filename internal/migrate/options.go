// ABOUTME: Configuration for a voting log migration run.
// ABOUTME: Defines the old-data policy, backup naming strategy, and Options defaults.
package migrate

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/harperreed/logmigrate/internal/models"
)

// DefaultTarget is the well-known log file the producer appends to.
const DefaultTarget = "voting_logs.csv"

// DefaultLockTimeout bounds how long Run waits for another migration to finish.
const DefaultLockTimeout = 5 * time.Second

// Policy decides what happens to data rows written under the old header.
type Policy string

const (
	// PolicyPreserve keeps every non-empty data row verbatim under the new header.
	PolicyPreserve Policy = "preserve"
	// PolicyReset discards all data rows and writes only the new header.
	PolicyReset Policy = "reset"
)

// ParsePolicy validates a policy name. An empty string selects PolicyPreserve.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyPreserve, nil
	case PolicyPreserve, PolicyReset:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown policy: %q (use preserve or reset)", s)
	}
}

// BackupStrategy decides how the pre-migration copy is produced and named.
type BackupStrategy string

const (
	// BackupTimestamped copies the file to <stem>_backup_<YYYYMMDD_HHMMSS><ext>.
	BackupTimestamped BackupStrategy = "timestamped"
	// BackupFixed moves the file to <stem>_backup<ext>, replacing an older backup.
	BackupFixed BackupStrategy = "fixed"
)

// ParseBackupStrategy validates a strategy name. An empty string selects BackupTimestamped.
func ParseBackupStrategy(s string) (BackupStrategy, error) {
	switch BackupStrategy(s) {
	case "":
		return BackupTimestamped, nil
	case BackupTimestamped, BackupFixed:
		return BackupStrategy(s), nil
	default:
		return "", fmt.Errorf("unknown backup strategy: %q (use timestamped or fixed)", s)
	}
}

// Options configures a Migrator. Zero values are replaced by defaults in New.
type Options struct {
	// TargetPath is the CSV file to migrate. Defaults to DefaultTarget.
	TargetPath string

	// OldSchema is the header that triggers a migration. Defaults to models.OldSchema().
	OldSchema models.Schema

	// NewSchema is the header written by the migration. Defaults to models.NewSchema().
	NewSchema models.Schema

	Policy Policy
	Backup BackupStrategy

	// Verify re-reads the rewritten file and reports on it. Advisory only.
	Verify bool

	// DryRun detects and plans without touching the filesystem.
	DryRun bool

	// LockTimeout bounds the wait for the advisory lock. Zero means try once.
	LockTimeout time.Duration

	// Now supplies the clock used for backup names and step timestamps.
	Now func() time.Time

	// Logger receives one record per step. Defaults to a discarding logger.
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.TargetPath == "" {
		o.TargetPath = DefaultTarget
	}
	if len(o.OldSchema) == 0 {
		o.OldSchema = models.OldSchema()
	}
	if len(o.NewSchema) == 0 {
		o.NewSchema = models.NewSchema()
	}
	if o.Policy == "" {
		o.Policy = PolicyPreserve
	}
	if o.Backup == "" {
		o.Backup = BackupTimestamped
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

func (o Options) validate() error {
	if _, err := ParsePolicy(string(o.Policy)); err != nil {
		return err
	}
	if _, err := ParseBackupStrategy(string(o.Backup)); err != nil {
		return err
	}
	if o.OldSchema.Equal(o.NewSchema) {
		return fmt.Errorf("old and new schema are identical")
	}
	if o.LockTimeout < 0 {
		return fmt.Errorf("lock timeout must not be negative")
	}
	return nil
}
