// ABOUTME: logmigrate configuration management.
// ABOUTME: Handles target, policy, and backup defaults plus the journal factory.

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/harperreed/logmigrate/internal/migrate"
	"github.com/harperreed/logmigrate/internal/storage"
)

// Config stores logmigrate configuration.
type Config struct {
	// Target is the CSV file to migrate. Defaults to voting_logs.csv in the
	// working directory. Supports ~ expansion.
	Target string `json:"target,omitempty"`

	// Policy is "preserve" (default) or "reset".
	Policy string `json:"policy,omitempty"`

	// Backup is "timestamped" (default) or "fixed".
	Backup string `json:"backup,omitempty"`

	// Verify controls post-migration verification. Defaults to true.
	Verify *bool `json:"verify,omitempty"`

	// Journal controls recording runs in the SQLite journal. Defaults to true.
	Journal *bool `json:"journal,omitempty"`

	// DataDir is where the journal lives. Supports ~ expansion.
	// Defaults to ~/.local/share/logmigrate.
	DataDir string `json:"data_dir,omitempty"`
}

// GetTarget returns the configured target with ~ expanded.
func (c *Config) GetTarget() string {
	if c.Target == "" {
		return migrate.DefaultTarget
	}
	return ExpandPath(c.Target)
}

// GetPolicy returns the configured policy, defaulting to preserve.
func (c *Config) GetPolicy() (migrate.Policy, error) {
	return migrate.ParsePolicy(c.Policy)
}

// GetBackup returns the configured backup strategy, defaulting to timestamped.
func (c *Config) GetBackup() (migrate.BackupStrategy, error) {
	return migrate.ParseBackupStrategy(c.Backup)
}

// VerifyEnabled reports whether verification runs after a migration.
func (c *Config) VerifyEnabled() bool {
	return c.Verify == nil || *c.Verify
}

// JournalEnabled reports whether runs are recorded in the journal.
func (c *Config) JournalEnabled() bool {
	return c.Journal == nil || *c.Journal
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenJournal opens the run journal, in the configured data directory or
// at the default XDG location.
func (c *Config) OpenJournal() (*storage.DB, error) {
	if c.DataDir == "" {
		return storage.OpenDefault()
	}
	return storage.Open(filepath.Join(c.GetDataDir(), "journal.db"))
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "logmigrate", "config.json")
}

// Load reads config from disk.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
