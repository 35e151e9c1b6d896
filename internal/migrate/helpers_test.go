// ABOUTME: Shared fixtures for migrate tests.
// ABOUTME: Provides temp targets, a fixed clock, and directory snapshots.
package migrate

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	oldHeaderLine = "timestamp,instance_id,ip,status,message,vote_count"
	newHeaderLine = "timestamp,instance_id,instance_name,time_of_click,status,voting_url," +
		"cooldown_message,failure_type,failure_reason,initial_vote_count,final_vote_count," +
		"vote_count_change,proxy_ip,session_id,click_attempts,error_message,browser_closed"
)

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

// writeTarget creates voting_logs.csv with content in a fresh temp dir.
func writeTarget(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultTarget)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// listDir returns the sorted file names in dir.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func newMigrator(t *testing.T, opts Options) *Migrator {
	t.Helper()
	if opts.Now == nil {
		opts.Now = fixedClock
	}
	m, err := New(opts)
	require.NoError(t, err)
	return m
}
