// ABOUTME: Repository interface for the migration journal.
// ABOUTME: Defines the contract for recording and querying migration runs.
package storage

import "github.com/harperreed/logmigrate/internal/models"

// Repository defines the storage interface for the run journal.
// This interface allows swapping implementations (e.g., for testing).
type Repository interface {
	// Run operations
	RecordRun(r *models.Run) error
	GetRun(idOrPrefix string) (*models.Run, error)
	ListRuns(target *string, limit int) ([]*models.Run, error)

	// Export
	GetAllData() (*ExportData, error)

	// Lifecycle
	Close() error
}
