package storage

import (
	"time"

	"github.com/ppiankov/apispectre/internal/models"
)

// Storage defines the interface for persisting scan runs
type Storage interface {
	// SaveRun stores a complete scan result
	SaveRun(result *models.ScanResult) error

	// LoadRun loads the run recorded at a specific timestamp
	LoadRun(timestamp time.Time) (*models.ScanResult, error)

	// GetLatestRun retrieves the most recent run
	GetLatestRun() (*models.ScanResult, error)

	// GetLastNRuns retrieves the last N runs, oldest first
	GetLastNRuns(n int) ([]*models.ScanResult, error)

	// ListRuns returns all available run timestamps
	ListRuns() ([]time.Time, error)
}
