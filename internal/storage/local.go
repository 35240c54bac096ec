package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/apispectre/internal/models"
)

const (
	runSuffix       = "-scan.json"
	timestampLayout = "2006-01-02T15-04-05"
)

// ErrNoRuns is returned when the history is empty
var ErrNoRuns = errors.New("no runs found")

// LocalStorage implements Storage using the local filesystem
type LocalStorage struct {
	baseDir string
}

// NewLocal creates a new local storage instance
func NewLocal(baseDir string) *LocalStorage {
	return &LocalStorage{
		baseDir: baseDir,
	}
}

// SaveRun writes a scan result to <baseDir>/runs/<timestamp>-scan.json.
// A run saved within the same second as another replaces it.
func (s *LocalStorage) SaveRun(result *models.ScanResult) error {
	if result == nil {
		return fmt.Errorf("nil scan result")
	}

	if err := s.EnsureDirectoryExists(); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	if err := os.WriteFile(s.runPath(result.ScannedAt), data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// LoadRun loads the run recorded at a specific timestamp
func (s *LocalStorage) LoadRun(timestamp time.Time) (*models.ScanResult, error) {
	return s.loadRunFromFile(s.runPath(timestamp))
}

// GetLatestRun retrieves the most recent run
func (s *LocalStorage) GetLatestRun() (*models.ScanResult, error) {
	timestamps, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	if len(timestamps) == 0 {
		return nil, ErrNoRuns
	}

	return s.LoadRun(timestamps[len(timestamps)-1])
}

// GetLastNRuns retrieves the last N runs in chronological order.
// Files that fail to load are skipped.
func (s *LocalStorage) GetLastNRuns(n int) ([]*models.ScanResult, error) {
	timestamps, err := s.ListRuns()
	if err != nil {
		return nil, err
	}

	if len(timestamps) == 0 {
		return nil, ErrNoRuns
	}

	start := len(timestamps) - n
	if start < 0 {
		start = 0
	}

	selected := timestamps[start:]
	runs := make([]*models.ScanResult, 0, len(selected))

	for _, timestamp := range selected {
		run, err := s.LoadRun(timestamp)
		if err != nil {
			continue
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// ListRuns returns all available run timestamps sorted chronologically
func (s *LocalStorage) ListRuns() ([]time.Time, error) {
	runsDir := s.runsDir()

	if _, err := os.Stat(runsDir); os.IsNotExist(err) {
		return []time.Time{}, nil
	}

	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read runs directory: %w", err)
	}

	var timestamps []time.Time

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), runSuffix) {
			continue
		}

		timestamp, err := s.parseTimestamp(strings.TrimSuffix(entry.Name(), runSuffix))
		if err != nil {
			continue
		}

		timestamps = append(timestamps, timestamp)
	}

	sort.Slice(timestamps, func(i, j int) bool {
		return timestamps[i].Before(timestamps[j])
	})

	return timestamps, nil
}

func (s *LocalStorage) loadRunFromFile(path string) (*models.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var result models.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run: %w", err)
	}

	return &result, nil
}

func (s *LocalStorage) runsDir() string {
	return filepath.Join(s.baseDir, "runs")
}

func (s *LocalStorage) runPath(t time.Time) string {
	return filepath.Join(s.runsDir(), s.formatTimestamp(t)+runSuffix)
}

// formatTimestamp converts a time to a filename-safe UTC form
func (s *LocalStorage) formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func (s *LocalStorage) parseTimestamp(str string) (time.Time, error) {
	return time.Parse(timestampLayout, str)
}

// GetStoragePath returns the full path to the storage directory
func (s *LocalStorage) GetStoragePath() string {
	return s.baseDir
}

// EnsureDirectoryExists creates the runs directory if it doesn't exist
func (s *LocalStorage) EnsureDirectoryExists() error {
	return os.MkdirAll(s.runsDir(), 0755)
}
