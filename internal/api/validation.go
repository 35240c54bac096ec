package api

import (
	"fmt"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

const (
	// DefaultMaxFiles bounds the number of files in one scan request.
	DefaultMaxFiles = 500

	// DefaultMaxTotalBytes bounds the summed content size of one scan request.
	DefaultMaxTotalBytes int64 = 10 * 1024 * 1024

	// MaxPathLength rejects pathological file paths.
	MaxPathLength = 4096
)

// ScanRequest is the body of POST /api/scan.
type ScanRequest struct {
	Files   []models.FileEntry `json:"files"`
	Options models.ScanOptions `json:"options"`
}

// Limits bounds what a single scan request may carry.
type Limits struct {
	MaxFiles      int
	MaxTotalBytes int64
}

func (l Limits) withDefaults() Limits {
	if l.MaxFiles <= 0 {
		l.MaxFiles = DefaultMaxFiles
	}
	if l.MaxTotalBytes <= 0 {
		l.MaxTotalBytes = DefaultMaxTotalBytes
	}
	return l
}

// bodyLimit leaves room for JSON escaping and the options object.
func (l Limits) bodyLimit() int64 {
	return 2*l.MaxTotalBytes + 1<<20
}

// ValidateScanRequest checks file count, total content size and paths.
func ValidateScanRequest(req ScanRequest, limits Limits) error {
	limits = limits.withDefaults()

	if len(req.Files) == 0 {
		return fmt.Errorf("files is required")
	}
	if len(req.Files) > limits.MaxFiles {
		return fmt.Errorf("too many files: %d (max %d)", len(req.Files), limits.MaxFiles)
	}

	var total int64
	for i, f := range req.Files {
		path := strings.TrimSpace(f.Path)
		if path == "" {
			return fmt.Errorf("files[%d].path is required", i)
		}
		if len(path) > MaxPathLength {
			return fmt.Errorf("files[%d].path exceeds %d characters", i, MaxPathLength)
		}
		total += int64(len(f.Content))
	}

	if total > limits.MaxTotalBytes {
		return fmt.Errorf("total content size %d exceeds %d bytes", total, limits.MaxTotalBytes)
	}

	return nil
}
