package api

import (
	"strings"
	"testing"

	"github.com/ppiankov/apispectre/internal/models"
)

func entries(n int, content string) []models.FileEntry {
	out := make([]models.FileEntry, n)
	for i := range out {
		out[i] = models.FileEntry{Path: "src/f.js", Content: content}
	}
	return out
}

func TestValidateScanRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     ScanRequest
		limits  Limits
		wantErr string
	}{
		{name: "valid", req: ScanRequest{Files: entries(2, "x")}},
		{name: "no files", req: ScanRequest{}, wantErr: "files is required"},
		{name: "default file limit", req: ScanRequest{Files: entries(DefaultMaxFiles+1, "")}, wantErr: "too many files: 501"},
		{name: "at file limit", req: ScanRequest{Files: entries(3, "")}, limits: Limits{MaxFiles: 3}},
		{name: "custom file limit", req: ScanRequest{Files: entries(4, "")}, limits: Limits{MaxFiles: 3}, wantErr: "too many files"},
		{name: "total size", req: ScanRequest{Files: entries(3, "abcd")}, limits: Limits{MaxTotalBytes: 10}, wantErr: "total content size 12 exceeds 10"},
		{name: "empty path", req: ScanRequest{Files: []models.FileEntry{{Path: "  "}}}, wantErr: "files[0].path is required"},
		{name: "long path", req: ScanRequest{Files: []models.FileEntry{{Path: strings.Repeat("a", MaxPathLength+1)}}}, wantErr: "exceeds"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateScanRequest(tt.req, tt.limits)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLimitsBodyLimit(t *testing.T) {
	l := Limits{}.withDefaults()
	if l.MaxFiles != DefaultMaxFiles || l.MaxTotalBytes != DefaultMaxTotalBytes {
		t.Fatalf("unexpected defaults %+v", l)
	}
	if l.bodyLimit() <= l.MaxTotalBytes {
		t.Fatalf("expected body limit above content limit, got %d", l.bodyLimit())
	}
}
