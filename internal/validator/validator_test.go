package validator

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/apispectre/internal/models"
)

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

func containsError(errors []string, substr string) bool {
	for _, err := range errors {
		if strings.Contains(err, substr) {
			return true
		}
	}
	return false
}

func TestValidateOptions(t *testing.T) {
	v := New()

	tests := []struct {
		name           string
		opts           models.ScanOptions
		wantErrContain []string
	}{
		{name: "zero value", opts: models.ScanOptions{}},
		{
			name: "all valid",
			opts: models.ScanOptions{
				Languages:         []models.Language{models.LanguageGo, models.LanguagePython},
				Categories:        []models.Category{models.CategorySecurity},
				SeverityThreshold: models.SeverityMedium,
				MaxFileSize:       1024,
				ExcludePatterns:   []string{"*.gen.go", "fixtures"},
				EnabledRules:      []string{"SEC001", "DOC001"},
				DisabledRules:     []string{"PERF001"},
			},
		},
		{
			name:           "unknown language",
			opts:           models.ScanOptions{Languages: []models.Language{"cobol"}},
			wantErrContain: []string{"Unknown language: 'cobol'"},
		},
		{
			name:           "unknown category",
			opts:           models.ScanOptions{Categories: []models.Category{"style"}},
			wantErrContain: []string{"Unknown category: 'style'"},
		},
		{
			name:           "unknown threshold",
			opts:           models.ScanOptions{SeverityThreshold: "urgent"},
			wantErrContain: []string{"Unknown severity threshold"},
		},
		{
			name:           "negative size",
			opts:           models.ScanOptions{MaxFileSize: -1},
			wantErrContain: []string{"max_file_size"},
		},
		{
			name:           "negative workers",
			opts:           models.ScanOptions{Workers: -2},
			wantErrContain: []string{"workers"},
		},
		{
			name:           "unknown rules",
			opts:           models.ScanOptions{EnabledRules: []string{"SEC999"}, DisabledRules: []string{"XYZ"}},
			wantErrContain: []string{"'enabled_rules': 'SEC999'", "'disabled_rules': 'XYZ'"},
		},
		{
			name:           "bad exclude pattern",
			opts:           models.ScanOptions{ExcludePatterns: []string{"[unclosed*"}},
			wantErrContain: []string{"Invalid exclude pattern '[unclosed*'"},
		},
		{
			name: "errors accumulate",
			opts: models.ScanOptions{
				Languages:  []models.Language{"cobol"},
				Categories: []models.Category{"style"},
			},
			wantErrContain: []string{"cobol", "style"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateOptions(tt.opts)
			if len(tt.wantErrContain) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if vErr.Subject != "scan options" {
				t.Fatalf("expected subject scan options, got %s", vErr.Subject)
			}
			for _, want := range tt.wantErrContain {
				if !containsError(vErr.Errors, want) {
					t.Fatalf("expected error to contain %q, got %v", want, vErr.Errors)
				}
			}
		})
	}
}

func validResult(now time.Time) models.ScanResult {
	stats := models.NewScanStats()
	stats.TotalFiles = 2
	stats.ScannedFiles = 1
	stats.SkippedFiles = 1
	stats.TotalIssues = 1
	stats.IssuesBySeverity[models.SeverityHigh] = 1

	return models.ScanResult{
		ID: "3f1c2a9e-0000-4000-8000-000000000001",
		Issues: []models.ScanIssue{
			{RuleID: "SEC002", Category: models.CategorySecurity, Severity: models.SeverityHigh, FilePath: "db.js", Line: 2, Column: 5},
		},
		Stats:     stats,
		Score:     90,
		Health:    "excellent",
		ScannedAt: now,
	}
}

func TestValidateResult(t *testing.T) {
	v := New()
	now := time.Now().UTC().Add(-time.Hour)

	tests := []struct {
		name           string
		mutate         func(r *models.ScanResult)
		raw            []byte
		wantErrContain string
	}{
		{name: "valid", mutate: func(r *models.ScanResult) {}},
		{name: "invalid json", raw: []byte("{"), wantErrContain: "Failed to parse JSON"},
		{name: "missing id", mutate: func(r *models.ScanResult) { r.ID = "" }, wantErrContain: "'id'"},
		{name: "zero timestamp", mutate: func(r *models.ScanResult) { r.ScannedAt = time.Time{} }, wantErrContain: "timestamp is missing"},
		{name: "score out of range", mutate: func(r *models.ScanResult) { r.Score = 120 }, wantErrContain: "'score'"},
		{name: "file counts", mutate: func(r *models.ScanResult) { r.Stats.TotalFiles = 5 }, wantErrContain: "total_files"},
		{name: "issue count", mutate: func(r *models.ScanResult) { r.Stats.TotalIssues = 3 }, wantErrContain: "3 but 1 issues"},
		{name: "bad severity", mutate: func(r *models.ScanResult) { r.Issues[0].Severity = "urgent" }, wantErrContain: "invalid severity"},
		{name: "bad category", mutate: func(r *models.ScanResult) { r.Issues[0].Category = "style" }, wantErrContain: "invalid category"},
		{name: "bad position", mutate: func(r *models.ScanResult) { r.Issues[0].Line = 0 }, wantErrContain: "invalid position 0:5"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			data := tt.raw
			if data == nil {
				r := validResult(now)
				tt.mutate(&r)
				data = mustJSON(t, r)
			}

			err := v.ValidateResult(data)
			if tt.wantErrContain == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if !containsError(vErr.Errors, tt.wantErrContain) {
				t.Fatalf("expected error to contain %q, got %v", tt.wantErrContain, vErr.Errors)
			}
		})
	}
}

func TestValidateTimestamp(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		ts      time.Time
		wantErr bool
	}{
		{"valid", now.Add(-24 * time.Hour), false},
		{"future", now.Add(2 * time.Hour), true},
		{"zero", time.Time{}, true},
		{"just now", now, false},
		{"borderline future within 1h", now.Add(30 * time.Minute), false},
		{"old runs are fine", now.AddDate(-2, 0, 0), false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimestamp(tt.ts)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidationErrorError(t *testing.T) {
	err := &ValidationError{Subject: "scan options", Errors: []string{"error one", "error two"}}
	msg := err.Error()
	for _, c := range []string{"Invalid scan options", "error one", "error two"} {
		if !strings.Contains(msg, c) {
			t.Fatalf("expected error message to contain %q, got %q", c, msg)
		}
	}
}
