package validator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/apispectre/internal/collector"
	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/rules"
)

// ValidationError represents a validation failure
type ValidationError struct {
	Subject string
	Errors  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Invalid %s:\n  - %s", e.Subject, strings.Join(e.Errors, "\n  - "))
}

// Validator validates scan options and stored scan results
type Validator struct{}

// New creates a new validator
func New() *Validator {
	return &Validator{}
}

// ValidateOptions reports every unknown language, category, severity
// threshold and rule id, a negative size limit and exclude patterns that
// fail to compile.
func (v *Validator) ValidateOptions(opts models.ScanOptions) error {
	var errors []string

	for _, l := range opts.Languages {
		if !models.IsValidLanguage(l) {
			errors = append(errors, fmt.Sprintf("Unknown language: '%s'", l))
		}
	}
	for _, c := range opts.Categories {
		if !models.IsValidCategory(c) {
			errors = append(errors, fmt.Sprintf("Unknown category: '%s'", c))
		}
	}
	if opts.SeverityThreshold != "" && !models.IsValidSeverity(opts.SeverityThreshold) {
		errors = append(errors, fmt.Sprintf("Unknown severity threshold: '%s'", opts.SeverityThreshold))
	}
	if opts.MaxFileSize < 0 {
		errors = append(errors, "Field 'max_file_size' must be non-negative")
	}
	if opts.Workers < 0 {
		errors = append(errors, "Field 'workers' must be non-negative")
	}
	for _, p := range opts.ExcludePatterns {
		if _, err := collector.CompileExcludePattern(p); err != nil {
			errors = append(errors, fmt.Sprintf("Invalid exclude pattern '%s': %v", p, err))
		}
	}
	errors = append(errors, unknownRules("enabled_rules", opts.EnabledRules)...)
	errors = append(errors, unknownRules("disabled_rules", opts.DisabledRules)...)

	if len(errors) > 0 {
		return &ValidationError{Subject: "scan options", Errors: errors}
	}

	return nil
}

func unknownRules(field string, ids []string) []string {
	var errors []string
	for _, id := range ids {
		if !rules.Exists(id) {
			errors = append(errors, fmt.Sprintf("Unknown rule in '%s': '%s'", field, id))
		}
	}
	return errors
}

// ValidateResult validates a scan result as written by the json reporter
// or run storage.
func (v *Validator) ValidateResult(data []byte) error {
	var result models.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return &ValidationError{
			Subject: "scan result",
			Errors:  []string{fmt.Sprintf("Failed to parse JSON: %v", err)},
		}
	}

	var errors []string

	if result.ID == "" {
		errors = append(errors, "Missing required field: 'id'")
	}
	if err := ValidateTimestamp(result.ScannedAt); err != nil {
		errors = append(errors, fmt.Sprintf("Field 'scanned_at': %v", err))
	}
	if result.Score < 0 || result.Score > 100 {
		errors = append(errors, fmt.Sprintf("Field 'score' must be between 0 and 100, got %d", result.Score))
	}
	if result.Stats.ScannedFiles+result.Stats.SkippedFiles != result.Stats.TotalFiles {
		errors = append(errors, "Field 'stats.total_files' must equal scanned_files + skipped_files")
	}
	if result.Stats.TotalIssues != len(result.Issues) {
		errors = append(errors, fmt.Sprintf("Field 'stats.total_issues' is %d but %d issues are listed", result.Stats.TotalIssues, len(result.Issues)))
	}

	for i, is := range result.Issues {
		if is.RuleID == "" {
			errors = append(errors, fmt.Sprintf("Issue %d is missing 'rule_id'", i))
		}
		if !models.IsValidSeverity(is.Severity) {
			errors = append(errors, fmt.Sprintf("Issue %d has invalid severity: '%s'", i, is.Severity))
		}
		if !models.IsValidCategory(is.Category) {
			errors = append(errors, fmt.Sprintf("Issue %d has invalid category: '%s'", i, is.Category))
		}
		if is.Line < 1 || is.Column < 1 {
			errors = append(errors, fmt.Sprintf("Issue %d has invalid position %d:%d", i, is.Line, is.Column))
		}
	}

	if len(errors) > 0 {
		return &ValidationError{Subject: "scan result", Errors: errors}
	}

	return nil
}

// ValidateTimestamp checks that a timestamp is set and not in the future
func ValidateTimestamp(t time.Time) error {
	if t.IsZero() {
		return fmt.Errorf("timestamp is missing")
	}

	if t.After(time.Now().Add(1 * time.Hour)) {
		return fmt.Errorf("timestamp is in the future: %v", t)
	}

	return nil
}
