package models

import "time"

// DefaultMaxFileSize is the size limit applied when ScanOptions.MaxFileSize is not set
const DefaultMaxFileSize int64 = 500 * 1024

// DefaultExcludePatterns is used by intake when ScanOptions.ExcludePatterns is nil
var DefaultExcludePatterns = []string{
	"node_modules",
	".git",
	"dist",
	"build",
	".next",
	"vendor",
	"__pycache__",
	"*.min.js",
	"*.test.*",
	"*.spec.*",
}

// RuleDefinition is the static description of a rule
type RuleDefinition struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description" yaml:"description"`
	Category    Category   `json:"category" yaml:"category"`
	Severity    Severity   `json:"severity" yaml:"severity"`
	Languages   []Language `json:"languages" yaml:"languages"`
	Docs        string     `json:"docs,omitempty" yaml:"docs,omitempty"`
	Fixable     bool       `json:"fixable,omitempty" yaml:"fixable,omitempty"`
}

// SupportsLanguage reports whether the rule declares lang
func (d RuleDefinition) SupportsLanguage(lang Language) bool {
	for _, l := range d.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// FileEntry is a raw (path, content) pair handed to intake
type FileEntry struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ScanFile is a classified file ready for rule evaluation
type ScanFile struct {
	Path     string   `json:"path"`
	Content  string   `json:"-"`
	Language Language `json:"language"`
	Size     int64    `json:"size"` // bytes, not characters
}

// ScanIssue is a single finding reported by a rule
type ScanIssue struct {
	RuleID      string   `json:"rule_id"`
	RuleName    string   `json:"rule_name"`
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Suggestion  string   `json:"suggestion"`
	FilePath    string   `json:"file_path"`
	Line        int      `json:"line"`   // 1-based
	Column      int      `json:"column"` // 1-based
	EndLine     int      `json:"end_line,omitempty"`
	EndColumn   int      `json:"end_column,omitempty"`
	CodeSnippet string   `json:"code_snippet,omitempty"`
	Fixable     bool     `json:"fixable,omitempty"`
}

// ScanOptions controls intake filtering and rule selection.
// A nil slice means the filter is not set; an empty non-nil slice is set and matches nothing.
type ScanOptions struct {
	Languages         []Language `json:"languages,omitempty" mapstructure:"languages"`
	Categories        []Category `json:"categories,omitempty" mapstructure:"categories"`
	SeverityThreshold Severity   `json:"severity_threshold,omitempty" mapstructure:"severity_threshold"`
	MaxFileSize       int64      `json:"max_file_size,omitempty" mapstructure:"max_file_size"` // 0 = DefaultMaxFileSize
	ExcludePatterns   []string   `json:"exclude_patterns,omitempty" mapstructure:"exclude_patterns"`
	EnabledRules      []string   `json:"enabled_rules,omitempty" mapstructure:"enabled_rules"`
	DisabledRules     []string   `json:"disabled_rules,omitempty" mapstructure:"disabled_rules"`
	Workers           int        `json:"workers,omitempty" mapstructure:"workers"` // 0 = GOMAXPROCS
}

// EffectiveMaxFileSize returns MaxFileSize or the default when unset
func (o ScanOptions) EffectiveMaxFileSize() int64 {
	if o.MaxFileSize <= 0 {
		return DefaultMaxFileSize
	}
	return o.MaxFileSize
}

// ScanStats summarizes a scan
type ScanStats struct {
	TotalFiles       int              `json:"total_files"`
	ScannedFiles     int              `json:"scanned_files"`
	SkippedFiles     int              `json:"skipped_files"`
	TotalIssues      int              `json:"total_issues"`
	IssuesBySeverity map[Severity]int `json:"issues_by_severity"`
	IssuesByCategory map[Category]int `json:"issues_by_category"`
	IssuesByLanguage map[Language]int `json:"issues_by_language"`
	ScanDurationMs   int64            `json:"scan_duration_ms"`
}

// NewScanStats returns stats with every severity and category bucket present
func NewScanStats() ScanStats {
	stats := ScanStats{
		IssuesBySeverity: make(map[Severity]int, len(Severities)),
		IssuesByCategory: make(map[Category]int, len(Categories)),
		IssuesByLanguage: make(map[Language]int),
	}
	for _, s := range Severities {
		stats.IssuesBySeverity[s] = 0
	}
	for _, c := range Categories {
		stats.IssuesByCategory[c] = 0
	}
	return stats
}

// ScanResult is the complete output of one scan
type ScanResult struct {
	ID              string           `json:"id"`
	Issues          []ScanIssue      `json:"issues"`
	Stats           ScanStats        `json:"stats"`
	Score           int              `json:"score"`  // 0-100
	Health          string           `json:"health"` // excellent, good, fair, poor, critical
	ScannedAt       time.Time        `json:"scanned_at"`
	Options         ScanOptions      `json:"options"`
	Trend           *Trend           `json:"trend,omitempty"`           // Comparison with previous run
	Recommendations []Recommendation `json:"recommendations,omitempty"` // Prioritized actions
}
