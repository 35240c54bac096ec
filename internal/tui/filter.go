package tui

import (
	"sort"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

// filterState holds current active filters.
type filterState struct {
	Category   models.Category
	Severity   models.Severity
	SearchText string
}

// sortField enumerates columns that can be sorted.
type sortField int

const (
	sortBySeverity sortField = iota
	sortByRule
	sortByCategory
	sortByFile
)

// sortFieldCount is the total number of sortable columns.
const sortFieldCount = 4

// applyFilters returns issues matching all active filters.
func applyFilters(issues []models.ScanIssue, f filterState) []models.ScanIssue {
	result := make([]models.ScanIssue, 0, len(issues))
	searchLower := strings.ToLower(f.SearchText)

	for _, issue := range issues {
		if f.Category != "" && issue.Category != f.Category {
			continue
		}
		if f.Severity != "" && issue.Severity != f.Severity {
			continue
		}
		if searchLower != "" && !matchesSearch(issue, searchLower) {
			continue
		}
		result = append(result, issue)
	}
	return result
}

func matchesSearch(issue models.ScanIssue, searchLower string) bool {
	for _, field := range []string{issue.RuleID, issue.RuleName, issue.Message, issue.FilePath, issue.CodeSnippet} {
		if strings.Contains(strings.ToLower(field), searchLower) {
			return true
		}
	}
	return false
}

// sortIssues sorts a slice of issues in place by the given field.
// File order breaks ties on line number.
func sortIssues(issues []models.ScanIssue, field sortField) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		switch field {
		case sortBySeverity:
			return a.Severity.Rank() > b.Severity.Rank()
		case sortByRule:
			return a.RuleID < b.RuleID
		case sortByCategory:
			return a.Category < b.Category
		case sortByFile:
			if a.FilePath != b.FilePath {
				return a.FilePath < b.FilePath
			}
			return a.Line < b.Line
		default:
			return false
		}
	})
}

// presentCategories returns the categories that occur in issues, in catalog order.
func presentCategories(issues []models.ScanIssue) []models.Category {
	seen := make(map[models.Category]bool)
	for _, issue := range issues {
		seen[issue.Category] = true
	}
	var out []models.Category
	for _, c := range models.Categories {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// nextSeverity cycles "" -> critical -> ... -> info -> "".
func nextSeverity(s models.Severity) models.Severity {
	if s == "" {
		return models.Severities[0]
	}
	for i, sev := range models.Severities {
		if sev == s && i+1 < len(models.Severities) {
			return models.Severities[i+1]
		}
	}
	return ""
}

// sortFieldName returns a human-readable name for the sort field.
func sortFieldName(f sortField) string {
	switch f {
	case sortBySeverity:
		return "severity"
	case sortByRule:
		return "rule"
	case sortByCategory:
		return "category"
	case sortByFile:
		return "file"
	default:
		return "unknown"
	}
}
