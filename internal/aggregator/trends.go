package aggregator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/apispectre/internal/models"
)

// TrendAnalyzer analyzes trends across multiple runs
type TrendAnalyzer struct{}

// NewTrendAnalyzer creates a new trend analyzer
func NewTrendAnalyzer() *TrendAnalyzer {
	return &TrendAnalyzer{}
}

// IssueKey identifies an issue across runs
func IssueKey(issue models.ScanIssue) string {
	return fmt.Sprintf("%s|%s|%d", issue.RuleID, issue.FilePath, issue.Line)
}

// issueKeys counts occurrences of each key so duplicates on one line are kept
func issueKeys(issues []models.ScanIssue) map[string]int {
	keys := make(map[string]int, len(issues))
	for _, is := range issues {
		keys[IssueKey(is)]++
	}
	return keys
}

// Diff returns the issues of current absent from previous and the issues of
// previous absent from current, matched by IssueKey.
func Diff(current, previous []models.ScanIssue) (added, resolved []models.ScanIssue) {
	return subtract(current, issueKeys(previous)), subtract(previous, issueKeys(current))
}

func subtract(issues []models.ScanIssue, other map[string]int) []models.ScanIssue {
	remaining := make(map[string]int, len(other))
	for k, v := range other {
		remaining[k] = v
	}

	var out []models.ScanIssue
	for _, is := range issues {
		k := IssueKey(is)
		if remaining[k] > 0 {
			remaining[k]--
			continue
		}
		out = append(out, is)
	}
	return out
}

// CalculateTrend compares current result with previous one
func (t *TrendAnalyzer) CalculateTrend(current, previous *models.ScanResult) *models.Trend {
	if current == nil || previous == nil {
		return nil
	}

	trend := &models.Trend{
		PreviousIssues: previous.Stats.TotalIssues,
		CurrentIssues:  current.Stats.TotalIssues,
		PreviousScore:  previous.Score,
		CurrentScore:   current.Score,
		ComparedWith:   previous.ScannedAt,
	}

	change := current.Stats.TotalIssues - previous.Stats.TotalIssues
	if previous.Stats.TotalIssues > 0 {
		trend.ChangePercent = float64(change) / float64(previous.Stats.TotalIssues) * 100.0
	}

	switch {
	case change < 0:
		trend.Direction = "improving"
	case change > 0:
		trend.Direction = "degrading"
	default:
		trend.Direction = "stable"
	}

	added, resolved := Diff(current.Issues, previous.Issues)
	trend.NewIssues = len(added)
	trend.ResolvedIssues = len(resolved)

	return trend
}

// AnalyzeLastNRuns analyzes trends across runs ordered oldest first
func (t *TrendAnalyzer) AnalyzeLastNRuns(runs []*models.ScanResult) *models.TrendSummary {
	if len(runs) == 0 {
		return nil
	}

	summary := &models.TrendSummary{
		RunsAnalyzed: len(runs),
		ByRule:       make(map[string]*models.RuleTrend),
	}

	if len(runs) > 1 {
		earliest := runs[0].ScannedAt
		latest := runs[len(runs)-1].ScannedAt
		days := int(latest.Sub(earliest).Hours() / 24)
		summary.TimeRange = fmt.Sprintf("Last %d days", days)
	} else {
		summary.TimeRange = "Single run"
	}

	summary.IssueSparkline = make([]int, len(runs))
	summary.ScoreSparkline = make([]int, len(runs))
	for i, run := range runs {
		summary.IssueSparkline[i] = run.Stats.TotalIssues
		summary.ScoreSparkline[i] = run.Score
	}

	if len(runs) >= 2 {
		t.calculateRuleTrends(runs, summary)
	}

	return summary
}

// IssuesByRule counts a result's issues per rule id
func IssuesByRule(result *models.ScanResult) map[string]int {
	counts := make(map[string]int)
	if result == nil {
		return counts
	}
	for _, is := range result.Issues {
		counts[is.RuleID]++
	}
	return counts
}

// calculateRuleTrends compares the earliest and latest run per rule
func (t *TrendAnalyzer) calculateRuleTrends(runs []*models.ScanResult, summary *models.TrendSummary) {
	previous := IssuesByRule(runs[0])
	current := IssuesByRule(runs[len(runs)-1])

	allRules := make(map[string]bool)
	for id := range previous {
		allRules[id] = true
	}
	for id := range current {
		allRules[id] = true
	}

	for id := range allRules {
		prev, curr := previous[id], current[id]
		change := curr - prev

		changePercent := 0.0
		if prev > 0 {
			changePercent = float64(change) / float64(prev) * 100.0
		} else if curr > 0 {
			// Rule started reporting
			changePercent = 100.0
		}

		summary.ByRule[id] = &models.RuleTrend{
			RuleID:         id,
			CurrentIssues:  curr,
			PreviousIssues: prev,
			Change:         change,
			ChangePercent:  changePercent,
		}
	}
}

// GenerateComparisonReport creates a plain-text comparison between two runs
func (t *TrendAnalyzer) GenerateComparisonReport(current, previous *models.ScanResult) string {
	if previous == nil {
		return "No previous run to compare with"
	}

	trend := t.CalculateTrend(current, previous)

	var b strings.Builder
	fmt.Fprintf(&b, "Comparison: %s vs %s\n\n", formatDate(current.ScannedAt), formatDate(previous.ScannedAt))
	fmt.Fprintf(&b, "Overall: %d → %d issues (%.1f%% %s)\n", trend.PreviousIssues, trend.CurrentIssues, trend.ChangePercent, trend.Direction)
	fmt.Fprintf(&b, "Score: %d → %d\n\n", trend.PreviousScore, trend.CurrentScore)

	prevByRule := IssuesByRule(previous)
	currByRule := IssuesByRule(current)

	ids := make([]string, 0, len(currByRule)+len(prevByRule))
	seen := make(map[string]bool)
	for _, m := range []map[string]int{currByRule, prevByRule} {
		for id := range m {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		prevCount, currCount := prevByRule[id], currByRule[id]
		if prevCount == currCount {
			continue
		}
		fmt.Fprintf(&b, "%s:\n  %d → %d (%+d)\n", id, prevCount, currCount, currCount-prevCount)
	}

	if trend.NewIssues > 0 {
		fmt.Fprintf(&b, "\nNew Issues: %d\n", trend.NewIssues)
	}
	if trend.ResolvedIssues > 0 {
		fmt.Fprintf(&b, "\nResolved Issues: %d\n", trend.ResolvedIssues)
	}

	return b.String()
}

// formatDate formats a timestamp for display
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// GetTrendIndicator returns a visual indicator for trend direction
func GetTrendIndicator(direction string) string {
	switch direction {
	case "improving":
		return "↓"
	case "degrading":
		return "↑"
	case "stable":
		return "→"
	default:
		return "?"
	}
}
