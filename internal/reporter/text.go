package reporter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ppiankov/apispectre/internal/aggregator"
	"github.com/ppiankov/apispectre/internal/models"
)

// Reporter renders a scan result
type Reporter interface {
	Generate(result *models.ScanResult) error
}

// TextReporter generates human-readable text reports
type TextReporter struct {
	writer io.Writer
}

// NewTextReporter creates a new text reporter. Colors follow color.NoColor.
func NewTextReporter(writer io.Writer) *TextReporter {
	return &TextReporter{
		writer: writer,
	}
}

// Generate creates a text report from the scan result
func (r *TextReporter) Generate(result *models.ScanResult) error {
	r.printHeader()
	r.printf("Scan ID: %s\n", result.ID)
	r.printf("Timestamp: %s\n\n", formatTimestamp(result.ScannedAt))

	r.printOverallSummary(result)
	r.printIssues(result.Issues)

	if len(result.Recommendations) > 0 {
		r.printRecommendations(result.Recommendations)
	}

	if result.Trend != nil {
		r.printf("\n")
		r.printTrendInfo(result.Trend)
	}

	return nil
}

// printHeader prints the report header
func (r *TextReporter) printHeader() {
	r.printf("╔════════════════════════════════════════════╗\n")
	r.printf("║          API Spectre Scan Report           ║\n")
	r.printf("╚════════════════════════════════════════════╝\n\n")
}

// printOverallSummary prints the overall summary section
func (r *TextReporter) printOverallSummary(result *models.ScanResult) {
	stats := result.Stats

	r.printf("Overall Summary:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Files: %d (%d scanned, %d skipped)\n", stats.TotalFiles, stats.ScannedFiles, stats.SkippedFiles)
	r.printf("  Total Issues: %d\n", stats.TotalIssues)
	r.printf("  Score: ")
	scoreColor(result.Score).Fprintf(r.writer, "%d/100 (%s)", result.Score, strings.ToUpper(result.Health))

	if result.Trend != nil {
		indicator := aggregator.GetTrendIndicator(result.Trend.Direction)
		r.printf(" %s %.1f%% from previous run", indicator, result.Trend.ChangePercent)
	}

	r.printf("\n  Duration: %dms\n\n", stats.ScanDurationMs)

	r.printf("Issues by Severity:\n")
	for _, sev := range models.Severities {
		severityColor(sev).Fprintf(r.writer, "  %-9s %d\n", sev.Label()+":", stats.IssuesBySeverity[sev])
	}
	r.printf("\n")

	r.printf("Issues by Category:\n")
	for _, cat := range models.Categories {
		if n := stats.IssuesByCategory[cat]; n > 0 {
			r.printf("  %s: %d\n", cat.Label(), n)
		}
	}
	r.printf("\n")

	if len(stats.IssuesByLanguage) > 0 {
		r.printf("Issues by Language:\n")
		for _, lang := range models.Languages {
			if n := stats.IssuesByLanguage[lang]; n > 0 {
				r.printf("  %s: %d\n", lang.Label(), n)
			}
		}
		r.printf("\n")
	}
}

// printIssues lists every issue in result order
func (r *TextReporter) printIssues(issues []models.ScanIssue) {
	if len(issues) == 0 {
		color.New(color.FgGreen).Fprintf(r.writer, "No issues found.\n")
		return
	}

	bold := color.New(color.Bold)
	gray := color.New(color.FgHiBlack)

	bold.Fprintf(r.writer, "Issues:\n")
	r.printf("--------------------------------------------------\n")
	for _, is := range issues {
		severityColor(is.Severity).Fprintf(r.writer, "  [%s] ", strings.ToUpper(string(is.Severity)))
		r.printf("%s %s\n", is.RuleID, is.Message)
		gray.Fprintf(r.writer, "         %s:%d:%d\n", is.FilePath, is.Line, is.Column)
		if is.CodeSnippet != "" {
			gray.Fprintf(r.writer, "         %s\n", clip(is.CodeSnippet, 100))
		}
	}
}

// printRecommendations prints the recommendations section
func (r *TextReporter) printRecommendations(recommendations []models.Recommendation) {
	r.printf("\n")
	r.printf("Recommended Actions:\n")
	r.printf("--------------------------------------------------\n")

	gen := aggregator.NewRecommendationGenerator()
	grouped := gen.GroupBySeverity(recommendations)

	n := 0
	for _, severity := range models.Severities {
		for _, rec := range grouped[severity] {
			n++
			r.printf("  %d. ", n)
			severityColor(severity).Fprintf(r.writer, "[%s]", strings.ToUpper(string(severity)))
			r.printf(" %s (%s)\n", rec.Action, rec.RuleID)
			r.printf("     Impact: %s\n", rec.Impact)
		}
	}
}

// printTrendInfo prints trend information
func (r *TextReporter) printTrendInfo(trend *models.Trend) {
	r.printf("Trend Analysis:\n")
	r.printf("--------------------------------------------------\n")
	r.printf("  Direction: %s %s\n", trend.Direction, aggregator.GetTrendIndicator(trend.Direction))
	r.printf("  Change: %d → %d issues (%.1f%%)\n",
		trend.PreviousIssues,
		trend.CurrentIssues,
		trend.ChangePercent)
	r.printf("  Score: %d → %d\n", trend.PreviousScore, trend.CurrentScore)

	if trend.NewIssues > 0 {
		r.printf("  New Issues: %d\n", trend.NewIssues)
	}
	if trend.ResolvedIssues > 0 {
		r.printf("  Resolved: %d\n", trend.ResolvedIssues)
	}

	r.printf("  Compared With: %s\n", formatTimestamp(trend.ComparedWith))
}

// printf is a helper to write formatted output
func (r *TextReporter) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.writer, format, args...)
}

func severityColor(s models.Severity) *color.Color {
	switch s {
	case models.SeverityCritical:
		return color.New(color.FgRed, color.Bold)
	case models.SeverityHigh:
		return color.New(color.FgRed)
	case models.SeverityMedium:
		return color.New(color.FgYellow)
	case models.SeverityLow:
		return color.New(color.FgCyan)
	default:
		return color.New(color.FgBlue)
	}
}

func scoreColor(score int) *color.Color {
	switch {
	case score >= models.ScoreGood:
		return color.New(color.FgGreen, color.Bold)
	case score >= models.ScoreFair:
		return color.New(color.FgYellow, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

// clip shortens s to n characters with an ellipsis
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// formatTimestamp formats a timestamp for display
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
