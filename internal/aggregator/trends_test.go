package aggregator

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/apispectre/internal/models"
)

func TestCalculateTrend(t *testing.T) {
	analyzer := NewTrendAnalyzer()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := issue("SEC001", models.SeverityCritical, models.CategorySecurity, "a.js", 1)
	b := issue("DES004", models.SeverityLow, models.CategoryDesign, "a.js", 2)
	c := issue("PERF001", models.SeverityMedium, models.CategoryPerformance, "b.js", 7)

	tests := []struct {
		name          string
		previous      *models.ScanResult
		current       *models.ScanResult
		wantDirection string
		wantPercent   float64
		wantNew       int
		wantResolved  int
	}{
		{
			name:          "degrading",
			previous:      result(base, 90, a),
			current:       result(base, 70, a, b),
			wantDirection: "degrading",
			wantPercent:   100,
			wantNew:       1,
		},
		{
			name:          "improving",
			previous:      result(base, 70, a, b),
			current:       result(base, 90, b),
			wantDirection: "improving",
			wantPercent:   -50,
			wantResolved:  1,
		},
		{
			name:          "stable count with churn",
			previous:      result(base, 80, a, b),
			current:       result(base, 80, a, c),
			wantDirection: "stable",
			wantNew:       1,
			wantResolved:  1,
		},
		{
			name:          "from zero",
			previous:      result(base, 100),
			current:       result(base, 75, a),
			wantDirection: "degrading",
			wantPercent:   0,
			wantNew:       1,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			trend := analyzer.CalculateTrend(tt.current, tt.previous)
			if trend.Direction != tt.wantDirection {
				t.Fatalf("expected %s, got %s", tt.wantDirection, trend.Direction)
			}
			if trend.ChangePercent != tt.wantPercent {
				t.Fatalf("expected %.1f%%, got %.1f%%", tt.wantPercent, trend.ChangePercent)
			}
			if trend.NewIssues != tt.wantNew || trend.ResolvedIssues != tt.wantResolved {
				t.Fatalf("expected new=%d resolved=%d, got new=%d resolved=%d", tt.wantNew, tt.wantResolved, trend.NewIssues, trend.ResolvedIssues)
			}
			if trend.PreviousScore != tt.previous.Score || trend.CurrentScore != tt.current.Score {
				t.Fatalf("expected scores to be copied, got %+v", trend)
			}
		})
	}

	if analyzer.CalculateTrend(result(base, 100), nil) != nil {
		t.Fatal("expected nil trend without previous")
	}
}

func TestDiffKeepsDuplicates(t *testing.T) {
	a := issue("SEC001", models.SeverityCritical, models.CategorySecurity, "a.js", 1)
	added, resolved := Diff([]models.ScanIssue{a, a}, []models.ScanIssue{a})
	if len(added) != 1 || len(resolved) != 0 {
		t.Fatalf("expected 1 added 0 resolved, got %d/%d", len(added), len(resolved))
	}
}

func TestIssueKey(t *testing.T) {
	got := IssueKey(issue("BP001", models.SeverityHigh, models.CategoryBestPractices, "src/app.js", 12))
	if got != "BP001|src/app.js|12" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestAnalyzeLastNRuns(t *testing.T) {
	analyzer := NewTrendAnalyzer()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	runs := []*models.ScanResult{
		result(base, 60,
			issue("SEC001", models.SeverityCritical, models.CategorySecurity, "a.js", 1),
			issue("DES004", models.SeverityLow, models.CategoryDesign, "a.js", 2),
		),
		result(base.Add(72*time.Hour), 80,
			issue("DES004", models.SeverityLow, models.CategoryDesign, "a.js", 2),
		),
		result(base.Add(7*24*time.Hour), 90,
			issue("DES004", models.SeverityLow, models.CategoryDesign, "a.js", 2),
			issue("DOC001", models.SeverityLow, models.CategoryDocumentation, "a.js", 1),
		),
	}

	summary := analyzer.AnalyzeLastNRuns(runs)

	if summary.TimeRange != "Last 7 days" {
		t.Fatalf("expected Last 7 days, got %s", summary.TimeRange)
	}
	wantIssues := []int{2, 1, 2}
	wantScores := []int{60, 80, 90}
	for i := range runs {
		if summary.IssueSparkline[i] != wantIssues[i] || summary.ScoreSparkline[i] != wantScores[i] {
			t.Fatalf("unexpected sparklines: %v %v", summary.IssueSparkline, summary.ScoreSparkline)
		}
	}

	sec := summary.ByRule["SEC001"]
	if sec == nil || sec.Change != -1 || sec.ChangePercent != -100 {
		t.Fatalf("unexpected SEC001 trend: %+v", sec)
	}
	doc := summary.ByRule["DOC001"]
	if doc == nil || doc.PreviousIssues != 0 || doc.ChangePercent != 100 {
		t.Fatalf("unexpected DOC001 trend: %+v", doc)
	}
	des := summary.ByRule["DES004"]
	if des == nil || des.Change != 0 || des.ChangePercent != 0 {
		t.Fatalf("unexpected DES004 trend: %+v", des)
	}
}

func TestGenerateComparisonReport(t *testing.T) {
	analyzer := NewTrendAnalyzer()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	prev := result(base, 75, issue("SEC001", models.SeverityCritical, models.CategorySecurity, "a.js", 1))
	curr := result(base.Add(24*time.Hour), 96,
		issue("DES004", models.SeverityLow, models.CategoryDesign, "a.js", 2),
	)

	out := analyzer.GenerateComparisonReport(curr, prev)

	for _, want := range []string{
		"Comparison: 2026-03-02 vs 2026-03-01",
		"Overall: 1 → 1 issues (0.0% stable)",
		"Score: 75 → 96",
		"DES004:\n  0 → 1 (+1)",
		"SEC001:\n  1 → 0 (-1)",
		"New Issues: 1",
		"Resolved Issues: 1",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in report:\n%s", want, out)
		}
	}

	if got := analyzer.GenerateComparisonReport(curr, nil); got != "No previous run to compare with" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestGetTrendIndicator(t *testing.T) {
	tests := map[string]string{
		"improving": "↓",
		"degrading": "↑",
		"stable":    "→",
		"unknown":   "?",
	}
	for in, want := range tests {
		if got := GetTrendIndicator(in); got != want {
			t.Fatalf("%s: expected %s, got %s", in, want, got)
		}
	}
}
