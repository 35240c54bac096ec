package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/aggregator"
	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/reporter"
	"github.com/ppiankov/apispectre/internal/storage"
)

var (
	// Summarize command flags
	summarizeLastN       int
	summarizeCompare     bool
	summarizeFormat      string
	summarizeInteractive bool
)

// summarizeCmd represents the summarize command
var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Show summary and trends from stored runs",
	Long: `Analyze historical data from stored runs and show trends over time.

This command displays:
- Latest run summary
- Trend analysis across last N runs
- Issue and score sparklines showing changes over time
- Per-rule trend comparison
- Improvement/degradation indicators

Example:
  apispectre summarize
  apispectre summarize --last 7
  apispectre summarize --compare
  apispectre summarize --interactive`,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().IntVarP(&summarizeLastN, "last", "n", 0,
		"number of runs to analyze (default from config)")
	summarizeCmd.Flags().BoolVarP(&summarizeCompare, "compare", "c", false,
		"compare latest run with previous")
	summarizeCmd.Flags().StringVarP(&summarizeFormat, "format", "f", "text",
		"output format: text or json")
	summarizeCmd.Flags().BoolVarP(&summarizeInteractive, "interactive", "i", false,
		"browse the latest run in an interactive terminal view")
}

func runSummarize(cmd *cobra.Command, args []string) error {
	lastN := lastRunsOrDefault(summarizeLastN)

	store, err := openStore("")
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return err
	}

	logVerbose("Loading runs from: %s", store.GetStoragePath())

	runs, err := store.ListRuns()
	if err != nil {
		logError("Failed to list runs: %v", err)
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No stored runs found.")
		fmt.Println("Run 'apispectre scan <directory>' to generate your first report.")
		return nil
	}

	logVerbose("Found %d stored runs", len(runs))

	if summarizeCompare {
		return runComparisonReport(os.Stdout, store)
	}
	return runTrendReport(os.Stdout, store, lastN)
}

// runComparisonReport generates a comparison report between latest and previous runs
func runComparisonReport(w io.Writer, store storage.Storage) error {
	results, err := store.GetLastNRuns(2)
	if err != nil {
		logError("Failed to load runs: %v", err)
		return err
	}

	if len(results) < 2 {
		_, _ = fmt.Fprintln(w, "Need at least 2 runs for comparison.")
		_, _ = fmt.Fprintln(w, "Run 'apispectre scan <directory>' to generate more reports.")
		return nil
	}

	previous, current := results[0], results[1]
	logVerbose("Comparing %s vs %s", current.ScannedAt, previous.ScannedAt)

	analyzer := aggregator.NewTrendAnalyzer()
	_, err = fmt.Fprint(w, analyzer.GenerateComparisonReport(current, previous))
	return err
}

// runTrendReport generates a trend report across last N runs
func runTrendReport(w io.Writer, store storage.Storage, lastN int) error {
	results, err := store.GetLastNRuns(lastN)
	if err != nil {
		logError("Failed to load runs: %v", err)
		return err
	}

	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "No runs found.")
		return nil
	}

	logVerbose("Analyzing trends across %d runs", len(results))

	trendSummary := aggregator.New().BuildTrendSummary(results)
	if trendSummary == nil {
		_, _ = fmt.Fprintln(w, "Unable to generate trend summary.")
		return nil
	}

	latest := results[len(results)-1]

	if summarizeInteractive {
		if !isTerminal() {
			return &ValidationError{Message: "--interactive needs a terminal"}
		}
		return runTUI(latest, trendSummary)
	}

	switch summarizeFormat {
	case "text":
		printTrendSummaryText(w, trendSummary, results)
		return nil
	case "json":
		return reporter.NewJSONReporter(w, true).Generate(latest)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s", summarizeFormat)}
	}
}

// printTrendSummaryText prints trend summary in human-readable format
func printTrendSummaryText(w io.Writer, summary *models.TrendSummary, results []*models.ScanResult) {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("╔════════════════════════════════════════════╗\n")
	p("║         API Spectre Trend Summary          ║\n")
	p("╚════════════════════════════════════════════╝\n\n")

	p("Time Range: %s\n", summary.TimeRange)
	p("Runs Analyzed: %d\n\n", summary.RunsAnalyzed)

	latest := results[len(results)-1]
	p("Latest Run: %s\n", latest.ScannedAt.Format("2006-01-02 15:04:05"))
	p("Total Issues: %d\n", latest.Stats.TotalIssues)
	p("Score: %d/100 (%s)", latest.Score, latest.Health)

	if len(results) >= 2 {
		trend := aggregator.NewTrendAnalyzer().CalculateTrend(latest, results[len(results)-2])
		p(" (%s %s %.1f%%)\n", aggregator.GetTrendIndicator(trend.Direction), trend.Direction, trend.ChangePercent)
	} else {
		p("\n")
	}
	p("\n")

	if len(summary.IssueSparkline) > 0 {
		p("Issue Trend (over time):\n  %s\n", sparkline(summary.IssueSparkline))
	}
	if len(summary.ScoreSparkline) > 0 {
		p("Score Trend (over time):\n  %s\n", sparkline(summary.ScoreSparkline))
	}

	if len(summary.ByRule) > 0 {
		p("\nBy Rule:\n")
		p("--------------------------------------------------\n")

		ids := make([]string, 0, len(summary.ByRule))
		for id := range summary.ByRule {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			rt := summary.ByRule[id]
			indicator := "→"
			if rt.Change < 0 {
				indicator = "↓"
			} else if rt.Change > 0 {
				indicator = "↑"
			}
			p("  %s: %d issues (%s %+d, %.1f%%)\n", id, rt.CurrentIssues, indicator, rt.Change, rt.ChangePercent)
		}
	}

	if len(latest.Recommendations) > 0 {
		p("\nTop Recommendations:\n")
		p("--------------------------------------------------\n")

		recGen := aggregator.NewRecommendationGenerator()
		for i, rec := range recGen.GetTopRecommendations(latest.Recommendations, 5) {
			p("  %d. [%s] %s\n", i+1, rec.Severity, rec.Action)
		}
	}

	p("\nRun 'apispectre scan' to update data\n")
}

// sparkline renders values as unicode bars followed by [first → last]
func sparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	out := make([]rune, 0, len(values))
	for _, v := range values {
		if hi == lo {
			out = append(out, chars[len(chars)/2])
		} else {
			normalized := float64(v-lo) / float64(hi-lo)
			out = append(out, chars[int(normalized*float64(len(chars)-1))])
		}
	}

	return fmt.Sprintf("%s [%d → %d]", string(out), values[0], values[len(values)-1])
}
