package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/aggregator"
	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/validator"
)

var (
	diffFormat   string
	diffOutput   string
	diffBaseline string
	diffFailNew  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what changed between two scans",
	Long: `Compare the latest scan against a baseline to show drift.

Shows new issues, resolved issues, and summary deltas between two runs.
Issues are matched by rule, file and line. Useful in CI/CD to catch
regressions introduced by a pull request.

By default compares the two most recent stored runs. Use --baseline to
specify a result file (apispectre scan --format json) as the comparison target.

Exit codes:
  0  No new issues (or --fail-new not set)
  1  New issues detected (with --fail-new)

Example:
  apispectre diff
  apispectre diff --fail-new
  apispectre diff --baseline ./baseline.json --format json`,
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text",
		"output format: text or json")
	diffCmd.Flags().StringVarP(&diffOutput, "output", "o", "",
		"write output to file instead of stdout")
	diffCmd.Flags().StringVar(&diffBaseline, "baseline", "",
		"path to baseline result JSON (default: previous stored run)")
	diffCmd.Flags().BoolVar(&diffFailNew, "fail-new", false,
		"exit 1 if new issues are found (for CI gating)")
}

// DiffResult is the structured output of a diff operation.
type DiffResult struct {
	Baseline       string             `json:"baseline"`
	Current        string             `json:"current"`
	NewIssues      []models.ScanIssue `json:"new_issues"`
	ResolvedIssues []models.ScanIssue `json:"resolved_issues"`
	Summary        DiffSummary        `json:"summary"`
}

// DiffSummary holds aggregate counts for a diff.
type DiffSummary struct {
	BaselineTotal int            `json:"baseline_total"`
	CurrentTotal  int            `json:"current_total"`
	NewCount      int            `json:"new_count"`
	ResolvedCount int            `json:"resolved_count"`
	Delta         int            `json:"delta"` // positive = more issues
	ScoreDelta    int            `json:"score_delta"`
	NewBySeverity map[string]int `json:"new_by_severity"`
	NewByRule     map[string]int `json:"new_by_rule"`
	NewByCategory map[string]int `json:"new_by_category"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	store, err := openStore("")
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return err
	}

	// Load current (latest) run.
	current, err := store.GetLatestRun()
	if err != nil {
		logError("No current run found: %v", err)
		fmt.Println("No stored runs found. Run 'apispectre scan' first.")
		return err
	}

	// Load baseline.
	var baseline *models.ScanResult
	if diffBaseline != "" {
		baseline, err = loadResultFromFile(diffBaseline)
		if err != nil {
			logError("Failed to load baseline: %v", err)
			return err
		}
	} else {
		runs, err := store.GetLastNRuns(2)
		if err != nil || len(runs) < 2 {
			fmt.Println("Need at least 2 stored runs for diff.")
			fmt.Println("Run 'apispectre scan' again to record another run.")
			return nil
		}
		baseline = runs[0]
	}

	logVerbose("Comparing %s (current) vs %s (baseline)",
		current.ScannedAt.Format("2006-01-02 15:04"),
		baseline.ScannedAt.Format("2006-01-02 15:04"))

	result := computeDiff(baseline, current)

	if err := outputDiff(result, diffFormat, diffOutput); err != nil {
		return err
	}

	// CI gate.
	if diffFailNew && result.Summary.NewCount > 0 {
		return &ThresholdExceededError{
			IssueCount: result.Summary.NewCount,
			Threshold:  0,
		}
	}

	return nil
}

// computeDiff calculates new and resolved issues between baseline and current.
func computeDiff(baseline, current *models.ScanResult) *DiffResult {
	newIssues, resolvedIssues := aggregator.Diff(current.Issues, baseline.Issues)
	if newIssues == nil {
		newIssues = []models.ScanIssue{}
	}
	if resolvedIssues == nil {
		resolvedIssues = []models.ScanIssue{}
	}

	newBySeverity := map[string]int{}
	newByRule := map[string]int{}
	newByCategory := map[string]int{}
	for _, issue := range newIssues {
		newBySeverity[string(issue.Severity)]++
		newByRule[issue.RuleID]++
		newByCategory[string(issue.Category)]++
	}

	return &DiffResult{
		Baseline:       baseline.ScannedAt.Format("2006-01-02 15:04:05"),
		Current:        current.ScannedAt.Format("2006-01-02 15:04:05"),
		NewIssues:      newIssues,
		ResolvedIssues: resolvedIssues,
		Summary: DiffSummary{
			BaselineTotal: len(baseline.Issues),
			CurrentTotal:  len(current.Issues),
			NewCount:      len(newIssues),
			ResolvedCount: len(resolvedIssues),
			Delta:         len(current.Issues) - len(baseline.Issues),
			ScoreDelta:    current.Score - baseline.Score,
			NewBySeverity: newBySeverity,
			NewByRule:     newByRule,
			NewByCategory: newByCategory,
		},
	}
}

// outputDiff renders the diff result to the chosen format.
func outputDiff(result *DiffResult, format, outputPath string) error {
	var writer io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	switch format {
	case "json":
		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	case "text":
		return printDiffText(writer, result)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text or json)", format)}
	}
}

func printDiffText(w io.Writer, r *DiffResult) error {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("╔════════════════════════════════════════════╗\n")
	p("║          API Spectre Drift Delta           ║\n")
	p("╚════════════════════════════════════════════╝\n\n")

	p("Baseline: %s\n", r.Baseline)
	p("Current:  %s\n\n", r.Current)

	p("Issues: %d → %d (%+d)\n", r.Summary.BaselineTotal, r.Summary.CurrentTotal, r.Summary.Delta)
	p("Score delta: %+d\n", r.Summary.ScoreDelta)
	p("New: %d   Resolved: %d\n\n", r.Summary.NewCount, r.Summary.ResolvedCount)

	if len(r.NewIssues) > 0 {
		p("New Issues:\n")
		p("--------------------------------------------------\n")
		for _, issue := range r.NewIssues {
			p("  [%s] %s %s:%d: %s\n", strings.ToUpper(string(issue.Severity)), issue.RuleID, issue.FilePath, issue.Line, issue.Message)
			if issue.Suggestion != "" {
				p("         %s\n", issue.Suggestion)
			}
		}
		p("\n")
	}

	if len(r.ResolvedIssues) > 0 {
		p("Resolved Issues:\n")
		p("--------------------------------------------------\n")
		for _, issue := range r.ResolvedIssues {
			p("  ✓ %s %s:%d\n", issue.RuleID, issue.FilePath, issue.Line)
		}
		p("\n")
	}

	if len(r.Summary.NewBySeverity) > 0 {
		p("New by Severity:\n")
		for _, sev := range models.Severities {
			if count := r.Summary.NewBySeverity[string(sev)]; count > 0 {
				p("  %s: %d\n", strings.ToUpper(string(sev)), count)
			}
		}
		p("\n")
	}

	if len(r.Summary.NewByRule) > 0 {
		p("New by Rule:\n")
		ids := make([]string, 0, len(r.Summary.NewByRule))
		for id := range r.Summary.NewByRule {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			p("  %s: %d\n", id, r.Summary.NewByRule[id])
		}
		p("\n")
	}

	if r.Summary.NewCount == 0 && r.Summary.ResolvedCount == 0 {
		p("No drift detected.\n")
	} else if r.Summary.NewCount == 0 {
		p("No new issues, only improvements.\n")
	}

	return nil
}

// loadResultFromFile loads and validates a ScanResult JSON file.
func loadResultFromFile(path string) (*models.ScanResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := validator.New().ValidateResult(data); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}

	var result models.ScanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("failed to parse result: %v", err)}
	}

	return &result, nil
}
