package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/ppiankov/apispectre/internal/aggregator"
	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/policy"
	"github.com/ppiankov/apispectre/internal/reporter"
	"github.com/ppiankov/apispectre/internal/tui"
)

// bothJSONFile receives the JSON half of --format both when writing to stdout
const bothJSONFile = "apispectre-report.json"

// runTUI is replaced in tests
var runTUI = tui.Run

// PipelineConfig holds options for the post-scan pipeline.
type PipelineConfig struct {
	Format      string
	Output      string
	SummaryOnly bool
	Store       bool
	StorageDir  string
	Threshold   int
	MinScore    int
	PolicyDir   string
	Interactive bool
	LastRuns    int
}

// RunPipeline enriches a scan result and reports it:
// trend → recommendations → store → output → policy → threshold.
func RunPipeline(result *models.ScanResult, pcfg PipelineConfig) error {
	agg := aggregator.New()

	// Step 1: Compare with the previous stored run
	var previous *models.ScanResult
	if pcfg.Store {
		store, err := openStore(pcfg.StorageDir)
		if err != nil {
			logError("Failed to get storage path: %v", err)
			return err
		}

		if prev, err := store.GetLatestRun(); err == nil {
			logVerbose("Found previous run from %s", prev.ScannedAt.Format("2006-01-02 15:04:05"))
			previous = prev
		} else {
			logDebug("No previous run found: %v", err)
		}
	}

	// Step 2: Recommendations and trend
	agg.Enrich(result, previous)
	logVerbose("Generated %d recommendations", len(result.Recommendations))

	// Step 3: Store if enabled
	var trendSummary *models.TrendSummary
	if pcfg.Store {
		store, err := openStore(pcfg.StorageDir)
		if err != nil {
			return err
		}

		if err := store.SaveRun(result); err != nil {
			logError("Failed to store result: %v", err)
			return err
		}
		logVerbose("Stored result in: %s", store.GetStoragePath())

		if pcfg.Interactive {
			if runs, err := store.GetLastNRuns(lastRunsOrDefault(pcfg.LastRuns)); err == nil {
				trendSummary = agg.BuildTrendSummary(runs)
			}
		}
	}

	// Step 4: Output
	if pcfg.Interactive {
		if err := runTUI(result, trendSummary); err != nil {
			logError("Interactive view failed: %v", err)
			return err
		}
	} else if err := generateOutput(result, pcfg); err != nil {
		logError("Failed to generate output: %v", err)
		return err
	}

	// Step 5: Policy enforcement (if .apispectre-policy.yaml exists)
	if err := enforcePolicy(result, pcfg.PolicyDir); err != nil {
		return err
	}

	// Step 6: Thresholds
	if pcfg.Threshold > 0 && result.Stats.TotalIssues > pcfg.Threshold {
		logError("Issue count (%d) exceeds threshold (%d)", result.Stats.TotalIssues, pcfg.Threshold)
		return &ThresholdExceededError{
			IssueCount: result.Stats.TotalIssues,
			Threshold:  pcfg.Threshold,
		}
	}

	if pcfg.MinScore > 0 && result.Score < pcfg.MinScore {
		logError("Score (%d) is below minimum (%d)", result.Score, pcfg.MinScore)
		return &ThresholdExceededError{
			IssueCount: result.Stats.TotalIssues,
			Reason:     fmt.Sprintf("score (%d) is below minimum (%d)", result.Score, pcfg.MinScore),
		}
	}

	return nil
}

func enforcePolicy(result *models.ScanResult, dir string) error {
	policyPath := policy.FindPolicyFile(dir)
	if policyPath == "" {
		return nil
	}
	logVerbose("Found policy file: %s", policyPath)

	pol, err := policy.LoadFromFile(policyPath)
	if err != nil {
		logError("Failed to load policy: %v", err)
		return &ValidationError{Message: err.Error()}
	}
	if pol == nil {
		return nil
	}

	outcome := pol.Evaluate(result)
	if !outcome.Pass {
		for _, v := range outcome.Violations {
			logError("Policy violation [%s]: %s", v.Rule, v.Message)
		}
		return &ThresholdExceededError{
			IssueCount: len(outcome.Violations),
			Reason:     fmt.Sprintf("%d policy violation(s) in %s", len(outcome.Violations), policyPath),
		}
	}

	logVerbose("Policy check passed")
	return nil
}

// generateOutput writes the result in the configured format(s).
func generateOutput(result *models.ScanResult, pcfg PipelineConfig) error {
	var writer io.Writer = os.Stdout
	if pcfg.Output != "" {
		f, err := os.Create(pcfg.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	switch pcfg.Format {
	case "text":
		return reporter.NewTextReporter(writer).Generate(result)

	case "json":
		return writeJSONResult(writer, result, pcfg.SummaryOnly)

	case "sarif":
		return reporter.NewSARIFReporter(writer, buildVersion).Generate(result)

	case "both":
		if err := reporter.NewTextReporter(writer).Generate(result); err != nil {
			return err
		}

		if pcfg.Output != "" {
			if _, err := fmt.Fprintf(writer, "\n=== JSON Output ===\n\n"); err != nil {
				return err
			}
			return writeJSONResult(writer, result, pcfg.SummaryOnly)
		}

		jsonFile, err := os.Create(bothJSONFile)
		if err != nil {
			return fmt.Errorf("failed to create JSON file: %w", err)
		}
		defer func() { _ = jsonFile.Close() }()
		return writeJSONResult(jsonFile, result, pcfg.SummaryOnly)

	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, sarif, or both)", pcfg.Format)}
	}
}

func writeJSONResult(w io.Writer, result *models.ScanResult, summaryOnly bool) error {
	jsonReporter := reporter.NewJSONReporter(w, true)
	if summaryOnly {
		return jsonReporter.GenerateSummaryOnly(result)
	}
	return jsonReporter.Generate(result)
}

func lastRunsOrDefault(n int) int {
	if n > 0 {
		return n
	}
	if cfg != nil && cfg.LastRuns > 0 {
		return cfg.LastRuns
	}
	return 7
}
