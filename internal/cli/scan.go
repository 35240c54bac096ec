package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ppiankov/apispectre/internal/apiclient"
	"github.com/ppiankov/apispectre/internal/collector"
	"github.com/ppiankov/apispectre/internal/engine"
	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/validator"
)

var (
	scanFormat      string
	scanOutput      string
	scanSummaryOnly bool
	scanStore       bool
	scanStorageDir  string
	scanThreshold   int
	scanMinScore    int
	scanRemote      string
	scanInteractive bool

	scanLanguages    []string
	scanCategories   []string
	scanSeverity     string
	scanExclude      []string
	scanEnableRules  []string
	scanDisableRules []string
	scanMaxFileSize  int64
	scanWorkers      int
)

// isTerminal is replaced in tests
var isTerminal = func() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

var scanCmd = &cobra.Command{
	Use:   "scan [path]...",
	Short: "Scan source files for API quality issues",
	Long: `Scan walks the given files and directories (default: current directory),
classifies every supported source file and runs the rule catalog over it.

The command will:
1. Collect source files, skipping dependency and build directories
2. Apply language, category, severity and rule filters
3. Run every applicable rule on every file
4. Score the result and generate recommendations
5. Compare with the previous stored run
6. Output results and enforce thresholds and .apispectre-policy.yaml

Example:
  apispectre scan
  apispectre scan ./src --format json -o report.json
  apispectre scan ./src --category security --severity high
  apispectre scan ./src --disable-rule DOC001 --fail-threshold 20
  apispectre scan ./src --remote http://scanner:8080
  apispectre scan ./src --interactive`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "",
		"output format: text, json, sarif, or both (default from config)")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "",
		"output file path (default: stdout)")
	scanCmd.Flags().BoolVar(&scanSummaryOnly, "summary-only", false,
		"omit the issue list from JSON output")
	scanCmd.Flags().BoolVar(&scanStore, "store", true,
		"store the result for trend analysis")
	scanCmd.Flags().StringVar(&scanStorageDir, "storage-dir", "",
		"storage directory (default from config)")
	scanCmd.Flags().IntVar(&scanThreshold, "fail-threshold", -1,
		"exit with code 1 if issues exceed this threshold (default from config)")
	scanCmd.Flags().IntVar(&scanMinScore, "min-score", -1,
		"exit with code 1 if the score is below this value (default from config)")
	scanCmd.Flags().StringVar(&scanRemote, "remote", "",
		"scan on an apispectre server instead of locally")
	scanCmd.Flags().BoolVarP(&scanInteractive, "interactive", "i", false,
		"browse issues in an interactive terminal view")

	scanCmd.Flags().StringSliceVar(&scanLanguages, "language", nil,
		"only scan these languages (repeatable)")
	scanCmd.Flags().StringSliceVar(&scanCategories, "category", nil,
		"only run rules in these categories (repeatable)")
	scanCmd.Flags().StringVar(&scanSeverity, "severity", "",
		"minimum rule severity: critical, high, medium, low, info")
	scanCmd.Flags().StringSliceVar(&scanExclude, "exclude", nil,
		"exclude patterns, replacing the defaults (repeatable)")
	scanCmd.Flags().StringSliceVar(&scanEnableRules, "enable-rule", nil,
		"only run these rule ids (repeatable)")
	scanCmd.Flags().StringSliceVar(&scanDisableRules, "disable-rule", nil,
		"never run these rule ids (repeatable)")
	scanCmd.Flags().Int64Var(&scanMaxFileSize, "max-file-size", 0,
		"skip files larger than this many bytes (default from config)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0,
		"concurrent rule workers (default from config)")
}

func runScan(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	opts := scanOptionsFromFlags(cmd)
	if err := validator.New().ValidateOptions(opts); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	format := scanFormat
	if format == "" {
		format = cfg.Format
	}
	threshold := scanThreshold
	if threshold == -1 {
		threshold = cfg.FailThreshold
	}
	minScore := scanMinScore
	if minScore == -1 {
		minScore = cfg.MinScore
	}

	interactive := scanInteractive
	if interactive && !isTerminal() {
		logError("--interactive needs a terminal, falling back to %s output", format)
		interactive = false
	}

	logVerbose("Scanning: %s", strings.Join(paths, ", "))
	logDebug("Config: format=%s, store=%v, threshold=%d, min_score=%d", format, scanStore, threshold, minScore)

	entries, err := collectEntries(paths, opts)
	if err != nil {
		logError("Failed to collect source files: %v", err)
		return err
	}
	logVerbose("Collected %d files, %d look like API code", len(entries), countAPIFiles(entries))

	result, err := scanEntries(cmd.Context(), entries, opts)
	if err != nil {
		return err
	}

	logVerbose("Found %d issues in %d files, score %d (%s)",
		result.Stats.TotalIssues, result.Stats.ScannedFiles, result.Score, result.Health)

	return RunPipeline(result, PipelineConfig{
		Format:      format,
		Output:      scanOutput,
		SummaryOnly: scanSummaryOnly,
		Store:       scanStore,
		StorageDir:  scanStorageDir,
		Threshold:   threshold,
		MinScore:    minScore,
		PolicyDir:   policyDir(paths[0]),
		Interactive: interactive,
		LastRuns:    cfg.LastRuns,
	})
}

// scanOptionsFromFlags starts from the configured options and applies every
// flag the user set explicitly.
func scanOptionsFromFlags(cmd *cobra.Command) models.ScanOptions {
	opts := cfg.ScanOptions()
	flags := cmd.Flags()

	if flags.Changed("language") {
		opts.Languages = make([]models.Language, 0, len(scanLanguages))
		for _, l := range scanLanguages {
			opts.Languages = append(opts.Languages, models.Language(strings.ToLower(l)))
		}
	}
	if flags.Changed("category") {
		opts.Categories = make([]models.Category, 0, len(scanCategories))
		for _, c := range scanCategories {
			opts.Categories = append(opts.Categories, models.Category(strings.ToLower(c)))
		}
	}
	if flags.Changed("severity") {
		opts.SeverityThreshold = models.Severity(strings.ToLower(scanSeverity))
	}
	if flags.Changed("exclude") {
		opts.ExcludePatterns = append([]string{}, scanExclude...)
	}
	if flags.Changed("enable-rule") {
		opts.EnabledRules = upperAll(scanEnableRules)
	}
	if flags.Changed("disable-rule") {
		opts.DisabledRules = upperAll(scanDisableRules)
	}
	if flags.Changed("max-file-size") {
		opts.MaxFileSize = scanMaxFileSize
	}
	if flags.Changed("workers") {
		opts.Workers = scanWorkers
	}

	return opts
}

func upperAll(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strings.ToUpper(strings.TrimSpace(id)))
	}
	return out
}

// collectEntries reads the source files under paths from disk.
func collectEntries(paths []string, opts models.ScanOptions) ([]models.FileEntry, error) {
	c := collector.New(collector.Config{
		MaxConcurrency: opts.Workers,
		Logger:         log(),
	})
	return c.CollectFromPaths(paths)
}

// countAPIFiles counts entries that define HTTP endpoints by path or content.
func countAPIFiles(entries []models.FileEntry) int {
	n := 0
	for _, e := range entries {
		if collector.IsAPIFile(e.Path, e.Content) {
			n++
		}
	}
	return n
}

// scanEntries runs the scan locally, or on the server given by --remote.
func scanEntries(ctx context.Context, entries []models.FileEntry, opts models.ScanOptions) (*models.ScanResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if scanRemote != "" {
		client := apiclient.New(scanRemote)
		logVerbose("Sending %d files to %s", len(entries), scanRemote)
		result, err := client.Scan(ctx, entries, opts)
		if err != nil {
			logError("Remote scan failed: %v", err)
			return nil, fmt.Errorf("remote scan failed: %w", err)
		}
		return result, nil
	}

	files, err := collector.CreateFilesFromEntries(entries, opts)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	if len(files) == 0 {
		return nil, &ValidationError{Message: "no supported source files found"}
	}

	eng := engine.New(engine.WithLogger(log().Named("engine")))
	return eng.ScanFiles(files, opts), nil
}

// policyDir is where the policy search starts: the scanned directory, or the
// directory holding the scanned file.
func policyDir(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	if info, err := os.Stat(abs); err == nil && !info.IsDir() {
		return filepath.Dir(abs)
	}
	return abs
}
