package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/aggregator"
	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/reporter"
)

var (
	exportFormat string
	exportOutput string
	exportLastN  int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export scan history for audits and code scanning",
	Long: `Export stored scan runs in formats suitable for audits, spreadsheets
and code scanning integrations.

Supported formats:
  csv    One row per issue per run, for spreadsheets and audit evidence
  json   The same records as structured JSON
  sarif  SARIF 2.1.0 with one run per stored scan, for GitHub code scanning

Issues absent from the latest run are marked "resolved"; all others "open".

Example:
  apispectre export --format csv -o findings.csv
  apispectre export --format sarif -o results.sarif --last 1
  apispectre export --format json --last 30 -o evidence.json`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv",
		"output format: csv, json, or sarif")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "",
		"write output to file (default: stdout)")
	exportCmd.Flags().IntVarP(&exportLastN, "last", "n", 1,
		"number of recent runs to include")
}

// ExportRecord is a single issue row in the export.
type ExportRecord struct {
	RunID        string `json:"run_id"`
	RunTimestamp string `json:"run_timestamp"`
	RuleID       string `json:"rule_id"`
	Category     string `json:"category"`
	Severity     string `json:"severity"`
	File         string `json:"file"`
	Line         int    `json:"line"`
	Message      string `json:"message"`
	Status       string `json:"status"` // "open" or "resolved"
	Score        int    `json:"score"`
	Health       string `json:"health"`
}

// Export is the full export payload.
type Export struct {
	ExportedAt string         `json:"exported_at"`
	RunCount   int            `json:"run_count"`
	IssueCount int            `json:"issue_count"`
	Records    []ExportRecord `json:"records"`
}

func runExport(cmd *cobra.Command, args []string) error {
	store, err := openStore("")
	if err != nil {
		logError("Failed to get storage path: %v", err)
		return err
	}

	results, err := store.GetLastNRuns(exportLastN)
	if err != nil || len(results) == 0 {
		fmt.Println("No stored runs found. Run 'apispectre scan' first.")
		return nil
	}

	logVerbose("Exporting %d runs", len(results))

	var writer io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		writer = f
	}

	switch exportFormat {
	case "csv":
		return writeCSV(writer, buildExport(results))
	case "json":
		return writeExportJSON(writer, buildExport(results))
	case "sarif":
		return writeSARIF(writer, results)
	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use csv, json, or sarif)", exportFormat)}
	}
}

// buildExport flattens runs (oldest first) into records ordered by severity,
// then rule, then file and line.
func buildExport(results []*models.ScanResult) *Export {
	var records []ExportRecord

	latest := results[len(results)-1]
	open := make(map[string]bool, len(latest.Issues))
	for _, issue := range latest.Issues {
		open[aggregator.IssueKey(issue)] = true
	}

	for _, result := range results {
		ts := result.ScannedAt.Format(time.RFC3339)

		for _, issue := range result.Issues {
			status := "open"
			if !open[aggregator.IssueKey(issue)] {
				status = "resolved"
			}

			records = append(records, ExportRecord{
				RunID:        result.ID,
				RunTimestamp: ts,
				RuleID:       issue.RuleID,
				Category:     string(issue.Category),
				Severity:     string(issue.Severity),
				File:         issue.FilePath,
				Line:         issue.Line,
				Message:      issue.Message,
				Status:       status,
				Score:        result.Score,
				Health:       result.Health,
			})
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		ra, rb := models.Severity(a.Severity).Rank(), models.Severity(b.Severity).Rank()
		if ra != rb {
			return ra > rb
		}
		if a.RuleID != b.RuleID {
			return a.RuleID < b.RuleID
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Line < b.Line
	})

	if records == nil {
		records = []ExportRecord{}
	}

	return &Export{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		RunCount:   len(results),
		IssueCount: len(records),
		Records:    records,
	}
}

func writeCSV(w io.Writer, export *Export) error {
	writer := csv.NewWriter(w)

	header := []string{
		"run_id", "run_timestamp", "rule_id", "category", "severity",
		"file", "line", "message", "status", "score", "health",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range export.Records {
		row := []string{
			r.RunID, r.RunTimestamp, r.RuleID, r.Category, r.Severity,
			r.File, strconv.Itoa(r.Line), r.Message, r.Status, strconv.Itoa(r.Score), r.Health,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeExportJSON(w io.Writer, export *Export) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(export)
}

// writeSARIF writes one SARIF run per stored result, oldest first.
func writeSARIF(w io.Writer, results []*models.ScanResult) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("creating sarif report: %w", err)
	}

	for _, result := range results {
		single, err := reporter.ToSARIF(result, buildVersion)
		if err != nil {
			return err
		}
		for _, run := range single.Runs {
			report.AddRun(run)
		}
	}

	return report.PrettyWrite(w)
}
