package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/models"
)

var (
	explainFormat string
	explainFile   string
)

var explainScoreCmd = &cobra.Command{
	Use:   "explain-score",
	Short: "Show the quality score formula step by step",
	Long: `Explain-score loads the latest stored result and shows exactly how
the quality score was calculated:

  1. Issues per severity and their penalty weights
  2. The total penalty and the number of scanned files
  3. The formula: score = round(max(0, 100 - penalty / scanned_files))
  4. The health level thresholds
  5. The rules contributing the most penalty

Use --file to explain a result written by 'apispectre scan --format json'.`,
	RunE: runExplainScore,
}

func init() {
	explainScoreCmd.Flags().StringVar(&explainFormat, "format", "text",
		"output format: text or json")
	explainScoreCmd.Flags().StringVar(&explainFile, "file", "",
		"explain this result file instead of the latest stored run")
}

// explainResult holds the structured explanation.
type explainResult struct {
	BySeverity     []severityContribution `json:"by_severity"`
	TopRules       []ruleContribution     `json:"top_rules"`
	Penalty        int                    `json:"penalty"`
	ScannedFiles   int                    `json:"scanned_files"`
	PenaltyPerFile float64                `json:"penalty_per_file"`
	Score          int                    `json:"score"`
	Health         string                 `json:"health"`
	Formula        string                 `json:"formula"`
	Thresholds     []threshold            `json:"thresholds"`
}

type severityContribution struct {
	Severity models.Severity `json:"severity"`
	Count    int             `json:"count"`
	Weight   int             `json:"weight"`
	Penalty  int             `json:"penalty"`
}

type ruleContribution struct {
	RuleID  string `json:"rule_id"`
	Count   int    `json:"count"`
	Penalty int    `json:"penalty"`
}

type threshold struct {
	Min   int    `json:"min"`
	Label string `json:"label"`
}

// maxTopRules caps the rule breakdown
const maxTopRules = 5

func runExplainScore(cmd *cobra.Command, args []string) error {
	var result *models.ScanResult
	if explainFile != "" {
		var err error
		result, err = loadResultFromFile(explainFile)
		if err != nil {
			return err
		}
	} else {
		store, err := openStore("")
		if err != nil {
			return err
		}
		result, err = store.GetLatestRun()
		if err != nil {
			return fmt.Errorf("no stored runs found. Run 'apispectre scan' first: %w", err)
		}
	}

	explanation := buildExplanation(result)

	if explainFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(explanation)
	}

	return writeExplainText(os.Stdout, explanation)
}

func buildExplanation(result *models.ScanResult) explainResult {
	explanation := explainResult{
		Thresholds: []threshold{
			{Min: models.ScoreExcellent, Label: "excellent"},
			{Min: models.ScoreGood, Label: "good"},
			{Min: models.ScoreFair, Label: "fair"},
			{Min: models.ScorePoor, Label: "poor"},
			{Min: 0, Label: "critical"},
		},
		ScannedFiles: result.Stats.ScannedFiles,
		Score:        result.Score,
		Health:       result.Health,
	}

	for _, sev := range models.Severities {
		count := result.Stats.IssuesBySeverity[sev]
		weight := models.SeverityWeights[sev]
		explanation.BySeverity = append(explanation.BySeverity, severityContribution{
			Severity: sev,
			Count:    count,
			Weight:   weight,
			Penalty:  count * weight,
		})
	}
	explanation.Penalty = models.Penalty(result.Stats.IssuesBySeverity)

	byRule := make(map[string]*ruleContribution)
	for _, issue := range result.Issues {
		rc, ok := byRule[issue.RuleID]
		if !ok {
			rc = &ruleContribution{RuleID: issue.RuleID}
			byRule[issue.RuleID] = rc
		}
		rc.Count++
		rc.Penalty += models.SeverityWeights[issue.Severity]
	}
	for _, rc := range byRule {
		explanation.TopRules = append(explanation.TopRules, *rc)
	}
	sort.Slice(explanation.TopRules, func(i, j int) bool {
		a, b := explanation.TopRules[i], explanation.TopRules[j]
		if a.Penalty != b.Penalty {
			return a.Penalty > b.Penalty
		}
		return a.RuleID < b.RuleID
	})
	if len(explanation.TopRules) > maxTopRules {
		explanation.TopRules = explanation.TopRules[:maxTopRules]
	}

	if result.Stats.ScannedFiles == 0 {
		explanation.Formula = "no files scanned = 100"
		return explanation
	}

	explanation.PenaltyPerFile = float64(explanation.Penalty) / float64(result.Stats.ScannedFiles)
	explanation.Formula = fmt.Sprintf("round(max(0, 100 - %d / %d)) = round(max(0, %.2f)) = %d",
		explanation.Penalty, result.Stats.ScannedFiles, 100-explanation.PenaltyPerFile, models.CalculateScore(result.Stats))

	return explanation
}

func writeExplainText(w io.Writer, e explainResult) error {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	p("Quality Score Breakdown\n")
	p("=======================\n\n")

	p("1. Issues per severity:\n")
	for _, sc := range e.BySeverity {
		p("   %-10s %4d x %2d = %d\n", sc.Severity, sc.Count, sc.Weight, sc.Penalty)
	}
	p("\n")

	p("2. Penalty: %d across %d scanned file(s)\n\n", e.Penalty, e.ScannedFiles)

	p("3. Formula:\n")
	p("   score = round(max(0, 100 - penalty / scanned_files))\n")
	p("   score = %s\n\n", e.Formula)

	p("4. Thresholds:\n")
	for _, t := range e.Thresholds {
		marker := "  "
		if strings.EqualFold(e.Health, t.Label) {
			marker = "→ "
		}
		p("   %s≥ %3d  %s\n", marker, t.Min, t.Label)
	}
	p("\n")

	if len(e.TopRules) > 0 {
		p("5. Top rules by penalty:\n")
		for _, rc := range e.TopRules {
			p("   %-8s %d issue(s), penalty %d\n", rc.RuleID, rc.Count, rc.Penalty)
		}
		p("\n")
	}

	p("Result: %s (%d/100)\n", strings.ToUpper(e.Health), e.Score)
	return nil
}
