package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/policy"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest stored scan, policy and configuration",
	Long: `Status displays the most recent stored scan, the policy file that
applies to the working directory and the active configuration.

Example:
  apispectre status
  apispectre status --format json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "text",
		"output format: text or json")
}

type statusResult struct {
	Latest     *statusRun   `json:"latest,omitempty"`
	StoredRuns int          `json:"stored_runs"`
	PolicyFile string       `json:"policy_file,omitempty"`
	Config     statusConfig `json:"config"`
	ConfigFile string       `json:"config_file,omitempty"`
}

type statusRun struct {
	ID        string `json:"id"`
	ScannedAt string `json:"scanned_at"`
	Files     int    `json:"files"`
	Issues    int    `json:"issues"`
	Critical  int    `json:"critical"`
	High      int    `json:"high"`
	Score     int    `json:"score"`
	Health    string `json:"health"`
}

type statusConfig struct {
	StorageDir    string `json:"storage_dir"`
	Format        string `json:"format"`
	FailThreshold int    `json:"fail_threshold"`
	MinScore      int    `json:"min_score"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	result := statusResult{
		Config: statusConfig{
			StorageDir:    cfg.StorageDir,
			Format:        cfg.Format,
			FailThreshold: cfg.FailThreshold,
			MinScore:      cfg.MinScore,
		},
		ConfigFile: configFile,
		PolicyFile: policy.FindPolicyFile(""),
	}

	store, err := openStore("")
	if err != nil {
		return err
	}

	if runs, err := store.ListRuns(); err == nil {
		result.StoredRuns = len(runs)
	}
	if latest, err := store.GetLatestRun(); err == nil {
		result.Latest = summarizeRun(latest)
	} else {
		logDebug("No stored run: %v", err)
	}

	if statusFormat == "json" {
		return writeStatusJSON(os.Stdout, result)
	}

	return writeStatusText(os.Stdout, result)
}

func summarizeRun(r *models.ScanResult) *statusRun {
	return &statusRun{
		ID:        r.ID,
		ScannedAt: r.ScannedAt.Format("2006-01-02 15:04:05"),
		Files:     r.Stats.ScannedFiles,
		Issues:    r.Stats.TotalIssues,
		Critical:  r.Stats.IssuesBySeverity[models.SeverityCritical],
		High:      r.Stats.IssuesBySeverity[models.SeverityHigh],
		Score:     r.Score,
		Health:    r.Health,
	}
}

func writeStatusJSON(w io.Writer, result statusResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeStatusText(w io.Writer, result statusResult) error {
	p := func(format string, args ...interface{}) {
		_, _ = fmt.Fprintf(w, format, args...)
	}

	if result.Latest != nil {
		l := result.Latest
		p("Latest:   %s (%s)\n", l.ScannedAt, l.ID)
		p("Score:    %d/100 (%s)\n", l.Score, l.Health)
		p("Issues:   %d in %d files (%d critical, %d high)\n", l.Issues, l.Files, l.Critical, l.High)
	} else {
		p("Latest:   no stored runs. Run: apispectre scan\n")
	}
	p("Runs:     %d stored\n", result.StoredRuns)

	if result.PolicyFile != "" {
		p("Policy:   %s\n", result.PolicyFile)
	} else {
		p("Policy:   none\n")
	}

	p("Storage:  %s\n", result.Config.StorageDir)
	p("Format:   %s\n", result.Config.Format)
	if result.Config.FailThreshold > 0 {
		p("Fail at:  more than %d issues\n", result.Config.FailThreshold)
	}
	if result.Config.MinScore > 0 {
		p("Min score: %d\n", result.Config.MinScore)
	}

	return nil
}
