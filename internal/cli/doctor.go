package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/apiclient"
	"github.com/ppiankov/apispectre/internal/engine"
	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/policy"
)

var (
	doctorFormat string
	doctorRemote string
)

// doctorRemoteTimeout bounds the remote health check
const doctorRemoteTimeout = 5 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment readiness and diagnose common problems",
	Long: `Doctor validates your apispectre setup end-to-end:

  1. Config file: found, readable and valid?
  2. Rules: catalog loaded and selectable with the configured options?
  3. Policy: .apispectre-policy.yaml found and valid?
  4. Storage: directory writable?
  5. Remote server: reachable? (with --remote)

Fix the issues it reports, then run 'apispectre scan' with confidence.`,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "text",
		"output format: text or json")
	doctorCmd.Flags().StringVar(&doctorRemote, "remote", "",
		"also check an apispectre server")
}

type doctorCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "ok", "warn", "fail"
	Detail string `json:"detail,omitempty"`
}

type doctorResult struct {
	Checks  []doctorCheck `json:"checks"`
	Summary string        `json:"summary"`
}

func runDoctor(cmd *cobra.Command, args []string) error {
	checks := []doctorCheck{
		checkConfig(),
		checkRules(cfg.ScanOptions()),
		checkPolicy(""),
		checkStorage(cfg.StorageDir),
	}
	if doctorRemote != "" {
		checks = append(checks, checkRemote(doctorRemote))
	}

	result := doctorResult{Checks: checks, Summary: summarizeChecks(checks)}

	if doctorFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	return writeDoctorText(os.Stdout, result)
}

func summarizeChecks(checks []doctorCheck) string {
	fails, warns := 0, 0
	for _, c := range checks {
		switch c.Status {
		case "fail":
			fails++
		case "warn":
			warns++
		}
	}

	switch {
	case fails > 0:
		return fmt.Sprintf("%d issue(s) found", fails)
	case warns > 0:
		return fmt.Sprintf("ok with %d warning(s)", warns)
	default:
		return "all checks passed"
	}
}

func writeDoctorText(w io.Writer, result doctorResult) error {
	icons := map[string]string{
		"ok":   "✓",
		"warn": "△",
		"fail": "✗",
	}

	for _, c := range result.Checks {
		icon := icons[c.Status]
		if c.Detail != "" {
			_, _ = fmt.Fprintf(w, "  %s %-20s %s\n", icon, c.Name, c.Detail)
		} else {
			_, _ = fmt.Fprintf(w, "  %s %s\n", icon, c.Name)
		}
	}

	_, err := fmt.Fprintf(w, "\n%s\n", result.Summary)
	return err
}

func checkConfig() doctorCheck {
	if err := cfg.Validate(); err != nil {
		return doctorCheck{
			Name:   "config",
			Status: "fail",
			Detail: err.Error(),
		}
	}

	if configFile == "" {
		return doctorCheck{
			Name:   "config",
			Status: "ok",
			Detail: "defaults and environment (write one with: apispectre validate --sample-config)",
		}
	}

	return doctorCheck{
		Name:   "config",
		Status: "ok",
		Detail: configFile,
	}
}

// checkRules reports the catalog and how many rules the configured options
// leave enabled for at least one selected language.
func checkRules(opts models.ScanOptions) doctorCheck {
	eng := engine.New()
	all := eng.Rules()

	ids := make([]string, 0, len(all))
	for _, r := range all {
		ids = append(ids, r.ID())
	}

	selected := 0
	for _, r := range all {
		for _, lang := range r.Definition.Languages {
			if opts.Languages != nil && !slices.Contains(opts.Languages, lang) {
				continue
			}
			if engine.Applies(r.Definition, lang, opts) {
				selected++
				break
			}
		}
	}

	if selected == 0 {
		return doctorCheck{
			Name:   "rules",
			Status: "warn",
			Detail: fmt.Sprintf("configured options disable all %d rules", len(ids)),
		}
	}

	return doctorCheck{
		Name:   "rules",
		Status: "ok",
		Detail: fmt.Sprintf("%d/%d rules enabled (%s)", selected, len(ids), joinMax(ids, 3)),
	}
}

func checkPolicy(dir string) doctorCheck {
	path := policy.FindPolicyFile(dir)
	if path == "" {
		return doctorCheck{
			Name:   "policy",
			Status: "ok",
			Detail: "none (thresholds from config only)",
		}
	}

	if _, err := policy.LoadFromFile(path); err != nil {
		return doctorCheck{
			Name:   "policy",
			Status: "fail",
			Detail: err.Error(),
		}
	}

	return doctorCheck{
		Name:   "policy",
		Status: "ok",
		Detail: path,
	}
}

func checkStorage(storageDir string) doctorCheck {
	store, err := openStore(storageDir)
	if err != nil {
		return doctorCheck{
			Name:   "storage",
			Status: "fail",
			Detail: err.Error(),
		}
	}
	storagePath := store.GetStoragePath()

	info, err := os.Stat(storagePath)
	if err != nil {
		// Directory doesn't exist yet; SaveRun creates it
		return doctorCheck{
			Name:   "storage",
			Status: "ok",
			Detail: fmt.Sprintf("%s (will be created on first scan)", storagePath),
		}
	}

	if !info.IsDir() {
		return doctorCheck{
			Name:   "storage",
			Status: "fail",
			Detail: fmt.Sprintf("%s exists but is not a directory", storagePath),
		}
	}

	tmpFile := filepath.Join(storagePath, ".doctor-check")
	if err := os.WriteFile(tmpFile, []byte("ok"), 0600); err != nil {
		return doctorCheck{
			Name:   "storage",
			Status: "fail",
			Detail: fmt.Sprintf("%s not writable: %v", storagePath, err),
		}
	}
	_ = os.Remove(tmpFile)

	return doctorCheck{
		Name:   "storage",
		Status: "ok",
		Detail: storagePath,
	}
}

func checkRemote(baseURL string) doctorCheck {
	ctx, cancel := context.WithTimeout(context.Background(), doctorRemoteTimeout)
	defer cancel()

	info, err := apiclient.New(baseURL).Health(ctx)
	if err != nil {
		return doctorCheck{
			Name:   "remote",
			Status: "fail",
			Detail: fmt.Sprintf("unreachable (%v)", err),
		}
	}

	return doctorCheck{
		Name:   "remote",
		Status: "ok",
		Detail: fmt.Sprintf("%s (%s %s)", baseURL, info.Status, info.Version),
	}
}

// joinMax joins up to n strings with ", ".
func joinMax(s []string, n int) string {
	if len(s) <= n {
		result := ""
		for i, v := range s {
			if i > 0 {
				result += ", "
			}
			result += v
		}
		return result
	}
	result := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			result += ", "
		}
		result += s[i]
	}
	return fmt.Sprintf("%s +%d more", result, len(s)-n)
}
