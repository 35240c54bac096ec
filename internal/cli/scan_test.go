package cli

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/api"
	"github.com/ppiankov/apispectre/internal/config"
	"github.com/ppiankov/apispectre/internal/models"
)

const secretSource = `const express = require('express');
const apiKey = "abcd1234efgh5678";
module.exports = { apiKey };
`

func hasRule(issues []models.ScanIssue, id string) bool {
	for _, is := range issues {
		if is.RuleID == id {
			return true
		}
	}
	return false
}

func withScanRemote(t *testing.T, url string) {
	t.Helper()
	old := scanRemote
	scanRemote = url
	t.Cleanup(func() { scanRemote = old })
}

// newScanFlagsCmd binds the scan filter flags to a fresh command so tests
// start with nothing marked as changed.
func newScanFlagsCmd(t *testing.T) *cobra.Command {
	t.Helper()
	oldLangs, oldCats, oldSev := scanLanguages, scanCategories, scanSeverity
	oldExclude, oldEnable, oldDisable := scanExclude, scanEnableRules, scanDisableRules
	oldSize, oldWorkers := scanMaxFileSize, scanWorkers
	t.Cleanup(func() {
		scanLanguages, scanCategories, scanSeverity = oldLangs, oldCats, oldSev
		scanExclude, scanEnableRules, scanDisableRules = oldExclude, oldEnable, oldDisable
		scanMaxFileSize, scanWorkers = oldSize, oldWorkers
	})

	cmd := &cobra.Command{Use: "scan"}
	cmd.Flags().StringSliceVar(&scanLanguages, "language", nil, "")
	cmd.Flags().StringSliceVar(&scanCategories, "category", nil, "")
	cmd.Flags().StringVar(&scanSeverity, "severity", "", "")
	cmd.Flags().StringSliceVar(&scanExclude, "exclude", nil, "")
	cmd.Flags().StringSliceVar(&scanEnableRules, "enable-rule", nil, "")
	cmd.Flags().StringSliceVar(&scanDisableRules, "disable-rule", nil, "")
	cmd.Flags().Int64Var(&scanMaxFileSize, "max-file-size", 0, "")
	cmd.Flags().IntVar(&scanWorkers, "workers", 0, "")
	return cmd
}

func TestScanOptionsFromFlagsUsesConfig(t *testing.T) {
	c := config.DefaultConfig()
	c.Languages = []string{"JavaScript"}
	c.DisabledRules = []string{"DOC001"}
	withTestConfig(t, c)

	opts := scanOptionsFromFlags(newScanFlagsCmd(t))

	if !reflect.DeepEqual(opts.Languages, []models.Language{models.LanguageJavaScript}) {
		t.Errorf("expected config languages, got %v", opts.Languages)
	}
	if !reflect.DeepEqual(opts.DisabledRules, []string{"DOC001"}) {
		t.Errorf("expected config disabled rules, got %v", opts.DisabledRules)
	}
	if opts.Categories != nil {
		t.Errorf("expected unset categories to stay nil, got %v", opts.Categories)
	}
}

func TestScanOptionsFromFlagsOverrides(t *testing.T) {
	c := config.DefaultConfig()
	c.Languages = []string{"javascript"}
	withTestConfig(t, c)

	cmd := newScanFlagsCmd(t)
	for name, value := range map[string]string{
		"language":      "Python,go",
		"category":      "Security",
		"severity":      "HIGH",
		"exclude":       "generated",
		"enable-rule":   "sec001, sec002",
		"disable-rule":  "sec002",
		"max-file-size": "2048",
		"workers":       "3",
	} {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}

	opts := scanOptionsFromFlags(cmd)

	if !reflect.DeepEqual(opts.Languages, []models.Language{models.LanguagePython, models.LanguageGo}) {
		t.Errorf("unexpected languages %v", opts.Languages)
	}
	if !reflect.DeepEqual(opts.Categories, []models.Category{models.CategorySecurity}) {
		t.Errorf("unexpected categories %v", opts.Categories)
	}
	if opts.SeverityThreshold != models.SeverityHigh {
		t.Errorf("unexpected severity %q", opts.SeverityThreshold)
	}
	if !reflect.DeepEqual(opts.ExcludePatterns, []string{"generated"}) {
		t.Errorf("unexpected exclude patterns %v", opts.ExcludePatterns)
	}
	if !reflect.DeepEqual(opts.EnabledRules, []string{"SEC001", "SEC002"}) {
		t.Errorf("unexpected enabled rules %v", opts.EnabledRules)
	}
	if !reflect.DeepEqual(opts.DisabledRules, []string{"SEC002"}) {
		t.Errorf("unexpected disabled rules %v", opts.DisabledRules)
	}
	if opts.MaxFileSize != 2048 || opts.Workers != 3 {
		t.Errorf("expected size 2048 and 3 workers, got %d and %d", opts.MaxFileSize, opts.Workers)
	}
}

func TestCollectEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "routes"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "routes", "users.js"), []byte(secretSource), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := collectEntries([]string{dir}, models.ScanOptions{})
	if err != nil {
		t.Fatalf("collectEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Content != secretSource {
		t.Error("expected file content to be read")
	}
}

func TestCountAPIFiles(t *testing.T) {
	entries := []models.FileEntry{
		{Path: "routes/users.js", Content: "module.exports = {};"},
		{Path: "src/server.ts", Content: "const app = express();"},
		{Path: "lib/math.js", Content: "app.get('/sum', h);"},
		{Path: "lib/util.py", Content: "def add(a, b):\n    return a + b"},
	}
	if got := countAPIFiles(entries); got != 3 {
		t.Fatalf("expected 3 API files, got %d", got)
	}
}

func TestScanEntriesLocal(t *testing.T) {
	withScanRemote(t, "")

	entries := []models.FileEntry{
		{Path: "src/config.js", Content: secretSource},
		{Path: "README.md", Content: "# docs"},
	}

	result, err := scanEntries(context.Background(), entries, models.ScanOptions{})
	if err != nil {
		t.Fatalf("scanEntries: %v", err)
	}
	if result.Stats.ScannedFiles != 1 {
		t.Errorf("expected 1 scanned file, got %d", result.Stats.ScannedFiles)
	}
	if !hasRule(result.Issues, "SEC001") {
		t.Errorf("expected SEC001 issue, got %+v", result.Issues)
	}
	if result.ID == "" {
		t.Error("expected result id")
	}
}

func TestScanEntriesLocalRespectsOptions(t *testing.T) {
	withScanRemote(t, "")

	entries := []models.FileEntry{{Path: "src/config.js", Content: secretSource}}
	result, err := scanEntries(context.Background(), entries, models.ScanOptions{DisabledRules: []string{"SEC001"}})
	if err != nil {
		t.Fatalf("scanEntries: %v", err)
	}
	if hasRule(result.Issues, "SEC001") {
		t.Error("expected disabled SEC001 not to report")
	}
}

func TestScanEntriesNoSupportedFiles(t *testing.T) {
	withScanRemote(t, "")

	_, err := scanEntries(context.Background(), []models.FileEntry{{Path: "README.md", Content: "# docs"}}, models.ScanOptions{})
	if code := HandleError(err); code != ExitInvalidInput {
		t.Fatalf("expected exit %d, got %d (%v)", ExitInvalidInput, code, err)
	}
}

func TestScanEntriesRemote(t *testing.T) {
	srv := httptest.NewServer(api.NewServer(api.Options{}).Handler())
	defer srv.Close()
	withScanRemote(t, srv.URL)

	entries := []models.FileEntry{{Path: "src/config.js", Content: secretSource}}
	result, err := scanEntries(context.Background(), entries, models.ScanOptions{})
	if err != nil {
		t.Fatalf("scanEntries: %v", err)
	}
	if !hasRule(result.Issues, "SEC001") {
		t.Errorf("expected SEC001 from remote scan, got %+v", result.Issues)
	}
}

func TestScanEntriesRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(api.NewServer(api.Options{}).Handler())
	url := srv.URL
	srv.Close()
	withScanRemote(t, url)

	_, err := scanEntries(context.Background(), []models.FileEntry{{Path: "a.js", Content: "x"}}, models.ScanOptions{})
	if code := HandleError(err); code != ExitRuntimeError {
		t.Fatalf("expected exit %d, got %d (%v)", ExitRuntimeError, code, err)
	}
}

func TestPolicyDir(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.js")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := policyDir(dir); got != dir {
		t.Errorf("policyDir(dir) = %q, want %q", got, dir)
	}
	if got := policyDir(file); got != dir {
		t.Errorf("policyDir(file) = %q, want %q", got, dir)
	}
}

func TestUpperAll(t *testing.T) {
	got := upperAll([]string{"sec001", " doc001 "})
	if !reflect.DeepEqual(got, []string{"SEC001", "DOC001"}) {
		t.Errorf("upperAll() = %v", got)
	}
}
