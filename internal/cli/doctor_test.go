package cli

import (
	"bytes"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/apispectre/internal/api"
	"github.com/ppiankov/apispectre/internal/config"
	"github.com/ppiankov/apispectre/internal/engine"
	"github.com/ppiankov/apispectre/internal/models"
)

// --- joinMax tests ---

func TestJoinMaxUnderLimit(t *testing.T) {
	got := joinMax([]string{"a", "b"}, 3)
	if got != "a, b" {
		t.Errorf("joinMax(2 items, 3) = %q, want %q", got, "a, b")
	}
}

func TestJoinMaxExactLimit(t *testing.T) {
	got := joinMax([]string{"a", "b", "c"}, 3)
	if got != "a, b, c" {
		t.Errorf("joinMax(3 items, 3) = %q, want %q", got, "a, b, c")
	}
}

func TestJoinMaxOverLimit(t *testing.T) {
	got := joinMax([]string{"a", "b", "c", "d", "e"}, 2)
	want := "a, b +3 more"
	if got != want {
		t.Errorf("joinMax(5 items, 2) = %q, want %q", got, want)
	}
}

func TestJoinMaxEmpty(t *testing.T) {
	got := joinMax([]string{}, 3)
	if got != "" {
		t.Errorf("joinMax(empty, 3) = %q, want %q", got, "")
	}
}

// --- summarizeChecks tests ---

func TestSummarizeChecks(t *testing.T) {
	tests := []struct {
		name   string
		checks []doctorCheck
		want   string
	}{
		{"all ok", []doctorCheck{{Status: "ok"}, {Status: "ok"}}, "all checks passed"},
		{"warnings", []doctorCheck{{Status: "ok"}, {Status: "warn"}}, "ok with 1 warning(s)"},
		{"failures win", []doctorCheck{{Status: "warn"}, {Status: "fail"}, {Status: "fail"}}, "2 issue(s) found"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := summarizeChecks(tt.checks); got != tt.want {
				t.Errorf("summarizeChecks() = %q, want %q", got, tt.want)
			}
		})
	}
}

// --- writeDoctorText tests ---

func TestWriteDoctorTextOK(t *testing.T) {
	result := doctorResult{
		Checks: []doctorCheck{
			{Name: "config", Status: "ok", Detail: "./apispectre.yaml"},
			{Name: "storage", Status: "ok"},
		},
		Summary: "all checks passed",
	}

	var buf bytes.Buffer
	_ = writeDoctorText(&buf, result)
	output := buf.String()

	if !strings.Contains(output, "✓") {
		t.Error("missing ok icon ✓")
	}
	if !strings.Contains(output, "./apispectre.yaml") {
		t.Error("missing check detail")
	}
	if !strings.Contains(output, "all checks passed") {
		t.Error("missing summary")
	}
}

func TestWriteDoctorTextMixed(t *testing.T) {
	result := doctorResult{
		Checks: []doctorCheck{
			{Name: "rules", Status: "warn", Detail: "configured options disable all 19 rules"},
			{Name: "policy", Status: "fail", Detail: "parse policy: bad yaml"},
		},
		Summary: "1 issue(s) found",
	}

	var buf bytes.Buffer
	_ = writeDoctorText(&buf, result)
	output := buf.String()

	if !strings.Contains(output, "△") {
		t.Error("missing warn icon △")
	}
	if !strings.Contains(output, "✗") {
		t.Error("missing fail icon ✗")
	}
}

// --- check tests ---

func TestCheckConfigDefaults(t *testing.T) {
	withTestConfig(t, config.DefaultConfig())
	old := configFile
	configFile = ""
	t.Cleanup(func() { configFile = old })

	c := checkConfig()
	if c.Status != "ok" {
		t.Fatalf("expected ok, got %s (%s)", c.Status, c.Detail)
	}
	if !strings.Contains(c.Detail, "defaults") {
		t.Errorf("expected defaults detail, got %q", c.Detail)
	}
}

func TestCheckConfigInvalid(t *testing.T) {
	c := config.DefaultConfig()
	c.Format = "xml"
	withTestConfig(t, c)

	check := checkConfig()
	if check.Status != "fail" {
		t.Errorf("expected fail, got %s", check.Status)
	}
}

func TestCheckRules(t *testing.T) {
	total := len(engine.New().Rules())

	allIDs := make([]string, 0, total)
	for _, r := range engine.New().Rules() {
		allIDs = append(allIDs, r.ID())
	}

	tests := []struct {
		name   string
		opts   models.ScanOptions
		status string
	}{
		{"defaults", models.ScanOptions{}, "ok"},
		{"single rule", models.ScanOptions{EnabledRules: []string{"SEC001"}}, "ok"},
		{"all disabled", models.ScanOptions{DisabledRules: allIDs}, "warn"},
		{"empty categories", models.ScanOptions{Categories: []models.Category{}}, "warn"},
		{"empty languages", models.ScanOptions{Languages: []models.Language{}}, "warn"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c := checkRules(tt.opts)
			if c.Status != tt.status {
				t.Errorf("expected %s, got %s (%s)", tt.status, c.Status, c.Detail)
			}
		})
	}

	c := checkRules(models.ScanOptions{})
	want := fmt.Sprintf("%d/%d rules enabled", total, total)
	if !strings.HasPrefix(c.Detail, want) {
		t.Errorf("expected detail starting with %q, got %q", want, c.Detail)
	}
}

func TestCheckPolicy(t *testing.T) {
	dir := t.TempDir()

	if c := checkPolicy(dir); c.Status != "ok" {
		t.Errorf("expected ok without policy, got %s (%s)", c.Status, c.Detail)
	}

	path := filepath.Join(dir, ".apispectre-policy.yaml")
	if err := os.WriteFile(path, []byte("version: \"1\"\nrules:\n  min_score: 70\n"), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if c := checkPolicy(dir); c.Status != "ok" || c.Detail != path {
		t.Errorf("expected ok with %s, got %s (%s)", path, c.Status, c.Detail)
	}

	if err := os.WriteFile(path, []byte("rules:\n  min_score: 500\n"), 0644); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	if c := checkPolicy(dir); c.Status != "fail" {
		t.Errorf("expected fail for invalid policy, got %s", c.Status)
	}
}

func TestCheckStorageWritable(t *testing.T) {
	dir := t.TempDir()
	c := checkStorage(dir)
	if c.Status != "ok" {
		t.Errorf("expected ok, got %s: %s", c.Status, c.Detail)
	}
	if _, err := os.Stat(filepath.Join(dir, ".doctor-check")); !os.IsNotExist(err) {
		t.Error("expected probe file to be removed")
	}
}

func TestCheckStorageNotExist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "not-yet")
	c := checkStorage(dir)
	if c.Status != "ok" {
		t.Errorf("expected ok, got %s", c.Status)
	}
	if !strings.Contains(c.Detail, "will be created") {
		t.Errorf("expected 'will be created' detail, got %q", c.Detail)
	}
}

func TestCheckStorageIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c := checkStorage(path)
	if c.Status != "fail" {
		t.Errorf("expected fail, got %s", c.Status)
	}
}

func TestCheckRemote(t *testing.T) {
	srv := httptest.NewServer(api.NewServer(api.Options{Version: "1.0.0"}).Handler())
	defer srv.Close()

	c := checkRemote(srv.URL)
	if c.Status != "ok" {
		t.Fatalf("expected ok, got %s (%s)", c.Status, c.Detail)
	}
	if !strings.Contains(c.Detail, "ok 1.0.0") {
		t.Errorf("expected status and version in detail, got %q", c.Detail)
	}
}

func TestCheckRemoteUnreachable(t *testing.T) {
	srv := httptest.NewServer(api.NewServer(api.Options{}).Handler())
	url := srv.URL
	srv.Close()

	if c := checkRemote(url); c.Status != "fail" {
		t.Errorf("expected fail, got %s", c.Status)
	}
}
