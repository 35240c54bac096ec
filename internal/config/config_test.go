package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/apispectre/internal/models"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	return dir
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.StorageDir != ".apispectre" {
		t.Errorf("expected storage_dir=.apispectre, got %s", cfg.StorageDir)
	}
	if cfg.FailThreshold != 0 {
		t.Errorf("expected fail_threshold=0, got %d", cfg.FailThreshold)
	}
	if cfg.Format != "text" {
		t.Errorf("expected format=text, got %s", cfg.Format)
	}
	if cfg.LastRuns != 7 {
		t.Errorf("expected last_runs=7, got %d", cfg.LastRuns)
	}
	if cfg.Server.MaxFiles != 500 || cfg.Server.MaxTotalBytes != 10*1024*1024 {
		t.Errorf("unexpected server limits: %+v", cfg.Server)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := func(mut func(c *Config)) Config {
		c := *DefaultConfig()
		mut(&c)
		return c
	}

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		errMsg  string
	}{
		{name: "valid defaults", cfg: *DefaultConfig()},
		{name: "valid json format", cfg: base(func(c *Config) { c.Format = "json" })},
		{name: "valid sarif format", cfg: base(func(c *Config) { c.Format = "sarif" })},
		{name: "valid both format", cfg: base(func(c *Config) { c.Format = "both" })},
		{name: "invalid format", cfg: base(func(c *Config) { c.Format = "xml" }), wantErr: true, errMsg: "invalid format"},
		{name: "negative threshold", cfg: base(func(c *Config) { c.FailThreshold = -1 }), wantErr: true, errMsg: "fail_threshold cannot be negative"},
		{name: "min score range", cfg: base(func(c *Config) { c.MinScore = 101 }), wantErr: true, errMsg: "min_score"},
		{name: "zero last_runs", cfg: base(func(c *Config) { c.LastRuns = 0 }), wantErr: true, errMsg: "last_runs must be positive"},
		{name: "empty storage_dir", cfg: base(func(c *Config) { c.StorageDir = "" }), wantErr: true, errMsg: "storage_dir cannot be empty"},
		{name: "bad log level", cfg: base(func(c *Config) { c.LogLevel = "loud" }), wantErr: true, errMsg: "invalid log_level"},
		{name: "upper log level", cfg: base(func(c *Config) { c.LogLevel = "DEBUG" })},
		{name: "negative server limit", cfg: base(func(c *Config) { c.Server.MaxFiles = -1 }), wantErr: true, errMsg: "server limits"},
		{name: "unknown language", cfg: base(func(c *Config) { c.Languages = []string{"cobol"} }), wantErr: true, errMsg: "cobol"},
		{name: "unknown rule", cfg: base(func(c *Config) { c.DisabledRules = []string{"NOPE1"} }), wantErr: true, errMsg: "NOPE1"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr && tt.errMsg != "" && !strings.Contains(err.Error(), tt.errMsg) {
				t.Fatalf("expected error to contain %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestScanOptions(t *testing.T) {
	cfg := DefaultConfig()
	opts := cfg.ScanOptions()
	if opts.Languages != nil || opts.Categories != nil || opts.ExcludePatterns != nil {
		t.Fatalf("expected unset lists to stay nil, got %+v", opts)
	}

	cfg.Languages = []string{"Go", "python"}
	cfg.Categories = []string{}
	cfg.SeverityThreshold = "high"
	cfg.MaxFileSize = 2048
	cfg.Workers = 3

	opts = cfg.ScanOptions()
	if len(opts.Languages) != 2 || opts.Languages[0] != models.LanguageGo {
		t.Fatalf("unexpected languages %v", opts.Languages)
	}
	if opts.Categories == nil || len(opts.Categories) != 0 {
		t.Fatalf("expected empty non-nil categories, got %#v", opts.Categories)
	}
	if opts.SeverityThreshold != models.SeverityHigh || opts.MaxFileSize != 2048 || opts.Workers != 3 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestShouldFailOnThreshold(t *testing.T) {
	tests := []struct {
		name       string
		threshold  int
		issueCount int
		expected   bool
	}{
		{"disabled", 0, 100, false},
		{"below threshold", 10, 5, false},
		{"at threshold", 10, 10, false},
		{"above threshold", 10, 11, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{FailThreshold: tt.threshold}
			if got := cfg.ShouldFailOnThreshold(tt.issueCount); got != tt.expected {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestShouldFailOnScore(t *testing.T) {
	if (&Config{}).ShouldFailOnScore(10) {
		t.Fatal("expected disabled check to pass")
	}
	if !(&Config{MinScore: 80}).ShouldFailOnScore(79) {
		t.Fatal("expected 79 < 80 to fail")
	}
	if (&Config{MinScore: 80}).ShouldFailOnScore(80) {
		t.Fatal("expected 80 to pass")
	}
}

func TestGetStoragePath(t *testing.T) {
	tests := []struct {
		name       string
		storageDir string
	}{
		{"relative path", ".apispectre"},
		{"home expansion", "~/apispectre-data"},
		{"absolute path", "/tmp/apispectre"},
		{"single char", "x"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{StorageDir: tt.storageDir}
			path, err := cfg.GetStoragePath()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !filepath.IsAbs(path) {
				t.Fatalf("expected absolute path, got %s", path)
			}
		})
	}
}

func TestLoadFromFileWithConfig(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "apispectre.yaml")

	content := `storage_dir: /custom/path
fail_threshold: 25
format: sarif
last_runs: 10
verbose: true
languages: [javascript, go]
exclude_patterns: []
disabled_rules: [DOC001]
severity_threshold: medium
server:
  addr: "127.0.0.1:9090"
  max_files: 50
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.StorageDir != "/custom/path" {
		t.Errorf("expected storage_dir=/custom/path, got %s", cfg.StorageDir)
	}
	if cfg.FailThreshold != 25 {
		t.Errorf("expected fail_threshold=25, got %d", cfg.FailThreshold)
	}
	if cfg.Format != "sarif" {
		t.Errorf("expected format=sarif, got %s", cfg.Format)
	}
	if !cfg.Verbose {
		t.Error("expected verbose=true")
	}
	if cfg.Server.Addr != "127.0.0.1:9090" || cfg.Server.MaxFiles != 50 {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
	if cfg.Server.MaxTotalBytes != DefaultMaxTotalBytes {
		t.Errorf("expected default max_total_bytes, got %d", cfg.Server.MaxTotalBytes)
	}

	opts := cfg.ScanOptions()
	if len(opts.Languages) != 2 || opts.Languages[1] != models.LanguageGo {
		t.Errorf("unexpected languages %v", opts.Languages)
	}
	if len(opts.DisabledRules) != 1 || opts.DisabledRules[0] != "DOC001" {
		t.Errorf("unexpected disabled rules %v", opts.DisabledRules)
	}
	if opts.SeverityThreshold != models.SeverityMedium {
		t.Errorf("unexpected threshold %s", opts.SeverityThreshold)
	}
	if opts.EnabledRules != nil {
		t.Errorf("expected enabled rules unset, got %v", opts.EnabledRules)
	}
}

func TestLoadFromFileInvalidConfig(t *testing.T) {
	chdirTemp(t)
	tests := map[string]string{
		"format":   "format: xml\n",
		"category": "categories: [styling]\n",
		"yaml":     "format: [\n",
	}

	for name, content := range tests {
		path := filepath.Join(t.TempDir(), "apispectre.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFromFile(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadFromFileNoFile(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageDir != ".apispectre" {
		t.Errorf("expected default storage_dir, got %s", cfg.StorageDir)
	}
	if cfg.Languages != nil {
		t.Errorf("expected languages unset, got %v", cfg.Languages)
	}
}

func TestLoadFromFileSearchesWorkingDir(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(dir, "apispectre.yaml"), []byte("last_runs: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LastRuns != 3 {
		t.Errorf("expected last_runs=3, got %d", cfg.LastRuns)
	}
}

func TestGenerateSampleConfig(t *testing.T) {
	sample := GenerateSampleConfig()
	for _, frag := range []string{"storage_dir", "fail_threshold", "min_score", "format", "last_runs", "log_level", "severity_threshold", "server:"} {
		if !strings.Contains(sample, frag) {
			t.Errorf("expected sample config to contain %q", frag)
		}
	}
}

func TestLoadFromFileWithEnvVars(t *testing.T) {
	chdirTemp(t)

	t.Setenv("APISPECTRE_FORMAT", "json")
	t.Setenv("APISPECTRE_VERBOSE", "true")
	t.Setenv("APISPECTRE_SERVER_ADDR", ":9999")
	t.Setenv("APISPECTRE_DISABLED_RULES", "DOC001,PERF003")

	cfg, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Format != "json" {
		t.Errorf("expected format=json from env, got %s", cfg.Format)
	}
	if !cfg.Verbose {
		t.Error("expected verbose=true from env")
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected server addr from env, got %s", cfg.Server.Addr)
	}
	if len(cfg.DisabledRules) != 2 || cfg.DisabledRules[1] != "PERF003" {
		t.Errorf("expected disabled rules from env, got %v", cfg.DisabledRules)
	}
}
