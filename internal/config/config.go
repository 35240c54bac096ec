package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/validator"
)

// Server limits for POST /api/scan
const (
	DefaultServerAddr    = ":8080"
	DefaultMaxFiles      = 500
	DefaultMaxTotalBytes = 10 * 1024 * 1024
	DefaultRateLimit     = 60 // requests per client IP per minute
)

// Config holds all configuration for apispectre
type Config struct {
	// Storage configuration
	StorageDir string `mapstructure:"storage_dir"`

	// Issue count above which a scan fails (0 disables)
	FailThreshold int `mapstructure:"fail_threshold"`

	// Score below which a scan fails (0 disables)
	MinScore int `mapstructure:"min_score"`

	// Output format (text, json, sarif, both)
	Format string `mapstructure:"format"`

	// Number of last runs to analyze
	LastRuns int `mapstructure:"last_runs"`

	Verbose  bool   `mapstructure:"verbose"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`

	// Scan options; unset lists stay nil so engine defaults apply
	Workers           int      `mapstructure:"workers"`
	MaxFileSize       int64    `mapstructure:"max_file_size"`
	Languages         []string `mapstructure:"languages"`
	Categories        []string `mapstructure:"categories"`
	SeverityThreshold string   `mapstructure:"severity_threshold"`
	ExcludePatterns   []string `mapstructure:"exclude_patterns"`
	EnabledRules      []string `mapstructure:"enabled_rules"`
	DisabledRules     []string `mapstructure:"disabled_rules"`

	Server ServerConfig `mapstructure:"server"`
}

// ServerConfig configures `apispectre serve`
type ServerConfig struct {
	Addr          string `mapstructure:"addr"`
	MaxFiles      int    `mapstructure:"max_files"`
	MaxTotalBytes int64  `mapstructure:"max_total_bytes"`
	RateLimit     int    `mapstructure:"rate_limit"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		StorageDir:    ".apispectre",
		FailThreshold: 0,
		Format:        "text",
		LastRuns:      7,
		Server: ServerConfig{
			Addr:          DefaultServerAddr,
			MaxFiles:      DefaultMaxFiles,
			MaxTotalBytes: DefaultMaxTotalBytes,
			RateLimit:     DefaultRateLimit,
		},
	}
}

// listKeys have no default so that "unset" and "empty" stay distinct
var listKeys = []string{
	"languages",
	"categories",
	"exclude_patterns",
	"enabled_rules",
	"disabled_rules",
}

// Load loads configuration with the following precedence (lowest to highest):
// 1. Default values
// 2. Config file (./apispectre.yaml, ~/apispectre.yaml, $XDG_CONFIG_HOME/apispectre)
// 3. Environment variables (APISPECTRE_*)
// 4. CLI flags (handled by caller)
func Load() (*Config, error) {
	return LoadFromFile("")
}

// LoadFromFile loads configuration from a specific file path.
// If path is empty, it searches for config in standard locations.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("storage_dir", defaults.StorageDir)
	v.SetDefault("fail_threshold", defaults.FailThreshold)
	v.SetDefault("min_score", defaults.MinScore)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("last_runs", defaults.LastRuns)
	v.SetDefault("verbose", false)
	v.SetDefault("debug", false)
	v.SetDefault("log_level", "")
	v.SetDefault("workers", 0)
	v.SetDefault("max_file_size", 0)
	v.SetDefault("severity_threshold", "")
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("server.max_files", defaults.Server.MaxFiles)
	v.SetDefault("server.max_total_bytes", defaults.Server.MaxTotalBytes)
	v.SetDefault("server.rate_limit", defaults.Server.RateLimit)

	v.SetConfigName("apispectre")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}

		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			v.AddConfigPath(filepath.Join(xdgConfig, "apispectre"))
		}
	}

	v.SetEnvPrefix("APISPECTRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range listKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

var validLogLevels = map[string]bool{
	"":      true,
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"off":   true,
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validFormats := map[string]bool{
		"text":  true,
		"json":  true,
		"sarif": true,
		"both":  true,
	}
	if !validFormats[c.Format] {
		return fmt.Errorf("invalid format: %s (must be text, json, sarif, or both)", c.Format)
	}

	if c.FailThreshold < 0 {
		return fmt.Errorf("fail_threshold cannot be negative")
	}

	if c.MinScore < 0 || c.MinScore > 100 {
		return fmt.Errorf("min_score must be between 0 and 100")
	}

	if c.LastRuns <= 0 {
		return fmt.Errorf("last_runs must be positive")
	}

	if c.StorageDir == "" {
		return fmt.Errorf("storage_dir cannot be empty")
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level: %s", c.LogLevel)
	}

	if c.Server.MaxFiles < 0 || c.Server.MaxTotalBytes < 0 || c.Server.RateLimit < 0 {
		return fmt.Errorf("server limits cannot be negative")
	}

	return validator.New().ValidateOptions(c.ScanOptions())
}

// ScanOptions converts the scan keys into engine options
func (c *Config) ScanOptions() models.ScanOptions {
	opts := models.ScanOptions{
		SeverityThreshold: models.Severity(c.SeverityThreshold),
		MaxFileSize:       c.MaxFileSize,
		ExcludePatterns:   c.ExcludePatterns,
		EnabledRules:      c.EnabledRules,
		DisabledRules:     c.DisabledRules,
		Workers:           c.Workers,
	}

	if c.Languages != nil {
		opts.Languages = make([]models.Language, 0, len(c.Languages))
		for _, l := range c.Languages {
			opts.Languages = append(opts.Languages, models.Language(strings.ToLower(l)))
		}
	}
	if c.Categories != nil {
		opts.Categories = make([]models.Category, 0, len(c.Categories))
		for _, cat := range c.Categories {
			opts.Categories = append(opts.Categories, models.Category(strings.ToLower(cat)))
		}
	}

	return opts
}

// GetStoragePath returns the absolute path to the storage directory
func (c *Config) GetStoragePath() (string, error) {
	if strings.HasPrefix(c.StorageDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, c.StorageDir[2:]), nil
	}

	absPath, err := filepath.Abs(c.StorageDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	return absPath, nil
}

// ShouldFailOnThreshold checks if the issue count exceeds the threshold
func (c *Config) ShouldFailOnThreshold(issueCount int) bool {
	if c.FailThreshold == 0 {
		return false
	}
	return issueCount > c.FailThreshold
}

// ShouldFailOnScore checks if the score is below the configured minimum
func (c *Config) ShouldFailOnScore(score int) bool {
	if c.MinScore == 0 {
		return false
	}
	return score < c.MinScore
}

// GenerateSampleConfig generates a sample configuration file content
func GenerateSampleConfig() string {
	return `# apispectre configuration
# Save this file as ./apispectre.yaml or ~/apispectre.yaml

# Directory to store scan history
storage_dir: .apispectre

# Fail threshold for CI/CD (exit code 1 if issues exceed this number)
# Set to 0 to disable threshold checking
fail_threshold: 50

# Minimum quality score (exit code 1 below it, 0 disables)
min_score: 0

# Output format: text, json, sarif, or both
format: text

# Number of last runs to analyze in summarize command
last_runs: 7

# Logging: trace, debug, info, warn, error, off
log_level: warn
verbose: false
debug: false

# Scan options
workers: 0              # 0 uses all CPUs
max_file_size: 512000   # bytes, 0 uses the default
severity_threshold: info
# languages: [javascript, typescript, python, go]
# categories: [security, error-handling]
# exclude_patterns: [node_modules, "*.min.js"]
# enabled_rules: [SEC001, SEC002]
# disabled_rules: [DOC001]

# HTTP API (apispectre serve)
server:
  addr: ":8080"
  max_files: 500
  max_total_bytes: 10485760
  rate_limit: 60
`
}
