package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/config"
	"github.com/ppiankov/apispectre/internal/logging"
	"github.com/ppiankov/apispectre/internal/storage"
)

const (
	ExitOK           = 0 // Success
	ExitPolicyFail   = 1 // Issues exceed threshold or policy
	ExitInvalidInput = 2 // Invalid options, config or result file
	ExitRuntimeError = 3 // I/O, permissions, or runtime error
)

var (
	// Global config instance
	cfg *config.Config

	// Global logger, built from cfg after flags are parsed
	logger hclog.Logger

	// buildVersion is set by main via SetVersion
	buildVersion = "dev"

	// Global flags
	configFile string
	verbose    bool
	debug      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "apispectre",
	Short: "API Spectre - static quality analysis for API source code",
	Long: `API Spectre scans API source code for security, design, error handling,
performance, documentation and best-practice problems.

It provides:
- 19 pattern rules across JavaScript, TypeScript, Python, Go, Java, PHP and Ruby
- A 0-100 quality score with prioritized recommendations
- Trend analysis across stored runs
- CI/CD integration with exit codes, policies and SARIF output
- An HTTP scan endpoint and an interactive issue browser

Quick start:
  apispectre scan ./src
  apispectre scan ./src --format sarif -o results.sarif
  apispectre scan ./src --interactive

Other commands:
  apispectre rules
  apispectre diff
  apispectre summarize --last 7
  apispectre serve --addr :8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return &ValidationError{Message: fmt.Sprintf("failed to load config: %v", err)}
		}

		// Override config with flags if provided
		if verbose {
			cfg.Verbose = true
		}
		if debug {
			cfg.Debug = true
		}

		logger = logging.New("apispectre", logging.LevelFor(cfg.LogLevel, cfg.Verbose, cfg.Debug), os.Stderr)
		return nil
	},
}

// SetVersion records the build version reported by `version` and SARIF output
func SetVersion(v string) {
	if v != "" {
		buildVersion = v
	}
}

// Execute runs the root command and exits with the matching exit code
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		os.Exit(HandleError(err))
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default: ./apispectre.yaml or ~/apispectre.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"debug mode (very verbose)")

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(explainScoreCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("apispectre %s\n", buildVersion)
		fmt.Println("Static quality analysis for API source code")
	},
}

// HandleError determines the appropriate exit code for an error
func HandleError(err error) int {
	if err == nil {
		return ExitOK
	}

	var validationErr *ValidationError
	var thresholdErr *ThresholdExceededError
	switch {
	case errors.As(err, &validationErr):
		return ExitInvalidInput
	case errors.As(err, &thresholdErr):
		return ExitPolicyFail
	default:
		return ExitRuntimeError
	}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ThresholdExceededError represents a threshold or policy failure
type ThresholdExceededError struct {
	IssueCount int
	Threshold  int
	Reason     string
}

func (e *ThresholdExceededError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return fmt.Sprintf("issue count (%d) exceeds threshold (%d)", e.IssueCount, e.Threshold)
}

// log returns the configured logger or a warn-level stderr logger before
// PersistentPreRunE has run.
func log() hclog.Logger {
	if logger == nil {
		logger = logging.New("apispectre", logging.DefaultLevel, os.Stderr)
	}
	return logger
}

// logVerbose logs at INFO, shown with --verbose
func logVerbose(format string, args ...interface{}) {
	log().Info(fmt.Sprintf(format, args...))
}

// logDebug logs at DEBUG, shown with --debug
func logDebug(format string, args ...interface{}) {
	log().Debug(fmt.Sprintf(format, args...))
}

// logError logs at ERROR
func logError(format string, args ...interface{}) {
	log().Error(fmt.Sprintf(format, args...))
}

// openStore resolves storageDir (or the configured one) into local run storage
func openStore(storageDir string) (*storage.LocalStorage, error) {
	if storageDir == "" && cfg != nil {
		storageDir = cfg.StorageDir
	}
	if storageDir == "" {
		storageDir = config.DefaultConfig().StorageDir
	}

	path, err := (&config.Config{StorageDir: storageDir}).GetStoragePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage path: %w", err)
	}
	return storage.NewLocal(path), nil
}
