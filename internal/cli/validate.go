package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/apispectre/internal/config"
	"github.com/ppiankov/apispectre/internal/validator"
)

var validateSampleConfig bool

var validateCmd = &cobra.Command{
	Use:   "validate [result-file]",
	Short: "Validate a scan result file or the current configuration",
	Long: `Validate checks that a JSON file is a well-formed apispectre scan result
(as written by 'apispectre scan --format json' or run storage).

Without a file it validates the loaded configuration, including the
scan options (languages, categories, rule ids and exclude patterns).

Returns exit 0 if valid, exit 2 if invalid with details on stderr.

Example:
  apispectre validate report.json
  apispectre validate --config ./apispectre.yaml
  apispectre validate --sample-config > apispectre.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateSampleConfig, "sample-config", false,
		"print a sample configuration file and exit")
}

func runValidate(cmd *cobra.Command, args []string) error {
	if validateSampleConfig {
		fmt.Print(config.GenerateSampleConfig())
		return nil
	}

	if len(args) == 0 {
		return validateConfig(os.Stdout)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := validator.New().ValidateResult(data); err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		return &ValidationError{Message: err.Error()}
	}

	fmt.Println("VALID: well-formed scan result")
	return nil
}

func validateConfig(w io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return &ValidationError{Message: err.Error()}
	}

	source := configFile
	if source == "" {
		source = "defaults and environment"
	}
	_, err := fmt.Fprintf(w, "VALID: configuration (%s)\n", source)
	return err
}
