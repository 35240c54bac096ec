package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/apispectre/internal/collector"
	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/rules"
)

var (
	rulesFormat   string
	rulesCategory string
	rulesLanguage string
)

var rulesCmd = &cobra.Command{
	Use:   "rules [rule-id]",
	Short: "List the rule catalog or describe one rule",
	Long: `Rules prints the built-in rule catalog in catalog order.

Pass a rule id to show a single rule.

Example:
  apispectre rules
  apispectre rules --category security
  apispectre rules SEC001 --format yaml
  apispectre rules --language python --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesFormat, "format", "f", "text",
		"output format: text, json, or yaml")
	rulesCmd.Flags().StringVar(&rulesCategory, "category", "",
		"only list rules in this category")
	rulesCmd.Flags().StringVar(&rulesLanguage, "language", "",
		"only list rules supporting this language")
}

func runRules(cmd *cobra.Command, args []string) error {
	defs, err := selectRules(args, models.Category(strings.ToLower(rulesCategory)), models.Language(strings.ToLower(rulesLanguage)))
	if err != nil {
		return err
	}
	return writeRules(os.Stdout, defs, rulesFormat)
}

// selectRules returns the definitions matching the rule id argument and filters.
func selectRules(args []string, category models.Category, language models.Language) ([]models.RuleDefinition, error) {
	if len(args) == 1 {
		r, ok := rules.ByID(strings.ToUpper(args[0]))
		if !ok {
			return nil, &ValidationError{Message: fmt.Sprintf("unknown rule: %s", args[0])}
		}
		return []models.RuleDefinition{r.Definition}, nil
	}

	if category != "" && !models.IsValidCategory(category) {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown category: %s", category)}
	}
	if language != "" && !models.IsValidLanguage(language) {
		return nil, &ValidationError{Message: fmt.Sprintf("unknown language: %s", language)}
	}

	var defs []models.RuleDefinition
	for _, def := range rules.Definitions() {
		if category != "" && def.Category != category {
			continue
		}
		if language != "" && !def.SupportsLanguage(language) {
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func writeRules(w io.Writer, defs []models.RuleDefinition, format string) error {
	switch format {
	case "json":
		if defs == nil {
			defs = []models.RuleDefinition{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(defs)

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(defs); err != nil {
			return err
		}
		return enc.Close()

	case "text":
		p := func(format string, args ...interface{}) {
			_, _ = fmt.Fprintf(w, format, args...)
		}

		if len(defs) == 0 {
			p("No rules match.\n")
			return nil
		}

		p("%-8s  %-9s  %-15s  %s\n", "ID", "SEVERITY", "CATEGORY", "NAME")
		for _, def := range defs {
			p("%-8s  %-9s  %-15s  %s\n", def.ID, strings.ToUpper(string(def.Severity)), def.Category.Label(), def.Name)
		}

		if len(defs) == 1 {
			def := defs[0]
			langs := make([]string, 0, len(def.Languages))
			var exts []string
			for _, l := range def.Languages {
				langs = append(langs, l.Label())
				exts = append(exts, collector.Extensions(l)...)
			}
			p("\n%s\n", def.Description)
			p("Languages: %s\n", strings.Join(langs, ", "))
			p("Extensions: %s\n", strings.Join(exts, " "))
			if def.Docs != "" {
				p("Docs: %s\n", def.Docs)
			}
		} else {
			p("\n%d rules\n", len(defs))
		}
		return nil

	default:
		return &ValidationError{Message: fmt.Sprintf("unsupported format: %s (use text, json, or yaml)", format)}
	}
}
