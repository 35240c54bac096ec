package reporter

import (
	"fmt"
	"io"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/rules"
)

const (
	sarifToolName = "apispectre"
	sarifToolURI  = "https://github.com/ppiankov/apispectre"
)

// SARIFReporter writes results as SARIF 2.1.0 for code scanning integrations
type SARIFReporter struct {
	writer  io.Writer
	version string
}

// NewSARIFReporter creates a new SARIF reporter
func NewSARIFReporter(writer io.Writer, version string) *SARIFReporter {
	return &SARIFReporter{writer: writer, version: version}
}

// Generate writes the SARIF document
func (r *SARIFReporter) Generate(result *models.ScanResult) error {
	report, err := ToSARIF(result, r.version)
	if err != nil {
		return err
	}
	return report.PrettyWrite(r.writer)
}

// ToSARIF converts a scan result into a SARIF report with one run.
// Rules are described once, in the order they first appear.
func ToSARIF(result *models.ScanResult, version string) (*sarif.Report, error) {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("creating sarif report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(sarifToolName, sarifToolURI)
	if version != "" {
		run.Tool.Driver.Version = &version
	}

	described := make(map[string]bool)
	for _, is := range result.Issues {
		if !described[is.RuleID] {
			describeRule(run, is)
			described[is.RuleID] = true
		}

		region := sarif.NewRegion().WithStartLine(is.Line)
		if is.Column > 0 {
			region.WithStartColumn(is.Column)
		}
		if is.EndLine > 0 {
			region.WithEndLine(is.EndLine)
		}
		if is.EndColumn > 0 {
			region.WithEndColumn(is.EndColumn)
		}
		if is.CodeSnippet != "" {
			region.WithSnippet(sarif.NewArtifactContent().WithText(is.CodeSnippet))
		}

		loc := sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewSimpleArtifactLocation(is.FilePath)).
			WithRegion(region)

		res := sarif.NewRuleResult(is.RuleID).
			WithLevel(toSARIFLevel(is.Severity)).
			WithMessage(sarif.NewTextMessage(is.Message)).
			WithLocations([]*sarif.Location{sarif.NewLocationWithPhysicalLocation(loc)})

		run.AddResult(res)
	}

	report.AddRun(run)
	return report, nil
}

func describeRule(run *sarif.Run, is models.ScanIssue) {
	name, description := is.RuleName, is.Message
	level := toSARIFLevel(is.Severity)
	if r, ok := rules.ByID(is.RuleID); ok {
		name = r.Definition.Name
		description = r.Definition.Description
		level = toSARIFLevel(r.Definition.Severity)
	}

	rule := run.AddRule(is.RuleID).
		WithName(name).
		WithDescription(description).
		WithDefaultConfiguration(&sarif.ReportingConfiguration{
			Level: level,
		})

	if is.Suggestion != "" {
		help := is.Suggestion
		rule.WithHelp(&sarif.MultiformatMessageString{
			Text: &help,
		})
	}
}

func toSARIFLevel(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	case models.SeverityLow, models.SeverityInfo:
		return "note"
	default:
		return "none"
	}
}
