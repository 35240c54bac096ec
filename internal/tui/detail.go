package tui

import (
	"fmt"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

// detailHeight is the fixed number of lines for the detail panel.
const detailHeight = 5

// renderDetail produces the detail view for a selected issue.
func renderDetail(issue *models.ScanIssue, width int) string {
	if issue == nil {
		return styleDetailPanel.Width(width).Render("No issue selected")
	}

	var b strings.Builder

	sevStyled := severityStyle(issue.Severity).Render(severityLabel(issue.Severity))
	b.WriteString(fmt.Sprintf("%s  %s %s / %s\n", sevStyled, issue.RuleID, issue.RuleName, issue.Category.Label()))
	b.WriteString(fmt.Sprintf("%s:%d:%d  %s\n", issue.FilePath, issue.Line, issue.Column, issue.Message))

	if issue.Suggestion != "" {
		b.WriteString(fmt.Sprintf("Fix: %s\n", issue.Suggestion))
	}
	if issue.CodeSnippet != "" {
		b.WriteString(styleSnippet.Render(truncate(issue.CodeSnippet, 120)))
	}

	return styleDetailPanel.Width(width).Render(b.String())
}
