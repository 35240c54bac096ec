package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/apispectre/internal/models"
)

var tableColumns = []table.Column{
	{Title: "Severity", Width: 10},
	{Title: "Rule", Width: 8},
	{Title: "Category", Width: 15},
	{Title: "Location", Width: 32},
	{Title: "Message", Width: 48},
}

// buildRows converts scan issues to table rows.
func buildRows(issues []models.ScanIssue) []table.Row {
	rows := make([]table.Row, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, table.Row{
			severityLabel(issue.Severity),
			issue.RuleID,
			issue.Category.Label(),
			truncateLeft(location(issue), tableColumns[3].Width),
			truncate(issue.Message, tableColumns[4].Width),
		})
	}
	return rows
}

func location(issue models.ScanIssue) string {
	return fmt.Sprintf("%s:%d", issue.FilePath, issue.Line)
}

func severityLabel(s models.Severity) string {
	return strings.ToUpper(string(s))
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-len(ellipsis)]) + ellipsis
}

// truncateLeft keeps the end of s, where file names and line numbers are.
func truncateLeft(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	const ellipsis = "..."
	if maxLen <= len(ellipsis) {
		return string(r[len(r)-maxLen:])
	}
	return ellipsis + string(r[len(r)-(maxLen-len(ellipsis)):])
}

// newTable creates a bubbles table with standard columns and styling.
func newTable(rows []table.Row, height int) table.Model {
	t := table.New(
		table.WithColumns(tableColumns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(colorAccent).
		Bold(false)
	t.SetStyles(s)

	return t
}
