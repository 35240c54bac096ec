package tui

import (
	"fmt"
	"strings"

	"github.com/ppiankov/apispectre/internal/aggregator"
	"github.com/ppiankov/apispectre/internal/models"
)

// headerHeight is the number of terminal lines the header occupies.
const headerHeight = 5

// renderHeader produces the header string from the scan result.
func renderHeader(result *models.ScanResult, sparkline []int, width int) string {
	var b strings.Builder
	stats := result.Stats

	healthText := healthStyle(result.Health).Render(
		fmt.Sprintf("%d/100 %s", result.Score, strings.ToUpper(result.Health)),
	)
	b.WriteString(fmt.Sprintf("API Spectre  Score: %s", healthText))

	if result.Trend != nil {
		indicator := aggregator.GetTrendIndicator(result.Trend.Direction)
		b.WriteString(fmt.Sprintf("  %s %.1f%%", indicator, result.Trend.ChangePercent))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Files: %d/%d  Issues: %d",
		stats.ScannedFiles, stats.TotalFiles, stats.TotalIssues))
	b.WriteString("\n")

	sevParts := make([]string, 0, len(models.Severities))
	for _, sev := range models.Severities {
		if count := stats.IssuesBySeverity[sev]; count > 0 {
			label := fmt.Sprintf("%s:%d", strings.ToUpper(string(sev)[:1]), count)
			sevParts = append(sevParts, severityStyle(sev).Render(label))
		}
	}
	if len(sevParts) > 0 {
		b.WriteString(strings.Join(sevParts, "  "))
	}
	b.WriteString("\n")

	if len(sparkline) > 0 {
		b.WriteString("Trend: ")
		b.WriteString(renderSparkline(sparkline))
	}

	return styleHeader.Width(width).Render(b.String())
}

// renderSparkline converts an int slice to a unicode sparkline string.
func renderSparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}

	bars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	var b strings.Builder
	for _, v := range values {
		if hi == lo {
			b.WriteRune(bars[len(bars)/2])
		} else {
			normalized := float64(v-lo) / float64(hi-lo)
			b.WriteRune(bars[int(normalized*float64(len(bars)-1))])
		}
	}

	b.WriteString(fmt.Sprintf(" [%d→%d]", values[0], values[len(values)-1]))
	return b.String()
}
