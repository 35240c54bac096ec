package models

import "math"

// SeverityWeights is the per-issue penalty used by CalculateScore
var SeverityWeights = map[Severity]int{
	SeverityCritical: 25,
	SeverityHigh:     10,
	SeverityMedium:   4,
	SeverityLow:      1,
	SeverityInfo:     0,
}

// Score thresholds for ScoreLabel
const (
	ScoreExcellent = 90
	ScoreGood      = 75
	ScoreFair      = 60
	ScorePoor      = 40
)

// Penalty returns the severity-weighted sum of issue counts
func Penalty(bySeverity map[Severity]int) int {
	penalty := 0
	for severity, count := range bySeverity {
		penalty += SeverityWeights[severity] * count
	}
	return penalty
}

// CalculateScore derives the 0-100 quality score from scan stats.
// score = round(max(0, 100 - penalty / max(scannedFiles, 1))), and 100 when nothing was scanned.
func CalculateScore(stats ScanStats) int {
	if stats.ScannedFiles == 0 {
		return 100
	}

	perFile := float64(Penalty(stats.IssuesBySeverity)) / float64(max(stats.ScannedFiles, 1))
	score := math.Max(0, 100-perFile)

	return int(math.Round(score))
}

// ScoreLabel maps a score to its health level
func ScoreLabel(score int) string {
	switch {
	case score >= ScoreExcellent:
		return "excellent"
	case score >= ScoreGood:
		return "good"
	case score >= ScoreFair:
		return "fair"
	case score >= ScorePoor:
		return "poor"
	default:
		return "critical"
	}
}
