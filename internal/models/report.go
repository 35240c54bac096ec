package models

import "time"

// Trend represents change between current and previous scan
type Trend struct {
	Direction      string    `json:"direction"`      // "improving", "degrading", "stable"
	ChangePercent  float64   `json:"change_percent"` // negative = improvement
	PreviousIssues int       `json:"previous_issues"`
	CurrentIssues  int       `json:"current_issues"`
	PreviousScore  int       `json:"previous_score"`
	CurrentScore   int       `json:"current_score"`
	ComparedWith   time.Time `json:"compared_with"`   // When previous run was
	NewIssues      int       `json:"new_issues"`      // Issues that appeared
	ResolvedIssues int       `json:"resolved_issues"` // Issues that disappeared
}

// Recommendation is one prioritized action, grouped by rule
type Recommendation struct {
	Severity      Severity `json:"severity"`
	RuleID        string   `json:"rule_id"`
	RuleName      string   `json:"rule_name"`
	Action        string   `json:"action"` // What to do
	Impact        string   `json:"impact"` // Why it matters
	Suggestion    string   `json:"suggestion,omitempty"`
	Count         int      `json:"count"` // How many issues
	FilesAffected int      `json:"files_affected"`
}

// TrendSummary provides historical trend analysis
type TrendSummary struct {
	TimeRange      string                `json:"time_range"` // e.g., "Last 7 days"
	RunsAnalyzed   int                   `json:"runs_analyzed"`
	IssueSparkline []int                 `json:"issue_sparkline"` // Issue counts over time
	ScoreSparkline []int                 `json:"score_sparkline"`
	ByRule         map[string]*RuleTrend `json:"by_rule"`
}

// RuleTrend represents trend for a single rule
type RuleTrend struct {
	RuleID         string  `json:"rule_id"`
	CurrentIssues  int     `json:"current_issues"`
	PreviousIssues int     `json:"previous_issues"`
	Change         int     `json:"change"`         // Positive = more issues
	ChangePercent  float64 `json:"change_percent"` // Positive = more issues
}
