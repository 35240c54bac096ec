package aggregator

import (
	"fmt"
	"sort"

	"github.com/ppiankov/apispectre/internal/models"
)

// issueGroup collects the issues of one rule
type issueGroup struct {
	ruleID     string
	ruleName   string
	category   models.Category
	severity   models.Severity
	suggestion string
	count      int
	files      map[string]bool
}

// RecommendationGenerator creates actionable recommendations from scan issues
type RecommendationGenerator struct{}

// NewRecommendationGenerator creates a new recommendation generator
func NewRecommendationGenerator() *RecommendationGenerator {
	return &RecommendationGenerator{}
}

// GenerateRecommendations groups issues by rule and returns one action per
// rule, most severe first, then by count.
func (r *RecommendationGenerator) GenerateRecommendations(result *models.ScanResult) []models.Recommendation {
	if result == nil {
		return nil
	}

	groups := make(map[string]*issueGroup)
	for _, issue := range result.Issues {
		g, exists := groups[issue.RuleID]
		if !exists {
			g = &issueGroup{
				ruleID:     issue.RuleID,
				ruleName:   issue.RuleName,
				category:   issue.Category,
				severity:   issue.Severity,
				suggestion: issue.Suggestion,
				files:      make(map[string]bool),
			}
			groups[issue.RuleID] = g
		}
		// A rule may report some findings above its default severity.
		if issue.Severity.Rank() > g.severity.Rank() {
			g.severity = issue.Severity
		}
		g.count++
		g.files[issue.FilePath] = true
	}

	var recommendations []models.Recommendation
	for _, group := range groups {
		recommendations = append(recommendations, models.Recommendation{
			Severity:      group.severity,
			RuleID:        group.ruleID,
			RuleName:      group.ruleName,
			Action:        r.generateAction(group),
			Impact:        r.generateImpact(group),
			Suggestion:    group.suggestion,
			Count:         group.count,
			FilesAffected: len(group.files),
		})
	}

	sort.Slice(recommendations, func(i, j int) bool {
		a, b := recommendations[i], recommendations[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.RuleID < b.RuleID
	})

	return recommendations
}

// generateAction creates actionable text based on category and count
func (r *RecommendationGenerator) generateAction(group *issueGroup) string {
	files := len(group.files)

	switch group.category {
	case models.CategorySecurity:
		return fmt.Sprintf("Fix %d %s finding(s) in %d file(s)", group.count, group.ruleName, files)
	case models.CategoryDesign:
		return fmt.Sprintf("Revise %d route(s) flagged for %s in %d file(s)", group.count, group.ruleName, files)
	case models.CategoryErrorHandling:
		return fmt.Sprintf("Add error handling at %d location(s) in %d file(s)", group.count, files)
	case models.CategoryPerformance:
		return fmt.Sprintf("Optimize %d %s location(s) in %d file(s)", group.count, group.ruleName, files)
	case models.CategoryDocumentation:
		return fmt.Sprintf("Document the routes in %d file(s)", files)
	case models.CategoryBestPractices:
		return fmt.Sprintf("Address %d %s finding(s) in %d file(s)", group.count, group.ruleName, files)
	default:
		return fmt.Sprintf("Address %d issue(s) from %s", group.count, group.ruleID)
	}
}

// generateImpact describes the potential impact based on severity and category
func (r *RecommendationGenerator) generateImpact(group *issueGroup) string {
	switch group.severity {
	case models.SeverityCritical:
		switch group.category {
		case models.CategorySecurity:
			return "Exploitable vulnerability or leaked credential"
		default:
			return "Immediate action required before the next release"
		}

	case models.SeverityHigh:
		switch group.category {
		case models.CategorySecurity:
			return "Attackers may gain access to data or endpoints"
		case models.CategoryErrorHandling:
			return "Failures may crash the process or leave requests hanging"
		case models.CategoryPerformance:
			return "Latency and database load grow with data size"
		case models.CategoryBestPractices:
			return "Untrusted or sensitive data crosses the API boundary"
		default:
			return "Significant impact on API reliability"
		}

	case models.SeverityMedium:
		switch group.category {
		case models.CategoryDesign:
			return "Clients must work around non-standard API behavior"
		case models.CategoryErrorHandling:
			return "Clients receive inconsistent or leaky error responses"
		case models.CategoryPerformance:
			return "Responses may become slow or unbounded"
		default:
			return "Moderate impact on API quality"
		}

	case models.SeverityLow:
		switch group.category {
		case models.CategoryDocumentation:
			return "Consumers have to read the code to use the API"
		case models.CategoryDesign:
			return "API is harder to evolve and learn"
		default:
			return "Low priority cleanup or optimization"
		}

	default:
		return "Review and address as needed"
	}
}

// GetTopRecommendations returns the top N most critical recommendations
func (r *RecommendationGenerator) GetTopRecommendations(recommendations []models.Recommendation, n int) []models.Recommendation {
	if n >= len(recommendations) {
		return recommendations
	}
	return recommendations[:n]
}

// GroupBySeverity groups recommendations by severity level
func (r *RecommendationGenerator) GroupBySeverity(recommendations []models.Recommendation) map[models.Severity][]models.Recommendation {
	grouped := make(map[models.Severity][]models.Recommendation)

	for _, rec := range recommendations {
		grouped[rec.Severity] = append(grouped[rec.Severity], rec)
	}

	return grouped
}
