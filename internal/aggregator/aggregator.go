package aggregator

import (
	"github.com/ppiankov/apispectre/internal/models"
)

// Aggregator enriches scan results with recommendations and trends
type Aggregator struct {
	recommender *RecommendationGenerator
	trends      *TrendAnalyzer
}

// New creates a new aggregator
func New() *Aggregator {
	return &Aggregator{
		recommender: NewRecommendationGenerator(),
		trends:      NewTrendAnalyzer(),
	}
}

// Enrich attaches recommendations and, when previous is not nil, the trend
// against it. Issues and stats are left untouched.
func (a *Aggregator) Enrich(current, previous *models.ScanResult) {
	if current == nil {
		return
	}
	current.Recommendations = a.recommender.GenerateRecommendations(current)
	a.AddTrend(current, previous)
}

// AddTrend adds trend information by comparing with a previous result
func (a *Aggregator) AddTrend(current, previous *models.ScanResult) {
	if current == nil || previous == nil {
		return
	}
	current.Trend = a.trends.CalculateTrend(current, previous)
}

// BuildTrendSummary analyzes runs ordered oldest first
func (a *Aggregator) BuildTrendSummary(runs []*models.ScanResult) *models.TrendSummary {
	return a.trends.AnalyzeLastNRuns(runs)
}
