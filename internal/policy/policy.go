package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ppiankov/apispectre/internal/models"
	"gopkg.in/yaml.v3"
)

// Policy defines enforcement rules for scan results.
type Policy struct {
	Version string `yaml:"version"`
	Rules   Rules  `yaml:"rules"`
}

// Rules contains all configurable policy rules.
type Rules struct {
	MaxIssues        *int              `yaml:"max_issues,omitempty"`
	MaxCritical      *int              `yaml:"max_critical,omitempty"`
	MaxHigh          *int              `yaml:"max_high,omitempty"`
	MinScore         *int              `yaml:"min_score,omitempty"`
	ForbidCategories []models.Category `yaml:"forbid_categories,omitempty"`
	ForbidRules      []string          `yaml:"forbid_rules,omitempty"`
}

// Violation is a single policy failure.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// Result holds the outcome of a policy check.
type Result struct {
	Pass       bool        `json:"pass"`
	Violations []Violation `json:"violations"`
}

// FileNames are the policy file names searched by FindPolicyFile.
var FileNames = []string{".apispectre-policy.yaml", ".apispectre-policy.yml"}

// LoadFromFile reads a policy file. A missing file yields a nil policy.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", path, err)
	}

	return &p, nil
}

func (p *Policy) validate() error {
	for _, c := range p.Rules.ForbidCategories {
		if !models.IsValidCategory(c) {
			return fmt.Errorf("unknown category %q in forbid_categories", c)
		}
	}
	if p.Rules.MinScore != nil && (*p.Rules.MinScore < 0 || *p.Rules.MinScore > 100) {
		return fmt.Errorf("min_score must be between 0 and 100, got %d", *p.Rules.MinScore)
	}
	return nil
}

// FindPolicyFile searches for a policy file in dir and its parents up to
// the filesystem root. An empty dir means the working directory.
func FindPolicyFile(dir string) string {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}

	for {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// Evaluate checks a scan result against the policy rules.
func (p *Policy) Evaluate(result *models.ScanResult) *Result {
	if p == nil || result == nil {
		return &Result{Pass: true}
	}

	var violations []Violation
	stats := result.Stats

	if p.Rules.MaxIssues != nil && stats.TotalIssues > *p.Rules.MaxIssues {
		violations = append(violations, Violation{
			Rule:    "max_issues",
			Message: fmt.Sprintf("total issues %d exceeds limit %d", stats.TotalIssues, *p.Rules.MaxIssues),
		})
	}

	if p.Rules.MaxCritical != nil {
		count := stats.IssuesBySeverity[models.SeverityCritical]
		if count > *p.Rules.MaxCritical {
			violations = append(violations, Violation{
				Rule:    "max_critical",
				Message: fmt.Sprintf("critical issues %d exceeds limit %d", count, *p.Rules.MaxCritical),
			})
		}
	}

	if p.Rules.MaxHigh != nil {
		count := stats.IssuesBySeverity[models.SeverityHigh]
		if count > *p.Rules.MaxHigh {
			violations = append(violations, Violation{
				Rule:    "max_high",
				Message: fmt.Sprintf("high issues %d exceeds limit %d", count, *p.Rules.MaxHigh),
			})
		}
	}

	if p.Rules.MinScore != nil && result.Score < *p.Rules.MinScore {
		violations = append(violations, Violation{
			Rule:    "min_score",
			Message: fmt.Sprintf("score %d below minimum %d", result.Score, *p.Rules.MinScore),
		})
	}

	for _, cat := range p.Rules.ForbidCategories {
		if count := stats.IssuesByCategory[cat]; count > 0 {
			violations = append(violations, Violation{
				Rule:    "forbid_categories",
				Message: fmt.Sprintf("forbidden category %q has %d issues", cat, count),
			})
		}
	}

	if len(p.Rules.ForbidRules) > 0 {
		counts := make(map[string]int)
		for _, is := range result.Issues {
			counts[is.RuleID]++
		}
		forbidden := append([]string(nil), p.Rules.ForbidRules...)
		sort.Strings(forbidden)
		for _, id := range forbidden {
			if counts[id] > 0 {
				violations = append(violations, Violation{
					Rule:    "forbid_rules",
					Message: fmt.Sprintf("forbidden rule %s reported %d issues", id, counts[id]),
				})
			}
		}
	}

	return &Result{
		Pass:       len(violations) == 0,
		Violations: violations,
	}
}
