package models

import "strings"

// Severity is the impact level of a rule and of the issues it reports
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least severe
var Severities = []Severity{
	SeverityCritical,
	SeverityHigh,
	SeverityMedium,
	SeverityLow,
	SeverityInfo,
}

var severityRank = map[Severity]int{
	SeverityCritical: 5,
	SeverityHigh:     4,
	SeverityMedium:   3,
	SeverityLow:      2,
	SeverityInfo:     1,
}

// Rank returns the position of s in the total order critical(5) > ... > info(1).
// Unknown severities rank 0.
func (s Severity) Rank() int {
	return severityRank[s]
}

// IsValidSeverity reports whether s is one of the known severities
func IsValidSeverity(s Severity) bool {
	_, ok := severityRank[s]
	return ok
}

// Label returns the capitalized severity name
func (s Severity) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// Category groups rules by the quality concern they address
type Category string

const (
	CategorySecurity      Category = "security"
	CategoryDesign        Category = "design"
	CategoryErrorHandling Category = "error-handling"
	CategoryPerformance   Category = "performance"
	CategoryDocumentation Category = "documentation"
	CategoryBestPractices Category = "best-practices"
)

// Categories lists every category in catalog order
var Categories = []Category{
	CategorySecurity,
	CategoryDesign,
	CategoryErrorHandling,
	CategoryPerformance,
	CategoryDocumentation,
	CategoryBestPractices,
}

var categoryLabels = map[Category]string{
	CategorySecurity:      "Security",
	CategoryDesign:        "API Design",
	CategoryErrorHandling: "Error Handling",
	CategoryPerformance:   "Performance",
	CategoryDocumentation: "Documentation",
	CategoryBestPractices: "Best Practices",
}

// IsValidCategory reports whether c is one of the known categories
func IsValidCategory(c Category) bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display name of the category
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Language is a supported source language tag
type Language string

const (
	LanguageNone       Language = ""
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguagePython     Language = "python"
	LanguageGo         Language = "go"
	LanguageJava       Language = "java"
	LanguagePHP        Language = "php"
	LanguageRuby       Language = "ruby"
)

// Languages lists every supported language
var Languages = []Language{
	LanguageJavaScript,
	LanguageTypeScript,
	LanguagePython,
	LanguageGo,
	LanguageJava,
	LanguagePHP,
	LanguageRuby,
}

var languageLabels = map[Language]string{
	LanguageJavaScript: "JavaScript",
	LanguageTypeScript: "TypeScript",
	LanguagePython:     "Python",
	LanguageGo:         "Go",
	LanguageJava:       "Java",
	LanguagePHP:        "PHP",
	LanguageRuby:       "Ruby",
}

// IsValidLanguage reports whether l is a supported language
func IsValidLanguage(l Language) bool {
	_, ok := languageLabels[l]
	return ok
}

// Label returns the display name of the language
func (l Language) Label() string {
	if label, ok := languageLabels[l]; ok {
		return label
	}
	return string(l)
}
