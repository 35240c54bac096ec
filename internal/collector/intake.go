package collector

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

// excludeMatcher tests a path against a single exclude pattern
type excludeMatcher struct {
	pattern string
	re      *regexp.Regexp // nil for plain substring patterns
}

func (m excludeMatcher) match(p string) bool {
	if m.re != nil {
		return m.re.MatchString(p)
	}
	return strings.Contains(p, m.pattern)
}

// CompileExcludePattern turns an exclude pattern into a matcher.
// Patterns containing "*" become an unanchored regular expression with dots
// escaped and "*" meaning any sequence; other patterns match as substrings.
func CompileExcludePattern(pattern string) (func(string) bool, error) {
	m, err := compileExclude(pattern)
	if err != nil {
		return nil, err
	}
	return m.match, nil
}

func compileExclude(pattern string) (excludeMatcher, error) {
	if !strings.Contains(pattern, "*") {
		return excludeMatcher{pattern: pattern}, nil
	}

	expr := strings.ReplaceAll(pattern, ".", `\.`)
	expr = strings.ReplaceAll(expr, "*", ".*")
	re, err := regexp.Compile(expr)
	if err != nil {
		return excludeMatcher{}, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
	}
	return excludeMatcher{pattern: pattern, re: re}, nil
}

// CreateFilesFromEntries filters and classifies raw entries into scan-ready files.
// Per entry, in order: exclusion check, language classification, language filter,
// byte size. Output order follows input order; path and content pass through verbatim.
func CreateFilesFromEntries(entries []models.FileEntry, opts models.ScanOptions) ([]models.ScanFile, error) {
	patterns := opts.ExcludePatterns
	if patterns == nil {
		patterns = models.DefaultExcludePatterns
	}

	matchers := make([]excludeMatcher, 0, len(patterns))
	for _, p := range patterns {
		m, err := compileExclude(p)
		if err != nil {
			return nil, err
		}
		matchers = append(matchers, m)
	}

	var allowed map[models.Language]bool
	if opts.Languages != nil {
		allowed = make(map[models.Language]bool, len(opts.Languages))
		for _, l := range opts.Languages {
			allowed[l] = true
		}
	}

	files := make([]models.ScanFile, 0, len(entries))
	for _, entry := range entries {
		if isExcluded(entry.Path, matchers) {
			continue
		}

		lang := DetectLanguage(entry.Path)
		if lang == models.LanguageNone {
			continue
		}

		if allowed != nil && !allowed[lang] {
			continue
		}

		files = append(files, models.ScanFile{
			Path:     entry.Path,
			Content:  entry.Content,
			Language: lang,
			Size:     int64(len(entry.Content)),
		})
	}

	return files, nil
}

func isExcluded(p string, matchers []excludeMatcher) bool {
	for _, m := range matchers {
		if m.match(p) {
			return true
		}
	}
	return false
}
