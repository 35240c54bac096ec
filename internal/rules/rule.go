package rules

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/apispectre/internal/models"
)

// CheckFunc inspects one file and reports its findings
type CheckFunc func(file models.ScanFile) []models.ScanIssue

// Rule pairs a static definition with its check.
// A check may panic; callers running untrusted rule sets must recover.
type Rule struct {
	Definition models.RuleDefinition
	check      CheckFunc
}

// New builds a rule from a definition and a check function
func New(def models.RuleDefinition, check CheckFunc) Rule {
	return Rule{Definition: def, check: check}
}

// ID returns the rule identifier
func (r Rule) ID() string {
	return r.Definition.ID
}

// Check runs the rule against file
func (r Rule) Check(file models.ScanFile) []models.ScanIssue {
	if r.check == nil {
		return nil
	}
	return r.check(file)
}

// allLanguages is the language set of rules that apply everywhere
var allLanguages = []models.Language{
	models.LanguageJavaScript,
	models.LanguageTypeScript,
	models.LanguagePython,
	models.LanguageGo,
	models.LanguageJava,
	models.LanguagePHP,
	models.LanguageRuby,
}

// splitLines splits content on "\n"; a trailing "\r" stays on its line
func splitLines(content string) []string {
	return strings.Split(content, "\n")
}

// isComment reports lines starting with "//" or "#"
func isComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "#")
}

// isSlashComment reports lines starting with "//"
func isSlashComment(trimmed string) bool {
	return strings.HasPrefix(trimmed, "//")
}

// column converts a byte offset within line to a 1-based character column
func column(line string, offset int) int {
	return utf8.RuneCountInString(line[:offset]) + 1
}

// window joins lines[start:end] with the bounds clamped to the file
func window(lines []string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

// truncate keeps at most n characters of s
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// finder locates a pattern in a single line
type finder interface {
	// find returns the byte offset where the match starts, or -1
	find(line string) int
}

// re is a finder over a plain regular expression
type re struct {
	*regexp.Regexp
}

func rx(expr string) re {
	return re{regexp.MustCompile(expr)}
}

func (r re) find(line string) int {
	loc := r.FindStringIndex(line)
	if loc == nil {
		return -1
	}
	return loc[0]
}

// notFollowedBy matches head, then needs some occurrence of tail after the
// head whose remaining text does not match reject. With a nil tail, reject is
// tested directly against the text after head. reject should be anchored with ^.
type notFollowedBy struct {
	head   *regexp.Regexp
	tail   *regexp.Regexp
	reject *regexp.Regexp
}

func guarded(head, tail, reject string) notFollowedBy {
	g := notFollowedBy{
		head:   regexp.MustCompile(head),
		reject: regexp.MustCompile(reject),
	}
	if tail != "" {
		g.tail = regexp.MustCompile(tail)
	}
	return g
}

func (g notFollowedBy) find(line string) int {
	for _, loc := range g.head.FindAllStringIndex(line, -1) {
		rest := line[loc[1]:]

		if g.tail == nil {
			if !g.reject.MatchString(rest) {
				return loc[0]
			}
			continue
		}

		for _, t := range g.tail.FindAllStringIndex(rest, -1) {
			if !g.reject.MatchString(rest[t[1]:]) {
				return loc[0]
			}
		}
	}
	return -1
}

// violation is one pattern of a line-oriented rule with its wording
type violation struct {
	pattern    finder
	message    string
	suggestion string
}

// lineScan is the shared shape of local-pattern rules: every non-comment line
// without a safe marker is tested against the violations in order, and the
// first match reports one issue for that line.
type lineScan struct {
	def        models.RuleDefinition
	violations []violation
	safe       []*regexp.Regexp
	comment    func(trimmed string) bool // nil = isComment
	severity   models.Severity           // overrides def.Severity when set
}

func (s lineScan) check(file models.ScanFile) []models.ScanIssue {
	var issues []models.ScanIssue

	skip := s.comment
	if skip == nil {
		skip = isComment
	}

	for i, line := range splitLines(file.Content) {
		trimmed := strings.TrimSpace(line)
		if skip(trimmed) {
			continue
		}
		if anyMatch(s.safe, line) {
			continue
		}

		for _, v := range s.violations {
			offset := v.pattern.find(line)
			if offset < 0 {
				continue
			}

			is := newIssue(s.def, file, i, column(line, offset), trimmed, v.message, v.suggestion)
			if s.severity != "" {
				is.Severity = s.severity
			}
			issues = append(issues, is)
			break
		}
	}

	return issues
}

// newIssue fills the fields every rule reports the same way
func newIssue(def models.RuleDefinition, file models.ScanFile, lineIndex, col int, snippet, message, suggestion string) models.ScanIssue {
	return models.ScanIssue{
		RuleID:      def.ID,
		RuleName:    def.Name,
		Category:    def.Category,
		Severity:    def.Severity,
		Message:     message,
		Suggestion:  suggestion,
		FilePath:    file.Path,
		Line:        lineIndex + 1,
		Column:      col,
		CodeSnippet: snippet,
		Fixable:     def.Fixable,
	}
}

// countedRoutes is the shared shape of rules that report one aggregated
// issue when enough matching lines exist and no global marker is present.
type countedRoutes struct {
	def       models.RuleDefinition
	global    []*regexp.Regexp // any match in the file suppresses the rule
	patterns  []*regexp.Regexp
	keep      func(m []string) bool // optional filter on the submatches
	threshold int
	message   func(count int) string
	suggest   string
}

func (c countedRoutes) check(file models.ScanFile) []models.ScanIssue {
	if anyMatch(c.global, file.Content) {
		return nil
	}

	lines := splitLines(file.Content)
	count := 0
	first := -1

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isComment(trimmed) {
			continue
		}

		for _, p := range c.patterns {
			m := p.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if c.keep != nil && !c.keep(m) {
				continue
			}
			count++
			if first < 0 {
				first = i
			}
			break
		}
	}

	if count < c.threshold || first < 0 {
		return nil
	}

	return []models.ScanIssue{
		newIssue(c.def, file, first, 1, strings.TrimSpace(lines[first]), c.message(count), c.suggest),
	}
}
