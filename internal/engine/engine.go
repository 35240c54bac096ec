// Package engine runs the rule catalog over classified files and assembles
// the scored result.
package engine

import (
	"runtime"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/rules"
)

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the logger used for rule failures and scan summaries
func WithLogger(log hclog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithRules replaces the built-in catalog. Rule order is kept.
func WithRules(rs []rules.Rule) Option {
	return func(e *Engine) {
		e.rules = append([]rules.Rule(nil), rs...)
	}
}

// Engine is safe for concurrent use once built
type Engine struct {
	rules []rules.Rule
	index map[string]int
	log   hclog.Logger
}

// New creates an engine over the built-in catalog
func New(opts ...Option) *Engine {
	e := &Engine{
		rules: rules.Catalog(),
		log:   hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.index = make(map[string]int, len(e.rules))
	for i, r := range e.rules {
		if _, dup := e.index[r.ID()]; !dup {
			e.index[r.ID()] = i
		}
	}
	return e
}

// Rules returns the engine's rules in execution order
func (e *Engine) Rules() []rules.Rule {
	return append([]rules.Rule(nil), e.rules...)
}

// RuleByID looks up one of the engine's rules
func (e *Engine) RuleByID(id string) (rules.Rule, bool) {
	i, ok := e.index[id]
	if !ok {
		return rules.Rule{}, false
	}
	return e.rules[i], true
}

// Applies reports whether a rule with def runs on a file in lang under opts.
// A rule named in both EnabledRules and DisabledRules is disabled.
func Applies(def models.RuleDefinition, lang models.Language, opts models.ScanOptions) bool {
	if !def.SupportsLanguage(lang) {
		return false
	}
	if opts.Categories != nil && !slices.Contains(opts.Categories, def.Category) {
		return false
	}
	if opts.EnabledRules != nil && !slices.Contains(opts.EnabledRules, def.ID) {
		return false
	}
	if opts.DisabledRules != nil && slices.Contains(opts.DisabledRules, def.ID) {
		return false
	}
	if opts.SeverityThreshold != "" && def.Severity.Rank() < opts.SeverityThreshold.Rank() {
		return false
	}
	return true
}

// Applicable returns the rules that would run on a file in lang, in order
func (e *Engine) Applicable(lang models.Language, opts models.ScanOptions) []rules.Rule {
	var out []rules.Rule
	for _, r := range e.rules {
		if Applies(r.Definition, lang, opts) {
			out = append(out, r)
		}
	}
	return out
}

// ScanFile runs every applicable rule on file and concatenates their issues
// in rule order. A rule that panics contributes nothing for this file.
func (e *Engine) ScanFile(file models.ScanFile, opts models.ScanOptions) []models.ScanIssue {
	var issues []models.ScanIssue
	for _, r := range e.Applicable(file.Language, opts) {
		issues = append(issues, e.runRule(r, file)...)
	}
	return issues
}

func (e *Engine) runRule(r rules.Rule, file models.ScanFile) (issues []models.ScanIssue) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Trace("rule failed, findings dropped", "rule", r.ID(), "file", file.Path, "panic", rec)
			issues = nil
		}
	}()
	return r.Check(file)
}

// ScanFiles scans files concurrently and returns the sorted, scored result.
// Files larger than the effective max size are counted as skipped.
func (e *Engine) ScanFiles(files []models.ScanFile, opts models.ScanOptions) *models.ScanResult {
	stats := models.NewScanStats()
	stats.TotalFiles = len(files)
	maxSize := opts.EffectiveMaxFileSize()

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()

	perFile := make([][]models.ScanIssue, len(files))
	var g errgroup.Group
	g.SetLimit(workers)

	for i, f := range files {
		if fileSize(f) > maxSize {
			stats.SkippedFiles++
			e.log.Debug("skipping oversized file", "file", f.Path, "size", fileSize(f), "max", maxSize)
			continue
		}
		stats.ScannedFiles++

		i, f := i, f
		g.Go(func() error {
			perFile[i] = e.ScanFile(f, opts)
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, fi := range perFile {
		total += len(fi)
	}
	issues := make([]models.ScanIssue, 0, total)
	for _, fi := range perFile {
		issues = append(issues, fi...)
	}

	stats.ScanDurationMs = time.Since(start).Milliseconds()
	SortIssues(issues)
	tally(&stats, issues, files)

	score := models.CalculateScore(stats)
	result := &models.ScanResult{
		ID:        uuid.NewString(),
		Issues:    issues,
		Stats:     stats,
		Score:     score,
		Health:    models.ScoreLabel(score),
		ScannedAt: time.Now().UTC(),
		Options:   opts,
	}

	e.log.Debug("scan complete",
		"id", result.ID,
		"files", stats.TotalFiles,
		"scanned", stats.ScannedFiles,
		"skipped", stats.SkippedFiles,
		"issues", stats.TotalIssues,
		"score", score,
		"duration_ms", stats.ScanDurationMs,
	)

	return result
}

// SortIssues orders issues by severity, critical first. Equal severities keep
// their relative order.
func SortIssues(issues []models.ScanIssue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Severity.Rank() > issues[j].Severity.Rank()
	})
}

func fileSize(f models.ScanFile) int64 {
	if f.Size == 0 && f.Content != "" {
		return int64(len(f.Content))
	}
	return f.Size
}

// tally fills the issue buckets. An issue's language comes from the first
// file whose path equals the issue's path.
func tally(stats *models.ScanStats, issues []models.ScanIssue, files []models.ScanFile) {
	langByPath := make(map[string]models.Language, len(files))
	for _, f := range files {
		if _, seen := langByPath[f.Path]; !seen {
			langByPath[f.Path] = f.Language
		}
	}

	stats.TotalIssues = len(issues)
	for _, is := range issues {
		stats.IssuesBySeverity[is.Severity]++
		stats.IssuesByCategory[is.Category]++
		if lang, ok := langByPath[is.FilePath]; ok {
			stats.IssuesByLanguage[lang]++
		}
	}
}
