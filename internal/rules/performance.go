package rules

import (
	"fmt"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

// PERF001

var paginationDef = models.RuleDefinition{
	ID:          "PERF001",
	Name:        "Missing Pagination",
	Description: "Detects API endpoints that return collections without pagination, which can cause performance issues with large datasets.",
	Category:    models.CategoryPerformance,
	Severity:    models.SeverityMedium,
	Languages:   allLanguages,
}

var (
	collectionQueryPatterns = compile(
		`(?i)(?:findAll|findMany|find\(\)|getAll|fetchAll|selectAll|\.all\(\))`,
		`(?i)(?:Model|db|prisma|mongoose|sequelize)\.\w+\.find\s*\(\s*\)`,
		`(?i)SELECT\s+\*\s+FROM\s+\w+\s*(?:WHERE[^;]*)?;`,
		`(?i)\.find\s*\(\s*\{\s*\}\s*\)`,
		`(?i)collection\.find\s*\(\s*\)`,
	)

	paginationMarkers = compile(
		`(?i)limit`,
		`(?i)offset`,
		`(?i)page`,
		`(?i)skip`,
		`(?i)take`,
		`(?i)perPage`,
		`(?i)per_page`,
		`(?i)pageSize`,
		`(?i)page_size`,
		`(?i)cursor`,
		`(?i)LIMIT\s+\d+`,
	)
)

// checkMissingPagination reports collection queries with no pagination
// marker from two lines before to four lines after.
func checkMissingPagination(file models.ScanFile) []models.ScanIssue {
	var issues []models.ScanIssue
	lines := splitLines(file.Content)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isComment(trimmed) {
			continue
		}
		if anyMatch(paginationMarkers, window(lines, i-2, i+5)) {
			continue
		}

		for _, p := range collectionQueryPatterns {
			loc := p.FindStringIndex(line)
			if loc == nil {
				continue
			}
			issues = append(issues, newIssue(paginationDef, file, i, column(line, loc[0]), trimmed,
				"Collection query without pagination; may return unbounded results",
				"Add pagination to collection endpoints. Example: const { page = 1, limit = 20 } = req.query; const items = await Model.findMany({ skip: (page-1)*limit, take: limit }); Return total count and pagination metadata in response."))
			break
		}
	}

	return issues
}

// PERF002

var nPlusOneDef = models.RuleDefinition{
	ID:          "PERF002",
	Name:        "N+1 Query Problem",
	Description: "Detects potential N+1 query patterns where database queries are made inside loops.",
	Category:    models.CategoryPerformance,
	Severity:    models.SeverityHigh,
	Languages:   allLanguages,
}

var (
	loopPatterns = compile(
		`(?i)for\s*\(`,
		`(?i)\.forEach\s*\(`,
		`(?i)\.map\s*\(`,
		`(?i)\.filter\s*\(`,
		`(?i)\.reduce\s*\(`,
		`(?i)while\s*\(`,
		`(?i)for\s+\w+\s+in\s+`,
		`(?i)for\s+\w+\s+of\s+`,
	)

	loopQueryPatterns = compile(
		`(?i)await\s+\w+\.find(?:One|ById|By)?\s*\(`,
		`(?i)await\s+db\.\w+\s*\(`,
		`(?i)await\s+prisma\.\w+\.\w+\s*\(`,
		`(?i)await\s+\w+\.query\s*\(`,
		`(?i)await\s+\w+\.execute\s*\(`,
		`(?i)\$\w+->find\s*\(`,
		`(?i)Model\.where\s*\(`,
		`(?i)\.objects\.get\s*\(`,
		`(?i)\.objects\.filter\s*\(`,
	)
)

// loopState tracks the loop body currently being read
type loopState struct {
	tracking bool
	depth    int // brace depth when the loop started
}

// checkNPlusOne reports every query line inside a loop body. Braces on
// comment lines still count toward depth.
func checkNPlusOne(file models.ScanFile) []models.ScanIssue {
	const (
		message    = "Database query inside a loop; potential N+1 query problem"
		suggestion = "Avoid database queries inside loops. Instead, collect all IDs first, then fetch all records in a single query. Example: const ids = items.map(i => i.id); const records = await Model.findMany({ where: { id: { in: ids } } });"
	)

	var issues []models.ScanIssue
	depth := 0
	var loop loopState

	for i, line := range splitLines(file.Content) {
		trimmed := strings.TrimSpace(line)
		if isComment(trimmed) {
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			continue
		}

		if !loop.tracking && anyMatch(loopPatterns, line) {
			loop = loopState{tracking: true, depth: depth}
		}

		if loop.tracking && anyMatch(loopQueryPatterns, line) {
			issues = append(issues, newIssue(nPlusOneDef, file, i, 1, trimmed, message, suggestion))
		}

		for _, ch := range line {
			switch ch {
			case '{':
				depth++
			case '}':
				depth--
				if loop.tracking && depth <= loop.depth {
					loop.tracking = false
				}
			}
		}
	}

	return issues
}

// PERF003

var cacheDef = models.RuleDefinition{
	ID:          "PERF003",
	Name:        "Missing Cache Headers",
	Description: "Detects GET endpoints that return data without setting appropriate cache headers.",
	Category:    models.CategoryPerformance,
	Severity:    models.SeverityLow,
	Languages:   allLanguages,
}

func newCacheRule() Rule {
	c := countedRoutes{
		def: cacheDef,
		global: compile(
			`(?i)Cache-Control`,
			`(?i)ETag`,
			`(?i)Last-Modified`,
			`(?i)cache`,
			`(?i)redis`,
			`(?i)memcache`,
			`(?i)setHeader.*cache`,
		),
		patterns: compile(
			"(?i)(?:app|router)\\.get\\s*\\(\\s*['\"`][^'\"`]+['\"`]\\s*,",
			`(?i)@GetMapping`,
			`(?i)Route::get\s*\(`,
			`(?i)r\.GET\s*\(`,
		),
		threshold: 2,
		message: func(n int) string {
			return fmt.Sprintf("%d GET endpoints found without any caching strategy", n)
		},
		suggest: "Consider adding cache headers to GET endpoints: res.set('Cache-Control', 'public, max-age=300'). For dynamic data, use ETag or Last-Modified headers. For heavy queries, consider Redis caching.",
	}
	return New(cacheDef, c.check)
}
