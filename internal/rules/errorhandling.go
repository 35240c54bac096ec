package rules

import (
	"regexp"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

var jsLanguages = []models.Language{models.LanguageJavaScript, models.LanguageTypeScript}

// ERR001

var missingTryCatchDef = models.RuleDefinition{
	ID:          "ERR001",
	Name:        "Missing Error Handling",
	Description: "Detects async route handlers and database operations that lack try-catch error handling.",
	Category:    models.CategoryErrorHandling,
	Severity:    models.SeverityHigh,
	Languages:   jsLanguages,
}

var (
	asyncHandlerPattern = regexp.MustCompile("(?i)(?:app|router)\\.(get|post|put|patch|delete)\\s*\\(\\s*['\"`][^'\"`]+['\"`]\\s*,\\s*async\\s*(?:\\([^)]*\\)|[a-zA-Z]+)\\s*=>\\s*\\{")
	dbOperationPattern  = regexp.MustCompile(`(?i)(?:await\s+)?(?:db|prisma|mongoose|sequelize|knex|pool|connection|query|Model)\s*[.(]`)
	tryBlockPattern     = regexp.MustCompile(`(?i)try\s*\{`)
	awaitPattern        = regexp.MustCompile(`await`)
)

// handlerState tracks the async handler currently being read
type handlerState struct {
	tracking  bool
	startLine int
	depth     int // brace depth when the handler started
	hasTry    bool
	hasDBOp   bool
}

// checkMissingTryCatch follows brace depth through the file. Comment lines
// are ignored entirely, braces included.
func checkMissingTryCatch(file models.ScanFile) []models.ScanIssue {
	const (
		message    = "Async route handler with database operations lacks try-catch error handling"
		suggestion = "Wrap async operations in try-catch blocks. Example:\nasync (req, res) => {\n  try {\n    const result = await db.query(...);\n    res.json(result);\n  } catch (error) {\n    res.status(500).json({ error: 'Internal server error' });\n  }\n}"
	)

	var issues []models.ScanIssue
	lines := splitLines(file.Content)

	depth := 0
	var h handlerState

	for i, line := range lines {
		if isSlashComment(strings.TrimSpace(line)) {
			continue
		}

		if !h.tracking && asyncHandlerPattern.MatchString(line) {
			h = handlerState{tracking: true, startLine: i, depth: depth}
		}

		if h.tracking {
			if tryBlockPattern.MatchString(line) {
				h.hasTry = true
			}
			if dbOperationPattern.MatchString(line) && awaitPattern.MatchString(line) {
				h.hasDBOp = true
			}
		}

		for _, ch := range line {
			switch ch {
			case '{':
				depth++
			case '}':
				depth--
				if h.tracking && depth <= h.depth {
					if h.hasDBOp && !h.hasTry {
						issues = append(issues, newIssue(missingTryCatchDef, file, h.startLine, 1,
							strings.TrimSpace(lines[h.startLine]), message, suggestion))
					}
					h.tracking = false
				}
			}
		}
	}

	return issues
}

// ERR002

var unhandledPromiseDef = models.RuleDefinition{
	ID:          "ERR002",
	Name:        "Unhandled Promise Rejection",
	Description: "Detects Promise chains and async calls that lack .catch() or try-catch error handling.",
	Category:    models.CategoryErrorHandling,
	Severity:    models.SeverityHigh,
	Languages:   jsLanguages,
}

var (
	promiseChainPatterns = compile(
		`(?i)(?:fetch|axios|got|request|http\.get|https\.get)\s*\([^)]*\)\s*\.then\s*\([^)]*\)`,
		`(?i)new\s+Promise\s*\([^)]*\)\s*\.then\s*\([^)]*\)`,
	)
	bareThenPattern = regexp.MustCompile(`(?i)\.then\s*\(\s*(?:async\s*)?\([^)]*\)\s*=>\s*\{[^}]*\}\s*\)\s*;`)
)

// checkUnhandledPromise reports at most one issue per line. A promise chain
// with no ".catch" in the line or the two after it is reported at the rule's
// severity; otherwise a closed ".then(...);" with no catch on the next line is
// reported at medium.
func checkUnhandledPromise(file models.ScanFile) []models.ScanIssue {
	var issues []models.ScanIssue
	lines := splitLines(file.Content)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isSlashComment(trimmed) {
			continue
		}

		reported := false
		for _, p := range promiseChainPatterns {
			loc := p.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if !strings.Contains(strings.Join(lines[i:min(i+3, len(lines))], " "), ".catch") {
				issues = append(issues, newIssue(unhandledPromiseDef, file, i, column(line, loc[0]), trimmed,
					"Promise chain missing .catch() error handler",
					"Add .catch() to handle promise rejections, or use async/await with try-catch. Example: fetch(url).then(handler).catch(err => console.error(err))"))
				reported = true
			}
			break
		}
		if reported {
			continue
		}

		loc := bareThenPattern.FindStringIndex(line)
		if loc == nil {
			continue
		}

		next := ""
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		if strings.Contains(next, "catch") {
			continue
		}

		is := newIssue(unhandledPromiseDef, file, i, column(line, loc[0]), trimmed,
			"Promise .then() without .catch() may cause unhandled rejection",
			"Always add .catch() after .then() chains to handle errors gracefully.")
		is.Severity = models.SeverityMedium
		issues = append(issues, is)
	}

	return issues
}

// ERR003

var errorFormatDef = models.RuleDefinition{
	ID:          "ERR003",
	Name:        "Inconsistent Error Response Format",
	Description: "Detects error responses that don't follow a consistent structure, making client-side error handling harder.",
	Category:    models.CategoryErrorHandling,
	Severity:    models.SeverityMedium,
	Languages:   allLanguages,
}

func newErrorFormatRule() Rule {
	scan := lineScan{
		def: errorFormatDef,
		violations: []violation{
			{
				pattern:    rx(`(?i)res\.status\s*\(\s*(?:4\d\d|5\d\d)\s*\)\.(?:send|json)\s*\(\s*(?:err\.message|error\.message|e\.message|err\.toString\(\)|error\.toString\(\))\s*\)`),
				message:    "Sending raw error message directly to client",
				suggestion: "Use a consistent error response format: res.status(500).json({ error: 'Internal server error', code: 'INTERNAL_ERROR' }). Never expose raw error messages to clients as they may leak sensitive information.",
			},
			{
				pattern:    rx(`(?i)res\.status\s*\(\s*(?:4\d\d|5\d\d)\s*\)\.(?:send|json)\s*\(\s*err\s*\)`),
				message:    "Sending raw error object directly to client",
				suggestion: "Never send raw error objects to clients. Use a structured error format: { error: 'message', code: 'ERROR_CODE', details?: [...] }",
			},
			{
				pattern:    rx(`(?i)res\.(?:send|json)\s*\(\s*\{\s*(?:error|message)\s*:\s*err(?:\.message)?\s*\}\s*\)`),
				message:    "Exposing raw error details in response",
				suggestion: "Sanitize error messages before sending to clients. Log the full error server-side and return a safe, user-friendly message.",
			},
			{
				pattern:    guarded(`(?i)console\.error\s*\(\s*err\s*\)\s*;`, "", `(?i)^.*res\.status`),
				message:    "Error logged but no error response sent to client",
				suggestion: "After logging the error, send an appropriate error response to the client.",
			},
		},
	}
	return New(errorFormatDef, scan.check)
}
