package rules

import (
	"fmt"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

// SEC001

var hardcodedSecretsDef = models.RuleDefinition{
	ID:          "SEC001",
	Name:        "Hardcoded Secrets",
	Description: "Detects hardcoded API keys, passwords, tokens and other secrets in code.",
	Category:    models.CategorySecurity,
	Severity:    models.SeverityCritical,
	Languages:   allLanguages,
}

const secretSuggestion = "Move secrets to environment variables (e.g., process.env.MY_SECRET) and load them from a .env file with dotenv. Never commit secrets to version control."

func secretViolation(expr, label string) violation {
	return violation{
		pattern:    rx(expr),
		message:    fmt.Sprintf("Found %s in source code", label),
		suggestion: secretSuggestion,
	}
}

func newHardcodedSecretsRule() Rule {
	scan := lineScan{
		def: hardcodedSecretsDef,
		violations: []violation{
			secretViolation("(?i)(?:password|passwd|pwd)\\s*[:=]\\s*['\"`]([^'\"`\\s]{6,})['\"`]", "hardcoded password"),
			secretViolation("(?i)(?:api[_-]?key|apikey)\\s*[:=]\\s*['\"`]([^'\"`\\s]{8,})['\"`]", "hardcoded API key"),
			secretViolation("(?i)(?:secret[_-]?key|secret)\\s*[:=]\\s*['\"`]([^'\"`\\s]{8,})['\"`]", "hardcoded secret"),
			secretViolation("(?i)(?:access[_-]?token|auth[_-]?token)\\s*[:=]\\s*['\"`]([^'\"`\\s]{8,})['\"`]", "hardcoded token"),
			secretViolation("(?i)(?:private[_-]?key)\\s*[:=]\\s*['\"`]([^'\"`\\s]{8,})['\"`]", "hardcoded private key"),
			secretViolation(`sk-[a-zA-Z0-9]{32,}`, "OpenAI API key"),
			secretViolation(`ghp_[a-zA-Z0-9]{36}`, "GitHub personal access token"),
			secretViolation(`AKIA[0-9A-Z]{16}`, "AWS access key ID"),
			secretViolation(`(?i)(?:mysql|postgres|mongodb|redis)://[^:]+:[^@\s]+@`, "database connection string with credentials"),
		},
		safe: compile(
			`process\.env\.`,
			`os\.environ`,
			`getenv\(`,
			`config\.`,
			`\$\{`,
			`(?i)placeholder`,
			`(?i)example`,
			`(?i)your[_-]?key`,
			`(?i)xxx+`,
			`\*{3,}`,
		),
	}
	return New(hardcodedSecretsDef, scan.check)
}

// SEC002

var sqlInjectionDef = models.RuleDefinition{
	ID:          "SEC002",
	Name:        "SQL Injection Risk",
	Description: "Detects potential SQL injection vulnerabilities where user input is directly concatenated into SQL queries.",
	Category:    models.CategorySecurity,
	Severity:    models.SeverityCritical,
	Languages: []models.Language{
		models.LanguageJavaScript,
		models.LanguageTypeScript,
		models.LanguagePython,
		models.LanguagePHP,
		models.LanguageRuby,
		models.LanguageJava,
	},
}

func newSQLInjectionRule() Rule {
	const (
		message    = "Potential SQL injection: user input concatenated into SQL query"
		suggestion = "Use parameterized queries or prepared statements. Example: db.query('SELECT * FROM users WHERE id = ?', [userId]) instead of string concatenation."
		notEnv     = `^process\.env`
	)

	patterns := []finder{
		rx("(?i)['\"`]\\s*\\+\\s*(?:req\\.|request\\.|params\\.|query\\.|body\\.|input)"),
		rx(`(?i)(?:SELECT|INSERT|UPDATE|DELETE|DROP|CREATE|ALTER).*\+\s*(?:req|request|params|query|body|input|user)`),
		rx("(?i)execute\\s*\\(\\s*['\"`].*\\+"),
		rx("(?i)cursor\\.execute\\s*\\(\\s*['\"`].*%\\s*(?:req|request|params|query|body|input)"),
		guarded("(?i)db\\.query\\s*\\(\\s*[`'\"]", `\$\{`, notEnv),
		guarded("(?i)\\.raw\\s*\\(\\s*[`'\"]", `\$\{`, notEnv),
		guarded("(?i)f['\"`].*?(?:SELECT|INSERT|UPDATE|DELETE)", `\{`, notEnv),
		rx(`(?i)String\.format\s*\(.*(?:SELECT|INSERT|UPDATE|DELETE)`),
	}

	scan := lineScan{
		def: sqlInjectionDef,
		safe: compile(
			`\?\s*,`,
			`\$\d+`,
			`(?i)parameterized`,
			`(?i)prepared`,
			`(?i)placeholder`,
			`(?i)sanitize`,
			`(?i)escape`,
		),
	}
	for _, p := range patterns {
		scan.violations = append(scan.violations, violation{pattern: p, message: message, suggestion: suggestion})
	}

	return New(sqlInjectionDef, scan.check)
}

// SEC003

var missingAuthDef = models.RuleDefinition{
	ID:          "SEC003",
	Name:        "Missing Authentication",
	Description: "Detects API routes that may be missing authentication middleware.",
	Category:    models.CategorySecurity,
	Severity:    models.SeverityHigh,
	Languages: []models.Language{
		models.LanguageJavaScript,
		models.LanguageTypeScript,
		models.LanguagePython,
		models.LanguageGo,
		models.LanguagePHP,
		models.LanguageRuby,
	},
}

var (
	authRoutePatterns = compile(
		"(?i)(?:app|router)\\.(get|post|put|patch|delete)\\s*\\(\\s*['\"`]([^'\"`]+)['\"`]\\s*,\\s*(?:async\\s*)?\\((?:req|request)",
		`(?i)@(?:Get|Post|Put|Patch|Delete)Mapping\s*\(`,
		`(?i)Route::(get|post|put|patch|delete)\s*\(`,
		`(?i)@app\.route\s*\(`,
		`(?i)r\.(GET|POST|PUT|PATCH|DELETE)\s*\(`,
	)

	authMarkers = compile(
		`(?i)authenticate`,
		`(?i)authorize`,
		`(?i)isAuthenticated`,
		`(?i)requireAuth`,
		`(?i)authMiddleware`,
		`(?i)verifyToken`,
		`(?i)passport\.`,
		`(?i)jwt\.`,
		`(?i)session\.`,
		`(?i)@(?:Auth|Protected|Secured|Guard)`,
		`(?i)login_required`,
		`(?i)middleware\.auth`,
		`(?i)auth\.required`,
		`(?i)checkAuth`,
		`(?i)ensureAuth`,
	)

	sensitiveRoutes = compile(
		`(?i)/admin`,
		`(?i)/user`,
		`(?i)/profile`,
		`(?i)/account`,
		`(?i)/dashboard`,
		`(?i)/settings`,
		`(?i)/payment`,
		`(?i)/order`,
		`(?i)/private`,
		`(?i)/secure`,
		`(?i)/delete`,
		`(?i)/update`,
	)
)

// checkMissingAuth reports sensitive routes with no auth marker within
// three lines before or four lines after the declaration.
func checkMissingAuth(file models.ScanFile) []models.ScanIssue {
	var issues []models.ScanIssue
	lines := splitLines(file.Content)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isComment(trimmed) {
			continue
		}
		if !anyMatch(sensitiveRoutes, line) {
			continue
		}

		for _, p := range authRoutePatterns {
			loc := p.FindStringIndex(line)
			if loc == nil {
				continue
			}
			if anyMatch(authMarkers, window(lines, i-3, i+5)) {
				break
			}

			route := truncate(line[loc[0]:loc[1]], 60)
			issues = append(issues, newIssue(missingAuthDef, file, i, column(line, loc[0]), trimmed,
				fmt.Sprintf("Sensitive route \"%s\" may be missing authentication middleware", route),
				"Add authentication middleware to protect this route. Example: router.get('/admin', authenticate, handler) or use a global auth middleware for all protected routes."))
			break
		}
	}

	return issues
}

// SEC004

var corsDef = models.RuleDefinition{
	ID:          "SEC004",
	Name:        "CORS Misconfiguration",
	Description: "Detects overly permissive CORS configurations that may expose APIs to cross-origin attacks.",
	Category:    models.CategorySecurity,
	Severity:    models.SeverityHigh,
	Languages:   allLanguages,
}

var corsCredentials = compile(
	`(?i)credentials\s*:\s*true`,
	`(?i)Access-Control-Allow-Credentials.*true`,
	`(?i)withCredentials\s*:\s*true`,
)

const corsCredentialsNote = " Combined with credentials:true, this is a critical security vulnerability."

func newCORSRule() Rule {
	const (
		message    = "Wildcard CORS origin (*) allows any domain to access this API."
		suggestion = "Restrict CORS to specific trusted origins. Example: cors({ origin: ['https://yourdomain.com', 'https://app.yourdomain.com'] }). Never use wildcard with credentials."
	)

	patterns := []finder{
		rx("(?i)(?:origin|Access-Control-Allow-Origin)\\s*[:=]\\s*['\"`]\\*['\"`]"),
		rx("(?i)cors\\s*\\(\\s*\\{\\s*origin\\s*:\\s*['\"`]\\*['\"`]"),
		guarded(`(?i)cors\s*\(\s*\)`, "", `(?i)^.*origin`),
		rx(`(?i)add_header\s+Access-Control-Allow-Origin\s+\*`),
		rx("(?i)response\\.headers\\[['\"]Access-Control-Allow-Origin['\"]\\]\\s*=\\s*['\"`]\\*['\"`]"),
		rx("(?i)w\\.Header\\(\\)\\.Set\\s*\\(\\s*['\"]Access-Control-Allow-Origin['\"]\\s*,\\s*['\"`]\\*['\"`]\\)"),
		rx(`(?i)\.AllowAllOrigins\s*\(\s*\)`),
		rx("(?i)CORS_ORIGIN\\s*=\\s*['\"`]\\*['\"`]"),
	}

	scan := lineScan{def: corsDef}
	for _, p := range patterns {
		scan.violations = append(scan.violations, violation{pattern: p, message: message, suggestion: suggestion})
	}

	return New(corsDef, func(file models.ScanFile) []models.ScanIssue {
		issues := scan.check(file)
		if len(issues) == 0 || !anyMatch(corsCredentials, file.Content) {
			return issues
		}

		// Wildcard origin with credentials anywhere in the file escalates every finding.
		for i := range issues {
			issues[i].Severity = models.SeverityCritical
			issues[i].Message += corsCredentialsNote
		}
		return issues
	})
}

// SEC005

var rateLimitDef = models.RuleDefinition{
	ID:          "SEC005",
	Name:        "Missing Rate Limiting",
	Description: "Detects API endpoints that may be missing rate limiting, making them vulnerable to brute force and DoS attacks.",
	Category:    models.CategorySecurity,
	Severity:    models.SeverityMedium,
	Languages:   allLanguages,
}

var rateLimitMarkers = compile(
	`(?i)rateLimit`,
	`(?i)rate[_-]limit`,
	`(?i)throttle`,
	`(?i)RateLimiter`,
	`(?i)slowDown`,
	`(?i)limiter`,
	`(?i)express-rate-limit`,
	`(?i)flask[_-]limiter`,
	`(?i)django[_-]ratelimit`,
	`(?i)golang\.org/x/time/rate`,
	`(?i)rate\.NewLimiter`,
	`(?i)bucket4j`,
	`(?i)guava.*RateLimiter`,
)

func newRateLimitRule() Rule {
	const (
		message    = "Authentication endpoint detected without rate limiting; vulnerable to brute force attacks"
		suggestion = "Add rate limiting to authentication endpoints. Example with express-rate-limit: const limiter = rateLimit({ windowMs: 15 * 60 * 1000, max: 5 }); router.post('/login', limiter, handler)"
	)

	patterns := []finder{
		rx("(?i)(?:app|router)\\.(post)\\s*\\(\\s*['\"`][^'\"`]*(?:login|signin|auth|register|signup|password|token)[^'\"`]*['\"`]"),
		rx("(?i)@PostMapping\\s*\\(\\s*['\"`][^'\"`]*(?:login|signin|auth|register)[^'\"`]*['\"`]"),
		rx("(?i)Route::post\\s*\\(\\s*['\"`][^'\"`]*(?:login|signin|auth|register)[^'\"`]*['\"`]"),
	}

	// Auth endpoints are reported above the rule's default severity.
	scan := lineScan{def: rateLimitDef, severity: models.SeverityHigh}
	for _, p := range patterns {
		scan.violations = append(scan.violations, violation{pattern: p, message: message, suggestion: suggestion})
	}

	return New(rateLimitDef, func(file models.ScanFile) []models.ScanIssue {
		if anyMatch(rateLimitMarkers, file.Content) {
			return nil
		}
		return scan.check(file)
	})
}

// SEC006

var xssDef = models.RuleDefinition{
	ID:          "SEC006",
	Name:        "Cross-Site Scripting Risk",
	Description: "Detects untrusted data written into HTML without escaping, through DOM sinks, unescaped template output or reflected request input.",
	Category:    models.CategorySecurity,
	Severity:    models.SeverityHigh,
	Languages: []models.Language{
		models.LanguageJavaScript,
		models.LanguageTypeScript,
		models.LanguagePython,
		models.LanguagePHP,
		models.LanguageRuby,
		models.LanguageJava,
	},
}

var xssSafeMarkers = compile(
	`DOMPurify`,
	`(?i)sanitize`,
	`(?i)escape`,
	`htmlspecialchars`,
	`htmlentities`,
	`textContent`,
	`encodeURIComponent`,
	`bleach\.`,
)

func newXSSRule() Rule {
	const escapeHint = " Escape output with the template engine's default escaping or sanitize it with a library such as DOMPurify."

	scan := lineScan{
		def: xssDef,
		violations: []violation{
			{
				pattern:    guarded(`\.(?:innerHTML|outerHTML)\s*\+?=`, "", "^\\s*(?:''|\"\"|``)\\s*;?\\s*$"),
				message:    "Assignment to innerHTML/outerHTML can inject untrusted markup",
				suggestion: "Use textContent for plain text, or build nodes with document.createElement." + escapeHint,
			},
			{
				pattern:    rx(`dangerouslySetInnerHTML`),
				message:    "dangerouslySetInnerHTML renders raw HTML",
				suggestion: "Render data as React children so it is escaped, or sanitize the HTML before passing it in.",
			},
			{
				pattern:    rx(`document\.write(?:ln)?\s*\(`),
				message:    "document.write() injects markup into the page",
				suggestion: "Create DOM nodes explicitly and set their textContent instead of writing markup.",
			},
			{
				pattern:    rx(`v-html\s*=`),
				message:    "v-html renders raw HTML",
				suggestion: "Use text interpolation ({{ }}) which escapes output." + escapeHint,
			},
			{
				pattern:    rx(`res\.send\s*\(.*req\.(?:query|params|body)`),
				message:    "Request input reflected directly into the response body",
				suggestion: "Return JSON with res.json() or escape request data before embedding it in HTML.",
			},
			{
				pattern:    rx(`<%-|<%==|<%=\s*raw\b|\{\{\{`),
				message:    "Unescaped template output",
				suggestion: "Use the escaping form of the template tag (<%= %>, {{ }})." + escapeHint,
			},
			{
				pattern:    rx(`\|\s*safe\b|mark_safe\s*\(|Markup\s*\(|\.html_safe\b`),
				message:    "Template output marked safe bypasses autoescaping",
				suggestion: "Only mark trusted, static markup as safe. Let the template engine escape user data.",
			},
			{
				pattern:    rx(`echo\s+\$_(?:GET|POST|REQUEST)\[`),
				message:    "Request parameter echoed without escaping",
				suggestion: "Wrap output in htmlspecialchars($value, ENT_QUOTES, 'UTF-8').",
			},
			{
				pattern:    rx(`getWriter\(\)\.(?:print|println|write)\s*\(.*getParameter\s*\(`),
				message:    "Request parameter written to the servlet response without escaping",
				suggestion: "Encode output with an HTML encoder such as OWASP Java Encoder before writing it.",
			},
		},
		safe: xssSafeMarkers,
	}

	return New(xssDef, scan.check)
}
