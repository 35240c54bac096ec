package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

// BP001

var inputValidationDef = models.RuleDefinition{
	ID:          "BP001",
	Name:        "Missing Input Validation",
	Description: "Detects API endpoints that use request body/query parameters without validation.",
	Category:    models.CategoryBestPractices,
	Severity:    models.SeverityHigh,
	Languages:   allLanguages,
}

func newInputValidationRule() Rule {
	c := countedRoutes{
		def: inputValidationDef,
		global: compile(
			`(?i)joi\.`,
			`(?i)yup\.`,
			`(?i)zod\.`,
			`(?i)celebrate\(`,
			`(?i)express-validator`,
			`(?i)validator\.`,
			`(?i)validate\s*\(`,
			`(?i)schema\.parse`,
			`(?i)schema\.validate`,
			`(?i)marshmallow`,
			`(?i)pydantic`,
			`(?i)class-validator`,
			`(?i)@IsString\(`,
			`(?i)@IsNumber\(`,
			`(?i)@IsEmail\(`,
			`(?i)@Valid\b`,
			`(?i)@NotNull\b`,
			`(?i)binding\.ShouldBind`,
			`(?i)c\.ShouldBindJSON`,
		),
		patterns: compile(
			`(?i)req\.body\.\w+`,
			`(?i)request\.body\.\w+`,
			`(?i)req\.query\.\w+`,
			`(?i)request\.query\.\w+`,
			`(?i)req\.params\.\w+`,
			`(?i)request\.data\[`,
			`(?i)request\.form\[`,
			`(?i)request\.args\[`,
			`(?i)\$_POST\[`,
			`(?i)\$_GET\[`,
			`(?i)\$_REQUEST\[`,
			`(?i)c\.Param\s*\(`,
			`(?i)c\.Query\s*\(`,
		),
		threshold: 2,
		message: func(n int) string {
			return fmt.Sprintf("Request data accessed %d times without input validation", n)
		},
		suggest: "Add input validation using a schema validation library. Example with Zod:\nconst schema = z.object({ name: z.string().min(1), email: z.string().email() });\nconst data = schema.parse(req.body);\nOr use Joi, Yup, express-validator, or framework-specific validators.",
	}
	return New(inputValidationDef, c.check)
}

// BP002

var sensitiveExposureDef = models.RuleDefinition{
	ID:          "BP002",
	Name:        "Sensitive Data Exposure",
	Description: "Detects API responses that may expose sensitive user data like passwords, tokens, or PII.",
	Category:    models.CategoryBestPractices,
	Severity:    models.SeverityHigh,
	Languages:   allLanguages,
}

type sensitiveField struct {
	pattern *regexp.Regexp
	field   string
}

var (
	sensitiveFields = []sensitiveField{
		{regexp.MustCompile(`(?i)\.password\b`), "password"},
		{regexp.MustCompile(`(?i)\.passwordHash\b`), "passwordHash"},
		{regexp.MustCompile(`(?i)\.hashedPassword\b`), "hashedPassword"},
		{regexp.MustCompile(`(?i)\.salt\b`), "salt"},
		{regexp.MustCompile(`(?i)\.secret\b`), "secret"},
		{regexp.MustCompile(`(?i)\.privateKey\b`), "privateKey"},
		{regexp.MustCompile(`(?i)\.creditCard\b`), "creditCard"},
		{regexp.MustCompile(`(?i)\.cardNumber\b`), "cardNumber"},
		{regexp.MustCompile(`(?i)\.ssn\b`), "SSN"},
		{regexp.MustCompile(`(?i)\.socialSecurity\b`), "social security number"},
	}

	responsePatterns = compile(
		`(?i)res\.(?:json|send)\s*\(`,
		`(?i)return\s+(?:res\.)?json\s*\(`,
		`(?i)response\.json\s*\(`,
		`(?i)jsonify\s*\(`,
		`(?i)render_json\s*\(`,
	)

	responseExclusions = compile(
		`(?i)select:`,
		`(?i)omit:`,
		`(?i)exclude:`,
		`\.toJSON\s*\(\s*\)`,
		`\.toObject\s*\(\s*\)`,
		`delete\s+\w+\.\w+`,
	)
)

// checkSensitiveExposure looks for sensitive fields from five lines before a
// response call through the line after it.
func checkSensitiveExposure(file models.ScanFile) []models.ScanIssue {
	var issues []models.ScanIssue
	lines := splitLines(file.Content)

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isComment(trimmed) {
			continue
		}
		if !anyMatch(responsePatterns, line) || anyMatch(responseExclusions, line) {
			continue
		}

		context := window(lines, i-5, i+2)
		for _, f := range sensitiveFields {
			if !f.pattern.MatchString(context) {
				continue
			}
			issues = append(issues, newIssue(sensitiveExposureDef, file, i, 1, trimmed,
				fmt.Sprintf("Potential exposure of sensitive field %q in API response", f.field),
				"Remove sensitive fields before sending responses. Use field selection in queries (Prisma: select: { password: false }) or explicitly delete them: delete user.password; Or use a DTO/serializer to control what data is exposed."))
			break
		}
	}

	return issues
}
