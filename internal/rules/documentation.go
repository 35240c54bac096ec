package rules

import (
	"fmt"

	"github.com/ppiankov/apispectre/internal/models"
)

var docsDef = models.RuleDefinition{
	ID:          "DOC001",
	Name:        "Missing API Documentation",
	Description: "Detects API routes that lack OpenAPI/Swagger documentation comments.",
	Category:    models.CategoryDocumentation,
	Severity:    models.SeverityLow,
	Languages:   allLanguages,
}

// Any doc comment or docstring in the file counts as documentation.
func newDocsRule() Rule {
	c := countedRoutes{
		def: docsDef,
		global: compile(
			`(?s)/\*\*.*?\*/`,
			`(?i)@swagger`,
			`(?i)@openapi`,
			`(?i)\* @param`,
			`(?i)\* @returns`,
			`(?i)\* @response`,
			`#\s*---`,
			`(?i)openapi:`,
			`(?i)swagger:`,
			`(?s)""".*?"""`,
			`(?s)'''.*?'''`,
		),
		patterns: compile(
			"(?i)(?:app|router)\\.(get|post|put|patch|delete)\\s*\\(\\s*['\"`][^'\"`]+['\"`]",
			`(?i)@(?:Get|Post|Put|Patch|Delete)Mapping`,
			`(?i)Route::(get|post|put|patch|delete)\s*\(`,
		),
		threshold: 1,
		message: func(n int) string {
			return fmt.Sprintf("%d API route(s) found without OpenAPI/Swagger documentation", n)
		},
		suggest: "Add JSDoc/OpenAPI comments to document your API endpoints. Example:\n/**\n * @swagger\n * /users:\n *   get:\n *     summary: Get all users\n *     responses:\n *       200:\n *         description: Success\n */\nConsider using swagger-jsdoc and swagger-ui-express to auto-generate API docs.",
	}
	return New(docsDef, c.check)
}
