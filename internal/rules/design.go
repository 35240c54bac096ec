package rules

import (
	"fmt"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

// DES001

var httpMethodsDef = models.RuleDefinition{
	ID:          "DES001",
	Name:        "Incorrect HTTP Method Usage",
	Description: "Detects incorrect HTTP method usage that violates REST conventions.",
	Category:    models.CategoryDesign,
	Severity:    models.SeverityMedium,
	Languages:   allLanguages,
}

func newHTTPMethodsRule() Rule {
	scan := lineScan{
		def: httpMethodsDef,
		violations: []violation{
			{
				pattern:    rx("(?i)(?:app|router)\\.get\\s*\\(\\s*['\"`][^'\"`]*(?:create|add|new|insert|register|signup)[^'\"`]*['\"`]"),
				message:    "GET route used for resource creation; should use POST",
				suggestion: "Use POST for creating resources. GET requests should be idempotent and only retrieve data.",
			},
			{
				pattern:    rx("(?i)(?:app|router)\\.get\\s*\\(\\s*['\"`][^'\"`]*(?:delete|remove|destroy)[^'\"`]*['\"`]"),
				message:    "GET route used for resource deletion; should use DELETE",
				suggestion: "Use DELETE for removing resources. GET requests should never have side effects.",
			},
			{
				pattern:    rx("(?i)(?:app|router)\\.get\\s*\\(\\s*['\"`][^'\"`]*(?:update|edit|modify|change)[^'\"`]*['\"`]"),
				message:    "GET route used for resource update; should use PUT or PATCH",
				suggestion: "Use PUT for full updates or PATCH for partial updates. GET requests must be read-only.",
			},
			{
				pattern:    rx("(?i)(?:app|router)\\.post\\s*\\(\\s*['\"`][^'\"`]*(?:delete|remove|destroy)[^'\"`]*['\"`]"),
				message:    "POST route used for resource deletion; should use DELETE",
				suggestion: "Use the DELETE HTTP method for deleting resources to follow REST conventions.",
			},
			{
				pattern:    rx("(?i)(?:app|router)\\.post\\s*\\(\\s*['\"`][^'\"`]*(?:getAll|getList|list|fetch)[^'\"`]*['\"`]"),
				message:    "POST route used for data retrieval; should use GET",
				suggestion: "Use GET for retrieving data. POST should be reserved for creating resources.",
			},
		},
	}
	return New(httpMethodsDef, scan.check)
}

// DES002

var statusCodesDef = models.RuleDefinition{
	ID:          "DES002",
	Name:        "Incorrect HTTP Status Codes",
	Description: "Detects incorrect or inconsistent HTTP status code usage in API responses.",
	Category:    models.CategoryDesign,
	Severity:    models.SeverityMedium,
	Languages:   allLanguages,
}

func newStatusCodesRule() Rule {
	scan := lineScan{
		def: statusCodesDef,
		violations: []violation{
			{
				pattern:    rx(`(?i)res\.status\s*\(\s*200\s*\).*(?:delete|remove|destroy)`),
				message:    "Using 200 for DELETE operations; should use 204 No Content",
				suggestion: "Return 204 No Content for successful DELETE operations that return no body, or 200 with a body if returning the deleted resource.",
			},
			{
				pattern:    rx(`(?i)res\.status\s*\(\s*200\s*\).*(?:create|insert|new)`),
				message:    "Using 200 for resource creation; should use 201 Created",
				suggestion: "Return 201 Created when a new resource is successfully created. Include a Location header pointing to the new resource.",
			},
			{
				pattern:    rx(`(?i)res\.status\s*\(\s*(?:200|201)\s*\).*(?:error|fail|invalid|not found)`),
				message:    "Using success status code for error responses",
				suggestion: "Use appropriate error status codes: 400 (Bad Request), 401 (Unauthorized), 403 (Forbidden), 404 (Not Found), 422 (Unprocessable Entity), 500 (Internal Server Error).",
			},
			{
				pattern:    rx(`(?i)res\.status\s*\(\s*500\s*\).*(?:not found|missing|no such)`),
				message:    "Using 500 for 'not found' errors; should use 404",
				suggestion: "Use 404 Not Found when a requested resource doesn't exist. Reserve 500 for unexpected server errors.",
			},
			{
				pattern:    rx(`(?i)res\.status\s*\(\s*403\s*\).*(?:login|authenticate|token)`),
				message:    "Using 403 Forbidden for unauthenticated requests; should use 401",
				suggestion: "Use 401 Unauthorized when the user is not authenticated (no valid credentials). Use 403 Forbidden when the user is authenticated but lacks permission.",
			},
			{
				pattern:    rx(`(?i)(?:return|send|respond).*status.*200.*(?:error|exception|fail)`),
				message:    "Returning 200 OK with an error in the body",
				suggestion: "Use appropriate HTTP error status codes instead of returning errors in a 200 response body. This breaks REST conventions and makes error handling harder for clients.",
			},
		},
	}
	return New(statusCodesDef, scan.check)
}

// DES003

var versioningDef = models.RuleDefinition{
	ID:          "DES003",
	Name:        "Missing API Versioning",
	Description: "Detects API routes that lack versioning, which makes backward-compatible changes harder.",
	Category:    models.CategoryDesign,
	Severity:    models.SeverityLow,
	Languages:   allLanguages,
}

// unversionedSkipPaths are infrastructure endpoints that never need a version
var unversionedSkipPaths = []string{"/health", "/ping", "/status", "/metrics", "/favicon"}

func newVersioningRule() Rule {
	c := countedRoutes{
		def: versioningDef,
		global: compile(
			`(?i)/v\d+/`,
			`(?i)/api/v\d+`,
			`(?i)version`,
			`(?i)/v\d+$`,
		),
		patterns: compile(
			"(?i)(?:app|router)\\.(?:get|post|put|patch|delete)\\s*\\(\\s*['\"`](/[^'\"`v][^'\"`]*)['\"`]",
			"(?i)@(?:Get|Post|Put|Patch|Delete)Mapping\\s*\\(\\s*['\"`](/[^'\"`v][^'\"`]*)['\"`]",
		),
		keep: func(m []string) bool {
			for _, p := range unversionedSkipPaths {
				if strings.HasPrefix(m[1], p) {
					return false
				}
			}
			return true
		},
		threshold: 1,
		message: func(n int) string {
			return fmt.Sprintf("Found %d API route(s) without versioning", n)
		},
		suggest: "Add API versioning to your routes. Example: /api/v1/users instead of /users. This allows you to make breaking changes in future versions without affecting existing clients.",
	}
	return New(versioningDef, c.check)
}

// DES004

var namingDef = models.RuleDefinition{
	ID:          "DES004",
	Name:        "API Naming Convention Violations",
	Description: "Detects API route naming that violates REST conventions (e.g., verbs in URLs, camelCase paths).",
	Category:    models.CategoryDesign,
	Severity:    models.SeverityLow,
	Languages:   allLanguages,
}

func newNamingRule() Rule {
	const route = "(?:app|router)\\.(get|post|put|patch|delete)\\s*\\(\\s*['\"`][^'\"`]*"

	scan := lineScan{
		def: namingDef,
		violations: []violation{
			{
				pattern:    rx("(?i)" + route + "(?:/get[A-Z/]|/fetch[A-Z/]|/retrieve[A-Z/])[^'\"`]*['\"`]"),
				message:    "Verb 'get/fetch/retrieve' in URL path; use nouns for REST resources",
				suggestion: "Use nouns in URL paths. Instead of /getUsers, use GET /users. The HTTP method already expresses the action.",
			},
			{
				pattern:    rx("(?i)" + route + "(?:/create[A-Z/]|/add[A-Z/]|/new[A-Z/])[^'\"`]*['\"`]"),
				message:    "Verb 'create/add/new' in URL path; use nouns for REST resources",
				suggestion: "Use nouns in URL paths. Instead of /createUser, use POST /users. The HTTP method already expresses the action.",
			},
			{
				pattern:    rx("(?i)" + route + "(?:/delete[A-Z/]|/remove[A-Z/])[^'\"`]*['\"`]"),
				message:    "Verb 'delete/remove' in URL path; use nouns for REST resources",
				suggestion: "Use nouns in URL paths. Instead of /deleteUser/:id, use DELETE /users/:id.",
			},
			{
				// Case-sensitive: an upper-case letter followed by a lower-case one.
				pattern:    rx(route + "[A-Z][a-z][^'\"`]*['\"`]"),
				message:    "camelCase in URL path; use kebab-case for REST API paths",
				suggestion: "Use kebab-case (lowercase with hyphens) for URL paths. Instead of /userProfile, use /user-profile.",
			},
		},
	}
	return New(namingDef, scan.check)
}
