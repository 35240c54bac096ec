package rules

import "github.com/ppiankov/apispectre/internal/models"

// catalog is built once and never modified. Order determines issue order
// within a file before the severity sort.
var catalog = []Rule{
	newHardcodedSecretsRule(),
	newSQLInjectionRule(),
	New(missingAuthDef, checkMissingAuth),
	newCORSRule(),
	newRateLimitRule(),
	newXSSRule(),
	newHTTPMethodsRule(),
	newStatusCodesRule(),
	newVersioningRule(),
	newNamingRule(),
	New(missingTryCatchDef, checkMissingTryCatch),
	New(unhandledPromiseDef, checkUnhandledPromise),
	newErrorFormatRule(),
	New(paginationDef, checkMissingPagination),
	New(nPlusOneDef, checkNPlusOne),
	newCacheRule(),
	newDocsRule(),
	newInputValidationRule(),
	New(sensitiveExposureDef, checkSensitiveExposure),
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, r := range catalog {
		idx[r.ID()] = i
	}
	return idx
}()

// Catalog returns every built-in rule in catalog order
func Catalog() []Rule {
	out := make([]Rule, len(catalog))
	copy(out, catalog)
	return out
}

// ByID looks up a built-in rule
func ByID(id string) (Rule, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return Rule{}, false
	}
	return catalog[i], true
}

// Definitions returns the definitions of every built-in rule
func Definitions() []models.RuleDefinition {
	defs := make([]models.RuleDefinition, len(catalog))
	for i, r := range catalog {
		defs[i] = r.Definition
	}
	return defs
}

// Exists reports whether id names a built-in rule
func Exists(id string) bool {
	_, ok := catalogIndex[id]
	return ok
}
