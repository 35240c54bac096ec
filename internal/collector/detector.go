package collector

import (
	"path"
	"regexp"
	"strings"

	"github.com/ppiankov/apispectre/internal/models"
)

// languageExtensions maps each supported language to its recognized extensions
var languageExtensions = map[models.Language][]string{
	models.LanguageJavaScript: {".js", ".jsx", ".mjs", ".cjs"},
	models.LanguageTypeScript: {".ts", ".tsx", ".mts", ".cts"},
	models.LanguagePython:     {".py", ".pyw"},
	models.LanguageGo:         {".go"},
	models.LanguageJava:       {".java"},
	models.LanguagePHP:        {".php", ".phtml"},
	models.LanguageRuby:       {".rb", ".rake"},
}

// extensionIndex is the inverse of languageExtensions
var extensionIndex = func() map[string]models.Language {
	idx := make(map[string]models.Language)
	for lang, exts := range languageExtensions {
		for _, ext := range exts {
			idx[ext] = lang
		}
	}
	return idx
}()

// Extensions returns the extensions recognized for lang
func Extensions(lang models.Language) []string {
	exts := languageExtensions[lang]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// DetectLanguage classifies a path by its lower-cased final extension.
// It returns models.LanguageNone when the extension is not recognized.
func DetectLanguage(filePath string) models.Language {
	ext := strings.ToLower(extension(filePath))
	if ext == "" {
		return models.LanguageNone
	}
	return extensionIndex[ext]
}

// extension returns the final dot-segment of the base name.
// Dotfiles without a second dot (".go", ".env") have no extension.
func extension(filePath string) string {
	base := path.Base(strings.ReplaceAll(filePath, "\\", "/"))
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return ""
	}
	return base[idx:]
}

var apiPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`route`),
	regexp.MustCompile(`controller`),
	regexp.MustCompile(`handler`),
	regexp.MustCompile(`endpoint`),
	regexp.MustCompile(`api`),
	regexp.MustCompile(`server`),
	regexp.MustCompile(`app\.(js|ts|py|go|rb|php|java)$`),
	regexp.MustCompile(`index\.(js|ts|py|go|rb|php|java)$`),
}

var apiContentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`express\(\)`),
	regexp.MustCompile(`fastify\(`),
	regexp.MustCompile(`koa\(\)`),
	regexp.MustCompile(`hapi\.`),
	regexp.MustCompile(`flask\(`),
	regexp.MustCompile(`FastAPI\(`),
	regexp.MustCompile(`Django`),
	regexp.MustCompile(`gin\.`),
	regexp.MustCompile(`echo\.`),
	regexp.MustCompile(`fiber\.`),
	regexp.MustCompile(`http\.HandleFunc`),
	regexp.MustCompile(`@RestController`),
	regexp.MustCompile(`@GetMapping`),
	regexp.MustCompile(`@PostMapping`),
	regexp.MustCompile(`Route::get`),
	regexp.MustCompile(`Route::post`),
	regexp.MustCompile(`get\s*['"]/.*['"]`),
	regexp.MustCompile(`post\s*['"]/.*['"]`),
	regexp.MustCompile(`app\.(get|post|put|delete|patch)\s*\(`),
	regexp.MustCompile(`router\.(get|post|put|delete|patch)\s*\(`),
}

// IsAPIFile reports whether a file looks like it defines HTTP endpoints,
// judging first by its path and then by framework markers in its content.
func IsAPIFile(filePath, content string) bool {
	lower := strings.ToLower(filePath)
	for _, p := range apiPathPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	for _, p := range apiContentPatterns {
		if p.MatchString(content) {
			return true
		}
	}
	return false
}
