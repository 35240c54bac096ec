package collector

import (
	"strings"
	"testing"

	"github.com/ppiankov/apispectre/internal/models"
)

func paths(files []models.ScanFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestCreateFilesFromEntriesDefaults(t *testing.T) {
	entries := []models.FileEntry{
		{Path: "src/routes/users.js", Content: "a"},
		{Path: "node_modules/express/index.js", Content: "b"},
		{Path: "README.md", Content: "c"},
		{Path: "public/app.min.js", Content: "d"},
		{Path: "src/users.test.ts", Content: "e"},
		{Path: "src/users.spec.js", Content: "f"},
		{Path: "dist/server.js", Content: "g"},
		{Path: "api/main.py", Content: "h"},
		{Path: "pkg/vendor/lib.go", Content: "i"},
		{Path: "handlers/user.go", Content: "j"},
	}

	files, err := CreateFilesFromEntries(entries, models.ScanOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := strings.Join(paths(files), ",")
	want := "src/routes/users.js,api/main.py,handlers/user.go"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	if files[0].Language != models.LanguageJavaScript || files[1].Language != models.LanguagePython {
		t.Fatalf("unexpected languages: %s, %s", files[0].Language, files[1].Language)
	}
}

func TestCreateFilesFromEntriesSubstringMatchIsLoose(t *testing.T) {
	// "build" is a plain substring pattern, so it also drops "rebuild.js".
	files, err := CreateFilesFromEntries([]models.FileEntry{
		{Path: "scripts/rebuild.js", Content: "x"},
		{Path: "scripts/run.js", Content: "x"},
	}, models.ScanOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Path != "scripts/run.js" {
		t.Fatalf("expected only scripts/run.js, got %v", paths(files))
	}
}

func TestCreateFilesFromEntriesCustomPatternsReplaceDefaults(t *testing.T) {
	entries := []models.FileEntry{
		{Path: "node_modules/x/index.js", Content: "x"},
		{Path: "generated/api.ts", Content: "x"},
		{Path: "src/gen_client.ts", Content: "x"},
	}

	files, err := CreateFilesFromEntries(entries, models.ScanOptions{
		ExcludePatterns: []string{"generated", "gen_*.ts"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Path != "node_modules/x/index.js" {
		t.Fatalf("expected only node_modules file, got %v", paths(files))
	}
}

func TestCreateFilesFromEntriesEmptyPatternsExcludeNothing(t *testing.T) {
	files, err := CreateFilesFromEntries([]models.FileEntry{
		{Path: "node_modules/x/index.js", Content: "x"},
	}, models.ScanOptions{ExcludePatterns: []string{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
}

func TestCreateFilesFromEntriesLanguageFilter(t *testing.T) {
	entries := []models.FileEntry{
		{Path: "a.js", Content: "x"},
		{Path: "b.py", Content: "x"},
		{Path: "c.ts", Content: "x"},
	}

	files, err := CreateFilesFromEntries(entries, models.ScanOptions{
		Languages: []models.Language{models.LanguagePython, models.LanguageTypeScript},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(paths(files), ","); got != "b.py,c.ts" {
		t.Fatalf("expected b.py,c.ts, got %s", got)
	}

	files, err = CreateFilesFromEntries(entries, models.ScanOptions{Languages: []models.Language{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected empty language set to match nothing, got %v", paths(files))
	}
}

func TestCreateFilesFromEntriesByteSize(t *testing.T) {
	content := "const s = \"héllo wörld\";"
	files, err := CreateFilesFromEntries([]models.FileEntry{{Path: "a.js", Content: content}}, models.ScanOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files[0].Size != int64(len([]byte(content))) {
		t.Fatalf("expected byte size %d, got %d", len([]byte(content)), files[0].Size)
	}
	if files[0].Size == int64(len([]rune(content))) {
		t.Fatal("size must count bytes, not characters")
	}
	if files[0].Content != content {
		t.Fatal("content must pass through verbatim")
	}
}

func TestCreateFilesFromEntriesUnsupportedNeverEmitted(t *testing.T) {
	entries := []models.FileEntry{
		{Path: "notes.txt", Content: "x"},
		{Path: "Dockerfile", Content: "x"},
		{Path: "config.yaml", Content: "x"},
	}
	for _, opts := range []models.ScanOptions{
		{},
		{ExcludePatterns: []string{}},
		{Languages: []models.Language{models.LanguageNone}},
	} {
		files, err := CreateFilesFromEntries(entries, opts)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(files) != 0 {
			t.Fatalf("expected no files, got %v", paths(files))
		}
	}
}

func TestCreateFilesFromEntriesInvalidPattern(t *testing.T) {
	_, err := CreateFilesFromEntries([]models.FileEntry{{Path: "a.js"}}, models.ScanOptions{
		ExcludePatterns: []string{"(*"},
	})
	if err == nil {
		t.Fatal("expected error for invalid wildcard pattern")
	}
	if !strings.Contains(err.Error(), "(*") {
		t.Fatalf("expected error to name the pattern, got %v", err)
	}
}

func TestCompileExcludePattern(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.min.js", "public/app.min.js", true},
		{"*.min.js", "public/appxminxjs", false},
		{"*.test.*", "src/a.test.ts", true},
		{"*.test.*", "src/atest.ts", false},
		{"vendor", "third/vendor/x.go", true},
		{"src/*/legacy", "src/v1/legacy/a.js", true},
	}

	for _, tt := range tests {
		match, err := CompileExcludePattern(tt.pattern)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.pattern, err)
		}
		if got := match(tt.path); got != tt.want {
			t.Fatalf("pattern %q on %q: expected %v, got %v", tt.pattern, tt.path, tt.want, got)
		}
	}
}
