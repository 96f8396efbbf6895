package lint

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jenian/titanlint/internal/allowlist"
	"github.com/jenian/titanlint/internal/analyzer"
	xlog "github.com/jenian/titanlint/internal/log"
	"github.com/jenian/titanlint/internal/parser"
	"github.com/jenian/titanlint/internal/scanner"
	"github.com/jenian/titanlint/internal/titanconfig"
)

const titanJSON = `{
  "globalEnv": ["GLOBAL_KEY"],
  "pipeline": {
    "build": { "env": ["BUILD_KEY"], "dependsOn": ["^build", "$LEGACY_KEY"] }
  }
}`

func write(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

type messageLine struct {
	Path    string
	Line    int
	Message string
}

func flatten(result analyzer.ScanResult) []messageLine {
	var out []messageLine
	for _, f := range result.Files {
		for _, d := range f.Diagnostics {
			out = append(out, messageLine{f.Path, d.Span.Line, d.Message})
		}
	}
	return out
}

func TestCheck(t *testing.T) {
	root := t.TempDir()
	write(t, root, map[string]string{
		"titan.json":              titanJSON,
		"apps/web/index.js":       "const a = process.env.GLOBAL_KEY;\nconst b = process.env.MISSING;\n",
		"apps/web/page.tsx":       "export const P = () => <p>{process.env.NEXT_PUBLIC_URL}</p>;\n",
		"packages/lib/build.ts":   "const { BUILD_KEY, LEGACY_KEY, OTHER } = process.env;\n",
		"packages/lib/dynamic.js": "export const get = (k) => process.env[k];\n",
		"node_modules/x/index.js": "process.env.IN_DEPENDENCY;\n",
	})

	outcome, err := Check(context.Background(), Options{Root: root, Allow: []string{"^NEXT_PUBLIC_"}}, nil)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if outcome.Disabled {
		t.Fatal("check should be enabled when titan.json exists")
	}

	want := []messageLine{
		{"apps/web/index.js", 2, "$MISSING is not listed as a dependency in titan.json"},
		{"packages/lib/build.ts", 1, "$OTHER is not listed as a dependency in titan.json"},
	}
	if diff := cmp.Diff(want, flatten(outcome.Result)); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if outcome.Result.Scanned != 4 {
		t.Errorf("Scanned = %d, want 4", outcome.Result.Scanned)
	}
	if outcome.Result.Sites != 7 {
		t.Errorf("Sites = %d, want 7", outcome.Result.Sites)
	}
	if diff := cmp.Diff([]string{"BUILD_KEY", "GLOBAL_KEY", "LEGACY_KEY"}, outcome.Result.Declared); diff != "" {
		t.Errorf("declared mismatch (-want +got):\n%s", diff)
	}
	if outcome.Result.ConfigPath != filepath.Join(root, "titan.json") {
		t.Errorf("ConfigPath = %q", outcome.Result.ConfigPath)
	}
}

const toolConfigYAML = `
allowList: ["_TOKEN$"]
envReferences: ["import.meta.env"]
titanConfig: config/titan.json
ignores:
  folders: ["scripts"]
`

func TestCheck_ToolConfig(t *testing.T) {
	root := t.TempDir()
	write(t, root, map[string]string{
		"config/titan.json":  `{"globalEnv": ["VITE_DECLARED"]}`,
		".titanlint.yaml":    toolConfigYAML,
		"src/main.js":        "import.meta.env.VITE_DECLARED;\nimport.meta.env.VITE_MISSING;\nimport.meta.env.NPM_TOKEN;\nprocess.env.NOT_WATCHED;\n",
		"scripts/release.js": "import.meta.env.IN_SCRIPT;\n",
	})

	outcome, err := Check(context.Background(), Options{Root: root}, nil)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}

	want := []messageLine{
		{"src/main.js", 2, "$VITE_MISSING is not listed as a dependency in titan.json"},
	}
	if diff := cmp.Diff(want, flatten(outcome.Result)); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
}

func TestCheck_NoTitanConfig(t *testing.T) {
	root := t.TempDir()
	write(t, root, map[string]string{"index.js": "process.env.ANYTHING;\n"})

	outcome, err := Check(context.Background(), Options{Root: root, TitanConfig: filepath.Join(root, "missing.json")}, nil)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !outcome.Disabled {
		t.Error("check should be disabled without titan.json")
	}
	if outcome.Result.Problems() != 0 {
		t.Errorf("Problems = %d, want 0", outcome.Result.Problems())
	}
	if len(outcome.Dirs) == 0 {
		t.Error("scanned directories should still be reported")
	}
}

func TestCheck_InvalidAllowList(t *testing.T) {
	root := t.TempDir()
	write(t, root, map[string]string{"titan.json": titanJSON})

	_, err := Check(context.Background(), Options{Root: root, Allow: []string{"["}}, nil)
	var patternErr *allowlist.PatternError
	if !errors.As(err, &patternErr) {
		t.Fatalf("expected PatternError, got %v", err)
	}
	if patternErr.Pattern != "[" {
		t.Errorf("Pattern = %q, want %q", patternErr.Pattern, "[")
	}
}

func TestCheck_MissingRoot(t *testing.T) {
	_, err := Check(context.Background(), Options{Root: filepath.Join(t.TempDir(), "nope")}, nil)
	if err == nil {
		t.Error("expected error for missing root")
	}
}

func TestCheck_FinderReuse(t *testing.T) {
	root := t.TempDir()
	write(t, root, map[string]string{
		"titan.json": titanJSON,
		"index.js":   "process.env.LATER_KEY;\n",
	})
	finder := titanconfig.NewFinder()

	first, err := Check(context.Background(), Options{Root: root}, finder)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if first.Result.Problems() != 1 {
		t.Fatalf("Problems = %d, want 1", first.Result.Problems())
	}

	write(t, root, map[string]string{"titan.json": `{"globalEnv": ["LATER_KEY"]}`})

	cached, err := Check(context.Background(), Options{Root: root}, finder)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if cached.Result.Problems() != 1 {
		t.Errorf("cached config should still be used, got %d problems", cached.Result.Problems())
	}

	finder.Invalidate()
	reloaded, err := Check(context.Background(), Options{Root: root}, finder)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if reloaded.Result.Problems() != 0 {
		t.Errorf("reloaded config should declare LATER_KEY, got %d problems", reloaded.Result.Problems())
	}
}

func TestRunner_SkipsUnreadableFiles(t *testing.T) {
	root := t.TempDir()
	write(t, root, map[string]string{"b.js": "process.env.B;\n", "a.js": "process.env.A;\n"})

	files := []scanner.FileInfo{
		{Path: filepath.Join(root, "b.js"), RelPath: "b.js", Language: "javascript"},
		{Path: filepath.Join(root, "gone.js"), RelPath: "gone.js", Language: "javascript"},
		{Path: filepath.Join(root, "a.js"), RelPath: "a.js", Language: "javascript"},
	}
	runner := NewRunner(parser.NewParser(nil), analyzer.NewChecker(titanconfig.NewEnvSet("A"), nil), 2)

	results, err := runner.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var paths []string
	for _, r := range results {
		paths = append(paths, r.Path)
	}
	if diff := cmp.Diff([]string{"a.js", "b.js"}, paths); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}
	if len(results[0].Diagnostics) != 0 || len(results[1].Diagnostics) != 1 {
		t.Errorf("unexpected diagnostics: %+v", results)
	}
}

func TestRunner_Cancelled(t *testing.T) {
	root := t.TempDir()
	write(t, root, map[string]string{"a.js": "process.env.A;\n"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(parser.NewParser(nil), analyzer.NewChecker(nil, nil), 1)
	_, err := runner.Run(ctx, []scanner.FileInfo{{Path: filepath.Join(root, "a.js"), RelPath: "a.js", Language: "javascript"}})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestDeclared(t *testing.T) {
	root := t.TempDir()
	write(t, root, map[string]string{"titan.json": titanJSON})

	names, path, err := Declared(filepath.Join(root), "")
	if err != nil {
		t.Fatalf("Declared failed: %v", err)
	}
	if diff := cmp.Diff([]string{"BUILD_KEY", "GLOBAL_KEY", "LEGACY_KEY"}, names); diff != "" {
		t.Errorf("declared mismatch (-want +got):\n%s", diff)
	}
	if path != filepath.Join(root, "titan.json") {
		t.Errorf("path = %q", path)
	}

	if _, _, err := Declared(root, filepath.Join(root, "missing.json")); err == nil {
		t.Error("expected error for missing configuration")
	}
}

func TestDeclared_LogsProblems(t *testing.T) {
	var buf bytes.Buffer
	xlog.Configure(xlog.Config{Level: "warn", Output: &buf, JSON: true})
	t.Cleanup(func() { xlog.Configure(xlog.Config{Output: &bytes.Buffer{}}) })

	root := t.TempDir()
	write(t, root, map[string]string{"titan.json": titanJSON})

	if _, _, err := Declared(root, ""); err != nil {
		t.Fatalf("Declared failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"component":"lint"`) || !strings.Contains(buf.String(), "deprecated") {
		t.Errorf("expected a lint warning about the $LEGACY_KEY dependsOn entry, got %q", buf.String())
	}
}
