package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// Packages lower in the stack must not reach up. The crafting packages stay
// free of storage and transport so they can run inside a preview or a test
// with nothing but a library snapshot.
var layers = []struct {
	prefix     string
	disallowed []string
}{
	{"internal/platform/", []string{"internal/"}},
	{"internal/music/", []string{"internal/"}},
	{"internal/domain/", []string{
		"internal/data/", "internal/services/", "internal/http/", "internal/jobs/", "internal/temporalx/", "internal/fabrication/",
	}},
	{"internal/content/", []string{
		"internal/data/", "internal/services/", "internal/http/", "internal/jobs/", "internal/temporalx/", "internal/fabrication/",
	}},
	{"internal/fabrication/", []string{
		"internal/data/", "internal/services/", "internal/http/", "internal/jobs/", "internal/temporalx/", "internal/realtime/",
	}},
	{"internal/data/", []string{"internal/services/", "internal/http/", "internal/jobs/", "internal/temporalx/"}},
	{"internal/services/", []string{"internal/http/", "internal/jobs/", "internal/temporalx/", "internal/app/"}},
	{"internal/jobs/", []string{"internal/http/", "internal/temporalx/", "internal/app/"}},
	{"internal/temporalx/", []string{"internal/http/", "internal/jobs/", "internal/app/"}},
	{"internal/http/", []string{"internal/jobs/", "internal/temporalx/", "internal/app/"}},
}

// Shared leaves every layer may use.
var allowed = []string{
	"internal/platform/",
	"internal/music",
}

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleRoot(t)

	var violations []string
	walkImports(t, root, func(rel, imp string) {
		if !strings.HasPrefix(imp, modulePath+"/") {
			return
		}
		target := strings.TrimPrefix(imp, modulePath+"/") + "/"
		for _, l := range layers {
			if !strings.HasPrefix(rel, l.prefix) {
				continue
			}
			if strings.HasPrefix(target, l.prefix) || isAllowed(l.prefix, target) {
				return
			}
			for _, bad := range l.disallowed {
				if strings.HasPrefix(target, bad) {
					violations = append(violations, fmt.Sprintf("- %s imports %q (disallowed: %q)", rel, imp, bad))
					return
				}
			}
			return
		}
	})

	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n%s", strings.Join(violations, "\n"))
	}
}

func TestTestutilOnlyFromTests(t *testing.T) {
	root, modulePath := moduleRoot(t)

	var violations []string
	walkImports(t, root, func(rel, imp string) {
		if strings.HasSuffix(rel, "_test.go") || strings.Contains(rel, "/testutil/") {
			return
		}
		if strings.HasPrefix(imp, modulePath+"/") && strings.HasSuffix(imp, "/testutil") {
			violations = append(violations, fmt.Sprintf("- %s imports %q", rel, imp))
		}
	})

	if len(violations) > 0 {
		t.Fatalf("testutil imported from non-test code:\n%s", strings.Join(violations, "\n"))
	}
}

func isAllowed(layerPrefix, target string) bool {
	// platform and music are leaves; they may not use each other either.
	if layerPrefix == "internal/platform/" || layerPrefix == "internal/music/" {
		return false
	}
	for _, a := range allowed {
		if strings.HasPrefix(target, a) {
			return true
		}
	}
	return false
}

func walkImports(t *testing.T, root string, fn func(rel, imp string)) {
	t.Helper()
	fset := token.NewFileSet()
	err := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			switch d.Name() {
			case ".git", "vendor", "node_modules", ".gocache":
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, is := range f.Imports {
			if is == nil || is.Path == nil {
				continue
			}
			imp, err := strconv.Unquote(is.Path.Value)
			if err != nil {
				continue
			}
			fn(rel, imp)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk internal/: %v", err)
	}
}

func moduleRoot(t *testing.T) (string, string) {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found")
		}
		dir = parent
	}

	f, err := os.Open(filepath.Join(dir, "go.mod"))
	if err != nil {
		t.Fatalf("open go.mod: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "module ") {
			return dir, strings.TrimSpace(strings.TrimPrefix(line, "module "))
		}
	}
	t.Fatalf("module directive not found in go.mod")
	return "", ""
}
