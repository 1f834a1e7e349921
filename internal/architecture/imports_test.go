package architecture_test

import (
	"bufio"
	"errors"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// boundary bans imports for every file under dir. Entries starting with "/"
// are resolved against the module's internal/ tree; anything else is an
// external import path prefix.
type boundary struct {
	dir    string
	banned []string
}

var boundaries = []boundary{
	{"internal/platform/", []string{"/domain", "/data/", "/modules/", "/http", "/app", "/observability"}},
	{"internal/domain/", []string{"/data/", "/modules/", "/http", "/app", "/observability", "github.com/gin-gonic/gin", "github.com/redis/go-redis"}},
	// the rules engine is pure: no storage, cache or transport
	{"internal/modules/gamification/", []string{"/data/", "/modules/progress", "/modules/content", "/http", "/app", "/observability",
		"gorm.io/gorm", "github.com/redis/go-redis", "github.com/gin-gonic/gin", "net/http"}},
	{"internal/modules/", []string{"/http", "/app", "github.com/gin-gonic/gin"}},
	{"internal/data/", []string{"/modules/progress", "/modules/content", "/modules/auth", "/http", "/app", "github.com/gin-gonic/gin"}},
	{"internal/http/", []string{"/data/", "/app", "github.com/redis/go-redis"}},
	{"internal/observability/", []string{"/domain", "/data/", "/modules/", "/http", "/app"}},
}

// boundaryFor picks the most specific boundary containing rel.
func boundaryFor(rel string) (boundary, bool) {
	var best boundary
	for _, b := range boundaries {
		if strings.HasPrefix(rel, b.dir) && len(b.dir) > len(best.dir) {
			best = b
		}
	}
	return best, best.dir != ""
}

func TestImportBoundaries(t *testing.T) {
	root := moduleRoot(t)
	module := modulePath(t, root)
	fset := token.NewFileSet()

	var violations []string
	err := filepath.WalkDir(filepath.Join(root, "internal"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		b, ok := boundaryFor(rel)
		if !ok {
			return nil
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, is := range f.Imports {
			imp, err := strconv.Unquote(is.Path.Value)
			if err != nil {
				continue
			}
			for _, ban := range b.banned {
				if strings.HasPrefix(ban, "/") {
					ban = module + "/internal" + ban
				}
				if strings.HasPrefix(imp, ban) {
					violations = append(violations, rel+" imports "+strconv.Quote(imp))
					break
				}
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk internal/: %v", err)
	}
	if len(violations) > 0 {
		t.Fatalf("import boundary violations:\n  %s", strings.Join(violations, "\n  "))
	}
}

func TestBoundaryForPrefersDeepestDir(t *testing.T) {
	b, ok := boundaryFor("internal/modules/gamification/level.go")
	if !ok || b.dir != "internal/modules/gamification/" {
		t.Fatalf("engine file matched %q", b.dir)
	}
	if _, ok := boundaryFor("internal/app/app.go"); ok {
		t.Fatalf("composition root should be unrestricted")
	}
}

func moduleRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("go.mod not found above working directory")
		}
		dir = parent
	}
}

func modulePath(t *testing.T, root string) string {
	t.Helper()
	f, err := os.Open(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("open go.mod: %v", err)
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(sc.Text()), "module "); ok {
			if mp := strings.TrimSpace(rest); mp != "" {
				return mp
			}
		}
	}
	err = sc.Err()
	if err == nil {
		err = errors.New("no module directive")
	}
	t.Fatalf("read go.mod: %v", err)
	return ""
}
