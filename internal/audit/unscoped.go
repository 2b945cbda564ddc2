package audit

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sellerdesk/backend/internal/telemetry"
)

var unscopedCalls = map[string]bool{
	"ExecUnscoped":     true,
	"QueryUnscoped":    true,
	"QueryRowUnscoped": true,
}

// CallSite is one use of the unscoped escape hatch.
type CallSite struct {
	File   string // slash-separated, relative to the module root
	Line   int
	Func   string
	Reason string
}

// Key is the allow-list key, e.g. "internal/server/health.go:Check".
func (c CallSite) Key() string {
	return c.File + ":" + c.Func
}

// FindUnscopedCalls walks every non-test Go file under root. Directories starting with
// "_" or "." and testdata are skipped, as the go tool does.
func FindUnscopedCalls(root string) ([]CallSite, error) {
	fset := token.NewFileSet()
	var sites []CallSite
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "testdata" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			return nil
		}
		file, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sites = append(sites, unscopedInFile(fset, file, filepath.ToSlash(rel))...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sites, nil
}

func unscopedInFile(fset *token.FileSet, file *ast.File, rel string) []CallSite {
	var sites []CallSite
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || !unscopedCalls[sel.Sel.Name] {
				return true
			}
			site := CallSite{File: rel, Line: fset.Position(call.Pos()).Line, Func: fn.Name.Name}
			if len(call.Args) >= 2 {
				if lit, ok := call.Args[1].(*ast.BasicLit); ok && lit.Kind == token.STRING {
					site.Reason = unquote(lit.Value)
				}
			}
			sites = append(sites, site)
			return true
		})
	}
	return sites
}

// AuditUnscopedCalls flags call sites missing from allow or lacking a literal reason.
func AuditUnscopedCalls(sites []CallSite, allow map[string]string) []Violation {
	var out []Violation
	for _, s := range sites {
		subject := fmt.Sprintf("%s:%d (%s)", s.File, s.Line, s.Func)
		if _, ok := allow[s.Key()]; !ok {
			out = append(out, Violation{Kind: telemetry.KindUnlistedUnscopedCall, Subject: subject, Missing: "allow-list entry"})
		}
		if strings.TrimSpace(s.Reason) == "" {
			out = append(out, Violation{Kind: telemetry.KindUnlistedUnscopedCall, Subject: subject, Missing: "literal reason"})
		}
	}
	sortViolations(out)
	return out
}
