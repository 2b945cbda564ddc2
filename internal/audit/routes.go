package audit

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sellerdesk/backend/internal/telemetry"
)

const (
	middlewarePkg = "/internal/middleware"
	orgscopePkg   = "/internal/orgscope"

	// Calls are followed this many levels below the handler. Deeper delegation is an
	// allow-list entry.
	maxDepth = 3
)

var (
	scopedCalls = map[string]bool{
		"ExecScoped":     true,
		"QueryScoped":    true,
		"QueryRowScoped": true,
	}

	// orgFilter matches an explicit tenant equality in a SQL literal.
	orgFilter = regexp.MustCompile(`(?i)\borg_id\s*=\s*(@org_id|\$\d+|\?)`)
)

// Route is one externally reachable operation.
type Route struct {
	Method  string
	Path    string
	Handler string // fully qualified function name as reported by the runtime
}

// Key is the allow-list key, e.g. "GET /catalog".
func (r Route) Key() string {
	return r.Method + " " + r.Path
}

// RoutesFromGin converts a gin route table.
func RoutesFromGin(infos gin.RoutesInfo) []Route {
	routes := make([]Route, 0, len(infos))
	for _, ri := range infos {
		routes = append(routes, Route{Method: ri.Method, Path: ri.Path, Handler: ri.Handler})
	}
	return routes
}

// RouteAuditor inspects handler source under a module root.
type RouteAuditor struct {
	root   string
	module string
	allow  map[string]string
	fset   *token.FileSet
	pkgs   map[string]*pkgIndex
}

// NewRouteAuditor creates an auditor for the module rooted at root with import path module.
func NewRouteAuditor(root, module string, allow map[string]string) *RouteAuditor {
	return &RouteAuditor{
		root:   root,
		module: strings.TrimSuffix(module, "/"),
		allow:  allow,
		fset:   token.NewFileSet(),
		pkgs:   make(map[string]*pkgIndex),
	}
}

// Audit reports one violation per missing property per route. Routes in the allow-list are
// skipped. An error means the source could not be inspected at all.
func (a *RouteAuditor) Audit(routes []Route) ([]Violation, error) {
	var out []Violation
	for _, r := range routes {
		if _, ok := a.allow[r.Key()]; ok {
			continue
		}
		ref, err := parseHandlerName(r.Handler)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r.Key(), err)
		}
		subject := fmt.Sprintf("%s (%s)", r.Key(), ref.short())

		if !strings.HasPrefix(ref.pkgPath, a.module) {
			out = append(out, Violation{Kind: telemetry.KindUnscopedRoute, Subject: subject, Missing: "inspectable handler source"})
			continue
		}
		pkg, err := a.load(ref.pkgPath)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", r.Key(), err)
		}
		fn := pkg.lookup(ref.recv, ref.name)
		if fn == nil {
			return nil, fmt.Errorf("route %s: %s not found in %s", r.Key(), ref.short(), ref.pkgPath)
		}

		f := pkg.analyze(fn, maxDepth, make(map[*ast.FuncDecl]bool))
		if !f.scopeInput {
			out = append(out, Violation{Kind: telemetry.KindUnscopedRoute, Subject: subject, Missing: "tenant scope input"})
		}
		if !f.tenantFilter {
			out = append(out, Violation{Kind: telemetry.KindUnscopedRoute, Subject: subject, Missing: "tenant filter"})
		}
	}
	sortViolations(out)
	return out, nil
}

func (a *RouteAuditor) load(pkgPath string) (*pkgIndex, error) {
	if p, ok := a.pkgs[pkgPath]; ok {
		return p, nil
	}
	rel := strings.TrimPrefix(strings.TrimPrefix(pkgPath, a.module), "/")
	p, err := loadPackage(a.fset, filepath.Join(a.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	a.pkgs[pkgPath] = p
	return p, nil
}

type handlerRef struct {
	pkgPath string
	recv    string
	name    string
}

func (h handlerRef) short() string {
	pkg := h.pkgPath[strings.LastIndex(h.pkgPath, "/")+1:]
	if h.recv != "" {
		return fmt.Sprintf("%s.(*%s).%s", pkg, h.recv, h.name)
	}
	return pkg + "." + h.name
}

// parseHandlerName splits runtime names such as
// "example.com/m/internal/catalog.(*Handler).List-fm", "example.com/m/pkg.T.Method-fm" or
// "example.com/m/pkg.Func.func1".
// Closures resolve to their enclosing function.
func parseHandlerName(name string) (handlerRef, error) {
	slash := strings.LastIndex(name, "/")
	rest := name[slash+1:]
	dot := strings.Index(rest, ".")
	if dot < 0 {
		return handlerRef{}, fmt.Errorf("unrecognised handler name %q", name)
	}
	ref := handlerRef{pkgPath: name[:slash+1] + rest[:dot]}
	sym := rest[dot+1:]
	methodValue := strings.HasSuffix(sym, "-fm")
	sym = strings.TrimSuffix(sym, "-fm")

	switch {
	case strings.HasPrefix(sym, "("):
		end := strings.Index(sym, ").")
		if end < 0 {
			return handlerRef{}, fmt.Errorf("unrecognised handler name %q", name)
		}
		ref.recv = strings.TrimPrefix(sym[1:end], "*")
		sym = sym[end+2:]
	case methodValue && strings.Contains(sym, "."):
		// value receiver: pkg.Type.Method-fm
		i := strings.Index(sym, ".")
		ref.recv, sym = sym[:i], sym[i+1:]
	}
	if i := strings.Index(sym, "."); i >= 0 {
		sym = sym[:i]
	}
	if sym == "" {
		return handlerRef{}, fmt.Errorf("unrecognised handler name %q", name)
	}
	ref.name = sym
	return ref, nil
}

// pkgIndex is the parsed, non-test source of one package.
type pkgIndex struct {
	funcs   map[string]*ast.FuncDecl
	methods map[string]*ast.FuncDecl // "Type.Method"
	fields  map[string]string        // "Type.field" -> same-package type name
	imports map[*ast.FuncDecl]map[string]string
}

func loadPackage(fset *token.FileSet, dir string) (*pkgIndex, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read package dir: %w", err)
	}
	p := &pkgIndex{
		funcs:   make(map[string]*ast.FuncDecl),
		methods: make(map[string]*ast.FuncDecl),
		fields:  make(map[string]string),
		imports: make(map[*ast.FuncDecl]map[string]string),
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		file, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		p.add(file)
	}
	return p, nil
}

func (p *pkgIndex) add(file *ast.File) {
	imports := fileImports(file)
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			p.imports[d] = imports
			if recv := recvType(d); recv != "" {
				p.methods[recv+"."+d.Name.Name] = d
			} else {
				p.funcs[d.Name.Name] = d
			}
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					continue
				}
				for _, field := range st.Fields.List {
					typ := localTypeName(field.Type)
					if typ == "" {
						continue
					}
					for _, n := range field.Names {
						p.fields[ts.Name.Name+"."+n.Name] = typ
					}
				}
			}
		}
	}
}

func (p *pkgIndex) lookup(recv, name string) *ast.FuncDecl {
	if recv != "" {
		return p.methods[recv+"."+name]
	}
	return p.funcs[name]
}

type findings struct {
	scopeInput   bool
	tenantFilter bool
}

func (f *findings) merge(o findings) {
	f.scopeInput = f.scopeInput || o.scopeInput
	f.tenantFilter = f.tenantFilter || o.tenantFilter
}

// analyze inspects fn (closures included) and the same-package functions it calls.
func (p *pkgIndex) analyze(fn *ast.FuncDecl, depth int, seen map[*ast.FuncDecl]bool) findings {
	var f findings
	if fn == nil || fn.Body == nil || seen[fn] {
		return f
	}
	seen[fn] = true

	recvName, recv := "", recvType(fn)
	if recv != "" && len(fn.Recv.List[0].Names) > 0 {
		recvName = fn.Recv.List[0].Names[0].Name
	}
	imports := p.imports[fn]

	var callees []*ast.FuncDecl
	ast.Inspect(fn.Body, func(n ast.Node) bool {
		switch x := n.(type) {
		case *ast.BasicLit:
			if x.Kind == token.STRING && orgFilter.MatchString(unquote(x.Value)) {
				f.tenantFilter = true
			}
		case *ast.CallExpr:
			switch fun := x.Fun.(type) {
			case *ast.Ident:
				if callee := p.funcs[fun.Name]; callee != nil {
					callees = append(callees, callee)
				}
			case *ast.SelectorExpr:
				if scopedCalls[fun.Sel.Name] {
					f.tenantFilter = true
				}
				switch target := fun.X.(type) {
				case *ast.Ident:
					path := imports[target.Name]
					switch {
					case strings.HasSuffix(path, middlewarePkg) && fun.Sel.Name == "Scope",
						strings.HasSuffix(path, orgscopePkg) && fun.Sel.Name == "FromContext":
						f.scopeInput = true
					case target.Name == recvName && recvName != "":
						if callee := p.methods[recv+"."+fun.Sel.Name]; callee != nil {
							callees = append(callees, callee)
						}
					}
				case *ast.SelectorExpr:
					// recv.field.Method()
					if base, ok := target.X.(*ast.Ident); ok && base.Name == recvName && recvName != "" {
						if typ := p.fields[recv+"."+target.Sel.Name]; typ != "" {
							if callee := p.methods[typ+"."+fun.Sel.Name]; callee != nil {
								callees = append(callees, callee)
							}
						}
					}
				}
			}
		}
		return true
	})

	if depth == 0 {
		return f
	}
	for _, callee := range callees {
		f.merge(p.analyze(callee, depth-1, seen))
		if f.scopeInput && f.tenantFilter {
			break
		}
	}
	return f
}

func fileImports(file *ast.File) map[string]string {
	m := make(map[string]string, len(file.Imports))
	for _, imp := range file.Imports {
		path := unquote(imp.Path.Value)
		name := path[strings.LastIndex(path, "/")+1:]
		if imp.Name != nil {
			name = imp.Name.Name
		}
		m[name] = path
	}
	return m
}

func recvType(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return ""
	}
	return localTypeName(fn.Recv.List[0].Type)
}

// localTypeName returns the name of T or *T when T is declared in the same package.
func localTypeName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if id, ok := expr.(*ast.Ident); ok {
		return id.Name
	}
	return ""
}

func unquote(lit string) string {
	if s, err := strconv.Unquote(lit); err == nil {
		return s
	}
	return lit
}

// SortedKeys returns the keys of an allow-list in order, for printing.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
