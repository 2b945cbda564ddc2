package audit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerdesk/backend/internal/telemetry"
)

const testModule = "example.com/shop"

const shopHandlers = `package shop

import (
	"github.com/gin-gonic/gin"

	"example.com/shop/internal/middleware"
)

type Handler struct {
	repo *Repository
}

func (h *Handler) Scoped(c *gin.Context) {
	s := middleware.Scope(c)
	h.repo.List(c, s.OrgID)
}

func (h *Handler) Literal(c *gin.Context) {
	s := middleware.Scope(c)
	count(c, s.OrgID)
}

func (h *Handler) Leaky(c *gin.Context) {
	h.repo.All(c)
}

func (h *Handler) Deep(c *gin.Context) {
	s := middleware.Scope(c)
	one(c, s.OrgID)
}

func (h *Handler) Closure(c *gin.Context) {
	s := middleware.Scope(c)
	_ = h.repo.exec.InTx(c, func(tx *Executor) error {
		_, err := tx.ExecScoped(c, s.OrgID, "DELETE FROM items WHERE org_id = @org_id", nil)
		return err
	})
}
`

const shopRepository = `package shop

type Repository struct {
	exec *Executor
}

func (r *Repository) List(ctx any, orgID int64) {
	r.exec.QueryScoped(ctx, orgID, "SELECT sku FROM items WHERE org_id = @org_id", nil)
}

func (r *Repository) All(ctx any) {
	r.exec.QueryUnscoped(ctx, "everything", "SELECT sku FROM items")
}

func count(ctx any, orgID int64) {
	pool.QueryRow(ctx, "SELECT COUNT(*) FROM items WHERE org_id = $1", orgID)
}

func one(ctx any, orgID int64)   { two(ctx, orgID) }
func two(ctx any, orgID int64)   { three(ctx, orgID) }
func three(ctx any, orgID int64) { four(ctx, orgID) }
func four(ctx any, orgID int64) {
	pool.QueryRow(ctx, "SELECT 1 FROM items WHERE org_id = $1", orgID)
}
`

func writeShop(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "internal", "shop")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handler.go"), []byte(shopHandlers), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "repository.go"), []byte(shopRepository), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "handler_test.go"), []byte("package shop\n\nfunc (h *Handler) Hidden() {}\n"), 0o644))
	return root
}

func shopRoute(method, path, fn string) Route {
	return Route{Method: method, Path: path, Handler: testModule + "/internal/shop.(*Handler)." + fn + "-fm"}
}

func TestParseHandlerName(t *testing.T) {
	tests := []struct {
		name string
		want handlerRef
	}{
		{"example.com/shop/internal/catalog.(*Handler).List-fm", handlerRef{pkgPath: "example.com/shop/internal/catalog", recv: "Handler", name: "List"}},
		{"example.com/shop/internal/catalog.Handler.List-fm", handlerRef{pkgPath: "example.com/shop/internal/catalog", recv: "Handler", name: "List"}},
		{"example.com/shop/internal/server.(*Health).Check-fm", handlerRef{pkgPath: "example.com/shop/internal/server", recv: "Health", name: "Check"}},
		{"example.com/shop/internal/server.NewRouter.func1", handlerRef{pkgPath: "example.com/shop/internal/server", name: "NewRouter"}},
		{"github.com/gin-gonic/gin.WrapH.func1", handlerRef{pkgPath: "github.com/gin-gonic/gin", name: "WrapH"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseHandlerName(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseHandlerName("main")
	assert.Error(t, err)
}

func TestRouteAuditor_FlagsRouteWithoutScope(t *testing.T) {
	root := writeShop(t)
	a := NewRouteAuditor(root, testModule, map[string]string{"GET /health": "probe"})

	vs, err := a.Audit([]Route{
		shopRoute("GET", "/items", "Scoped"),
		shopRoute("GET", "/items/count", "Literal"),
		shopRoute("DELETE", "/items", "Closure"),
		shopRoute("GET", "/everything", "Leaky"),
		{Method: "GET", Path: "/health", Handler: "example.com/elsewhere.Health"},
	})
	require.NoError(t, err)

	require.Len(t, vs, 2, "one violation per missing property")
	for _, v := range vs {
		assert.Equal(t, telemetry.KindUnscopedRoute, v.Kind)
		assert.Contains(t, v.Subject, "GET /everything")
	}
	assert.ElementsMatch(t, []string{"tenant scope input", "tenant filter"}, []string{vs[0].Missing, vs[1].Missing})
}

func TestRouteAuditor_StopsAtDepthLimit(t *testing.T) {
	root := writeShop(t)
	a := NewRouteAuditor(root, testModule, nil)

	vs, err := a.Audit([]Route{shopRoute("GET", "/deep", "Deep")})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "tenant filter", vs[0].Missing)
}

func TestRouteAuditor_AllowListSuppresses(t *testing.T) {
	root := writeShop(t)
	a := NewRouteAuditor(root, testModule, map[string]string{"GET /everything": "cross-tenant admin report"})

	vs, err := a.Audit([]Route{shopRoute("GET", "/everything", "Leaky")})
	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestRouteAuditor_HandlerOutsideModule(t *testing.T) {
	a := NewRouteAuditor(t.TempDir(), testModule, nil)

	vs, err := a.Audit([]Route{{Method: "GET", Path: "/x", Handler: "github.com/gin-gonic/gin.WrapH.func1"}})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, "inspectable handler source", vs[0].Missing)
}

func TestRouteAuditor_MissingHandlerIsError(t *testing.T) {
	root := writeShop(t)
	a := NewRouteAuditor(root, testModule, nil)

	_, err := a.Audit([]Route{shopRoute("GET", "/hidden", "Hidden")})
	assert.Error(t, err, "test files are not route sources")
}

func TestViolationString(t *testing.T) {
	v := Violation{Kind: telemetry.KindUnscopedRoute, Subject: "GET /x", Missing: "tenant filter"}
	assert.Equal(t, "unscoped_route: GET /x: missing tenant filter", v.String())
}
