// Package server assembles the HTTP route table. cmd/server serves it and the scope
// auditor enumerates it.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/internal/catalog"
	"github.com/sellerdesk/backend/internal/credentials"
	"github.com/sellerdesk/backend/internal/identity"
	"github.com/sellerdesk/backend/internal/jobs"
	"github.com/sellerdesk/backend/internal/ledger"
	"github.com/sellerdesk/backend/internal/middleware"
	"github.com/sellerdesk/backend/internal/models"
	"github.com/sellerdesk/backend/internal/organizations"
	"github.com/sellerdesk/backend/internal/quota"
	"github.com/sellerdesk/backend/internal/rbac"
	"github.com/sellerdesk/backend/internal/reviews"
	"github.com/sellerdesk/backend/internal/sales"
	"github.com/sellerdesk/backend/internal/telemetry"
)

// Deps are the collaborators the router needs. A zero Deps builds a route table that can
// be enumerated but not served.
type Deps struct {
	Logger             *zap.Logger
	CORSAllowedOrigins string
	Gatherer           prometheus.Gatherer

	Resolver    middleware.IdentityResolver
	Memberships middleware.MembershipLookup
	Rate        middleware.RateChecker
	RatePerSec  int64

	Health        *Health
	Identity      *identity.Handler
	Organizations *organizations.Handler
	Catalog       *catalog.Handler
	Sales         *sales.Handler
	Reviews       *reviews.Handler
	Ledger        *ledger.Handler
	Credentials   *credentials.Handler
	Jobs          *jobs.Handler
}

// NewRouter builds the gin engine with every route of the API.
func NewRouter(d Deps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.NewRegistry()
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(d.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Errors(logger))

	// Public
	router.GET("/health", d.Health.Check)
	router.GET("/metrics", gin.WrapH(telemetry.Handler(gatherer)))

	authenticated := router.Group("")
	authenticated.Use(middleware.Authenticate(d.Resolver, logger))
	{
		// Creating an org needs only an identity; the caller becomes its owner.
		authenticated.POST("/orgs", d.Organizations.CreateOrganization)
	}

	// Role gates run before the rate charge, so forbidden calls do not spend the org's budget.
	rate := middleware.RateLimit(d.Rate, quota.KeyAPI, d.RatePerSec, logger)
	tenant := authenticated.Group("")
	tenant.Use(middleware.OrgScope(d.Memberships))

	scoped := tenant.Group("")
	scoped.Use(rate)
	{
		scoped.POST("/auth/resolve", d.Identity.Whoami)
		scoped.GET("/me", d.Identity.Whoami)

		scoped.GET("/orgs", d.Organizations.ListMyOrganizations)
		scoped.POST("/orgs/:id/activate", d.Organizations.Activate)
		scoped.GET("/orgs/members", d.Organizations.ListMembers)

		scoped.GET("/catalog", d.Catalog.List)
		scoped.GET("/catalog/:sku", d.Catalog.Get)
		scoped.GET("/sales", d.Sales.List)
		scoped.GET("/sales/summary", d.Sales.Summary)
		scoped.GET("/reviews", d.Reviews.List)
		scoped.GET("/ledger", d.Ledger.List)
		scoped.GET("/ledger/balances", d.Ledger.Balances)
		scoped.GET("/jobs", d.Jobs.List)
	}

	manager := tenant.Group("")
	manager.Use(middleware.RequireRole(models.RoleManager), rate)
	{
		manager.POST("/catalog", d.Catalog.Create)
		manager.POST("/sales", d.Sales.Record)
		manager.POST("/reviews", d.Reviews.Create)
		manager.POST("/ledger", d.Ledger.Post)
		manager.POST("/jobs/recompute", d.Jobs.Recompute)
		manager.GET("/catalog/export", d.Catalog.Export)
		manager.GET("/sales/export", d.Sales.Export)
	}

	owner := tenant.Group("")
	owner.Use(middleware.RequireRole(models.RoleOwner), rate)
	{
		owner.GET("/credentials", d.Credentials.Get)
		owner.PUT("/credentials", middleware.RequireOperation(rbac.OpCredentialsUpdate), d.Credentials.Update)
		owner.POST("/orgs/members", d.Organizations.AddMember)
		owner.PATCH("/orgs/members/:userID", d.Organizations.ChangeRole)
		owner.DELETE("/orgs/members/:userID", d.Organizations.RemoveMember)
	}

	return router
}
