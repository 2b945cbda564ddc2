package server

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sellerdesk/backend/config"
	"github.com/sellerdesk/backend/internal/catalog"
	"github.com/sellerdesk/backend/internal/credentials"
	"github.com/sellerdesk/backend/internal/exports"
	"github.com/sellerdesk/backend/internal/identity"
	"github.com/sellerdesk/backend/internal/jobs"
	"github.com/sellerdesk/backend/internal/ledger"
	"github.com/sellerdesk/backend/internal/organizations"
	"github.com/sellerdesk/backend/internal/quota"
	"github.com/sellerdesk/backend/internal/reviews"
	"github.com/sellerdesk/backend/internal/sales"
	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/internal/telemetry"
	"github.com/sellerdesk/backend/pkg/queue"
	"github.com/sellerdesk/backend/pkg/redis"
)

// Options are the process-level resources the API is built from.
type Options struct {
	Config   config.Config
	Pool     *pgxpool.Pool
	Redis    *redis.Client
	Registry *prometheus.Registry // nil gets a private registry
	Exports  exports.ObjectStore  // nil streams exports inline
	Cipher   credentials.Cipher
	Logger   *zap.Logger
	Clock    func() time.Time // nil means time.Now
}

// NewDeps wires repositories, the quota ledger and handlers. Redis is required for the job
// queue and, with the redis quota backend, for rate buckets.
func NewDeps(o Options) Deps {
	logger := o.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := o.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	violations := telemetry.NewViolations(registry, o.Config.Telemetry.ScopeViolationAlertThreshold)
	exec := scopedb.New(o.Pool, logger, violations)

	jobRepo := jobs.NewRepository(exec)
	var store quota.Store = quota.NewPostgresStore(exec)
	if o.Config.Quota.Backend == "redis" {
		store = quota.NewRedisStore(o.Redis.Client)
	}
	quotas := quota.NewLedger(store, jobRepo, logger)
	if o.Clock != nil {
		quotas.WithClock(o.Clock)
	}

	assertions := identity.NewAssertionService(o.Config.Identity.Secret, o.Config.Identity.FreshnessWindow)
	resolver := identity.NewResolver(assertions, identity.NewRepository(exec, logger), o.Config.Identity.AllowTestTokens, logger)
	orgRepo := organizations.NewRepository(exec)
	exporter := exports.NewExporter(quotas, o.Exports, o.Config.Quota.DefaultExportMaxRows, logger)

	d := Deps{
		Logger:             logger,
		CORSAllowedOrigins: o.Config.Server.CORSAllowedOrigins,
		Gatherer:           registry,
		Resolver:           resolver,
		Memberships:        orgRepo,
		Rate:               quotas,
		RatePerSec:         o.Config.Quota.DefaultRatePerSecond,

		Health:        NewHealth(exec, o.Redis),
		Identity:      identity.NewHandler(),
		Organizations: organizations.NewHandler(orgRepo, logger),
		Catalog:       catalog.NewHandler(catalog.NewRepository(exec), exporter),
		Sales:         sales.NewHandler(sales.NewRepository(exec), exporter),
		Reviews:       reviews.NewHandler(reviews.NewRepository(exec)),
		Ledger:        ledger.NewHandler(ledger.NewRepository(exec)),
		Credentials:   credentials.NewHandler(credentials.NewRepository(exec, o.Cipher), logger),
		Jobs:          jobs.NewHandler(jobRepo, quotas, queue.NewQueue(o.Redis.Client, logger), o.Config.Quota.DefaultJobQueueMax, logger),
	}
	return d
}
