// Command scopeaudit checks tenant scoping before merge. It prints one line per violation
// and exits 1 if there is any.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sellerdesk/backend/internal/audit"
	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/internal/server"
	"github.com/sellerdesk/backend/internal/telemetry"
	"github.com/sellerdesk/backend/pkg/database"
)

var (
	version = "dev"
	cli     struct {
		Root    string `help:"Module root to inspect." default:"." type:"existingdir"`
		Module  string `help:"Import path of the module at root." default:"github.com/sellerdesk/backend"`
		DSN     string `help:"Postgres DSN. Enables the reporting view audit against a live schema." env:"SCOPEAUDIT_DSN"`
		PushURL string `help:"Pushgateway URL to publish violation counts to." env:"SCOPEAUDIT_PUSH_URL"`
		Debug   bool   `help:"Enable debug logging."`
		Version kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	kctx := kong.Parse(&cli,
		kong.Name("scopeaudit"),
		kong.Description("Static tenant scope auditor."),
		kong.Vars{"version": version})

	logger := newLogger(cli.Debug)
	defer logger.Sync()

	vs, err := run(ctx, logger)
	kctx.FatalIfErrorf(err)

	for _, v := range vs {
		fmt.Println(v.String())
	}
	if cli.PushURL != "" {
		registry := prometheus.NewRegistry()
		audit.Record(telemetry.NewViolations(registry, 0), vs)
		if err := push.New(cli.PushURL, "scopeaudit").Gatherer(registry).Push(); err != nil {
			logger.Error("push violation counts", zap.String("url", cli.PushURL), zap.Error(err))
		}
	}
	if len(vs) > 0 {
		logger.Info("scope audit failed", zap.Int("violations", len(vs)))
		os.Exit(1)
	}
	logger.Info("scope audit passed")
}

func run(ctx context.Context, logger *zap.Logger) ([]audit.Violation, error) {
	gin.SetMode(gin.ReleaseMode)
	routes := audit.RoutesFromGin(server.NewRouter(server.Deps{Logger: logger}).Routes())
	logger.Debug("routes enumerated", zap.Int("count", len(routes)))

	vs, err := audit.NewRouteAuditor(cli.Root, cli.Module, audit.RouteAllowList).Audit(routes)
	if err != nil {
		return nil, fmt.Errorf("route audit: %w", err)
	}

	sites, err := audit.FindUnscopedCalls(cli.Root)
	if err != nil {
		return nil, fmt.Errorf("unscoped call audit: %w", err)
	}
	logger.Debug("unscoped call sites", zap.Int("count", len(sites)))
	vs = append(vs, audit.AuditUnscopedCalls(sites, audit.UnscopedAllowList)...)

	src, err := database.MigrationSource()
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	vs = append(vs, audit.AuditViewSource(src)...)

	if cli.DSN == "" {
		logger.Debug("no DSN, skipping live view audit")
		return vs, nil
	}
	pool, err := database.NewPostgresPool(ctx, database.PoolConfig{DSN: cli.DSN, MaxConns: 2}, logger)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()

	views, err := audit.AuditViews(ctx, scopedb.New(pool, logger, nil))
	if err != nil {
		return nil, fmt.Errorf("view audit: %w", err)
	}
	return append(vs, views...), nil
}

func newLogger(debug bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		panic(err)
	}
	return logger
}
