// Package main runs the background job worker (per-tenant sales summary recompute).
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sellerdesk/backend/config"
	"github.com/sellerdesk/backend/internal/jobs"
	"github.com/sellerdesk/backend/internal/sales"
	"github.com/sellerdesk/backend/internal/scopedb"
	"github.com/sellerdesk/backend/internal/telemetry"
	"github.com/sellerdesk/backend/internal/worker"
	"github.com/sellerdesk/backend/pkg/database"
	"github.com/sellerdesk/backend/pkg/queue"
	"github.com/sellerdesk/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, database.PoolConfig{
		DSN:              cfg.Database.DSN(),
		MaxConns:         int32(cfg.Database.MaxConns),
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	registry := prometheus.NewRegistry()
	violations := telemetry.NewViolations(registry, cfg.Telemetry.ScopeViolationAlertThreshold)
	exec := scopedb.New(pool, logger, violations)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	processor := worker.NewProcessor(jobs.NewRepository(exec), jobQueue, sales.NewRepository(exec), logger)

	var metricsSrv *http.Server
	if cfg.Worker.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler(registry))
		metricsSrv = &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics listener", zap.Error(err))
			}
		}()
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Run(workerCtx)
	logger.Info("worker started", zap.String("metrics_addr", cfg.Worker.MetricsAddr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	if metricsSrv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
