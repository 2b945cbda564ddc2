// Package main runs the multi-tenant seller API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sellerdesk/backend/config"
	"github.com/sellerdesk/backend/internal/exports"
	"github.com/sellerdesk/backend/internal/server"
	"github.com/sellerdesk/backend/pkg/database"
	"github.com/sellerdesk/backend/pkg/redis"
	"github.com/sellerdesk/backend/pkg/storage"
	"github.com/sellerdesk/backend/pkg/utils"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sealer, err := utils.NewSealerFromHex(cfg.Credentials.KeyHex)
	if err != nil {
		logger.Fatal("credentials key", zap.Error(err))
	}

	var exportStore exports.ObjectStore
	if cfg.AWS.Region != "" && cfg.AWS.ExportsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			ExportsBucket:        cfg.AWS.ExportsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, exports are streamed inline", zap.Error(err))
		} else {
			exportStore = s3Client
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gin.SetMode(gin.ReleaseMode)
	router := server.NewRouter(server.NewDeps(server.Options{
		Config:   cfg,
		Pool:     pool,
		Redis:    rdb,
		Registry: registry,
		Exports:  exportStore,
		Cipher:   sealer,
		Logger:   logger,
	}))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening",
			zap.String("port", cfg.Server.Port),
			zap.String("quota_backend", cfg.Quota.Backend),
			zap.Bool("s3_exports", exportStore != nil))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
