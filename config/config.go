package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
// It is read once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Identity    IdentityConfig
	Quota       QuotaConfig
	Telemetry   TelemetryConfig
	Credentials CredentialsConfig
	AWS         AWSConfig
	Worker      WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL              string // if set, used as-is (e.g. postgres://localhost:5432/sellerdesk?sslmode=disable)
	Host             string
	Port             string
	User             string
	Password         string
	DBName           string
	SSLMode          string
	MaxConns         int
	StatementTimeout time.Duration
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// IdentityConfig holds the shared secret and freshness window for host identity assertions.
type IdentityConfig struct {
	Secret          string
	FreshnessWindow time.Duration
	// AllowTestTokens enables `Bearer tenant:<external-identity>` for automation and tests.
	AllowTestTokens bool
}

// QuotaConfig holds the process-wide default quotas.
type QuotaConfig struct {
	Backend              string // "postgres" or "redis"
	DefaultRatePerSecond int64
	DefaultExportMaxRows int64
	DefaultJobQueueMax   int64
}

// TelemetryConfig holds violation alerting settings.
type TelemetryConfig struct {
	ScopeViolationAlertThreshold float64 // informational only; exported as a gauge
}

// CredentialsConfig holds the key used to encrypt credential bundle fields.
type CredentialsConfig struct {
	KeyHex string // 64 hex chars (32 bytes)
}

// AWSConfig holds AWS credentials and the S3 bucket used for tenant exports.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	PresignExpireMinutes int
}

// WorkerConfig holds settings for cmd/worker.
type WorkerConfig struct {
	MetricsAddr string // empty disables the metrics listener
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:              getEnv("DATABASE_URL", ""),
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnv("DB_PORT", "5432"),
			User:             getEnv("DB_USER", "postgres"),
			Password:         getEnv("DB_PASSWORD", "postgres"),
			DBName:           getEnv("DB_NAME", "sellerdesk"),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MaxConns:         getEnvInt("DB_MAX_CONNS", 20),
			StatementTimeout: time.Duration(getEnvInt("DB_STATEMENT_TIMEOUT_MS", 15000)) * time.Millisecond,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Identity: IdentityConfig{
			Secret:          getEnv("IDENTITY_SECRET", ""),
			FreshnessWindow: time.Duration(getEnvInt("IDENTITY_FRESHNESS_SEC", 86400)) * time.Second,
			AllowTestTokens: getEnvBool("ALLOW_TEST_TOKENS", false),
		},
		Quota: QuotaConfig{
			Backend:              strings.ToLower(getEnv("QUOTA_BACKEND", "postgres")),
			DefaultRatePerSecond: int64(getEnvInt("DEFAULT_RATE_QUOTA_PER_SECOND", 10)),
			DefaultExportMaxRows: int64(getEnvInt("DEFAULT_EXPORT_MAX_ROWS", 5000)),
			DefaultJobQueueMax:   int64(getEnvInt("DEFAULT_JOB_QUEUE_MAX", 5)),
		},
		Telemetry: TelemetryConfig{
			ScopeViolationAlertThreshold: getEnvFloat("SCOPE_VIOLATION_ALERT_THRESHOLD", 0),
		},
		Credentials: CredentialsConfig{
			KeyHex: getEnv("CREDENTIALS_KEY", ""),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ExportsBucket:        getEnv("AWS_S3_EXPORTS_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Worker: WorkerConfig{
			MetricsAddr: getEnv("WORKER_METRICS_ADDR", ":9091"),
		},
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.Identity.Secret == "" && !c.Identity.AllowTestTokens {
		return fmt.Errorf("IDENTITY_SECRET is required unless ALLOW_TEST_TOKENS is set")
	}
	if c.Identity.FreshnessWindow <= 0 {
		return fmt.Errorf("IDENTITY_FRESHNESS_SEC must be positive")
	}
	switch c.Quota.Backend {
	case "postgres", "redis":
	default:
		return fmt.Errorf("QUOTA_BACKEND must be postgres or redis, got %q", c.Quota.Backend)
	}
	if c.Quota.DefaultRatePerSecond <= 0 || c.Quota.DefaultExportMaxRows <= 0 || c.Quota.DefaultJobQueueMax <= 0 {
		return fmt.Errorf("default quotas must be positive")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
