package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/xray")

	// Ignore error if config file not found
	_ = v.ReadInConfig()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Server
	cfg.Server.Host = v.GetString("server_host")
	cfg.Server.Port = v.GetInt("server_port")
	cfg.Server.Env = v.GetString("server_env")
	cfg.Server.ShutdownTimeout = v.GetDuration("server_shutdown_timeout")

	// Store
	cfg.Store.Backend = strings.ToLower(v.GetString("store_backend"))

	// PostgreSQL
	cfg.Postgres.Host = v.GetString("postgres_host")
	cfg.Postgres.Port = v.GetInt("postgres_port")
	cfg.Postgres.User = v.GetString("postgres_user")
	cfg.Postgres.Password = v.GetString("postgres_password")
	cfg.Postgres.Database = v.GetString("postgres_db")
	cfg.Postgres.SSLMode = v.GetString("postgres_ssl_mode")
	cfg.Postgres.MaxConns = int32(v.GetInt("postgres_max_conns"))
	cfg.Postgres.MinConns = int32(v.GetInt("postgres_min_conns"))

	// ClickHouse
	cfg.ClickHouse.Host = v.GetString("clickhouse_host")
	cfg.ClickHouse.Port = v.GetInt("clickhouse_port")
	cfg.ClickHouse.User = v.GetString("clickhouse_user")
	cfg.ClickHouse.Password = v.GetString("clickhouse_password")
	cfg.ClickHouse.Database = v.GetString("clickhouse_db")

	// Redis
	cfg.Redis.Enabled = v.GetBool("redis_enabled")
	cfg.Redis.Host = v.GetString("redis_host")
	cfg.Redis.Port = v.GetInt("redis_port")
	cfg.Redis.Password = v.GetString("redis_password")
	cfg.Redis.DB = v.GetInt("redis_db")

	// MinIO
	cfg.MinIO.Endpoint = v.GetString("minio_endpoint")
	cfg.MinIO.AccessKey = v.GetString("minio_access_key")
	cfg.MinIO.SecretKey = v.GetString("minio_secret_key")
	cfg.MinIO.UseSSL = v.GetBool("minio_use_ssl")
	cfg.MinIO.Bucket = v.GetString("minio_bucket")

	// CORS
	cfg.CORS.AllowedOrigins = v.GetStringSlice("cors_allowed_origins")

	// Rate limiting
	cfg.RateLimit.Enabled = v.GetBool("rate_limit_enabled")
	cfg.RateLimit.RunsPerWindow = v.GetInt("rate_limit_runs_per_window")
	cfg.RateLimit.Window = v.GetDuration("rate_limit_window")

	// Cache
	cfg.Cache.Enabled = v.GetBool("cache_enabled")
	cfg.Cache.TTL = v.GetDuration("cache_ttl")

	// Worker
	cfg.Worker.Concurrency = v.GetInt("worker_concurrency")
	cfg.Worker.QueueDefault = v.GetString("worker_queue_default")
	cfg.Worker.QueueLow = v.GetString("worker_queue_low")
	cfg.Worker.ExportEnabled = v.GetBool("worker_export_enabled")

	// Reconciliation
	cfg.Reconcile.Enabled = v.GetBool("reconcile_enabled")
	cfg.Reconcile.Timeout = v.GetDuration("reconcile_timeout")
	cfg.Reconcile.Cron = v.GetString("reconcile_cron")

	// Workflow
	cfg.Workflow.PriceMinRatio = v.GetFloat64("workflow_price_min_ratio")
	cfg.Workflow.PriceMaxRatio = v.GetFloat64("workflow_price_max_ratio")
	cfg.Workflow.MinRating = v.GetFloat64("workflow_min_rating")
	cfg.Workflow.MinReviews = v.GetInt("workflow_min_reviews")
	cfg.Workflow.ReviewWeight = v.GetFloat64("workflow_review_weight")
	cfg.Workflow.RatingWeight = v.GetFloat64("workflow_rating_weight")
	cfg.Workflow.PriceWeight = v.GetFloat64("workflow_price_weight")

	// Logging
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")

	// Sentry
	cfg.Sentry.Enabled = v.GetBool("sentry_enabled")
	cfg.Sentry.DSN = v.GetString("sentry_dsn")
	cfg.Sentry.Environment = v.GetString("sentry_environment")
	cfg.Sentry.Release = v.GetString("sentry_release")
	cfg.Sentry.SampleRate = v.GetFloat64("sentry_sample_rate")
	cfg.Sentry.TracesSampleRate = v.GetFloat64("sentry_traces_sample_rate")

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 3000)
	v.SetDefault("server_env", "development")
	v.SetDefault("server_shutdown_timeout", "10s")

	// Store defaults
	v.SetDefault("store_backend", StoreBackendPostgres)

	// PostgreSQL defaults
	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "xray")
	v.SetDefault("postgres_password", "xray")
	v.SetDefault("postgres_db", "xray")
	v.SetDefault("postgres_ssl_mode", "disable")
	v.SetDefault("postgres_max_conns", 10)
	v.SetDefault("postgres_min_conns", 2)

	// ClickHouse defaults
	v.SetDefault("clickhouse_host", "localhost")
	v.SetDefault("clickhouse_port", 9000)
	v.SetDefault("clickhouse_user", "xray")
	v.SetDefault("clickhouse_password", "xray")
	v.SetDefault("clickhouse_db", "xray")

	// Redis defaults
	v.SetDefault("redis_enabled", true)
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	// MinIO defaults
	v.SetDefault("minio_endpoint", "localhost:9002")
	v.SetDefault("minio_access_key", "xray")
	v.SetDefault("minio_secret_key", "xray12345")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("minio_bucket", "xray-exports")

	// CORS defaults
	v.SetDefault("cors_allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})

	// Rate limiting defaults
	v.SetDefault("rate_limit_enabled", true)
	v.SetDefault("rate_limit_runs_per_window", 30)
	v.SetDefault("rate_limit_window", "1m")

	// Cache defaults
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl", "10m")

	// Worker defaults
	v.SetDefault("worker_concurrency", 5)
	v.SetDefault("worker_queue_default", "default")
	v.SetDefault("worker_queue_low", "low")
	v.SetDefault("worker_export_enabled", true)

	// Reconciliation defaults
	v.SetDefault("reconcile_enabled", true)
	v.SetDefault("reconcile_timeout", "30m")
	v.SetDefault("reconcile_cron", "*/10 * * * *")

	// Workflow defaults
	v.SetDefault("workflow_price_min_ratio", 0.5)
	v.SetDefault("workflow_price_max_ratio", 2.0)
	v.SetDefault("workflow_min_rating", 3.8)
	v.SetDefault("workflow_min_reviews", 100)
	v.SetDefault("workflow_review_weight", 0.5)
	v.SetDefault("workflow_rating_weight", 0.3)
	v.SetDefault("workflow_price_weight", 0.2)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Sentry defaults
	v.SetDefault("sentry_enabled", false)
	v.SetDefault("sentry_sample_rate", 1.0)
	v.SetDefault("sentry_traces_sample_rate", 0.1)
}

func validate(cfg *Config) error {
	switch cfg.Store.Backend {
	case StoreBackendPostgres, StoreBackendClickHouse, StoreBackendMemory:
	default:
		return fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
	if cfg.Store.Backend == StoreBackendMemory && cfg.IsProduction() {
		return fmt.Errorf("memory store cannot be used in production")
	}
	if cfg.Reconcile.Enabled && cfg.Reconcile.Timeout <= 0 {
		return fmt.Errorf("reconcile timeout must be positive")
	}
	if cfg.Workflow.PriceMinRatio > cfg.Workflow.PriceMaxRatio {
		return fmt.Errorf("workflow price ratio range is inverted")
	}
	return nil
}
