package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Log            LogConfig
	HTTP           HTTPConfig
	Webhook        WebhookConfig
	Sync           SyncConfig
	Reconciliation ReconciliationConfig
	Monitoring     MonitoringConfig
	Naver          PlatformConfig
	Shopify        PlatformConfig
	Telemetry      TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings.
// When disabled the cache and webhook receipts live in process memory.
type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
	TrustedProxies    []string
}

// WebhookConfig holds inbound webhook settings
type WebhookConfig struct {
	// ShopifySecret verifies X-Shopify-Hmac-Sha256. Empty skips verification.
	ShopifySecret string
	ReceiptTTL    time.Duration
	// OrderTTL keeps paid-order outcomes for later cancellation
	OrderTTL    time.Duration
	MaxBodySize int64
}

// SyncConfig holds job orchestration settings
type SyncConfig struct {
	BatchSize         int
	Concurrency       int
	BatchPause        time.Duration
	Workers           int
	QueueSize         int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryInitialDelay time.Duration
	RetryMultiplier   float64
	RetryMaxDelay     time.Duration
	CallTimeout       time.Duration
}

// ReconciliationConfig holds discrepancy classification and pricing settings
type ReconciliationConfig struct {
	CriticalThreshold int
	LowThreshold      int
	Tolerance         int
	PriceEpsilon      float64
	DefaultMargin     float64
	DefaultRounding   string
	RateCacheTTL      time.Duration
	LiveRateCacheTTL  time.Duration
	LiveRateURL       string
}

// MonitoringConfig holds alert sampling and aging settings
type MonitoringConfig struct {
	Enabled         bool
	SampleInterval  time.Duration
	AgingInterval   time.Duration
	AutoResolveAge  time.Duration
	GracePeriod     time.Duration
	MetricsCacheTTL time.Duration
}

// PlatformConfig holds credentials and call limits for one external catalog
type PlatformConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	// AccessToken is the Shopify Admin API token
	AccessToken        string
	APIVersion         string
	LocationID         string
	RatePerSecond      float64
	Burst              int
	BreakerFailures    uint32
	BreakerOpenTimeout time.Duration
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable tracing
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	// Database tracing options
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
	// MetricsExporter is one of "otlp", "prometheus" or "none"
	MetricsExporter       string
	MetricsExportInterval time.Duration
	LogsEnabled           bool
	// Continuous profiling
	ProfilingEnabled       bool
	ProfilingServerAddress string
	ProfilingTypes         []string
}

// Load loads configuration from a .env file, TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SYNC_ prefix (e.g., SYNC_DATABASE_PASSWORD)
// 2. .env (never overrides variables already set)
// 3. config.toml
// 4. Built-in defaults
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:   v.GetBool("redis.enabled"),
			Host:      v.GetString("redis.host"),
			Port:      v.GetInt("redis.port"),
			Password:  v.GetString("redis.password"),
			DB:        v.GetInt("redis.db"),
			KeyPrefix: v.GetString("redis.key_prefix"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
		},
		Webhook: WebhookConfig{
			ShopifySecret: v.GetString("webhook.shopify_secret"),
			ReceiptTTL:    v.GetDuration("webhook.receipt_ttl"),
			OrderTTL:      v.GetDuration("webhook.order_ttl"),
			MaxBodySize:   v.GetInt64("webhook.max_body_size"),
		},
		Sync: SyncConfig{
			BatchSize:         v.GetInt("sync.batch_size"),
			Concurrency:       v.GetInt("sync.concurrency"),
			BatchPause:        v.GetDuration("sync.batch_pause"),
			Workers:           v.GetInt("sync.workers"),
			QueueSize:         v.GetInt("sync.queue_size"),
			JobTimeout:        v.GetDuration("sync.job_timeout"),
			RetryAttempts:     v.GetInt("sync.retry_attempts"),
			RetryInitialDelay: v.GetDuration("sync.retry_initial_delay"),
			RetryMultiplier:   v.GetFloat64("sync.retry_multiplier"),
			RetryMaxDelay:     v.GetDuration("sync.retry_max_delay"),
			CallTimeout:       v.GetDuration("sync.call_timeout"),
		},
		Reconciliation: ReconciliationConfig{
			CriticalThreshold: v.GetInt("reconciliation.critical_threshold"),
			LowThreshold:      v.GetInt("reconciliation.low_threshold"),
			Tolerance:         v.GetInt("reconciliation.tolerance"),
			PriceEpsilon:      v.GetFloat64("reconciliation.price_epsilon"),
			DefaultMargin:     v.GetFloat64("reconciliation.default_margin"),
			DefaultRounding:   v.GetString("reconciliation.default_rounding"),
			RateCacheTTL:      v.GetDuration("reconciliation.rate_cache_ttl"),
			LiveRateCacheTTL:  v.GetDuration("reconciliation.live_rate_cache_ttl"),
			LiveRateURL:       v.GetString("reconciliation.live_rate_url"),
		},
		Monitoring: MonitoringConfig{
			Enabled:         v.GetBool("monitoring.enabled"),
			SampleInterval:  v.GetDuration("monitoring.sample_interval"),
			AgingInterval:   v.GetDuration("monitoring.aging_interval"),
			AutoResolveAge:  v.GetDuration("monitoring.auto_resolve_age"),
			GracePeriod:     v.GetDuration("monitoring.grace_period"),
			MetricsCacheTTL: v.GetDuration("monitoring.metrics_cache_ttl"),
		},
		Naver:   loadPlatform(v, "naver"),
		Shopify: loadPlatform(v, "shopify"),
		Telemetry: TelemetryConfig{
			Enabled:                v.GetBool("telemetry.enabled"),
			CollectorEndpoint:      v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:          v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:            v.GetString("telemetry.service_name"),
			Insecure:               v.GetBool("telemetry.insecure"),
			DBTraceEnabled:         v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:           v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh:      v.GetDuration("telemetry.db_slow_query_threshold"),
			MetricsExporter:        v.GetString("telemetry.metrics_exporter"),
			MetricsExportInterval:  v.GetDuration("telemetry.metrics_export_interval"),
			LogsEnabled:            v.GetBool("telemetry.logs_enabled"),
			ProfilingEnabled:       v.GetBool("telemetry.profiling_enabled"),
			ProfilingServerAddress: v.GetString("telemetry.profiling_server_address"),
			ProfilingTypes:         v.GetStringSlice("telemetry.profiling_types"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPlatform(v *viper.Viper, name string) PlatformConfig {
	return PlatformConfig{
		BaseURL:            v.GetString(name + ".base_url"),
		ClientID:           v.GetString(name + ".client_id"),
		ClientSecret:       v.GetString(name + ".client_secret"),
		AccessToken:        v.GetString(name + ".access_token"),
		APIVersion:         v.GetString(name + ".api_version"),
		LocationID:         v.GetString(name + ".location_id"),
		RatePerSecond:      v.GetFloat64(name + ".rate_per_second"),
		Burst:              v.GetInt(name + ".burst"),
		BreakerFailures:    v.GetUint32(name + ".breaker_failures"),
		BreakerOpenTimeout: v.GetDuration(name + ".breaker_open_timeout"),
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "inventory-sync"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "inventory_sync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "sync:"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Webhook.ReceiptTTL == 0 {
		cfg.Webhook.ReceiptTTL = 24 * time.Hour
	}
	if cfg.Webhook.OrderTTL == 0 {
		cfg.Webhook.OrderTTL = 30 * 24 * time.Hour
	}
	if cfg.Webhook.MaxBodySize == 0 {
		cfg.Webhook.MaxBodySize = 1 << 20
	}

	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 10
	}
	if cfg.Sync.Concurrency == 0 {
		cfg.Sync.Concurrency = 5
	}
	if cfg.Sync.BatchPause == 0 {
		cfg.Sync.BatchPause = time.Second
	}
	if cfg.Sync.Workers == 0 {
		cfg.Sync.Workers = 2
	}
	if cfg.Sync.QueueSize == 0 {
		cfg.Sync.QueueSize = 100
	}
	if cfg.Sync.JobTimeout == 0 {
		cfg.Sync.JobTimeout = 30 * time.Minute
	}
	if cfg.Sync.RetryAttempts == 0 {
		cfg.Sync.RetryAttempts = 3
	}
	if cfg.Sync.RetryInitialDelay == 0 {
		cfg.Sync.RetryInitialDelay = time.Second
	}
	if cfg.Sync.RetryMultiplier == 0 {
		cfg.Sync.RetryMultiplier = 2
	}
	if cfg.Sync.RetryMaxDelay == 0 {
		cfg.Sync.RetryMaxDelay = 10 * time.Second
	}
	if cfg.Sync.CallTimeout == 0 {
		cfg.Sync.CallTimeout = 10 * time.Second
	}

	if cfg.Reconciliation.CriticalThreshold == 0 {
		cfg.Reconciliation.CriticalThreshold = 5
	}
	if cfg.Reconciliation.LowThreshold == 0 {
		cfg.Reconciliation.LowThreshold = 10
	}
	if cfg.Reconciliation.Tolerance == 0 {
		cfg.Reconciliation.Tolerance = 5
	}
	if cfg.Reconciliation.PriceEpsilon == 0 {
		cfg.Reconciliation.PriceEpsilon = 0.01
	}
	if cfg.Reconciliation.DefaultMargin == 0 {
		cfg.Reconciliation.DefaultMargin = 0.15
	}
	if cfg.Reconciliation.DefaultRounding == "" {
		cfg.Reconciliation.DefaultRounding = "nearest"
	}
	if cfg.Reconciliation.RateCacheTTL == 0 {
		cfg.Reconciliation.RateCacheTTL = 5 * time.Minute
	}
	if cfg.Reconciliation.LiveRateCacheTTL == 0 {
		cfg.Reconciliation.LiveRateCacheTTL = time.Minute
	}
	if cfg.Reconciliation.LiveRateURL == "" {
		cfg.Reconciliation.LiveRateURL = "https://open.er-api.com/v6/latest/{base}"
	}

	if cfg.Monitoring.SampleInterval == 0 {
		cfg.Monitoring.SampleInterval = 60 * time.Second
	}
	if cfg.Monitoring.AgingInterval == 0 {
		cfg.Monitoring.AgingInterval = 5 * time.Minute
	}
	if cfg.Monitoring.AutoResolveAge == 0 {
		cfg.Monitoring.AutoResolveAge = 24 * time.Hour
	}
	if cfg.Monitoring.GracePeriod == 0 {
		cfg.Monitoring.GracePeriod = time.Hour
	}
	if cfg.Monitoring.MetricsCacheTTL == 0 {
		cfg.Monitoring.MetricsCacheTTL = time.Minute
	}

	if cfg.Naver.BaseURL == "" {
		cfg.Naver.BaseURL = "https://api.commerce.naver.com/external"
	}
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-01"
	}
	applyPlatformDefaults(&cfg.Naver)
	applyPlatformDefaults(&cfg.Shopify)

	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.MetricsExporter == "" {
		cfg.Telemetry.MetricsExporter = "prometheus"
	}
	if cfg.Telemetry.MetricsExportInterval == 0 {
		cfg.Telemetry.MetricsExportInterval = 60 * time.Second
	}
	if len(cfg.Telemetry.ProfilingTypes) == 0 {
		cfg.Telemetry.ProfilingTypes = []string{"cpu", "alloc_space", "inuse_space", "goroutines"}
	}
}

func applyPlatformDefaults(p *PlatformConfig) {
	if p.RatePerSecond == 0 {
		p.RatePerSecond = 2
	}
	if p.Burst == 0 {
		p.Burst = 2
	}
	if p.BreakerFailures == 0 {
		p.BreakerFailures = 5
	}
	if p.BreakerOpenTimeout == 0 {
		p.BreakerOpenTimeout = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Sync.BatchSize < 0 || c.Sync.Concurrency < 0 {
		return fmt.Errorf("sync.batch_size and sync.concurrency must be positive")
	}
	if c.Reconciliation.CriticalThreshold > c.Reconciliation.LowThreshold {
		return fmt.Errorf("reconciliation.critical_threshold (%d) cannot exceed reconciliation.low_threshold (%d)",
			c.Reconciliation.CriticalThreshold, c.Reconciliation.LowThreshold)
	}
	switch c.Reconciliation.DefaultRounding {
	case "up", "down", "nearest":
	default:
		return fmt.Errorf("reconciliation.default_rounding must be one of up, down, nearest, got %q", c.Reconciliation.DefaultRounding)
	}
	switch c.Telemetry.MetricsExporter {
	case "otlp", "prometheus", "none":
	default:
		return fmt.Errorf("telemetry.metrics_exporter must be one of otlp, prometheus, none, got %q", c.Telemetry.MetricsExporter)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Webhook.ShopifySecret == "" {
			return fmt.Errorf("webhook.shopify_secret is required in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
