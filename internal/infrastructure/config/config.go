// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. NOURISH_SERVER_PORT
const EnvPrefix = "NOURISH"

// Config holds all application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Billing    BillingConfig    `mapstructure:"billing"`
	AI         AIConfig         `mapstructure:"ai"`
	FoodData   FoodDataConfig   `mapstructure:"food_data"`
	Jobs       JobsConfig       `mapstructure:"jobs"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Features   FeatureFlags     `mapstructure:"features"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
	BaseURL     string `mapstructure:"base_url"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes    int           `mapstructure:"max_header_bytes"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	EnableCORS        bool          `mapstructure:"enable_cors"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`
	EnableCompression bool          `mapstructure:"enable_compression"`
}

// Address returns host:port for the listener
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig contains database configuration
type DatabaseConfig struct {
	Driver             string        `mapstructure:"driver"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	Database           string        `mapstructure:"database"`
	Username           string        `mapstructure:"username"`
	Password           string        `mapstructure:"password"`
	SSLMode            string        `mapstructure:"ssl_mode"`
	SQLitePath         string        `mapstructure:"sqlite_path"`
	ReplicaDSNs        []string      `mapstructure:"replica_dsns"`
	MaxOpenConns       int           `mapstructure:"max_open_conns"`
	MaxIdleConns       int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel           string        `mapstructure:"log_level"`
	SlowQueryThreshold time.Duration `mapstructure:"slow_query_threshold"`
	AutoMigrate        bool          `mapstructure:"auto_migrate"`
	SeedDemoData       bool          `mapstructure:"seed_demo_data"`
	SeedAdminEmail     string        `mapstructure:"seed_admin_email"`
	SeedAdminPassword  string        `mapstructure:"seed_admin_password"`
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	MaxRetries   int           `mapstructure:"max_retries"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// Address returns host:port for the redis client
func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig contains authentication configuration
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	Issuer            string        `mapstructure:"issuer"`
	AccessExpiration  time.Duration `mapstructure:"access_expiration"`
	RefreshExpiration time.Duration `mapstructure:"refresh_expiration"`
	CookieName        string        `mapstructure:"cookie_name"`
	CookieSecure      bool          `mapstructure:"cookie_secure"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enable          bool          `mapstructure:"enable"`
	RequestsPerMin  int           `mapstructure:"requests_per_min"`
	BurstSize       int           `mapstructure:"burst_size"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	UseRedis        bool          `mapstructure:"use_redis"`
}

// BillingConfig contains payment provider configuration
type BillingConfig struct {
	Provider          string `mapstructure:"provider"`
	SecretKey         string `mapstructure:"secret_key"`
	WebhookSecret     string `mapstructure:"webhook_secret"`
	MonthlyPriceID    string `mapstructure:"monthly_price_id"`
	YearlyPriceID     string `mapstructure:"yearly_price_id"`
	MonthlyPriceCents int64  `mapstructure:"monthly_price_cents"`
	YearlyPriceCents  int64  `mapstructure:"yearly_price_cents"`
	SuccessURL        string `mapstructure:"success_url"`
	CancelURL         string `mapstructure:"cancel_url"`
	PortalReturnURL   string `mapstructure:"portal_return_url"`
}

// Enabled reports whether a real payment provider is configured
func (b BillingConfig) Enabled() bool {
	return b.Provider == "stripe" && b.SecretKey != ""
}

// AIConfig contains the coaching insight model configuration
type AIConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// FoodDataConfig contains the food database lookup configuration
type FoodDataConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	PageSize  int           `mapstructure:"page_size"`
	UserAgent string        `mapstructure:"user_agent"`
}

// JobsConfig contains background job schedules
type JobsConfig struct {
	Enable                   bool   `mapstructure:"enable"`
	SubscriptionSyncSchedule string `mapstructure:"subscription_sync_schedule"`
	LimiterCleanupSchedule   string `mapstructure:"limiter_cleanup_schedule"`
}

// MonitoringConfig contains monitoring configuration
type MonitoringConfig struct {
	EnableMetrics bool    `mapstructure:"enable_metrics"`
	EnableTracing bool    `mapstructure:"enable_tracing"`
	OTLPEndpoint  string  `mapstructure:"otlp_endpoint"`
	SamplingRate  float64 `mapstructure:"sampling_rate"`
	MetricsPath   string  `mapstructure:"metrics_path"`
}

// FeatureFlags contains feature toggles
type FeatureFlags struct {
	EnableAIInsights bool `mapstructure:"enable_ai_insights"`
	EnableRealtime   bool `mapstructure:"enable_realtime"`
	EnableWebUI      bool `mapstructure:"enable_web_ui"`
	MaintenanceMode  bool `mapstructure:"maintenance_mode"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	return decode(v)
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/nourish")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values. Every key needs a default so
// AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Nourish")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")
	v.SetDefault("app.base_url", "http://localhost:8080")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_header_bytes", 1<<20) // 1MB
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.enable_cors", true)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.enable_compression", true)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "nourish")
	v.SetDefault("database.username", "nourish")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.sqlite_path", "nourish.db")
	v.SetDefault("database.replica_dsns", []string{})
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("database.slow_query_threshold", "200ms")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.seed_demo_data", false)
	v.SetDefault("database.seed_admin_email", "admin@nourish.local")
	v.SetDefault("database.seed_admin_password", "")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "nourish:")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "nourish")
	v.SetDefault("auth.access_expiration", "1h")
	v.SetDefault("auth.refresh_expiration", "168h") // 7 days
	v.SetDefault("auth.cookie_name", "session")
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("rate_limit.enable", true)
	v.SetDefault("rate_limit.requests_per_min", 120)
	v.SetDefault("rate_limit.burst_size", 20)
	v.SetDefault("rate_limit.cleanup_interval", "1m")
	v.SetDefault("rate_limit.idle_ttl", "10m")
	v.SetDefault("rate_limit.use_redis", false)

	v.SetDefault("billing.provider", "stripe")
	v.SetDefault("billing.secret_key", "")
	v.SetDefault("billing.webhook_secret", "")
	v.SetDefault("billing.monthly_price_id", "")
	v.SetDefault("billing.yearly_price_id", "")
	v.SetDefault("billing.monthly_price_cents", 999)
	v.SetDefault("billing.yearly_price_cents", 9900)
	v.SetDefault("billing.success_url", "http://localhost:8080/dashboard?checkout=success")
	v.SetDefault("billing.cancel_url", "http://localhost:8080/pricing?checkout=cancelled")
	v.SetDefault("billing.portal_return_url", "http://localhost:8080/settings")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.max_tokens", 400)
	v.SetDefault("ai.temperature", 0.4)
	v.SetDefault("ai.timeout", "20s")

	v.SetDefault("food_data.base_url", "https://world.openfoodfacts.org")
	v.SetDefault("food_data.timeout", "2s")
	v.SetDefault("food_data.cache_ttl", "24h")
	v.SetDefault("food_data.page_size", 10)
	v.SetDefault("food_data.user_agent", "Nourish/1.0 (support@nourish.local)")

	v.SetDefault("jobs.enable", true)
	v.SetDefault("jobs.subscription_sync_schedule", "@every 6h")
	v.SetDefault("jobs.limiter_cleanup_schedule", "@every 5m")

	v.SetDefault("monitoring.enable_metrics", true)
	v.SetDefault("monitoring.enable_tracing", false)
	v.SetDefault("monitoring.otlp_endpoint", "localhost:4318")
	v.SetDefault("monitoring.sampling_rate", 0.1)
	v.SetDefault("monitoring.metrics_path", "/metrics")

	v.SetDefault("features.enable_ai_insights", true)
	v.SetDefault("features.enable_realtime", true)
	v.SetDefault("features.enable_web_ui", true)
	v.SetDefault("features.maintenance_mode", false)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Database == "" {
			return fmt.Errorf("database.database is required")
		}
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("database.sqlite_path is required")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}

	if c.Database.SeedDemoData && c.Database.SeedAdminPassword == "" {
		return fmt.Errorf("database.seed_admin_password is required when seed_demo_data is enabled")
	}

	if c.Auth.JWTSecret == "" && c.IsProduction() {
		return fmt.Errorf("auth.jwt_secret is required in production")
	}
	if c.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes in production")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.RateLimit.Enable && c.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("rate_limit.requests_per_min must be positive")
	}

	if c.RateLimit.UseRedis && !c.Redis.Enabled {
		return fmt.Errorf("rate_limit.use_redis requires redis.enabled")
	}

	if c.Billing.Enabled() && c.Billing.WebhookSecret == "" {
		return fmt.Errorf("billing.webhook_secret is required when billing is enabled")
	}

	return nil
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// GetDSN returns the postgres connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetMigrateURL returns the postgres URL used by the migration runner
func (c *Config) GetMigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.Username,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}
