// Package config provides configuration management and environment variable handling for the application
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ProductionConfig holds all configuration for the storefront
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Deployment DeploymentConfig `json:"deployment"`
	Panel      PanelConfig      `json:"panel"`
	Coinbase   CoinbaseConfig   `json:"coinbase"`
	Square     SquareConfig     `json:"square"`
	Payments   PaymentsConfig   `json:"payments"`
	Archive    ArchiveConfig    `json:"archive"`
	Notifier   NotifierConfig   `json:"notifier"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

// DSN renders the keyword/value connection string used by gorm
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// URL renders the postgres:// form used by golang-migrate
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	BodyLimit       int           `json:"body_limit"`
	ProxyHeader     string        `json:"proxy_header"`
	PublicBaseURL   string        `json:"public_base_url"`
}

type SecurityConfig struct {
	AllowedOrigins   []string      `json:"allowed_origins"`
	AllowedMethods   []string      `json:"allowed_methods"`
	AllowedHeaders   []string      `json:"allowed_headers"`
	AllowCredentials bool          `json:"allow_credentials"`
	CORSMaxAge       int           `json:"cors_max_age"`
	GlobalRateLimit  int           `json:"global_rate_limit"` // requests per window
	RateLimitWindow  time.Duration `json:"rate_limit_window"`

	// AdminAPIKeyHash is a bcrypt hash of the X-API-Key accepted on /admin routes
	AdminAPIKeyHash string `json:"-"`

	// Identity
	IdentityJWTSecret    string `json:"-"`
	IdentityJWTIssuer    string `json:"identity_jwt_issuer"`
	TrustIdentityHeaders bool   `json:"trust_identity_headers"`
}

type LoggingConfig struct {
	Level      string `json:"level"`  // debug, info, warn, error
	Format     string `json:"format"` // json, text
	Output     string `json:"output"` // stdout, file, both
	FilePath   string `json:"file_path"`
	MaxSize    int    `json:"max_size"` // MB
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"` // days
	Compress   bool   `json:"compress"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	CatalogTTL      time.Duration `json:"catalog_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Region      string `json:"region"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
}

// IsProduction reports whether debug affordances must stay disabled
func (d DeploymentConfig) IsProduction() bool {
	return strings.EqualFold(d.Environment, "production")
}

type PanelConfig struct {
	URL     string        `json:"url"`
	APIKey  string        `json:"-"`
	Timeout time.Duration `json:"timeout"`
}

type CoinbaseConfig struct {
	APIKey        string        `json:"-"`
	WebhookSecret string        `json:"-"`
	BaseURL       string        `json:"base_url"`
	Timeout       time.Duration `json:"timeout"`
}

type SquareConfig struct {
	AccessToken            string        `json:"-"`
	LocationID             string        `json:"location_id"`
	WebhookSignatureKey    string        `json:"-"`
	WebhookNotificationURL string        `json:"webhook_notification_url"`
	Env                    string        `json:"env"` // sandbox, production
	Timeout                time.Duration `json:"timeout"`
}

// BaseURL returns the Square API host for the configured environment
func (s SquareConfig) BaseURL() string {
	if strings.EqualFold(s.Env, "sandbox") {
		return "https://connect.squareupsandbox.com"
	}
	return "https://connect.squareup.com"
}

type PaymentsConfig struct {
	DepositSuccessStatus string `json:"deposit_success_status"`
	MinDepositCents      int64  `json:"min_deposit_cents"`
	AllowDebugBypass     bool   `json:"allow_debug_bypass"`
	DebugReturnErrors    bool   `json:"debug_return_errors"`
}

type ArchiveConfig struct {
	Enabled   bool   `json:"enabled"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Prefix    string `json:"prefix"`
}

type NotifierConfig struct {
	TelegramBotToken string `json:"-"`
	TelegramChatID   int64  `json:"telegram_chat_id"`
}

type SchedulerConfig struct {
	CatalogRefreshEnabled bool   `json:"catalog_refresh_enabled"`
	CatalogRefreshSpec    string `json:"catalog_refresh_spec"`
	Timezone              string `json:"timezone"`
}

var validSuccessStatuses = []string{"paid", "confirmed", "completed"}

// LoadEnvFile loads variables from an env file; variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	for key, value := range values {
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: loadDatabaseConfig(),
		Server:   ServerConfig{
			Host:            getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:       getEnvInt("SERVER_BODY_LIMIT", 1024*1024),
			ProxyHeader:     getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			PublicBaseURL:   strings.TrimRight(getEnvString("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		},
		Security: SecurityConfig{
			AllowedOrigins:       getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:       getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "HEAD", "OPTIONS"}),
			AllowedHeaders:       getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-API-Key", "X-User-Id", "X-User-Email"}),
			AllowCredentials:     getEnvBool("CORS_ALLOW_CREDENTIALS", false),
			CORSMaxAge:           getEnvInt("CORS_MAX_AGE", 86400),
			GlobalRateLimit:      getEnvInt("GLOBAL_RATE_LIMIT", 600),
			RateLimitWindow:      getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			AdminAPIKeyHash:      getEnvString("ADMIN_API_KEY_HASH", ""),
			IdentityJWTSecret:    getEnvString("IDENTITY_JWT_SECRET", ""),
			IdentityJWTIssuer:    getEnvString("IDENTITY_JWT_ISSUER", ""),
			TrustIdentityHeaders: getEnvBool("TRUST_IDENTITY_HEADERS", true),
		},
		Logging: LoggingConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Format:     getEnvString("LOG_FORMAT", "json"),
			Output:     getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:   getEnvString("LOG_FILE_PATH", "/var/log/storefront/app.log"),
			MaxSize:    getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:     getEnvInt("LOG_MAX_AGE", 30),
			Compress:   getEnvBool("LOG_COMPRESS", true),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", true),
			RedisURL:        getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:     getEnvString("CACHE_REDIS_PREFIX", "storefront:"),
			CatalogTTL:      getEnvDuration("CACHE_CATALOG_TTL", 10*time.Minute),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 1*time.Minute),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Region:      getEnvString("APP_REGION", ""),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
		},
		Panel:    loadPanelConfig(),
		Coinbase: CoinbaseConfig{
			APIKey:        getEnvString("COINBASE_COMMERCE_API_KEY", ""),
			WebhookSecret: getEnvString("COINBASE_COMMERCE_WEBHOOK_SECRET", ""),
			BaseURL:       getEnvString("COINBASE_COMMERCE_BASE_URL", "https://api.commerce.coinbase.com"),
			Timeout:       getEnvDuration("COINBASE_TIMEOUT", 15*time.Second),
		},
		Square: SquareConfig{
			AccessToken:            getEnvString("SQUARE_ACCESS_TOKEN", ""),
			LocationID:             getEnvString("SQUARE_LOCATION_ID", ""),
			WebhookSignatureKey:    getEnvString("SQUARE_WEBHOOK_SIGNATURE_KEY", ""),
			WebhookNotificationURL: getEnvString("SQUARE_WEBHOOK_NOTIFICATION_URL", ""),
			Env:                    getEnvString("SQUARE_ENV", "production"),
			Timeout:                getEnvDuration("SQUARE_TIMEOUT", 15*time.Second),
		},
		Payments: PaymentsConfig{
			DepositSuccessStatus: strings.ToLower(getEnvString("DEPOSIT_SUCCESS_STATUS", "confirmed")),
			MinDepositCents:      int64(getEnvInt("MIN_DEPOSIT_CENTS", 100)),
			AllowDebugBypass:     getEnvBool("WEBHOOK_ALLOW_DEBUG_BYPASS", false),
			DebugReturnErrors:    getEnvBool("WEBHOOK_DEBUG_RETURN_ERRORS", false),
		},
		Archive: ArchiveConfig{
			Enabled:   getEnvBool("WEBHOOK_ARCHIVE_ENABLED", false),
			Bucket:    getEnvString("WEBHOOK_ARCHIVE_BUCKET", ""),
			Region:    getEnvString("WEBHOOK_ARCHIVE_REGION", "us-east-1"),
			Endpoint:  getEnvString("WEBHOOK_ARCHIVE_ENDPOINT", ""),
			AccessKey: getEnvString("WEBHOOK_ARCHIVE_ACCESS_KEY", ""),
			SecretKey: getEnvString("WEBHOOK_ARCHIVE_SECRET_KEY", ""),
			Prefix:    getEnvString("WEBHOOK_ARCHIVE_PREFIX", "webhooks/"),
		},
		Notifier: NotifierConfig{
			TelegramBotToken: getEnvString("TELEGRAM_BOT_TOKEN", ""),
			TelegramChatID:   getEnvInt64("TELEGRAM_CHAT_ID", 0),
		},
		Scheduler: SchedulerConfig{
			CatalogRefreshEnabled: getEnvBool("CATALOG_REFRESH_ENABLED", true),
			CatalogRefreshSpec:    getEnvString("CATALOG_REFRESH_SPEC", "@every 10m"),
			Timezone:              getEnvString("SCHEDULER_TIMEZONE", "UTC"),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Helper functions for environment variable parsing
// LoadDatabaseConfig reads only the database section; used by tools that do not need the full service config
func LoadDatabaseConfig() (DatabaseConfig, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return DatabaseConfig{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	return loadDatabaseConfig(), nil
}

// LoadPanelConfig reads only the panel section
func LoadPanelConfig() (PanelConfig, error) {
	if err := LoadEnvFile(".env"); err != nil {
		return PanelConfig{}, fmt.Errorf("failed to load .env file: %w", err)
	}
	cfg := loadPanelConfig()
	if cfg.URL == "" || cfg.APIKey == "" {
		return cfg, errors.New("SMM_API_URL and SMM_API_KEY are required")
	}
	return cfg, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            getEnvString("DB_HOST", "localhost"),
		Port:            getEnvInt("DB_PORT", 5432),
		Name:            getEnvString("DB_NAME", "storefront"),
		User:            getEnvString("DB_USER", "postgres"),
		Password:        getEnvString("DB_PASSWORD", ""),
		SSLMode:         getEnvString("DB_SSL_MODE", "require"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
	}
}

func loadPanelConfig() PanelConfig {
	return PanelConfig{
		URL:     getEnvFirst([]string{"SMM_API_URL", "PANEL_API_URL", "SMM_API"}, ""),
		APIKey:  getEnvFirst([]string{"SMM_API_KEY", "PANEL_API_KEY", "SMM_KEY"}, ""),
		Timeout: getEnvDuration("PANEL_TIMEOUT", 20*time.Second),
	}
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first set variable among aliases
func getEnvFirst(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Database
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	// Server
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.PublicBaseURL == "" {
		errors = append(errors, "PUBLIC_BASE_URL is required")
	}

	// Panel
	if cfg.Panel.URL == "" {
		errors = append(errors, "SMM_API_URL (or PANEL_API_URL) is required")
	}
	if cfg.Panel.APIKey == "" {
		errors = append(errors, "SMM_API_KEY (or PANEL_API_KEY) is required")
	}

	// Payments
	if !slices.Contains(validSuccessStatuses, cfg.Payments.DepositSuccessStatus) {
		errors = append(errors, fmt.Sprintf("DEPOSIT_SUCCESS_STATUS must be one of: %v", validSuccessStatuses))
	}
	if cfg.Payments.MinDepositCents < 100 {
		errors = append(errors, "MIN_DEPOSIT_CENTS must be at least 100")
	}
	if cfg.Deployment.IsProduction() && (cfg.Payments.AllowDebugBypass || cfg.Payments.DebugReturnErrors) {
		errors = append(errors, "webhook debug options must be disabled in production")
	}
	if cfg.Square.Env != "sandbox" && cfg.Square.Env != "production" {
		errors = append(errors, "SQUARE_ENV must be sandbox or production")
	}
	if cfg.Square.WebhookSignatureKey != "" && cfg.Square.WebhookNotificationURL == "" {
		errors = append(errors, "SQUARE_WEBHOOK_NOTIFICATION_URL is required when SQUARE_WEBHOOK_SIGNATURE_KEY is set")
	}

	// Identity
	if !cfg.Security.TrustIdentityHeaders && cfg.Security.IdentityJWTSecret == "" {
		errors = append(errors, "IDENTITY_JWT_SECRET is required when identity headers are not trusted")
	}
	if cfg.Security.IdentityJWTSecret != "" && len(cfg.Security.IdentityJWTSecret) < 32 {
		errors = append(errors, "IDENTITY_JWT_SECRET must be at least 32 characters long")
	}

	// Logging
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		if !slices.Contains(validLevels, cfg.Logging.Level) {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
	}

	// Cache
	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
	}

	// Archive
	if cfg.Archive.Enabled && cfg.Archive.Bucket == "" {
		errors = append(errors, "WEBHOOK_ARCHIVE_BUCKET is required when the webhook archive is enabled")
	}

	// Scheduler
	if cfg.Scheduler.CatalogRefreshEnabled && cfg.Scheduler.CatalogRefreshSpec == "" {
		errors = append(errors, "CATALOG_REFRESH_SPEC is required when catalog refresh is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
