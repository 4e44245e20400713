// Package config loads application configuration from VAULTGATE_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vaultgate/vaultgate/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Blob storage configuration
	Blob BlobConfig

	// Payment gateway configuration
	Gateway GatewayConfig

	// Billing configuration
	Billing BillingConfig

	// Notification configuration
	Notify NotifyConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL         string
	ReplicaURLs string
	MaxConns    int
	MinConns    int
	Timeout     time.Duration
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// BlobConfig holds project blob storage configuration
type BlobConfig struct {
	Type           string // "filesystem" or "s3"
	FilesystemRoot string
	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
}

// GatewayConfig holds payment gateway client configuration
type GatewayConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
}

// BillingConfig holds trial and signup behavior
type BillingConfig struct {
	TrialDays       int
	VerificationTTL time.Duration
	AuthCacheSize   int
	AuthCacheTTL    time.Duration
}

// NotifyConfig holds outbound email configuration
type NotifyConfig struct {
	MailerURL    string
	MailerAPIKey string
	FromEmail    string
	AppURL       string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Blob:          loadBlobConfig(),
		Gateway:       loadGatewayConfig(),
		Billing:       loadBillingConfig(),
		Notify:        loadNotifyConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("VAULTGATE_HOST", "0.0.0.0"),
		Port:            getEnv("VAULTGATE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("VAULTGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("VAULTGATE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("VAULTGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("VAULTGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		MaxUploadBytes:  getEnvInt64("VAULTGATE_MAX_UPLOAD_BYTES", 100<<20),
		HealthPort:      getEnv("VAULTGATE_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads PostgreSQL configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:         getEnv("VAULTGATE_POSTGRES_URL", ""),
		ReplicaURLs: getEnv("VAULTGATE_POSTGRES_REPLICA_URLS", ""),
		MaxConns:    getEnvInt("VAULTGATE_POSTGRES_MAX_CONNS", 20),
		MinConns:    getEnvInt("VAULTGATE_POSTGRES_MIN_CONNS", 2),
		Timeout:     getEnvDuration("VAULTGATE_POSTGRES_TIMEOUT", 10*time.Second),
		MaxLifetime: getEnvDuration("VAULTGATE_POSTGRES_MAX_LIFETIME", time.Hour),
		MaxIdleTime: getEnvDuration("VAULTGATE_POSTGRES_MAX_IDLE_TIME", 10*time.Minute),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:       getEnv("VAULTGATE_REDIS_ADDR", "localhost:6379"),
		Password:   getEnv("VAULTGATE_REDIS_PASSWORD", ""),
		DB:         getEnvInt("VAULTGATE_REDIS_DB", 0),
		MaxRetries: getEnvInt("VAULTGATE_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("VAULTGATE_REDIS_POOL_SIZE", 10),
	}
}

// loadBlobConfig loads blob storage configuration from environment
func loadBlobConfig() BlobConfig {
	return BlobConfig{
		Type:           getEnv("VAULTGATE_BLOB_TYPE", "filesystem"),
		FilesystemRoot: getEnv("VAULTGATE_BLOB_ROOT", "/var/lib/vaultgate/projects"),
		S3Endpoint:     getEnv("VAULTGATE_S3_ENDPOINT", ""),
		S3Region:       getEnv("VAULTGATE_S3_REGION", "us-east-1"),
		S3Bucket:       getEnv("VAULTGATE_S3_BUCKET", ""),
		S3AccessKey:    getEnv("VAULTGATE_S3_ACCESS_KEY", ""),
		S3SecretKey:    getEnv("VAULTGATE_S3_SECRET_KEY", ""),
	}
}

// loadGatewayConfig loads payment gateway configuration from environment
func loadGatewayConfig() GatewayConfig {
	return GatewayConfig{
		BaseURL:       getEnv("VAULTGATE_GATEWAY_URL", ""),
		APIKey:        getEnv("VAULTGATE_GATEWAY_API_KEY", ""),
		WebhookSecret: getEnv("VAULTGATE_GATEWAY_WEBHOOK_SECRET", ""),
	}
}

// loadBillingConfig loads billing behavior from environment
func loadBillingConfig() BillingConfig {
	return BillingConfig{
		TrialDays:       getEnvInt("VAULTGATE_TRIAL_DAYS", 14),
		VerificationTTL: getEnvDuration("VAULTGATE_VERIFICATION_TTL", 24*time.Hour),
		AuthCacheSize:   getEnvInt("VAULTGATE_AUTH_CACHE_SIZE", 4096),
		AuthCacheTTL:    getEnvDuration("VAULTGATE_AUTH_CACHE_TTL", time.Minute),
	}
}

// loadNotifyConfig loads notification configuration from environment
func loadNotifyConfig() NotifyConfig {
	return NotifyConfig{
		MailerURL:    getEnv("VAULTGATE_MAILER_URL", ""),
		MailerAPIKey: getEnv("VAULTGATE_MAILER_API_KEY", ""),
		FromEmail:    getEnv("VAULTGATE_MAIL_FROM", "no-reply@vaultgate.io"),
		AppURL:       getEnv("VAULTGATE_APP_URL", "http://localhost:8080"),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("VAULTGATE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("VAULTGATE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("VAULTGATE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("VAULTGATE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("VAULTGATE_OTEL_SERVICE_NAME", "vaultgate"),
		OTelServiceVersion: getEnv("VAULTGATE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("VAULTGATE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	switch c.Blob.Type {
	case "filesystem":
		if c.Blob.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem blob storage")
		}
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 blob storage")
		}
	default:
		return fmt.Errorf("invalid blob storage type: %s (must be filesystem or s3)", c.Blob.Type)
	}

	if c.Billing.TrialDays <= 0 {
		return fmt.Errorf("trial days must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
