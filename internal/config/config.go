package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Secret backends
const (
	SecretBackendPostgres  = "postgres"
	SecretBackendMetafield = "metafield"
)

// Config holds application configuration
type Config struct {
	DatabaseURL            string
	ServerPort             string
	BaseURL                string
	AdminURL               string
	ShopifyAPIKey          string
	ShopifyAPISecret       string
	ShopifyScopes          string
	ShopifyAPIVersion      string
	SecretBackend          string
	MultipassMaxAge        time.Duration
	MultipassReplayProtect bool
	EnableHSTS             bool
	RedisURL               string
	RabbitMQURL            string
	RabbitMQPrefetch       int
	LoginEventRetention    time.Duration
	WorkerDebugMode        bool
	ServerDebugMode        bool
	OTELEnabled            bool
	OTELEndpoint           string
	OTELInsecure           bool
	OTELSampleRatio        float64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		BaseURL:                getEnv("BASE_URL", "http://localhost:8080"),
		AdminURL:               getEnv("ADMIN_URL", "https://admin.shopify.com"),
		ShopifyAPIKey:          getEnv("SHOPIFY_API_KEY", ""),
		ShopifyAPISecret:       getEnv("SHOPIFY_API_SECRET", ""),
		ShopifyScopes:          getEnv("SHOPIFY_SCOPES", "read_customers,write_customers"),
		ShopifyAPIVersion:      getEnv("SHOPIFY_API_VERSION", "2024-01"),
		SecretBackend:          getEnv("SECRET_BACKEND", SecretBackendPostgres),
		MultipassMaxAge:        getEnvDuration("MULTIPASS_MAX_AGE", 0),
		MultipassReplayProtect: getEnvBool("MULTIPASS_REPLAY_PROTECTION", false),
		EnableHSTS:             getEnvBool("ENABLE_HSTS", false),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:            getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:       getEnvInt("RABBITMQ_PREFETCH", 1),
		LoginEventRetention:    getEnvDuration("LOGIN_EVENT_RETENTION", 90*24*time.Hour),
		WorkerDebugMode:        getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:        getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:            getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:           getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:           getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELSampleRatio:        getEnvFloat("OTEL_TRACES_SAMPLER_RATIO", 1),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.SecretBackend {
	case SecretBackendPostgres, SecretBackendMetafield:
	default:
		return nil, fmt.Errorf("SECRET_BACKEND must be %q or %q, got %q", SecretBackendPostgres, SecretBackendMetafield, cfg.SecretBackend)
	}

	if cfg.OTELSampleRatio < 0 || cfg.OTELSampleRatio > 1 {
		return nil, fmt.Errorf("OTEL_TRACES_SAMPLER_RATIO must be between 0 and 1")
	}

	if cfg.MultipassMaxAge < 0 {
		return nil, fmt.Errorf("MULTIPASS_MAX_AGE cannot be negative")
	}

	return cfg, nil
}

// ValidateServer checks the settings only the HTTP server needs.
func (c *Config) ValidateServer() error {
	if c.ShopifyAPIKey == "" || c.ShopifyAPISecret == "" {
		return fmt.Errorf("SHOPIFY_API_KEY and SHOPIFY_API_SECRET are required")
	}
	return nil
}

// ValidateWorker checks the settings only the event worker needs.
func (c *Config) ValidateWorker() error {
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for the login event worker")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
