package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pulseboard/pulseboard/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Auth configuration
	Auth AuthConfig

	// Storage configuration
	Storage StorageConfig

	// Redis configuration (API rate limiter)
	Redis RedisConfig

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

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// AuthConfig holds token verification settings
type AuthConfig struct {
	// JWTSecret is the HMAC key used to verify bearer tokens. Required.
	JWTSecret string
	// Issuer is stamped on issued tokens; verification does not require it.
	Issuer string
	// TokenTTL applies to tokens minted by this process.
	TokenTTL time.Duration
}

// StorageConfig holds database settings
type StorageConfig struct {
	// Driver is "postgres" or "sqlite3"
	Driver string
	// URL is the driver-specific DSN
	URL string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrateOnStart applies embedded migrations during startup
	MigrateOnStart bool
}

// RedisConfig holds Redis connection settings for the rate limiter
type RedisConfig struct {
	// Enabled toggles the hourly API rate limiter
	Enabled bool
	URL     string
	DB      int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth:          loadAuthConfig(),
		Storage:       loadStorageConfig(),
		Redis:         loadRedisConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("PULSE_HOST", "0.0.0.0"),
		Port:            getEnv("PULSE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("PULSE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("PULSE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("PULSE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("PULSE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("PULSE_HEALTH_PORT", "9090"),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: getEnv("PULSE_JWT_SECRET", ""),
		Issuer:    getEnv("PULSE_JWT_ISSUER", "pulseboard"),
		TokenTTL:  getEnvDuration("PULSE_TOKEN_TTL", 24*time.Hour),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Driver:          getEnv("PULSE_DB_DRIVER", "postgres"),
		URL:             getEnv("PULSE_DB_URL", ""),
		MaxOpenConns:    getEnvInt("PULSE_DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("PULSE_DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("PULSE_DB_CONN_MAX_LIFETIME", 5*time.Minute),
		MigrateOnStart:  getEnvBool("PULSE_DB_MIGRATE", true),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled: getEnvBool("PULSE_RATELIMIT_ENABLED", false),
		URL:     getEnv("PULSE_REDIS_URL", "redis://localhost:6379"),
		DB:      getEnvInt("PULSE_REDIS_DB", 0),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("PULSE_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("PULSE_METRICS_ENABLED", true),
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

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("PULSE_JWT_SECRET is required")
	}

	switch c.Storage.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid db driver: %s (must be postgres or sqlite3)", c.Storage.Driver)
	}
	if c.Storage.URL == "" {
		return fmt.Errorf("PULSE_DB_URL is required")
	}

	if c.Redis.Enabled && c.Redis.URL == "" {
		return fmt.Errorf("PULSE_REDIS_URL is required when rate limiting is enabled")
	}

	return nil
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

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
