package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Editor    EditorConfig
	Search    SearchConfig
	Cache     CacheConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// EditorConfig holds editing session settings
type EditorConfig struct {
	DebounceWindow time.Duration
	CatalogPath    string // empty = embedded default catalog
	SubmissionURL  string
	IndentUnit     int
	SessionTTL     time.Duration

	// submissions allowed per editor per window; 0 disables the limit
	SubmitRateLimit  int
	SubmitRateWindow time.Duration
}

// SearchConfig holds autocomplete / name-collision service settings
type SearchConfig struct {
	BaseURL  string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// CacheConfig holds cache settings
type CacheConfig struct {
	Enabled   bool
	Backend   string // "memory" or "redis"
	RedisAddr string
	RedisDB   int
}

// DatabaseConfig points at an optional SQL catalog
type DatabaseConfig struct {
	Driver string // "pgx" or "sqlite"
	DSN    string // empty = catalog is not loaded from SQL
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof   bool
	PprofPort     int
	EnableMetrics bool
	MetricsPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Editor: EditorConfig{
			DebounceWindow: getEnvDuration("DEBOUNCE_WINDOW", 250*time.Millisecond),
			CatalogPath:    getEnv("CATALOG_PATH", ""),
			SubmissionURL:  getEnv("SUBMISSION_URL", "http://localhost:9099/entity/create"),
			IndentUnit:     getEnvInt("INDENT_UNIT", 2),
			SessionTTL:     getEnvDuration("SESSION_TTL", 2*time.Hour),

			SubmitRateLimit:  getEnvInt("SUBMIT_RATE_LIMIT", 30),
			SubmitRateWindow: getEnvDuration("SUBMIT_RATE_WINDOW", time.Minute),
		},
		Search: SearchConfig{
			BaseURL:  strings.TrimRight(getEnv("SEARCH_BASE_URL", "http://localhost:9099"), "/"),
			CacheTTL: getEnvDuration("SEARCH_CACHE_TTL", 5*time.Minute),
			Timeout:  getEnvDuration("SEARCH_TIMEOUT", 5*time.Second),
		},
		Cache: CacheConfig{
			Enabled:   getEnvBool("CACHE_ENABLED", true),
			Backend:   getEnv("CACHE_BACKEND", "memory"),
			RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),
			RedisDB:   getEnvInt("REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			Driver: getEnv("CATALOG_DB_DRIVER", "pgx"),
			DSN:    getEnv("CATALOG_DB_DSN", ""),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:   getEnvBool("ENABLE_PPROF", false),
			PprofPort:     getEnvInt("PPROF_PORT", 6060),
			EnableMetrics: getEnvBool("ENABLE_METRICS", true),
			MetricsPort:   getEnvInt("METRICS_PORT", 9090),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Editor.DebounceWindow <= 0 {
		return fmt.Errorf("debounce window must be positive, got %s", c.Editor.DebounceWindow)
	}

	if c.Editor.IndentUnit < 0 {
		return fmt.Errorf("indent unit must be >= 0, got %d", c.Editor.IndentUnit)
	}

	if c.Editor.SubmitRateLimit < 0 {
		return fmt.Errorf("submit rate limit must be >= 0, got %d", c.Editor.SubmitRateLimit)
	}
	if c.Editor.SubmitRateLimit > 0 && c.Editor.SubmitRateWindow <= 0 {
		return fmt.Errorf("submit rate window must be positive, got %s", c.Editor.SubmitRateWindow)
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}

	switch c.Database.Driver {
	case "pgx", "sqlite":
	default:
		return fmt.Errorf("unsupported catalog database driver: %s", c.Database.Driver)
	}

	return nil
}

// UsesSQLCatalog reports whether the catalog is read from a database
func (c *Config) UsesSQLCatalog() bool {
	return c.Database.DSN != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
