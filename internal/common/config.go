package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Cache     CacheConfig
	Database  DatabaseConfig
	Extractor ExtractorConfig
	Server    ServerConfig
	Worker    WorkerConfig
}

// CacheConfig holds cache-store configuration
type CacheConfig struct {
	URL       string        // redis://[:password@]host:port[/db]
	KeyPrefix string        // namespace for all keys
	TTL       time.Duration // expiry for job and cached-data keys
	ChunkSize int           // rows per cached chunk
}

// DatabaseConfig holds relational-store configuration
type DatabaseConfig struct {
	Driver          string // "pgx" or "sqlite"
	DSN             string
	MaxConns        int
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

// ExtractorConfig holds external extractor configuration
type ExtractorConfig struct {
	BaseURL  string
	Strategy string
	Timeout  time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// WorkerConfig holds queue-worker configuration
type WorkerConfig struct {
	PollInterval time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			URL:       getEnv("REDIS_URL", ""),
			KeyPrefix: getEnv("CACHE_PREFIX", "docingest"),
			TTL:       getEnvAsDuration("CACHE_TTL", 24*time.Hour),
			ChunkSize: getEnvAsInt("CHUNK_SIZE", 100),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "pgx"),
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Extractor: ExtractorConfig{
			BaseURL:  getEnv("EXTRACTOR_URL", ""),
			Strategy: getEnv("EXTRACTOR_STRATEGY", "auto"),
			Timeout:  getEnvAsDuration("EXTRACTOR_TIMEOUT", 2*time.Minute),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Worker: WorkerConfig{
			PollInterval: getEnvAsDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration. Required endpoints are fatal
// at the point of first use; this surfaces them at startup instead.
func (c *Config) Validate() error {
	if c.Cache.URL == "" {
		return ConfigError("REDIS_URL is required")
	}
	if c.Database.DSN == "" {
		return ConfigError("DB_URL is required")
	}
	if c.Extractor.BaseURL == "" {
		return ConfigError("EXTRACTOR_URL is required")
	}
	if c.Cache.ChunkSize < 1 {
		return ConfigError("CHUNK_SIZE must be at least 1")
	}
	return nil
}
