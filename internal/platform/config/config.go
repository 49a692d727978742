// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Auth        AuthConfig
	Executor    ExecutorConfig
	Progress    ProgressConfig
	Log         LogConfig
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings.
// An empty URL keeps remote progress in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings.
// An empty URL keeps local progress in memory.
type CacheConfig struct {
	URL      string
	LocalTTL time.Duration
}

// AuthConfig holds token settings.
type AuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
}

// ExecutorConfig holds code-execution sandbox settings.
type ExecutorConfig struct {
	URLs       []string // tried in order
	APIKey     string
	Timeout    time.Duration
	DailyQuota int
}

// ProgressConfig holds progress tracking settings.
type ProgressConfig struct {
	PassScore    float64
	WriteWorkers int
	WriteTimeout time.Duration
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	passScore, err := envFloat("LEARN_PROGRESS_PASS_SCORE", 70)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL:      envStr("LEARN_CACHE_URL", ""),
			LocalTTL: envDuration("LEARN_CACHE_LOCAL_TTL", 0),
		},
		Auth: AuthConfig{
			TokenSecret: envStr("LEARN_AUTH_TOKEN_SECRET", "change-me-in-production"),
			TokenTTL:    envDuration("LEARN_AUTH_TOKEN_TTL", 7*24*time.Hour),
		},
		Executor: ExecutorConfig{
			URLs:       envList("LEARN_EXECUTOR_URLS"),
			APIKey:     envStr("LEARN_EXECUTOR_API_KEY", ""),
			Timeout:    envDuration("LEARN_EXECUTOR_TIMEOUT", 30*time.Second),
			DailyQuota: envInt("LEARN_EXECUTOR_DAILY_QUOTA", 200),
		},
		Progress: ProgressConfig{
			PassScore:    passScore,
			WriteWorkers: envInt("LEARN_PROGRESS_WRITE_WORKERS", 4),
			WriteTimeout: envDuration("LEARN_PROGRESS_WRITE_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
		CatalogPath: envStr("LEARN_CATALOG_PATH", "./courses"),
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("LEARN_AUTH_TOKEN_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("LEARN_AUTH_TOKEN_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Progress.PassScore < 0 || c.Progress.PassScore > 100 {
		return fmt.Errorf("LEARN_PROGRESS_PASS_SCORE must be between 0 and 100, got %v", c.Progress.PassScore)
	}
	if c.Progress.WriteWorkers < 1 {
		return fmt.Errorf("LEARN_PROGRESS_WRITE_WORKERS must be at least 1, got %d", c.Progress.WriteWorkers)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LEARN_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
