// Package config provides environment-based configuration for the backend,
// the web front end and the database connector.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultGreeting is the body returned by GET / on the backend.
const DefaultGreeting = "Hello from the backend!"

// Config holds all configuration for the three binaries.
type Config struct {
	// Backend server configuration
	APIHost  string `yaml:"api_host"`
	APIPort  int    `yaml:"api_port"`
	Greeting string `yaml:"greeting"`

	// Database connector configuration
	Database DatabaseConfig `yaml:"database"`

	// Web front end configuration
	Web WebConfig `yaml:"web"`

	// Graceful shutdown timeout
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DatabaseConfig holds connector settings.
type DatabaseConfig struct {
	// URL is a mongodb:// or postgres:// DSN.
	URL string `yaml:"url"`
	// Required gates the backend on a healthy connection before it listens.
	Required         bool          `yaml:"required"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	MaxAttempts      int           `yaml:"max_attempts"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	MaxBackoff       time.Duration `yaml:"max_backoff"`
	BreakerThreshold int           `yaml:"breaker_threshold"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown"`
}

// WebConfig holds settings for the web front end.
type WebConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	BackendURL string `yaml:"backend_url"`
}

// Defaults returns the configuration with every field at its default value.
func Defaults() *Config {
	return &Config{
		APIHost:  "0.0.0.0",
		APIPort:  5000,
		Greeting: DefaultGreeting,
		Database: DatabaseConfig{
			URL:              "mongodb://localhost:27017/yourdb",
			Required:         false,
			ConnectTimeout:   5 * time.Second,
			MaxAttempts:      5,
			RetryBackoff:     500 * time.Millisecond,
			MaxBackoff:       10 * time.Second,
			BreakerThreshold: 3,
			BreakerCooldown:  30 * time.Second,
		},
		Web: WebConfig{
			Host:       "0.0.0.0",
			Port:       8090,
			BackendURL: "http://localhost:5000",
		},
		ShutdownTimeout: 30 * time.Second,
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load reads configuration from a .env file (if present), an optional YAML
// file named by CONFIG_FILE and environment variables, in increasing order
// of precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration from the environment on top of the
// defaults without reading files or validating. Useful for testing.
func LoadWithDefaults() *Config {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}

// mergeFile overlays values from a YAML file onto c. Fields absent from the
// file keep their current values.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.APIHost = getEnv("API_HOST", c.APIHost)
	c.APIPort = getIntEnv("API_PORT", c.APIPort)
	c.Greeting = getEnv("GREETING", c.Greeting)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Required = getBoolEnv("DB_REQUIRED", c.Database.Required)
	c.Database.ConnectTimeout = getDurationEnv("DB_CONNECT_TIMEOUT", c.Database.ConnectTimeout)
	c.Database.MaxAttempts = getIntEnv("DB_MAX_ATTEMPTS", c.Database.MaxAttempts)
	c.Database.RetryBackoff = getDurationEnv("DB_RETRY_BACKOFF", c.Database.RetryBackoff)
	c.Database.MaxBackoff = getDurationEnv("DB_MAX_BACKOFF", c.Database.MaxBackoff)
	c.Database.BreakerThreshold = getIntEnv("DB_BREAKER_THRESHOLD", c.Database.BreakerThreshold)
	c.Database.BreakerCooldown = getDurationEnv("DB_BREAKER_COOLDOWN", c.Database.BreakerCooldown)

	c.Web.Host = getEnv("WEB_HOST", c.Web.Host)
	c.Web.Port = getIntEnv("WEB_PORT", c.Web.Port)
	c.Web.BackendURL = getEnv("BACKEND_URL", c.Web.BackendURL)

	c.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", c.ShutdownTimeout)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("API_PORT must be between 1 and 65535, got %d", c.APIPort)
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("WEB_PORT must be between 1 and 65535, got %d", c.Web.Port)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Database.MaxAttempts < 1 {
		return fmt.Errorf("DB_MAX_ATTEMPTS must be at least 1")
	}
	if c.Database.BreakerThreshold < 1 {
		return fmt.Errorf("DB_BREAKER_THRESHOLD must be at least 1")
	}
	if c.Database.ConnectTimeout <= 0 {
		return fmt.Errorf("DB_CONNECT_TIMEOUT must be positive, got %s", c.Database.ConnectTimeout)
	}
	if c.Database.RetryBackoff < 0 {
		return fmt.Errorf("DB_RETRY_BACKOFF must not be negative, got %s", c.Database.RetryBackoff)
	}
	if c.Database.MaxBackoff < 0 {
		return fmt.Errorf("DB_MAX_BACKOFF must not be negative, got %s", c.Database.MaxBackoff)
	}
	if c.Database.BreakerCooldown < 0 {
		return fmt.Errorf("DB_BREAKER_COOLDOWN must not be negative, got %s", c.Database.BreakerCooldown)
	}
	u, err := url.Parse(c.Web.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute URL, got %q", c.Web.BackendURL)
	}
	return nil
}

// APIAddr returns the listen address of the backend.
func (c *Config) APIAddr() string {
	return fmt.Sprintf("%s:%d", c.APIHost, c.APIPort)
}

// WebAddr returns the listen address of the web front end.
func (c *Config) WebAddr() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

// BackendRootURL returns the backend URL with any trailing slash removed.
func (c *Config) BackendRootURL() string {
	return strings.TrimRight(c.Web.BackendURL, "/")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
