package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultsMatchFixedAddresses(t *testing.T) {
	cfg := Defaults()

	if cfg.APIPort != 5000 {
		t.Errorf("APIPort = %d, want 5000", cfg.APIPort)
	}
	if cfg.Greeting != "Hello from the backend!" {
		t.Errorf("Greeting = %q", cfg.Greeting)
	}
	if cfg.Database.URL != "mongodb://localhost:27017/yourdb" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Web.BackendURL != "http://localhost:5000" {
		t.Errorf("Web.BackendURL = %q", cfg.Web.BackendURL)
	}
	if cfg.Database.Required {
		t.Error("Database.Required should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("API_PORT", "6000")
	t.Setenv("DB_REQUIRED", "true")
	t.Setenv("DB_RETRY_BACKOFF", "2s")
	t.Setenv("BACKEND_URL", "http://backend:6000/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIPort != 6000 {
		t.Errorf("APIPort = %d, want 6000", cfg.APIPort)
	}
	if !cfg.Database.Required {
		t.Error("Database.Required = false, want true")
	}
	if cfg.Database.RetryBackoff != 2*time.Second {
		t.Errorf("RetryBackoff = %v, want 2s", cfg.Database.RetryBackoff)
	}
	if cfg.BackendRootURL() != "http://backend:6000" {
		t.Errorf("BackendRootURL = %q", cfg.BackendRootURL())
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("API_PORT", "not-a-port")
	t.Setenv("DB_CONNECT_TIMEOUT", "soon")

	cfg := LoadWithDefaults()

	if cfg.APIPort != 5000 {
		t.Errorf("APIPort = %d, want default 5000", cfg.APIPort)
	}
	if cfg.Database.ConnectTimeout != 5*time.Second {
		t.Errorf("ConnectTimeout = %v, want default 5s", cfg.Database.ConnectTimeout)
	}
}

func TestLoadLayersFileUnderEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hellostack.yaml")
	data := []byte(`
api_port: 7000
greeting: "Hi from YAML"
database:
  url: postgres://localhost:5432/yourdb?sslmode=disable
  max_attempts: 9
  breaker_cooldown: 1m
web:
  port: 9000
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WEB_PORT", "9100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.APIPort != 7000 {
		t.Errorf("APIPort = %d, want 7000 from file", cfg.APIPort)
	}
	if cfg.Greeting != "Hi from YAML" {
		t.Errorf("Greeting = %q", cfg.Greeting)
	}
	if cfg.Database.MaxAttempts != 9 {
		t.Errorf("MaxAttempts = %d, want 9", cfg.Database.MaxAttempts)
	}
	if cfg.Database.BreakerCooldown != time.Minute {
		t.Errorf("BreakerCooldown = %v, want 1m", cfg.Database.BreakerCooldown)
	}
	if cfg.Web.Port != 9100 {
		t.Errorf("Web.Port = %d, want env override 9100", cfg.Web.Port)
	}
	// Untouched by the file.
	if cfg.Database.BreakerThreshold != 3 {
		t.Errorf("BreakerThreshold = %d, want default 3", cfg.Database.BreakerThreshold)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.APIPort = 0 }},
		{"web port too large", func(c *Config) { c.Web.Port = 70000 }},
		{"empty database url", func(c *Config) { c.Database.URL = "" }},
		{"no attempts", func(c *Config) { c.Database.MaxAttempts = 0 }},
		{"no breaker threshold", func(c *Config) { c.Database.BreakerThreshold = 0 }},
		{"relative backend url", func(c *Config) { c.Web.BackendURL = "localhost" }},
		{"zero connect timeout", func(c *Config) { c.Database.ConnectTimeout = 0 }},
		{"negative connect timeout", func(c *Config) { c.Database.ConnectTimeout = -time.Second }},
		{"negative retry backoff", func(c *Config) { c.Database.RetryBackoff = -time.Millisecond }},
		{"negative max backoff", func(c *Config) { c.Database.MaxBackoff = -time.Second }},
		{"negative breaker cooldown", func(c *Config) { c.Database.BreakerCooldown = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateAllowsZeroBackoff(t *testing.T) {
	cfg := Defaults()
	cfg.Database.RetryBackoff = 0
	cfg.Database.MaxBackoff = 0
	cfg.Database.BreakerCooldown = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("zero backoff and cooldown should validate: %v", err)
	}
}

func TestLoadRejectsZeroConnectTimeout(t *testing.T) {
	t.Setenv("DB_CONNECT_TIMEOUT", "0s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected DB_CONNECT_TIMEOUT=0s to fail validation")
	}
}
