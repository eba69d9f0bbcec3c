package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level application config.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Klaviyo   KlaviyoConfig   `koanf:"klaviyo"`
	Retention RetentionConfig `koanf:"retention"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	Type         string `koanf:"type"`
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// KlaviyoConfig holds provider connection and pacing policy.
// Timeout and the inter-request delay are policy, not protocol, so they are
// configurable rather than hardcoded in the client.
type KlaviyoConfig struct {
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	Revision       string `koanf:"revision"`
	Timeout        string `koanf:"timeout"`          // HTTP client timeout
	PageSize       int    `koanf:"page_size"`        // page[size] for event traversal
	RateLimitDelay string `koanf:"rate_limit_delay"` // spacing between aggregate requests
}

func (c KlaviyoConfig) EffectiveTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

func (c KlaviyoConfig) EffectiveRateLimitDelay() (time.Duration, error) {
	return time.ParseDuration(c.RateLimitDelay)
}

// RetentionConfig controls the scheduled purge of old event rows.
type RetentionConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Schedule string `koanf:"schedule"` // cron spec, standard 5-field format
	MaxAge   string `koanf:"max_age"`  // events older than this are purged
}

func (c RetentionConfig) EffectiveMaxAge() (time.Duration, error) {
	return time.ParseDuration(c.MaxAge)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}
	if c.Database.Type != "" && c.Database.Type != "postgres" {
		return fmt.Errorf("unsupported database.type %q", c.Database.Type)
	}

	if strings.TrimSpace(c.Klaviyo.BaseURL) == "" {
		return fmt.Errorf("klaviyo.base_url is required")
	}
	if strings.TrimSpace(c.Klaviyo.APIKey) == "" {
		return fmt.Errorf("klaviyo.api_key is required")
	}
	if strings.TrimSpace(c.Klaviyo.Revision) == "" {
		return fmt.Errorf("klaviyo.revision is required")
	}
	if c.Klaviyo.PageSize <= 0 {
		return fmt.Errorf("klaviyo.page_size must be > 0")
	}
	timeout, err := c.Klaviyo.EffectiveTimeout()
	if err != nil {
		return fmt.Errorf("invalid klaviyo.timeout %q: %w", c.Klaviyo.Timeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("klaviyo.timeout must be > 0")
	}
	delay, err := c.Klaviyo.EffectiveRateLimitDelay()
	if err != nil {
		return fmt.Errorf("invalid klaviyo.rate_limit_delay %q: %w", c.Klaviyo.RateLimitDelay, err)
	}
	if delay < 0 {
		return fmt.Errorf("klaviyo.rate_limit_delay must be >= 0")
	}

	if c.Retention.Enabled {
		if strings.TrimSpace(c.Retention.Schedule) == "" {
			return fmt.Errorf("retention.schedule is required when retention is enabled")
		}
		maxAge, err := c.Retention.EffectiveMaxAge()
		if err != nil {
			return fmt.Errorf("invalid retention.max_age %q: %w", c.Retention.MaxAge, err)
		}
		if maxAge <= 0 {
			return fmt.Errorf("retention.max_age must be > 0")
		}
	}

	return nil
}

// Load parses config from file + env, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":              8080,
		"server.host":              "0.0.0.0",
		"server.max_body_size_mb":  1,
		"server.mode":              "release",
		"database.type":            "postgres",
		"database.dsn":             "",
		"database.max_open_conns":  25,
		"database.max_idle_conns":  25,
		"database.auto_migrate":    true,
		"klaviyo.base_url":         "https://a.klaviyo.com/api",
		"klaviyo.api_key":          "",
		"klaviyo.revision":         "2023-10-15",
		"klaviyo.timeout":          "30s",
		"klaviyo.page_size":        200,
		"klaviyo.rate_limit_delay": "100ms",
		"retention.enabled":        true,
		"retention.schedule":       "0 0 * * *",
		"retention.max_age":        "168h",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("BRIDGE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "BRIDGE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
