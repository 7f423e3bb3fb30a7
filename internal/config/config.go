// Package config defines the top-level configuration for the risk governor
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantfort/riskgovernor/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by GOVERNOR_* environment
// variables.
type Config struct {
	Postgres   PostgresConfig   `toml:"postgres"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	EventGraph EventGraphConfig `toml:"eventgraph"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Risk       RiskConfig       `toml:"risk"`
	Archiver   ArchiverConfig   `toml:"archiver"`
	LogLevel   string           `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters. The governor's
// ledger lives here; it is the one required backend.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. Redis backs the correlation
// cache and the API rate limiter; leaving addr empty disables both.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the history
// archiver. Leaving bucket empty disables archival.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// EventGraphConfig holds the correlated-market lookup endpoint. Leaving
// base_url empty disables the lookup; checks then run without correlations.
type EventGraphConfig struct {
	BaseURL  string   `toml:"base_url"`
	Timeout  duration `toml:"timeout"`
	CacheTTL duration `toml:"cache_ttl"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"`
	RateWindow  duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// RiskConfig holds the governor's behavioral knobs and the shipped base
// limits. Persisted limit updates take precedence over the TOML values.
type RiskConfig struct {
	ConsecutiveFailureLimit int               `toml:"consecutive_failure_limit"`
	NotifyTimeout           duration          `toml:"notify_timeout"`
	Limits                  domain.RiskLimits `toml:"limits"`
}

// ArchiverConfig holds the history cold-archival parameters.
type ArchiverConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "riskgovernor",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:     "",
			DB:       0,
			PoolSize: 10,
		},
		EventGraph: EventGraphConfig{
			Timeout:  duration{3 * time.Second},
			CacheTTL: duration{5 * time.Minute},
		},
		Server: ServerConfig{
			Port:       8090,
			RateLimit:  0,
			RateWindow: duration{time.Second},
		},
		Risk: RiskConfig{
			ConsecutiveFailureLimit: 3,
			NotifyTimeout:           duration{5 * time.Second},
			Limits:                  domain.DefaultRiskLimits(),
		},
		Archiver: ArchiverConfig{
			Enabled:       false,
			RetentionDays: 90,
			Interval:      duration{6 * time.Hour},
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency. It collects
// all problems rather than stopping at the first one.
func (c *Config) Validate() error {
	var errs []string

	// Postgres
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis (optional)
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// S3 (optional, required when the archiver is enabled)
	if c.Archiver.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket is required when the archiver is enabled")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region is required when the archiver is enabled")
		}
		if c.Archiver.RetentionDays < 1 {
			errs = append(errs, "archiver: retention_days must be >= 1")
		}
		if c.Archiver.Interval.Duration <= 0 {
			errs = append(errs, "archiver: interval must be positive")
		}
	}

	// Event Graph (optional)
	if c.EventGraph.BaseURL != "" && c.EventGraph.Timeout.Duration <= 0 {
		errs = append(errs, "eventgraph: timeout must be positive")
	}

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
		errs = append(errs, "server: rate_window must be positive when rate_limit is set")
	}

	// Risk
	if c.Risk.ConsecutiveFailureLimit < 1 {
		errs = append(errs, "risk: consecutive_failure_limit must be >= 1")
	}
	if err := c.Risk.Limits.Validate(); err != nil {
		errs = append(errs, "risk: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
