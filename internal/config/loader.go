package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies GOVERNOR_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known GOVERNOR_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// Postgres
	setStr(&cfg.Postgres.DSN, "GOVERNOR_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "GOVERNOR_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "GOVERNOR_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "GOVERNOR_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "GOVERNOR_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "GOVERNOR_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "GOVERNOR_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "GOVERNOR_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "GOVERNOR_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "GOVERNOR_POSTGRES_RUN_MIGRATIONS")

	// Redis
	setStr(&cfg.Redis.Addr, "GOVERNOR_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "GOVERNOR_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "GOVERNOR_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "GOVERNOR_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "GOVERNOR_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "GOVERNOR_REDIS_TLS_ENABLED")

	// S3
	setStr(&cfg.S3.Endpoint, "GOVERNOR_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "GOVERNOR_S3_REGION")
	setStr(&cfg.S3.Bucket, "GOVERNOR_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "GOVERNOR_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "GOVERNOR_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "GOVERNOR_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "GOVERNOR_S3_FORCE_PATH_STYLE")

	// Event Graph
	setStr(&cfg.EventGraph.BaseURL, "GOVERNOR_EVENTGRAPH_BASE_URL")
	setDuration(&cfg.EventGraph.Timeout, "GOVERNOR_EVENTGRAPH_TIMEOUT")
	setDuration(&cfg.EventGraph.CacheTTL, "GOVERNOR_EVENTGRAPH_CACHE_TTL")

	// Server
	setInt(&cfg.Server.Port, "GOVERNOR_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "GOVERNOR_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "GOVERNOR_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "GOVERNOR_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "GOVERNOR_SERVER_RATE_WINDOW")

	// Notify
	setStr(&cfg.Notify.TelegramToken, "GOVERNOR_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "GOVERNOR_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "GOVERNOR_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "GOVERNOR_NOTIFY_EVENTS")

	// Risk
	setInt(&cfg.Risk.ConsecutiveFailureLimit, "GOVERNOR_RISK_CONSECUTIVE_FAILURE_LIMIT")
	setDuration(&cfg.Risk.NotifyTimeout, "GOVERNOR_RISK_NOTIFY_TIMEOUT")

	// Archiver
	setBool(&cfg.Archiver.Enabled, "GOVERNOR_ARCHIVER_ENABLED")
	setInt(&cfg.Archiver.RetentionDays, "GOVERNOR_ARCHIVER_RETENTION_DAYS")
	setDuration(&cfg.Archiver.Interval, "GOVERNOR_ARCHIVER_INTERVAL")

	// Top-level
	setStr(&cfg.LogLevel, "GOVERNOR_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
