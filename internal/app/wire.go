package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/quantfort/riskgovernor/internal/blob/s3"
	"github.com/quantfort/riskgovernor/internal/cache/redis"
	"github.com/quantfort/riskgovernor/internal/config"
	"github.com/quantfort/riskgovernor/internal/domain"
	"github.com/quantfort/riskgovernor/internal/eventgraph"
	"github.com/quantfort/riskgovernor/internal/notify"
	"github.com/quantfort/riskgovernor/internal/server/handler"
	"github.com/quantfort/riskgovernor/internal/store/postgres"
)

// Dependencies bundles every backend the governor needs to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
// Postgres-backed stores are always present; the rest are nil when their
// backend is not configured.
type Dependencies struct {
	// Stores
	CheckStore      domain.CheckStore
	TransitionStore domain.TransitionStore
	AlertStore      domain.AlertStore
	SnapshotStore   domain.SnapshotStore
	LimitsStore     domain.LimitsStore
	AuditStore      domain.AuditStore

	// Caches
	CorrelationCache domain.CorrelationCache
	RateLimiter      domain.RateLimiter

	// Correlated-market lookup
	EventGraph domain.EventGraph

	// History archival
	Archiver *s3blob.Archiver

	// Notifications
	Notifier *notify.Notifier

	// Backend health probes for GET /health, keyed by backend name.
	Pingers map[string]handler.Pinger
}

// pingerFunc adapts a plain health function to the handler.Pinger interface.
type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{
		Pingers: make(map[string]handler.Pinger),
	}

	// --- PostgreSQL (required: the risk ledger lives here) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)
	deps.Pingers["postgres"] = pgClient

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.CheckStore = postgres.NewCheckStore(pool)
	deps.TransitionStore = postgres.NewTransitionStore(pool)
	deps.AlertStore = postgres.NewAlertStore(pool)
	deps.SnapshotStore = postgres.NewSnapshotStore(pool)
	deps.LimitsStore = postgres.NewLimitsStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis (optional: correlation cache and API rate limiter) ---
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.Pingers["redis"] = redisClient

		deps.CorrelationCache = redis.NewCorrelationCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
	}

	// --- Event Graph (optional: correlated-market lookup) ---
	if cfg.EventGraph.BaseURL != "" {
		client := eventgraph.NewClient(cfg.EventGraph.BaseURL, cfg.EventGraph.Timeout.Duration)
		if deps.CorrelationCache != nil {
			deps.EventGraph = eventgraph.NewCachedClient(client, deps.CorrelationCache, cfg.EventGraph.CacheTTL.Duration, logger)
		} else {
			deps.EventGraph = client
		}
	}

	// --- S3 blob storage (optional: history cold archival) ---
	if cfg.Archiver.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		deps.Pingers["s3"] = pingerFunc(s3Client.Health)

		checks, ok := deps.CheckStore.(s3blob.HistoryStore)
		if !ok {
			cleanup()
			return nil, nil, fmt.Errorf("wire: check store does not support archival")
		}
		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			checks,
			deps.AuditStore,
		)
	}

	// --- Notifications (optional) ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	}

	return deps, cleanup, nil
}
