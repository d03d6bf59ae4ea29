package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/flipbot/internal/blob/s3"
	"github.com/alanyoungcy/flipbot/internal/cache/memory"
	"github.com/alanyoungcy/flipbot/internal/cache/redis"
	"github.com/alanyoungcy/flipbot/internal/config"
	"github.com/alanyoungcy/flipbot/internal/domain"
	"github.com/alanyoungcy/flipbot/internal/notify"
	"github.com/alanyoungcy/flipbot/internal/persist"
	"github.com/alanyoungcy/flipbot/internal/server/handler"
	"github.com/alanyoungcy/flipbot/internal/store/postgres"
)

// Dependencies bundles every infrastructure dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function. Optional members are nil when their backend is
// not configured.
type Dependencies struct {
	// Stores
	FlipStore  domain.FlipStore
	AuditStore domain.AuditLogger

	// Caches
	VolumeCache domain.VolumeCache
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// SharedLedger is the cross-instance report ledger; nil when scans are
	// not coordinated.
	SharedLedger domain.DedupLedger

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.FlipArchiver

	// Snapshots of the in-memory caches
	SnapshotStore persist.Store

	// Notifications
	Notifier *notify.Notifier

	// Dependency probes for the health endpoint
	HealthChecks map[string]handler.HealthCheck
}

// needsRedis returns true when any component is backed by Redis.
func needsRedis(cfg *config.Config) bool {
	return cfg.Cache.Backend == "redis" || cfg.Scan.DistributedLock
}

// needsS3 returns true when snapshots or archives go to object storage.
func needsS3(cfg *config.Config) bool {
	return cfg.Persist.Backend == "s3" || cfg.Archive.Enabled
}

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

	deps := &Dependencies{HealthChecks: make(map[string]handler.HealthCheck)}

	// --- PostgreSQL (flip history) ---
	var pgFlips *postgres.FlipStore
	if cfg.Postgres.Enabled {
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

		// Run migrations if enabled.
		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		pgFlips = postgres.NewFlipStore(pool)
		deps.FlipStore = pgFlips
		deps.AuditStore = postgres.NewAuditStore(pool)
		deps.HealthChecks["postgres"] = pgClient.Ping
	}

	// --- Redis (shared volume cache, bus, scan lock) ---
	if needsRedis(cfg) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		deps.HealthChecks["redis"] = redisClient.Ping

		deps.SignalBus = redis.NewSignalBus(redisClient)
		if cfg.Cache.Backend == "redis" {
			deps.VolumeCache = redis.NewVolumeCache(redisClient, cfg.Cache.VolumeTTL.Duration)
		}
		if cfg.Scan.DistributedLock {
			deps.LockManager = redis.NewLockManager(redisClient)
			deps.SharedLedger = redis.NewDedupLedger(redisClient, cfg.Flip.LedgerCapacity)
		}
	}
	if deps.VolumeCache == nil {
		deps.VolumeCache = memory.NewVolumeCache(cfg.Cache.VolumeTTL.Duration)
	}
	if deps.SignalBus == nil {
		deps.SignalBus = memory.NewSignalBus()
	}
	if deps.LockManager == nil {
		deps.LockManager = memory.NewLockManager()
	}

	// --- S3 blob storage (snapshots and archives) ---
	if needsS3(cfg) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
			Prefix:         cfg.S3.Prefix,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.HealthChecks["s3"] = s3Client.Health

		writer := s3blob.NewWriter(s3Client)
		deps.BlobWriter = writer
		deps.BlobReader = s3blob.NewReader(s3Client)
		// Archiver: only when Postgres holds the history to export.
		if cfg.Archive.Enabled && pgFlips != nil {
			deps.Archiver = s3blob.NewArchiver(writer, pgFlips)
		}
	}

	// --- Snapshot store ---
	switch cfg.Persist.Backend {
	case "s3":
		deps.SnapshotStore = persist.NewBlobStore(deps.BlobReader, deps.BlobWriter, cfg.Persist.Prefix)
	default:
		dirStore, err := persist.NewDirStore(cfg.Persist.Dir)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: snapshot dir: %w", err)
		}
		deps.SnapshotStore = dirStore
	}

	// --- Notifications ---
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
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	logger.Info("dependencies wired",
		slog.Bool("postgres", deps.FlipStore != nil),
		slog.Bool("redis", needsRedis(cfg)),
		slog.Bool("s3", deps.BlobWriter != nil),
		slog.String("volume_cache", cfg.Cache.Backend),
		slog.String("persist", cfg.Persist.Backend),
		slog.Int("notify_senders", len(senders)),
	)
	return deps, cleanup, nil
}
