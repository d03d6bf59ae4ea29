package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FLIPBOT_* environment variable overrides,
// resolves the reforge token list, and returns the final Config. A missing
// file is not an error; defaults and environment apply. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := resolveReforges(&cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// resolveReforges merges flip.reforges_file into flip.reforges and falls back
// to DefaultReforges. A relative file path is taken from the config file's
// directory.
func resolveReforges(cfg *Config, baseDir string) error {
	tokens := cfg.Flip.Reforges
	if file := cfg.Flip.ReforgesFile; file != "" {
		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		fromFile, err := LoadReforges(file)
		if err != nil {
			return err
		}
		tokens = append(tokens, fromFile...)
	}
	if len(tokens) == 0 {
		tokens = DefaultReforges
	}
	cfg.Flip.Reforges = cleanTokens(tokens)
	return nil
}

// applyEnvOverrides reads well-known FLIPBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Hypixel ──
	setStr(&cfg.Hypixel.BaseURL, "FLIPBOT_HYPIXEL_BASE_URL")
	setDuration(&cfg.Hypixel.Timeout, "FLIPBOT_HYPIXEL_TIMEOUT")
	setInt(&cfg.Hypixel.PageConcurrency, "FLIPBOT_HYPIXEL_PAGE_CONCURRENCY")
	setInt(&cfg.Hypixel.MaxRetries, "FLIPBOT_HYPIXEL_MAX_RETRIES")
	setDuration(&cfg.Hypixel.RetryBackoff, "FLIPBOT_HYPIXEL_RETRY_BACKOFF")
	setStringSlice(&cfg.Hypixel.AllowedCategories, "FLIPBOT_HYPIXEL_ALLOWED_CATEGORIES")

	// ── Coflnet ──
	setStr(&cfg.Coflnet.BaseURL, "FLIPBOT_COFLNET_BASE_URL")
	setDuration(&cfg.Coflnet.Timeout, "FLIPBOT_COFLNET_TIMEOUT")
	setDuration(&cfg.Coflnet.LookupTimeout, "FLIPBOT_COFLNET_LOOKUP_TIMEOUT")

	// ── Flip ──
	setStr(&cfg.Flip.ProfitMode, "FLIPBOT_FLIP_PROFIT_MODE")
	setCoins(&cfg.Flip.MinProfit, "FLIPBOT_FLIP_MIN_PROFIT")
	setDecimal(&cfg.Flip.ProfitRatio, "FLIPBOT_FLIP_PROFIT_RATIO")
	setCoins(&cfg.Flip.MaxCost, "FLIPBOT_FLIP_MAX_COST")
	setInt(&cfg.Flip.MinListings, "FLIPBOT_FLIP_MIN_LISTINGS")
	setFloat64(&cfg.Flip.MinDailyVolume, "FLIPBOT_FLIP_MIN_DAILY_VOLUME")
	setInt(&cfg.Flip.LedgerCapacity, "FLIPBOT_FLIP_LEDGER_CAPACITY")
	setStringSlice(&cfg.Flip.Reforges, "FLIPBOT_FLIP_REFORGES")
	setStr(&cfg.Flip.ReforgesFile, "FLIPBOT_FLIP_REFORGES_FILE")

	// ── Scan ──
	setDuration(&cfg.Scan.Cooldown, "FLIPBOT_SCAN_COOLDOWN")
	setDuration(&cfg.Scan.MinSleep, "FLIPBOT_SCAN_MIN_SLEEP")
	setInt(&cfg.Scan.Workers, "FLIPBOT_SCAN_WORKERS")
	setBool(&cfg.Scan.DistributedLock, "FLIPBOT_SCAN_DISTRIBUTED_LOCK")
	setDuration(&cfg.Scan.LockTTL, "FLIPBOT_SCAN_LOCK_TTL")

	// ── Cache ──
	setStr(&cfg.Cache.Backend, "FLIPBOT_CACHE_BACKEND")
	setDuration(&cfg.Cache.VolumeTTL, "FLIPBOT_CACHE_VOLUME_TTL")

	// ── Persist ──
	setStr(&cfg.Persist.Backend, "FLIPBOT_PERSIST_BACKEND")
	setStr(&cfg.Persist.Dir, "FLIPBOT_PERSIST_DIR")
	setStr(&cfg.Persist.Prefix, "FLIPBOT_PERSIST_PREFIX")
	setDuration(&cfg.Persist.Interval, "FLIPBOT_PERSIST_INTERVAL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "FLIPBOT_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Cron, "FLIPBOT_ARCHIVE_CRON")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FLIPBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FLIPBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FLIPBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FLIPBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FLIPBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FLIPBOT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "FLIPBOT_REDIS_KEY_PREFIX")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "FLIPBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FLIPBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "FLIPBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FLIPBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FLIPBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FLIPBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FLIPBOT_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "FLIPBOT_S3_PREFIX")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "FLIPBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "FLIPBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "FLIPBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FLIPBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FLIPBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FLIPBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FLIPBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FLIPBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FLIPBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FLIPBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FLIPBOT_POSTGRES_RUN_MIGRATIONS")
	setBool(&cfg.Postgres.WarmLedger, "FLIPBOT_POSTGRES_WARM_LEDGER")

	// ── Server ──
	setInt(&cfg.Server.Port, "FLIPBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FLIPBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FLIPBOT_SERVER_API_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FLIPBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FLIPBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FLIPBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.DiscordWebhookURL, "DISCORD_WEBHOOK_URL") // compatibility alias
	setStringSlice(&cfg.Notify.Events, "FLIPBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "FLIPBOT_MODE")
	setStr(&cfg.LogLevel, "FLIPBOT_LOG_LEVEL")
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

func setCoins(dst *Coins, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := ParseCoins(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setDecimal(dst *decimal.Decimal, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
			*dst = d
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
