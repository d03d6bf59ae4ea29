// Package config defines the top-level configuration for flipbot and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by FLIPBOT_* environment variables.
type Config struct {
	Hypixel  HypixelConfig  `toml:"hypixel"`
	Coflnet  CoflnetConfig  `toml:"coflnet"`
	Flip     FlipConfig     `toml:"flip"`
	Scan     ScanConfig     `toml:"scan"`
	Cache    CacheConfig    `toml:"cache"`
	Persist  PersistConfig  `toml:"persist"`
	Archive  ArchiveConfig  `toml:"archive"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Postgres PostgresConfig `toml:"postgres"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// HypixelConfig holds the auction API endpoint and fetch behaviour.
type HypixelConfig struct {
	BaseURL           string   `toml:"base_url"`
	Timeout           duration `toml:"timeout"`
	PageConcurrency   int      `toml:"page_concurrency"`
	MaxRetries        int      `toml:"max_retries"`
	RetryBackoff      duration `toml:"retry_backoff"`
	AllowedCategories []string `toml:"allowed_categories"`
}

// CoflnetConfig holds the price-history API used for volume lookups.
type CoflnetConfig struct {
	BaseURL       string   `toml:"base_url"`
	Timeout       duration `toml:"timeout"`
	LookupTimeout duration `toml:"lookup_timeout"`
}

// FlipConfig holds the admission thresholds and name-cleaning tokens.
type FlipConfig struct {
	// ProfitMode is "absolute" (gap >= min_profit) or "ratio"
	// (gap >= ceil(cheapest * max(profit_ratio, 1))).
	ProfitMode     string          `toml:"profit_mode"`
	MinProfit      Coins           `toml:"min_profit"`
	ProfitRatio    decimal.Decimal `toml:"profit_ratio"`
	MaxCost        Coins           `toml:"max_cost"`
	MinListings    int             `toml:"min_listings"`
	MinDailyVolume float64         `toml:"min_daily_volume"`
	LedgerCapacity int             `toml:"ledger_capacity"`
	Reforges       []string        `toml:"reforges"`

	// ReforgesFile is a JSON or YAML file holding {"Reforges": [...]} or a
	// bare list. Its tokens are added to Reforges.
	ReforgesFile string `toml:"reforges_file"`
}

// ScanConfig controls the polling loop.
type ScanConfig struct {
	Cooldown duration `toml:"cooldown"`
	MinSleep duration `toml:"min_sleep"`
	Workers  int      `toml:"workers"` // 0 means runtime.NumCPU()

	// DistributedLock serializes cycles across instances through Redis.
	DistributedLock bool     `toml:"distributed_lock"`
	LockTTL         duration `toml:"lock_ttl"`
}

// CacheConfig selects the volume cache backend.
type CacheConfig struct {
	Backend   string   `toml:"backend"` // memory | redis
	VolumeTTL duration `toml:"volume_ttl"`
}

// PersistConfig controls where cache snapshots live and how often they are
// written.
type PersistConfig struct {
	Backend  string   `toml:"backend"` // dir | s3
	Dir      string   `toml:"dir"`
	Prefix   string   `toml:"prefix"`
	Interval duration `toml:"interval"`
}

// ArchiveConfig controls the daily flip-history export to S3.
type ArchiveConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// PostgresConfig holds connection parameters for the flip history store.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
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

	// WarmLedger seeds the dedup ledger from the most recent stored flips.
	WarmLedger bool `toml:"warm_ledger"`
}

// ServerConfig holds the dashboard HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with sensible defaults.
func Defaults() Config {
	return Config{
		Hypixel: HypixelConfig{
			BaseURL:         "https://api.hypixel.net",
			Timeout:         duration{15 * time.Second},
			PageConcurrency: 15,
			MaxRetries:      3,
			RetryBackoff:    duration{time.Second},
		},
		Coflnet: CoflnetConfig{
			BaseURL:       "https://sky.coflnet.com",
			Timeout:       duration{10 * time.Second},
			LookupTimeout: duration{10 * time.Second},
		},
		Flip: FlipConfig{
			ProfitMode:     "absolute",
			MinProfit:      1_000_000,
			ProfitRatio:    decimal.NewFromInt(1),
			MaxCost:        100_000_000,
			MinListings:    2,
			MinDailyVolume: 5,
			LedgerCapacity: 10_000,
		},
		Scan: ScanConfig{
			Cooldown: duration{10 * time.Second},
			MinSleep: duration{2 * time.Second},
			LockTTL:  duration{2 * time.Minute},
		},
		Cache: CacheConfig{
			Backend:   "memory",
			VolumeTTL: duration{5 * time.Minute},
		},
		Persist: PersistConfig{
			Backend:  "dir",
			Dir:      "data",
			Prefix:   "snapshots/",
			Interval: duration{5 * time.Minute},
		},
		Archive: ArchiveConfig{
			Cron: "15 0 * * *",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			KeyPrefix:  "flipbot:",
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "flipbot-data",
			ForcePathStyle: true,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "flipbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  1,
			RunMigrations: true,
			WarmLedger:    true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Notify: NotifyConfig{
			Events: []string{"flip", "lifecycle"},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

var validModes = map[string]bool{
	"scan": true,
	"full": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validEvents = map[string]bool{
	"flip":      true,
	"lifecycle": true,
}

// Validate checks the configuration for internal consistency and returns an
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Hypixel.BaseURL == "" {
		errs = append(errs, "hypixel: base_url must not be empty")
	}
	if c.Hypixel.PageConcurrency < 1 {
		errs = append(errs, "hypixel: page_concurrency must be >= 1")
	}
	if c.Hypixel.MaxRetries < 0 {
		errs = append(errs, "hypixel: max_retries must be >= 0")
	}
	if c.Coflnet.BaseURL == "" {
		errs = append(errs, "coflnet: base_url must not be empty")
	}

	switch c.Flip.ProfitMode {
	case "absolute", "ratio":
	default:
		errs = append(errs, fmt.Sprintf("flip: unknown profit_mode %q (valid: absolute, ratio)", c.Flip.ProfitMode))
	}
	if c.Flip.MinProfit < 0 {
		errs = append(errs, "flip: min_profit must be >= 0")
	}
	if c.Flip.ProfitRatio.IsNegative() {
		errs = append(errs, "flip: profit_ratio must be >= 0")
	}
	if c.Flip.MaxCost <= 0 {
		errs = append(errs, "flip: max_cost must be positive")
	}
	if c.Flip.MinListings < 2 {
		errs = append(errs, "flip: min_listings must be >= 2")
	}
	if c.Flip.MinDailyVolume < 0 {
		errs = append(errs, "flip: min_daily_volume must be >= 0")
	}
	if c.Flip.LedgerCapacity < 1 {
		errs = append(errs, "flip: ledger_capacity must be >= 1")
	}

	if c.Scan.Cooldown.Duration <= 0 {
		errs = append(errs, "scan: cooldown must be positive")
	}
	if c.Scan.MinSleep.Duration < 0 {
		errs = append(errs, "scan: min_sleep must be >= 0")
	}
	if c.Scan.Workers < 0 {
		errs = append(errs, "scan: workers must be >= 0")
	}

	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Sprintf("cache: unknown backend %q (valid: memory, redis)", c.Cache.Backend))
	}
	if c.Cache.VolumeTTL.Duration <= 0 {
		errs = append(errs, "cache: volume_ttl must be positive")
	}
	if (c.Cache.Backend == "redis" || c.Scan.DistributedLock) && c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty when the redis cache or distributed lock is used")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	switch c.Persist.Backend {
	case "dir":
		if c.Persist.Dir == "" {
			errs = append(errs, "persist: dir must not be empty for the dir backend")
		}
	case "s3":
	default:
		errs = append(errs, fmt.Sprintf("persist: unknown backend %q (valid: dir, s3)", c.Persist.Backend))
	}
	if c.Persist.Interval.Duration <= 0 {
		errs = append(errs, "persist: interval must be positive")
	}
	if (c.Persist.Backend == "s3" || c.Archive.Enabled) && c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty when s3 persistence or archiving is enabled")
	}

	if c.Archive.Enabled {
		if !c.Postgres.Enabled {
			errs = append(errs, "archive: requires postgres.enabled")
		}
		if strings.TrimSpace(c.Archive.Cron) == "" {
			errs = append(errs, "archive: cron must not be empty")
		}
	}

	if c.Postgres.Enabled {
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
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Mode == "full" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}
	for _, e := range c.Notify.Events {
		if !validEvents[e] {
			errs = append(errs, fmt.Sprintf("notify: unknown event %q (valid: flip, lifecycle)", e))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
