package app

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/flipbot/internal/flip"
	"github.com/alanyoungcy/flipbot/internal/identity"
	"github.com/alanyoungcy/flipbot/internal/itemdecode"
	"github.com/alanyoungcy/flipbot/internal/naming"
	"github.com/alanyoungcy/flipbot/internal/persist"
	"github.com/alanyoungcy/flipbot/internal/pipeline"
	"github.com/alanyoungcy/flipbot/internal/platform/coflnet"
	"github.com/alanyoungcy/flipbot/internal/platform/hypixel"
	"github.com/alanyoungcy/flipbot/internal/service"
)

// engine holds the long-lived flip detection objects shared by the modes.
type engine struct {
	normalizer *naming.Normalizer
	identity   *identity.Cache
	ledger     *flip.Ledger
	flips      *service.FlipService
	scanner    *pipeline.Scanner
	persister  *persist.Persister
	archiver   *pipeline.Archiver
}

// buildEngine constructs the caches, restores their snapshots, warms the
// ledger from flip history, and assembles the scanner.
func (a *App) buildEngine(ctx context.Context, deps *Dependencies) (*engine, error) {
	cfg := a.cfg

	thresholds := flip.Thresholds{
		Mode:        flip.ProfitMode(cfg.Flip.ProfitMode),
		MinProfit:   int64(cfg.Flip.MinProfit),
		Ratio:       cfg.Flip.ProfitRatio,
		MaxCost:     int64(cfg.Flip.MaxCost),
		MinListings: cfg.Flip.MinListings,
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	eng := &engine{
		normalizer: naming.NewNormalizer(cfg.Flip.Reforges),
		identity:   identity.NewCache(itemdecode.New()),
		ledger:     flip.NewLedger(cfg.Flip.LedgerCapacity),
	}

	eng.persister = persist.New(deps.SnapshotStore, a.logger)
	eng.persister.Register(persist.NameCacheFile, eng.normalizer)
	eng.persister.Register(persist.TagCacheFile, eng.identity)
	eng.persister.Register(persist.LedgerFile, eng.ledger)
	eng.persister.LoadAll(ctx)

	if deps.FlipStore != nil && cfg.Postgres.WarmLedger {
		ids, err := deps.FlipStore.RecentListingIDs(ctx, cfg.Flip.LedgerCapacity)
		if err != nil {
			a.logger.WarnContext(ctx, "ledger warm start failed", slog.String("error", err.Error()))
		} else {
			eng.ledger.Seed(ids)
			a.logger.InfoContext(ctx, "ledger warmed from flip history",
				slog.Int("ids", len(ids)),
				slog.Int("ledger_size", eng.ledger.Len()),
			)
		}
	}

	gate := flip.NewGate(flip.GateConfig{
		Cache:         deps.VolumeCache,
		Lookup:        coflnet.NewClient(cfg.Coflnet.BaseURL, cfg.Coflnet.Timeout.Duration),
		TTL:           cfg.Cache.VolumeTTL.Duration,
		MinVolume:     cfg.Flip.MinDailyVolume,
		LookupTimeout: cfg.Coflnet.LookupTimeout.Duration,
		Logger:        a.logger,
	})
	// The local ledger keeps snapshots and gauges; a shared ledger makes
	// report-once hold across instances that take turns under the scan lock.
	dedup := eng.ledger.Dedup()
	if deps.SharedLedger != nil {
		dedup = flip.ChainDedup(dedup, deps.SharedLedger)
	}
	finder := flip.NewFinder(flip.FinderConfig{
		Grouper: flip.NewGrouper(thresholds),
		Gate:    gate,
		Ledger:  dedup,
		Logger:  a.logger,
	})

	eng.flips = service.NewFlipService(service.FlipServiceConfig{
		Store:    deps.FlipStore,
		Bus:      deps.SignalBus,
		Notifier: deps.Notifier,
		Logger:   a.logger,
	})

	auctions := hypixel.NewClient(hypixel.ClientConfig{
		BaseURL:           cfg.Hypixel.BaseURL,
		Timeout:           cfg.Hypixel.Timeout.Duration,
		PageConcurrency:   cfg.Hypixel.PageConcurrency,
		MaxRetries:        cfg.Hypixel.MaxRetries,
		RetryBackoff:      cfg.Hypixel.RetryBackoff.Duration,
		AllowedCategories: cfg.Hypixel.AllowedCategories,
		Logger:            a.logger,
	})

	eng.scanner = pipeline.NewScanner(pipeline.ScannerConfig{
		Fetcher:    auctions,
		Resolver:   eng.identity,
		Normalizer: eng.normalizer,
		Finder:     finder,
		Recorder:   eng.flips,
		Lock:       deps.LockManager,
		LockTTL:    cfg.Scan.LockTTL.Duration,
		Audit:      deps.AuditStore,
		Workers:    cfg.Scan.Workers,
		Logger:     a.logger,
	})

	if deps.Archiver != nil {
		eng.archiver = pipeline.NewArchiver(deps.Archiver, a.logger)
	}

	a.logger.InfoContext(ctx, "flip engine ready",
		slog.Int("reforges", len(cfg.Flip.Reforges)),
		slog.Int("name_cache", eng.normalizer.Len()),
		slog.Int("identity_cache", eng.identity.Len()),
		slog.Int("ledger_size", eng.ledger.Len()),
		slog.String("profit_mode", string(thresholds.Mode)),
	)
	return eng, nil
}

// orchestrator builds the pipeline orchestrator for eng. trigger may be nil.
func (a *App) orchestrator(eng *engine, trigger <-chan struct{}) *pipeline.Orchestrator {
	archiveCron := ""
	if eng.archiver != nil {
		archiveCron = a.cfg.Archive.Cron
	}
	return pipeline.NewOrchestrator(pipeline.OrchestratorConfig{
		Scanner:          eng.scanner,
		Persister:        eng.persister,
		Archiver:         eng.archiver,
		Cooldown:         a.cfg.Scan.Cooldown.Duration,
		MinSleep:         a.cfg.Scan.MinSleep.Duration,
		AutosaveInterval: a.cfg.Persist.Interval.Duration,
		ArchiveCron:      archiveCron,
		Trigger:          trigger,
		Logger:           a.logger,
	})
}

// gauges exposes cache sizes on the status endpoint.
func (eng *engine) gauges() map[string]func() int {
	return map[string]func() int{
		"name_cache_size":     eng.normalizer.Len,
		"identity_cache_size": eng.identity.Len,
		"identity_decodes":    func() int { return int(eng.identity.Decodes()) },
		"ledger_size":         eng.ledger.Len,
	}
}

