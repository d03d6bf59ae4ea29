package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// CycleRunner runs one scan cycle.
type CycleRunner interface {
	Run(ctx context.Context) (CycleStats, error)
}

// SnapshotLoop periodically persists the in-memory caches.
type SnapshotLoop interface {
	RunLoop(ctx context.Context, interval time.Duration) error
}

// OrchestratorConfig configures an Orchestrator. Persister and Archiver are
// optional; a nil one is simply not started.
type OrchestratorConfig struct {
	Scanner          CycleRunner
	Persister        SnapshotLoop
	Archiver         *Archiver
	Cooldown         time.Duration
	MinSleep         time.Duration
	AutosaveInterval time.Duration
	ArchiveCron      string
	Logger           *slog.Logger

	// Trigger, when set, wakes the scan loop before the cooldown ends.
	Trigger <-chan struct{}
}

// Orchestrator manages the pipeline goroutines: the scan loop, periodic
// cache snapshots, and cold-storage archival.
type Orchestrator struct {
	scanner          CycleRunner
	persister        SnapshotLoop
	archiver         *Archiver
	cooldown         time.Duration
	minSleep         time.Duration
	autosaveInterval time.Duration
	archiveCron      string
	trigger          <-chan struct{}
	logger           *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. Cooldown defaults to 10s,
// MinSleep to 2s and AutosaveInterval to 5m.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	o := &Orchestrator{
		scanner:          cfg.Scanner,
		persister:        cfg.Persister,
		archiver:         cfg.Archiver,
		cooldown:         cfg.Cooldown,
		minSleep:         cfg.MinSleep,
		autosaveInterval: cfg.AutosaveInterval,
		archiveCron:      cfg.ArchiveCron,
		trigger:          cfg.Trigger,
		logger:           cfg.Logger.With(slog.String("component", "orchestrator")),
	}
	if o.cooldown <= 0 {
		o.cooldown = 10 * time.Second
	}
	if o.minSleep <= 0 {
		o.minSleep = 2 * time.Second
	}
	if o.autosaveInterval <= 0 {
		o.autosaveInterval = 5 * time.Minute
	}
	return o
}

// Run starts all sub-pipelines as concurrent goroutines using an errgroup. Each
// goroutine respects ctx cancellation. If any goroutine returns a non-context
// error, the errgroup cancels the shared context and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting",
		slog.Duration("cooldown", o.cooldown),
		slog.Duration("autosave_interval", o.autosaveInterval),
		slog.String("archive_cron", o.archiveCron),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.RunScanLoop(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("scan loop: %w", err)
	})

	if o.persister != nil {
		g.Go(func() error {
			err := o.persister.RunLoop(ctx, o.autosaveInterval)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("autosave: %w", err)
		})
	}

	if o.archiver != nil && o.archiveCron != "" {
		g.Go(func() error {
			err := o.archiver.RunCron(ctx, o.archiveCron)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}

	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}

// RunScanLoop runs cycles back to back until ctx is cancelled. Cycle
// starts are spaced by the cooldown, and the loop always sleeps at least
// minSleep between cycles unless a trigger arrives. A failed cycle is logged
// and the loop continues.
func (o *Orchestrator) RunScanLoop(ctx context.Context) error {
	for {
		start := time.Now()
		if _, err := o.scanner.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			o.logger.Error("scan cycle failed", slog.String("error", err.Error()))
		}

		timer := time.NewTimer(nextSleep(o.cooldown, o.minSleep, time.Since(start)))
		select {
		case <-ctx.Done():
			timer.Stop()
			o.logger.Info("scan loop stopped")
			return ctx.Err()
		case <-timer.C:
		case <-o.trigger:
			timer.Stop()
			o.logger.Info("scan triggered early")
		}
	}
}

// nextSleep is the pause after a cycle that took elapsed.
func nextSleep(cooldown, minSleep, elapsed time.Duration) time.Duration {
	return max(minSleep, cooldown-elapsed)
}
