// Package app provides the top-level application lifecycle management for
// flipbot. It wires together all dependencies (stores, caches, blob storage,
// the flip engine, pipelines, and notifications) and starts the appropriate
// goroutines based on the configured operating mode.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/flipbot/internal/config"
	"github.com/alanyoungcy/flipbot/internal/notify"
)

// finalSaveTimeout bounds the snapshot flush performed on shutdown.
const finalSaveTimeout = 30 * time.Second

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, restores the
// cache snapshots, selects the operating mode, starts the corresponding
// goroutines, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", a.cfg.Mode),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	eng, err := a.buildEngine(ctx, deps)
	if err != nil {
		return fmt.Errorf("app: build engine: %w", err)
	}
	// Registered after the connection closers so it runs before them.
	a.closers = append(a.closers, func() { a.finalSave(eng) })

	a.lifecycle(ctx, deps.Notifier, "flipbot started")
	defer a.lifecycle(context.Background(), deps.Notifier, "flipbot stopped")

	mode := strings.ToLower(a.cfg.Mode)
	switch mode {
	case "scan":
		return a.ScanMode(ctx, deps, eng)
	case "full":
		return a.FullMode(ctx, deps, eng)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// finalSave flushes every snapshot on a context that outlives the
// cancelled run context.
func (a *App) finalSave(eng *engine) {
	ctx, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
	defer cancel()
	saved := eng.persister.SaveAll(ctx)
	a.logger.Info("final snapshot save", slog.Int("saved", saved))
}

// lifecycle sends a lifecycle notification, logging any delivery failure.
func (a *App) lifecycle(ctx context.Context, n *notify.Notifier, title string) {
	msg := notify.Message{
		Title: title,
		Fields: []notify.Field{
			{Name: "Mode", Value: a.cfg.Mode, Inline: true},
			{Name: "Time", Value: time.Now().UTC().Format(time.RFC3339), Inline: true},
		},
	}
	if err := n.Notify(ctx, notify.EventLifecycle, msg); err != nil {
		a.logger.Warn("lifecycle notification failed", slog.String("error", err.Error()))
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
