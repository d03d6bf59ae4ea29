package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/flipbot/internal/server"
	"github.com/alanyoungcy/flipbot/internal/server/handler"
	"github.com/alanyoungcy/flipbot/internal/server/ws"
)

// ScanMode runs the scan loop with periodic snapshots and, when enabled, the
// daily archive.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies, eng *engine) error {
	a.logger.InfoContext(ctx, "starting scan mode")
	return a.orchestrator(eng, nil).Run(ctx)
}

// FullMode runs everything ScanMode does plus the dashboard HTTP server and
// its WebSocket flip stream.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, eng *engine) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	triggerCh := make(chan struct{}, 1)
	g.Go(func() error {
		return a.orchestrator(eng, triggerCh).Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps, eng, triggerCh)

	return g.Wait()
}

// startHTTPServer registers the dashboard server, its hub, and the shutdown
// watcher on g.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	eng *engine,
	triggerCh chan<- struct{},
) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
		Recent:    eng.flips,
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, server.Handlers{
		Health:   handler.NewHealthHandler(deps.HealthChecks, a.logger),
		Flips:    handler.NewFlipHandler(eng.flips, a.logger),
		Status:   handler.NewStatusHandler(a.cfg.Mode, eng.gauges()),
		Pipeline: handler.NewPipelineHandler(a.logger).WithTriggerChannel(triggerCh),
	}, hub, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
