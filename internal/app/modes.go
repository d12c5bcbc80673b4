package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/scimarket/scimarketd/internal/server"
	"github.com/scimarket/scimarketd/internal/server/handler"
)

// ScanMode runs the scan loops headlessly, with no API surface. Useful for
// keeping archives and alerts warm without exposing an endpoint.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.Info("scan mode: starting scan loops")
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Hub.Run(ctx) })
	g.Go(func() error { return deps.Scans.Run(ctx) })
	return g.Wait()
}

// ServerMode runs the API together with the scan loops.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	return a.runServer(ctx, deps, false)
}

// FullMode is ServerMode plus the retention loop that moves aged activity to
// cold storage.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	return a.runServer(ctx, deps, true)
}

func (a *App) runServer(ctx context.Context, deps *Dependencies, withArchive bool) error {
	if deps.Commands == nil {
		return fmt.Errorf("app: server requires a wallet and activity store")
	}

	health := map[string]handler.Pinger{}
	if deps.PG != nil {
		health["postgres"] = pingFunc(func(ctx context.Context) error { return deps.PG.Pool().Ping(ctx) })
	}
	if deps.Redis != nil {
		health["redis"] = deps.Redis
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
	}, server.Handlers{
		Health:   handler.NewHealthHandler(health, a.logger),
		Nfts:     handler.NewNftHandler(deps.Markets, a.logger),
		Commands: handler.NewCommandHandler(deps.Commands, a.logger),
		Activity: handler.NewActivityHandler(deps.Commands, a.logger),
		Scan:     handler.NewScanHandler(deps.Markets, a.logger),
	}, deps.Hub, deps.RateLimiter, a.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return deps.Hub.Run(ctx) })
	g.Go(func() error { return deps.Scans.Run(ctx) })
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if withArchive && deps.Archiver != nil {
		g.Go(func() error { return a.archiveLoop(ctx, deps) })
	}
	return g.Wait()
}

// archiveLoop runs once a day: it uploads the current public snapshot to
// cold storage, then moves activity entries past the retention window,
// deleting them from the primary store only after the upload succeeds.
func (a *App) archiveLoop(ctx context.Context, deps *Dependencies) error {
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
	if retention <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if snap := deps.Scans.Public(); snap != nil {
				path, err := deps.Archiver.ArchiveSnapshot(ctx, snap)
				if err != nil {
					a.logger.Error("snapshot archive failed", slog.String("error", err.Error()))
				} else {
					a.logger.Info("snapshot archived", slog.String("path", path))
				}
			}

			cutoff := time.Now().Add(-retention)
			path, count, err := deps.Archiver.ArchiveActivity(ctx, cutoff)
			if err != nil {
				a.logger.Error("activity archive failed", slog.String("error", err.Error()))
				continue
			}
			if count == 0 {
				continue
			}
			deleted, err := deps.Activity.DeleteBefore(ctx, cutoff)
			if err != nil {
				a.logger.Error("activity prune failed", slog.String("error", err.Error()))
				continue
			}
			a.logger.Info("activity archived",
				slog.String("path", path),
				slog.Int("archived", count),
				slog.Int64("deleted", deleted),
			)
		}
	}
}

// pingFunc adapts a function to the health Pinger interface.
type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
