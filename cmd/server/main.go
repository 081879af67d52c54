package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/talkshelf/internal/application"
	"github.com/JonMunkholm/talkshelf/internal/config"
	"github.com/JonMunkholm/talkshelf/internal/inbox"
	"github.com/JonMunkholm/talkshelf/internal/logging"
	"github.com/JonMunkholm/talkshelf/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := application.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	service := app.Service
	server := web.NewServer(service, cfg)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Import.InboxDir != "" {
		watcher := inbox.New(inbox.Config{
			Dir:         cfg.Import.InboxDir,
			Debounce:    cfg.Import.InboxDebounce,
			MaxFileSize: cfg.Import.MaxFileSize,
			RetryDelay:  cfg.Import.InboxRetryDelay,
		}, service)
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}

	g.Go(func() error {
		service.RunSessionizeSync(gctx, cfg.Sessionize.SyncInterval)
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		if status := service.ImportLimiterStatus(); status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
