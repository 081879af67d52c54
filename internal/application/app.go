// Package application wires configuration, storage and the talk service
// together for the server and the command line tool.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/talkshelf/internal/config"
	"github.com/JonMunkholm/talkshelf/internal/core"
	"github.com/JonMunkholm/talkshelf/internal/sessionize"
	"github.com/JonMunkholm/talkshelf/internal/storage"
)

// App holds the long-lived dependencies of a running process.
type App struct {
	Config  *config.Config
	Service *core.Service

	buckets *storage.Buckets
}

// Open opens storage, builds the service and brings the stored data up to
// date. Close must be called to release the storage handles.
func Open(ctx context.Context, cfg *config.Config) (*App, error) {
	buckets, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, buckets)
}

func newApp(ctx context.Context, cfg *config.Config, buckets *storage.Buckets) (*App, error) {
	client := sessionize.NewClient(sessionize.Config{
		Timeout:   cfg.Sessionize.Timeout,
		Retries:   cfg.Sessionize.Retries,
		UserAgent: cfg.Sessionize.UserAgent,
	})

	service := core.NewService(buckets.Local, buckets.Synced, client, ServiceOptions(cfg))

	seeded, err := service.Install(ctx)
	if err != nil {
		buckets.Close()
		return nil, fmt.Errorf("install: %w", err)
	}
	if len(seeded) > 0 {
		slog.Info("seeded empty collections", "keys", seeded)
	}

	migrated, err := service.Migrate(ctx)
	if err != nil {
		buckets.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if migrated > 0 {
		slog.Info("migrated stored talks", "count", migrated)
	}

	return &App{Config: cfg, Service: service, buckets: buckets}, nil
}

// ServiceOptions maps the import configuration onto core.Options.
// A configured history limit of zero disables history.
func ServiceOptions(cfg *config.Config) core.Options {
	historyLimit := cfg.Import.HistoryLimit
	if historyLimit == 0 {
		historyLimit = -1
	}
	return core.Options{
		HistoryLimit:         historyLimit,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		MaxImportWait:        cfg.Import.MaxWaitTime,
		ImportTimeout:        cfg.Import.Timeout,
	}
}

// Close releases the storage handles.
func (a *App) Close() error {
	return a.buckets.Close()
}
