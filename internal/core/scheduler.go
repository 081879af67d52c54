package core

// scheduler.go keeps talks in step with the configured Sessionize URL.
//
// The sync loop runs once on start, then every interval, until ctx is
// cancelled. A missing URL is not an error: the tick is skipped quietly so the
// loop can stay enabled while the user has not configured a source yet.
// Failures are logged and retried on the next tick.

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// RunSessionizeSync blocks until ctx is cancelled, refreshing talks from the
// remote source every interval. A non-positive interval returns immediately.
func (s *Service) RunSessionizeSync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	slog.Info("sessionize sync started", "interval", interval)

	s.runSyncJob(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sessionize sync stopped")
			return
		case <-ticker.C:
			s.runSyncJob(ctx)
		}
	}
}

// runSyncJob performs one fetch + merge.
func (s *Service) runSyncJob(ctx context.Context) {
	start := time.Now()

	result, err := s.FetchSessionize(ctx)
	switch {
	case errors.Is(err, ErrNoSessionizeURL):
		slog.Debug("sessionize sync skipped: no url configured")
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		slog.Error("sessionize sync failed", "error", err)
	default:
		slog.Info("sessionize sync completed",
			"added", result.Added,
			"skipped", result.Skipped,
			"rejected", result.Rejected,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
