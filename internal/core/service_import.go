package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/talkshelf/internal/logging"
	"github.com/JonMunkholm/talkshelf/internal/metrics"
)

var errNoFetcher = errors.New("no sessionize client configured")

// Import decodes req.Data with the requested format and merges the talks
// into the store. Malformed files are rejected before anything is written.
// A JSON settings document also replaces the Sessionize URL and custom
// fields.
func (s *Service) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	return s.runImport(ctx, req, false)
}

// PreviewImport decodes and merges like Import but writes nothing.
func (s *Service) PreviewImport(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	return s.runImport(ctx, req, true)
}

func (s *Service) runImport(ctx context.Context, req ImportRequest, preview bool) (*ImportResult, error) {
	start := s.now()

	format, ok := LookupFormat(req.Format)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, req.Format)
	}
	source := req.Source
	if source == "" {
		source = format.Key
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		if errors.Is(err, ErrTooManyImports) {
			metrics.RecordImport(source, metrics.OutcomeBusy, 0, 0, 0, 0)
		}
		return nil, err
	}
	defer s.limiter.Release()

	if s.opts.ImportTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.ImportTimeout)
		defer cancel()
	}

	logger := logging.WithFields(ctx, "format", format.Key, "file", req.FileName, "preview", preview)

	if len(req.Data) == 0 {
		metrics.RecordImport(source, metrics.OutcomeRejected, 0, 0, 0, time.Since(start))
		return nil, ErrEmptyFile
	}

	batch, err := format.Decode(req.Data)
	if err != nil {
		logger.Warn("import rejected", "error", err)
		metrics.RecordImport(source, metrics.OutcomeRejected, 0, 0, 0, time.Since(start))
		return nil, err
	}
	if req.Source == "" && batch.Settings != nil {
		source = SourceSettings
	}

	result, err := s.apply(ctx, source, req.FileName, batch, preview)
	if err != nil {
		logger.Error("import failed", "error", err)
		metrics.RecordImport(source, metrics.OutcomeError, 0, 0, 0, time.Since(start))
		return nil, err
	}
	result.Duration = s.now().Sub(start)

	if !preview {
		logger.Info("import completed",
			"import_id", result.ID,
			"source", source,
			"added", result.Added,
			"skipped", result.Skipped,
			"rejected", result.Rejected,
			"duration_ms", result.Duration.Milliseconds(),
		)
		metrics.RecordImport(source, metrics.OutcomeSuccess, result.Added, result.Skipped, result.Rejected, result.Duration)
	}
	return result, nil
}

// FetchSessionize downloads talks from the configured Sessionize URL and
// merges them into the store. Nothing is written when the fetch fails or
// ctx ends before the merge.
func (s *Service) FetchSessionize(ctx context.Context) (*ImportResult, error) {
	if s.fetcher == nil {
		return nil, errNoFetcher
	}

	start := s.now()
	url, err := s.store.LoadSessionizeURL(ctx)
	if err != nil {
		return nil, err
	}
	if url == "" {
		return nil, ErrNoSessionizeURL
	}

	// Concurrent fetches of one URL share a request detached from any single caller.
	ch := s.fetches.DoChan(url, func() (any, error) {
		return s.fetcher.Fetch(context.WithoutCancel(ctx), url)
	})

	var objects []map[string]any
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			metrics.RecordFetch(metrics.OutcomeError, time.Since(start))
			return nil, res.Err
		}
		objects = res.Val.([]map[string]any)
	}
	metrics.RecordFetch(metrics.OutcomeSuccess, time.Since(start))

	result, err := s.apply(ctx, SourceSessionize, url, BatchFromObjects(objects), false)
	if err != nil {
		return nil, err
	}
	result.Duration = s.now().Sub(start)

	logging.FromContext(ctx).Info("sessionize fetch merged",
		"import_id", result.ID,
		"added", result.Added,
		"skipped", result.Skipped,
		"rejected", result.Rejected,
	)
	metrics.RecordImport(SourceSessionize, metrics.OutcomeSuccess, result.Added, result.Skipped, result.Rejected, result.Duration)
	return result, nil
}

// apply merges batch into the stored talks under the store mutex. When
// preview is set nothing is written.
func (s *Service) apply(ctx context.Context, source, fileName string, batch *Batch, preview bool) (*ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The caller may have gone away while waiting for the lock.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	existing, err := s.store.LoadTalks(ctx)
	if err != nil {
		return nil, err
	}
	merge := Merge(existing, batch.Talks)

	result := &ImportResult{
		Source:       source,
		FileName:     fileName,
		Added:        merge.Added,
		Skipped:      merge.Skipped,
		Rejected:     len(batch.Rejected),
		RejectedRows: batch.Rejected,
		NewTalks:     merge.NewTalks(),
		Settings:     batch.Settings != nil,
		Preview:      preview,
	}
	if batch.Settings != nil && batch.Settings.SessionizeURL != nil {
		if err := ValidateSessionizeURL(*batch.Settings.SessionizeURL); err != nil {
			return nil, err
		}
	}
	if preview {
		return result, nil
	}

	if merge.Added > 0 {
		if err := s.store.SaveTalks(ctx, merge.Merged); err != nil {
			return nil, err
		}
		metrics.SetStoredTalks(len(merge.Merged))
	}
	if batch.Settings != nil {
		if err := s.store.SaveSynced(ctx, *batch.Settings); err != nil {
			if merge.Added > 0 {
				s.restoreTalks(ctx, existing)
			}
			return nil, err
		}
	}

	result.ID = uuid.New()
	record := ImportRecord{
		ID:        result.ID,
		Source:    source,
		FileName:  fileName,
		Added:     result.Added,
		Skipped:   result.Skipped,
		Rejected:  result.Rejected,
		ClientIP:  ClientIPFromContext(ctx),
		UserAgent: UserAgentFromContext(ctx),
		At:        s.now().UTC(),
	}
	if err := s.store.AppendImportRecord(ctx, record, s.opts.HistoryLimit); err != nil {
		// History is best effort.
		logging.FromContext(ctx).Warn("import history not recorded", "import_id", result.ID, "error", err)
	}

	return result, nil
}

// restoreTalks puts back the talk list saved before a failed import.
func (s *Service) restoreTalks(ctx context.Context, talks []Talk) {
	if err := s.store.SaveTalks(context.WithoutCancel(ctx), talks); err != nil {
		logging.FromContext(ctx).Error("restore talks after failed import", "error", err)
		return
	}
	metrics.SetStoredTalks(len(talks))
}

// ImportHistory returns persisted import records, newest first.
func (s *Service) ImportHistory(ctx context.Context) ([]ImportRecord, error) {
	return s.store.LoadImportHistory(ctx)
}
