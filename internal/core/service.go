package core

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Options tunes a Service. Zero values select defaults.
type Options struct {
	// HistoryLimit caps the persisted import history. Zero selects
	// DefaultHistoryLimit; a negative value disables history.
	HistoryLimit int

	// MaxConcurrentImports bounds parallel imports.
	MaxConcurrentImports int

	// MaxImportWait is how long an import waits for a slot.
	MaxImportWait time.Duration

	// ImportTimeout bounds a single import, including the storage writes.
	ImportTimeout time.Duration
}

// DefaultHistoryLimit is used when Options.HistoryLimit is zero.
const DefaultHistoryLimit = 50

// Service is the application state shared by the HTTP handlers, the CLI,
// the import inbox and the sync scheduler.
//
// Store mutations run under one mutex, so concurrent imports and edits never
// lose each other's writes. Reads go straight to the buckets.
type Service struct {
	store   *TalkStore
	fetcher Fetcher
	limiter *ImportLimiter
	opts    Options

	mu      sync.Mutex // serializes read-modify-write sequences on the store
	fetches singleflight.Group

	now func() time.Time
}

// NewService creates a Service over the local and synced buckets.
// fetcher may be nil when remote fetches are not used.
func NewService(local, synced Bucket, fetcher Fetcher, opts Options) *Service {
	if opts.HistoryLimit == 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}

	return &Service{
		store:   NewTalkStore(local, synced),
		fetcher: fetcher,
		limiter: NewImportLimiter(opts.MaxConcurrentImports, opts.MaxImportWait),
		opts:    opts,
		now:     time.Now,
	}
}

// Store exposes the underlying typed store.
func (s *Service) Store() *TalkStore {
	return s.store
}

// ImportLimiterStatus returns the import limiter snapshot.
func (s *Service) ImportLimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// Install seeds empty collections for absent keys. It is safe to run on
// every start.
func (s *Service) Install(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Seed(ctx)
}

// Migrate fills defaults (pitch, notes, level) on talks stored by older
// versions and returns how many records were rewritten.
func (s *Service) Migrate(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Migrate(ctx)
}
