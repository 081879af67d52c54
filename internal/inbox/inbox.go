// Package inbox imports talk files dropped into a directory.
//
// Layout under the inbox directory:
//
//	talks.csv                  dropped file, picked up once writes settle
//	Imported/talks.csv         file merged into the store
//	Rejected/talks.csv         file refused as a whole (bad header, bad JSON)
//	Failed/talks - failed.csv  rows dropped from an imported file, with reasons
//
// Files are handled one at a time. A file that keeps being written is
// only imported after it has been quiet for the debounce interval.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/renameio/v2"

	"github.com/JonMunkholm/talkshelf/internal/core"
	"github.com/JonMunkholm/talkshelf/internal/metrics"
)

// Subdirectories created under the inbox.
const (
	ImportedDir = "Imported"
	RejectedDir = "Rejected"
	FailedDir   = "Failed"
)

const (
	defaultDebounce      = 500 * time.Millisecond
	defaultRetryDelay    = 5 * time.Second
	defaultMaxRetryDelay = 5 * time.Minute
)

// ErrImportFailed marks a file that could not be imported for a reason
// outside the file, such as a storage outage or busy import slots. The file
// is left in the inbox and retried.
var ErrImportFailed = errors.New("inbox import failed")

// Importer is the part of core.Service the inbox drives.
type Importer interface {
	Import(ctx context.Context, req core.ImportRequest) (*core.ImportResult, error)
}

// Config configures a Watcher.
type Config struct {
	Dir         string
	Debounce    time.Duration
	MaxFileSize int64

	// RetryDelay is the first wait before a failed file is tried again; it
	// doubles per attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

// Watcher watches an inbox directory and imports files that land in it.
type Watcher struct {
	cfg      Config
	importer Importer

	mu       sync.Mutex
	timers   map[string]*time.Timer
	attempts map[string]int
}

// New creates a Watcher. Run starts it.
func New(cfg Config, importer Importer) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 << 20
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = max(defaultMaxRetryDelay, cfg.RetryDelay)
	}
	return &Watcher{
		cfg:      cfg,
		importer: importer,
		timers:   make(map[string]*time.Timer),
		attempts: make(map[string]int),
	}
}

// Run imports files already present, then watches for new ones until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.ensureDirs(); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch inbox %s: %w", w.cfg.Dir, err)
	}

	slog.Info("inbox watcher started", "dir", w.cfg.Dir, "debounce", w.cfg.Debounce)

	ready := make(chan string)
	defer w.stopTimers()

	// Watch first so nothing dropped during the scan is missed.
	existing, err := w.candidates()
	if err != nil {
		slog.Warn("inbox scan failed", "dir", w.cfg.Dir, "error", err)
	}
	for _, path := range existing {
		w.schedule(ctx, path, w.cfg.Debounce, ready)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("inbox watcher stopped", "dir", w.cfg.Dir)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isCandidate(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name, w.cfg.Debounce, ready)

		case path := <-ready:
			w.mu.Lock()
			delete(w.timers, path)
			w.mu.Unlock()

			err := w.ProcessFile(ctx, path)
			if errors.Is(err, ErrImportFailed) && ctx.Err() == nil {
				delay := w.retryDelay(path)
				slog.Warn("inbox file will be retried", "file", filepath.Base(path), "in", delay, "error", err)
				w.schedule(ctx, path, delay, ready)
				continue
			}
			w.mu.Lock()
			delete(w.attempts, path)
			w.mu.Unlock()
			if err != nil {
				slog.Error("inbox file failed", "file", filepath.Base(path), "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("inbox watcher error", "error", err)
		}
	}
}

// schedule (re)starts the timer that hands path to the Run loop after delay.
func (w *Watcher) schedule(ctx context.Context, path string, delay time.Duration, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(delay, func() {
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

// retryDelay records another failed attempt for path and returns the wait
// before the next one.
func (w *Watcher) retryDelay(path string) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()

	delay := w.cfg.RetryDelay << w.attempts[path]
	if delay <= 0 || delay > w.cfg.MaxRetryDelay {
		delay = w.cfg.MaxRetryDelay
	} else {
		w.attempts[path]++
	}
	return delay
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// ScanExisting imports every candidate file currently in the inbox and
// returns how many were processed.
func (w *Watcher) ScanExisting(ctx context.Context) (int, error) {
	if err := w.ensureDirs(); err != nil {
		return 0, err
	}
	paths, err := w.candidates()
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if err := w.ProcessFile(ctx, path); err != nil {
			slog.Error("inbox file failed", "file", filepath.Base(path), "error", err)
			continue
		}
		processed++
	}
	return processed, nil
}

// candidates lists the importable files currently in the inbox.
func (w *Watcher) candidates() ([]string, error) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("reading inbox %s: %w", w.cfg.Dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isCandidate(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.cfg.Dir, entry.Name()))
	}
	return paths, nil
}

// ProcessFile imports one file and files it under Imported/ or Rejected/.
// Rows dropped from an imported file are written to Failed/.
// The returned error covers filesystem problems and, wrapped in
// ErrImportFailed, storage failures; a rejected file is not an error.
func (w *Watcher) ProcessFile(ctx context.Context, path string) error {
	name := filepath.Base(path)
	if name != filepath.Base(filepath.Clean(path)) || strings.Contains(name, "..") {
		return fmt.Errorf("invalid filename: %q", name)
	}
	format, ok := core.FormatForFile(name)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownFormat, name)
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		// Already handled by an earlier event.
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	data, readErr := core.ReadUpload(f, w.cfg.MaxFileSize)
	f.Close()

	logger := slog.With("file", name, "format", format.Key)

	var result *core.ImportResult
	if readErr == nil {
		result, err = w.importer.Import(ctx, core.ImportRequest{
			Format:   format.Key,
			Source:   core.SourceInbox,
			FileName: name,
			Data:     data,
		})
	} else {
		err = readErr
	}

	if err != nil {
		if !isFileRejection(err) {
			metrics.RecordInboxFile(metrics.OutcomeError)
			return fmt.Errorf("%w: %s: %w", ErrImportFailed, name, err)
		}
		logger.Warn("inbox file rejected", "reason", core.FormatUserError(err), "error", err)
		metrics.RecordInboxFile(metrics.OutcomeRejected)
		return w.move(path, RejectedDir)
	}

	if len(result.RejectedRows) > 0 {
		if err := w.writeFailedRows(name, result.RejectedRows); err != nil {
			logger.Warn("failed rows not written", "error", err)
		}
	}

	logger.Info("inbox file imported",
		"import_id", result.ID,
		"added", result.Added,
		"skipped", result.Skipped,
		"rejected", result.Rejected,
	)
	metrics.RecordInboxFile(metrics.OutcomeSuccess)
	return w.move(path, ImportedDir)
}

// isFileRejection reports whether err describes the file itself rather than
// the environment. Rejected files are moved aside; other failures leave the
// file in place to be retried.
func isFileRejection(err error) bool {
	for _, target := range []error{
		core.ErrInvalidHeader,
		core.ErrInvalidJSON,
		core.ErrEmptyFile,
		core.ErrFileTooLarge,
		core.ErrInvalidURL,
		core.ErrUnknownFormat,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeFailedRows writes "<stem> - failed.csv" with a Reason column before
// the original cells.
func (w *Watcher) writeFailedRows(name string, rows []core.RejectedRow) error {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	path := filepath.Join(w.cfg.Dir, FailedDir, stem+" - failed.csv")

	records := make([][]string, 0, len(rows)+1)
	records = append(records, append([]string{"Reason", "Row"}, core.CSVHeader...))
	for _, r := range rows {
		records = append(records, append([]string{r.Reason, strconv.Itoa(r.Row)}, r.Data...))
	}

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending failed-rows file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			slog.Debug("cleanup pending failed-rows file", "error", err)
		}
	}()

	if _, err := pendingFile.WriteString(core.SerializeRows(records) + "\n"); err != nil {
		return fmt.Errorf("write failed rows: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace failed-rows file: %w", err)
	}
	return nil
}

// move renames path into dir, replacing an older file of the same name.
func (w *Watcher) move(path, dir string) error {
	dest := filepath.Join(w.cfg.Dir, dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return fmt.Errorf("failed moving file %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (w *Watcher) ensureDirs() error {
	for _, dir := range []string{"", ImportedDir, RejectedDir, FailedDir} {
		if err := os.MkdirAll(filepath.Join(w.cfg.Dir, dir), 0o755); err != nil {
			return fmt.Errorf("create inbox directory: %w", err)
		}
	}
	return nil
}

// isCandidate reports whether name looks like an importable file. Hidden
// and temporary files are skipped.
func isCandidate(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	_, ok := core.FormatForFile(base)
	return ok
}
