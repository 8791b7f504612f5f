// Package watch re-ingests local files when they change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-ingest/internal/logger"
)

// DefaultDebounce groups bursts of writes (editors save in several steps).
const DefaultDebounce = 2 * time.Second

// Options configure a watcher.
type Options struct {
	Namespace string
	Crawl     domain.CrawlOptions
	Prepare   domain.PrepareOptions

	// Debounce is the quiet period before changed files are ingested.
	Debounce time.Duration

	// InitialScan ingests every parseable file once at startup.
	InitialScan bool
}

// Watcher watches a directory tree and ingests created or written files.
type Watcher struct {
	root   string
	ingest driving.IngestService
	opts   Options

	mu      sync.Mutex
	pending map[string]struct{}
}

// New creates a watcher for root.
func New(root string, ingest driving.IngestService, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Watcher{
		root:    root,
		ingest:  ingest,
		opts:    opts,
		pending: make(map[string]struct{}),
	}
}

// Validate checks that the root is a readable directory.
func (w *Watcher) Validate() error {
	if w.ingest == nil {
		return errors.New("watch: ingest service is required")
	}
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, w.root)
	}
	return nil
}

// Run blocks until ctx is cancelled. Ingest failures are logged and
// the watch continues.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.Validate(); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fsw.Close()

	initial, err := w.addTree(fsw, w.root)
	if err != nil {
		return err
	}
	logger.Info("watching %s", w.root)

	if w.opts.InitialScan && len(initial) > 0 {
		w.mu.Lock()
		for _, p := range initial {
			w.pending[p] = struct{}{}
		}
		w.mu.Unlock()
		w.flush(ctx)
	}

	timer := time.NewTimer(w.opts.Debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if isDir(event.Name) && event.Has(fsnotify.Create) && !w.hidden(event.Name) {
				if _, err := w.addTree(fsw, event.Name); err != nil {
					logger.Warn("watch %s: %v", event.Name, err)
				}
				continue
			}
			if path, ok := w.handleFsEvent(event); ok {
				w.mu.Lock()
				w.pending[path] = struct{}{}
				w.mu.Unlock()
				timer.Reset(w.opts.Debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)

		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// addTree watches dir and its non-hidden subdirectories, returning the
// parseable files found.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("walk %s: %v", path, err)
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		if parseable(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	return files, nil
}

// handleFsEvent returns the path to ingest for a create or write of a
// visible, parseable regular file.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if w.hidden(event.Name) || !parseable(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return event.Name, true
}

// flush ingests the pending files in one run.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	sort.Strings(paths)

	seeds := make([]driving.CrawlSeed, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("read %s: %v", p, err)
			continue
		}
		if len(data) == 0 {
			continue
		}
		seeds = append(seeds, driving.CrawlSeed{
			Resource: domain.FileResource(filepath.Base(p), mime.TypeByExtension(filepath.Ext(p)), data),
			Title:    filepath.Base(p),
		})
	}
	if len(seeds) == 0 {
		return
	}

	result, err := w.ingest.Ingest(ctx, driving.IngestRequest{
		Seeds:     seeds,
		Namespace: w.opts.Namespace,
		Crawl:     w.opts.Crawl,
		Prepare:   w.opts.Prepare,
	})
	if err != nil {
		logger.Error("ingest %d changed files: %v", len(seeds), err)
		return
	}
	logger.Info("ingested %d changed files: %d chunks, %d upserted", len(seeds), result.Chunks, result.Report.Upserted())
	if !result.Report.OK() {
		logger.Warn("ingest %s: %v", result.RunID, result.Report.Err())
	}
}

// hidden applies isHidden below the watched root.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return isHidden(path)
	}
	return isHidden(rel)
}

func parseable(path string) bool {
	st, ok := domain.TypeForExtension(filepath.Ext(path))
	return ok && st != domain.SourceTypeWeb
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// isHidden reports whether any element of path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
