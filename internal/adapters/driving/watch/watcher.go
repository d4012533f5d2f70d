// Package watch ingests files dropped into a folder.
//
// Each created or modified file is ingested after a quiet period. Because
// documents are immutable, a modified file is ingested as a new document
// and the previous one is deleted once the new one is ready. Removing or
// renaming a file deletes its document.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-study/internal/core/domain"
	"github.com/custodia-labs/sercha-study/internal/core/ports/driving"
)

// DefaultDebounce is the quiet period before a changed file is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Config configures a Watcher.
type Config struct {
	// Dir is the folder to watch. Subdirectories are not followed.
	Dir string

	// Debounce is the quiet period after the last event for a path.
	Debounce time.Duration

	// MaxBytes skips files larger than this. Zero disables the check.
	MaxBytes int64

	// Initial ingests files already present when Run starts.
	Initial bool
}

// Event reports the outcome of handling one file.
type Event struct {
	Path  string
	DocID string
	// Removed is true when the file's document was deleted.
	Removed bool
	Err     error
}

// Watcher keeps the document store in step with a folder.
type Watcher struct {
	cfg       Config
	documents driving.DocumentService
	logger    *zap.Logger

	mu     sync.Mutex
	docs   map[string]string // path -> doc ID
	timers map[string]*time.Timer
	wg     sync.WaitGroup

	events chan Event
}

// New creates a watcher for cfg.Dir.
func New(cfg Config, documents driving.DocumentService, logger *zap.Logger) (*Watcher, error) {
	if documents == nil {
		return nil, errors.New("watch: document service is required")
	}
	info, err := os.Stat(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrInvalidInput, cfg.Dir)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		cfg:       cfg,
		documents: documents,
		logger:    logger.Named("watch"),
		docs:      make(map[string]string),
		timers:    make(map[string]*time.Timer),
		events:    make(chan Event, 64),
	}, nil
}

// Events delivers the outcome of each handled file. Events are dropped
// when nobody reads them.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run watches the folder until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.cfg.Dir, err)
	}
	w.logger.Info("watching folder", zap.String("dir", w.cfg.Dir), zap.Duration("debounce", w.cfg.Debounce))

	if w.cfg.Initial {
		w.scan(ctx)
	}

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			w.handleFsEvent(ctx, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) scan(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Warn("initial scan failed", zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) {
			continue
		}
		w.ingest(ctx, filepath.Join(w.cfg.Dir, e.Name()))
	}
}

// handleFsEvent schedules work for one filesystem event.
func (w *Watcher) handleFsEvent(ctx context.Context, event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if isHidden(filepath.Base(path)) {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		w.cancel(path)
		w.remove(ctx, path)
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		w.schedule(ctx, path)
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok && t.Stop() {
		t.Reset(w.cfg.Debounce)
		return
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.cfg.Debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
	w.timers[path] = t
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok && t.Stop() {
		delete(w.timers, path)
		w.wg.Done()
	}
}

// stop cancels pending timers and waits for running ingests.
func (w *Watcher) stop() {
	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			delete(w.timers, path)
			w.wg.Done()
		}
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	log := w.logger.With(zap.String("path", path))

	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if w.cfg.MaxBytes > 0 && info.Size() > w.cfg.MaxBytes {
		log.Warn("skipping file over size limit", zap.Int64("size", info.Size()))
		w.emit(Event{Path: path, Err: domain.ErrFileTooLarge})
		return
	}

	content, err := os.ReadFile(path)
	if err != nil {
		log.Warn("reading file failed", zap.Error(err))
		w.emit(Event{Path: path, Err: err})
		return
	}

	doc, err := w.documents.Ingest(ctx, content, filepath.Base(path))
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedType) {
			log.Debug("skipping unsupported file")
		} else {
			log.Warn("ingest failed", zap.Error(err))
		}
		w.emit(Event{Path: path, Err: err})
		return
	}

	w.mu.Lock()
	previous := w.docs[path]
	w.docs[path] = doc.ID
	w.mu.Unlock()

	if previous != "" {
		if err := w.documents.Delete(ctx, previous); err != nil {
			log.Warn("deleting previous version failed", zap.String("doc_id", previous), zap.Error(err))
		}
	}
	log.Info("ingested", zap.String("doc_id", doc.ID), zap.Int("chunks", doc.ChunkCount))
	w.emit(Event{Path: path, DocID: doc.ID})
}

func (w *Watcher) remove(ctx context.Context, path string) {
	w.mu.Lock()
	docID, ok := w.docs[path]
	delete(w.docs, path)
	w.mu.Unlock()
	if !ok {
		return
	}

	if err := w.documents.Delete(ctx, docID); err != nil {
		w.logger.Warn("delete failed", zap.String("path", path), zap.String("doc_id", docID), zap.Error(err))
		w.emit(Event{Path: path, DocID: docID, Removed: true, Err: err})
		return
	}
	w.logger.Info("removed", zap.String("path", path), zap.String("doc_id", docID))
	w.emit(Event{Path: path, DocID: docID, Removed: true})
}

func (w *Watcher) emit(e Event) {
	select {
	case w.events <- e:
	default:
	}
}

// Tracked returns the document ID ingested for path, if any.
func (w *Watcher) Tracked(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.docs[filepath.Clean(path)]
	return id, ok
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}
