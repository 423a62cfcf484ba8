// Package watcher monitors the import drop directory. Caregivers moving
// off the legacy single-device app copy its database export into the drop
// directory; the watcher notices the file settle and runs the import.
//
// Drop files are named <account_id>.db so the watcher knows which
// caregiver owns the imported records. After a successful import the file
// is renamed with an .imported suffix so restarts don't process it twice.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sproutlingapp/sproutling-server/internal/migrate"
)

// settleDelay is how long a drop file must go without writes before it is
// considered fully copied.
const settleDelay = 2 * time.Second

// Watcher watches a directory for legacy database drops.
type Watcher struct {
	dir      string
	importer *migrate.Importer
	logger   *slog.Logger

	mu       sync.Mutex
	pending  map[string]*time.Timer
	fsw      *fsnotify.Watcher
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a watcher over dir. The directory is created if missing.
func New(dir string, importer *migrate.Importer, logger *slog.Logger) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		dir:      dir,
		importer: importer,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
		fsw:      fsw,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. Files already sitting in the directory are
// processed immediately, then fsnotify events drive the rest. Start
// returns once the event loop is running.
func (w *Watcher) Start(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("Failed to scan drop directory", "dir", w.dir, "error", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && isDropFile(entry.Name()) {
			w.schedule(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}

	go w.loop(ctx)

	w.logger.Info("Import watcher started", "dir", w.dir)
}

// Stop shuts the watcher down and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.fsw.Close()
		<-w.done

		w.mu.Lock()
		for _, timer := range w.pending {
			timer.Stop()
		}
		w.pending = make(map[string]*time.Timer)
		w.mu.Unlock()
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !isDropFile(filepath.Base(event.Name)) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

// schedule arms (or re-arms) the settle timer for a drop file. Each write
// pushes the import back until the copy goes quiet.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		w.process(ctx, path)
	})
}

func (w *Watcher) process(ctx context.Context, path string) {
	ownerID := ownerFromDropFile(filepath.Base(path))
	if ownerID == "" {
		w.logger.Warn("Drop file name carries no account ID, ignoring", "file", path)
		return
	}

	result, err := w.importer.Import(ctx, path, ownerID)
	if err != nil {
		w.logger.Error("Legacy import failed",
			"file", path,
			"owner_id", ownerID,
			"error", err,
		)
		return
	}

	if err := os.Rename(path, path+".imported"); err != nil {
		w.logger.Warn("Failed to mark drop file as imported", "file", path, "error", err)
	}

	w.logger.Info("Drop file imported",
		"file", path,
		"owner_id", ownerID,
		"batch_id", result.BatchID,
		"children", result.Children,
	)
}

func isDropFile(name string) bool {
	return strings.HasSuffix(name, ".db")
}

// ownerFromDropFile extracts the account ID from a drop file name,
// e.g. "account_3f9d.db" -> "account_3f9d".
func ownerFromDropFile(name string) string {
	return strings.TrimSuffix(name, ".db")
}
