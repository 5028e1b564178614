// Package watch reports import sources that appear in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/outbox/internal/logger"
)

// DefaultSettle is how long a file must stay unchanged before it is
// reported. Exports are often written in several chunks.
const DefaultSettle = 500 * time.Millisecond

// Watcher reports JSON files created or rewritten in a directory.
type Watcher struct {
	dir    string
	settle time.Duration
	log    *slog.Logger
}

// New creates a watcher for dir.
func New(dir string) *Watcher {
	return &Watcher{
		dir:    dir,
		settle: DefaultSettle,
		log:    logger.For("watch"),
	}
}

// SetSettle changes the quiet period before a file is reported.
func (w *Watcher) SetSettle(d time.Duration) {
	w.settle = d
}

// Existing returns the JSON files already in the directory, sorted.
func (w *Watcher) Existing() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", w.dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isSource(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(w.dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Watch starts watching and returns a channel of file paths. A path is
// sent once its writes have settled. The channel is closed when ctx is
// done or the underlying watcher fails.
func (w *Watcher) Watch(ctx context.Context) (<-chan string, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.dir, err)
	}

	out := make(chan string)
	go w.loop(ctx, fw, out)
	return out, nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, out chan<- string) {
	defer close(out)
	defer fw.Close()

	tick := max(w.settle/2, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	// pending maps a path to the time of its last write.
	pending := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if path, ok := w.handleEvent(ev); ok {
				pending[path] = time.Now()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "dir", w.dir, "error", err)

		case now := <-ticker.C:
			for _, path := range settled(pending, now, w.settle) {
				delete(pending, path)
				select {
				case out <- path:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handleEvent returns the path to report for ev, if any. Only creates and
// writes of visible .json files count.
func (w *Watcher) handleEvent(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if !isSource(filepath.Base(ev.Name)) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.log.Debug("stat failed", "path", ev.Name, "error", err)
		}
		return "", false
	}
	if info.IsDir() {
		return "", false
	}
	return ev.Name, true
}

// settled returns the pending paths quiet for at least d, sorted.
func settled(pending map[string]time.Time, now time.Time, d time.Duration) []string {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= d {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func isSource(name string) bool {
	return !strings.HasPrefix(name, ".") && strings.EqualFold(filepath.Ext(name), ".json")
}
