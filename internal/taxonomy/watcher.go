package taxonomy

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"votewallet/internal/logging"
)

// debounceWindow coalesces editor write bursts into one reload.
const debounceWindow = 500 * time.Millisecond

// Watcher hot-reloads the taxonomy seed file on change and re-seeds the
// store through the provided callback.
type Watcher struct {
	path     string
	onReload func(path string)

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}

	mu          sync.Mutex
	debounceMap map[string]time.Time

	stats WatcherStats
}

// WatcherStats counts watcher activity for the status command.
type WatcherStats struct {
	EventsSeen  int64 `json:"events_seen"`
	Reloads     int64 `json:"reloads"`
	LastReload  time.Time `json:"last_reload"`
}

// NewWatcher watches path and invokes onReload after changes settle.
func NewWatcher(path string, onReload func(path string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: editors replace files by rename
	// and the inode-level watch would die with the old file.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:        path,
		onReload:    onReload,
		watcher:     fsw,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		debounceMap: make(map[string]time.Time),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.debounceMap[w.path] = time.Now()
			w.stats.EventsSeen++
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.TaxonomyWarn("watcher error: %v", err)
		case <-ticker.C:
			w.firePending()
		}
	}
}

func (w *Watcher) firePending() {
	w.mu.Lock()
	last, pending := w.debounceMap[w.path]
	if !pending || time.Since(last) < debounceWindow {
		w.mu.Unlock()
		return
	}
	delete(w.debounceMap, w.path)
	w.stats.Reloads++
	w.stats.LastReload = time.Now()
	w.mu.Unlock()

	logging.Taxonomy("taxonomy file changed, reloading %s", w.path)
	w.onReload(w.path)
}

// Stats returns a copy of the watcher counters.
func (w *Watcher) Stats() WatcherStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Close stops the watch loop and waits for it to exit.
func (w *Watcher) Close() error {
	close(w.stopCh)
	err := w.watcher.Close()
	<-w.doneCh
	return err
}
