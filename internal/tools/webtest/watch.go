package webtest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"crewforge/internal/logging"
	"crewforge/internal/workspace"
)

// SourceWatcher watches the workspace tree for Python source changes and
// fires a callback once a changed file has settled. It backs the
// check --watch loop.
type SourceWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	ws          *workspace.Workspace
	onChange    func(ctx context.Context, path string)
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool

	stats SourceWatcherStats
}

// SourceWatcherStats tracks watcher activity for debugging.
type SourceWatcherStats struct {
	FilesCreated    int
	FilesModified   int
	FilesDeleted    int
	ChecksTriggered int
	Errors          int
	LastEventTime   time.Time
	LastEventPath   string
	LastEventType   string
}

// skippedDirs are never watched or descended into.
var skippedDirs = map[string]bool{
	"__pycache__":  true,
	"venv":         true,
	".venv":        true,
	"node_modules": true,
}

// NewSourceWatcher creates a watcher over the workspace root. onChange
// receives workspace-relative paths of settled .py changes.
func NewSourceWatcher(ws *workspace.Workspace, onChange func(ctx context.Context, path string)) (*SourceWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &SourceWatcher{
		watcher:     watcher,
		ws:          ws,
		onChange:    onChange,
		debounceMap: make(map[string]time.Time),
		debounceDur: 500 * time.Millisecond, // Debounce rapid saves
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; the event loop runs in a goroutine.
func (sw *SourceWatcher) Start(ctx context.Context) error {
	sw.mu.Lock()
	if sw.running {
		sw.mu.Unlock()
		return nil // Already running
	}
	sw.running = true
	sw.mu.Unlock()

	if err := sw.addTree(sw.ws.Root()); err != nil {
		logging.Get(logging.CategoryWatch).Warn("initial watch of %s failed: %v", sw.ws.Root(), err)
	}

	go sw.run(ctx)

	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (sw *SourceWatcher) Stop() {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return
	}
	sw.running = false
	sw.mu.Unlock()

	close(sw.stopCh)
	<-sw.doneCh

	if err := sw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatch).Error("error closing watcher: %v", err)
	}
	logging.Watch("source watcher stopped")
}

// Stats returns a snapshot of watcher activity.
func (sw *SourceWatcher) Stats() SourceWatcherStats {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.stats
}

// addTree registers dir and every non-skipped subdirectory with the
// underlying watcher.
func (sw *SourceWatcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Unreadable entries are skipped, not fatal
		}
		if !info.IsDir() {
			return nil
		}
		name := info.Name()
		if path != dir && (strings.HasPrefix(name, ".") || skippedDirs[name]) {
			return filepath.SkipDir
		}
		if err := sw.watcher.Add(path); err != nil {
			logging.WatchDebug("cannot watch %s: %v", path, err)
		}
		return nil
	})
}

// run is the main event loop for the watcher.
func (sw *SourceWatcher) run(ctx context.Context) {
	defer close(sw.doneCh)

	debounceTicker := time.NewTicker(100 * time.Millisecond)
	defer debounceTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Watch("context cancelled")
			return

		case <-sw.stopCh:
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			sw.handleEvent(event)

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatch).Error("watch error: %v", err)
			sw.mu.Lock()
			sw.stats.Errors++
			sw.mu.Unlock()

		case <-debounceTicker.C:
			sw.processDebouncedEvents(ctx)
		}
	}
}

// handleEvent records a single filesystem event for debounced processing.
func (sw *SourceWatcher) handleEvent(event fsnotify.Event) {
	// New directories need to be watched as they appear
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			name := filepath.Base(event.Name)
			if !strings.HasPrefix(name, ".") && !skippedDirs[name] {
				if err := sw.watcher.Add(event.Name); err != nil {
					logging.WatchDebug("cannot watch new dir %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !strings.HasSuffix(event.Name, ".py") {
		return
	}

	var eventType string
	switch {
	case event.Op&fsnotify.Create != 0:
		eventType = "create"
	case event.Op&fsnotify.Write != 0:
		eventType = "modify"
	case event.Op&fsnotify.Remove != 0:
		eventType = "delete"
	case event.Op&fsnotify.Rename != 0:
		eventType = "rename"
	default:
		return // Ignore chmod, etc.
	}

	logging.WatchDebug("%s event for %s", eventType, event.Name)

	sw.mu.Lock()
	sw.stats.LastEventTime = time.Now()
	sw.stats.LastEventPath = event.Name
	sw.stats.LastEventType = eventType

	switch eventType {
	case "create":
		sw.stats.FilesCreated++
	case "modify":
		sw.stats.FilesModified++
	case "delete", "rename":
		sw.stats.FilesDeleted++
		sw.mu.Unlock()
		return // Nothing left to check
	}

	sw.debounceMap[event.Name] = time.Now()
	sw.mu.Unlock()
}

// processDebouncedEvents fires the callback for events that have settled
// past the debounce window.
func (sw *SourceWatcher) processDebouncedEvents(ctx context.Context) {
	sw.mu.Lock()
	now := time.Now()
	toProcess := make([]string, 0)

	for path, eventTime := range sw.debounceMap {
		if now.Sub(eventTime) >= sw.debounceDur {
			toProcess = append(toProcess, path)
			delete(sw.debounceMap, path)
		}
	}
	sw.mu.Unlock()

	for _, path := range toProcess {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				logging.WatchDebug("file deleted before check: %s", path)
				continue
			}
			sw.mu.Lock()
			sw.stats.Errors++
			sw.mu.Unlock()
			continue
		}

		rel := sw.ws.Rel(path)
		logging.Watch("source changed: %s", rel)

		sw.mu.Lock()
		sw.stats.ChecksTriggered++
		sw.mu.Unlock()

		if sw.onChange != nil {
			sw.onChange(ctx, rel)
		}
	}
}
