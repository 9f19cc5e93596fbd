package dev

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// WatcherConfig configures the polling file watcher.
type WatcherConfig struct {
	// Paths are the directories to watch.
	Paths []string

	// Ignore lists patterns to skip. A pattern with glob characters
	// matches against the base name; a plain pattern matches any path
	// segment.
	Ignore []string

	// Interval is the poll period. It doubles as the change debounce:
	// edits landing within one period coalesce into one batch.
	Interval time.Duration
}

// DefaultIgnore lists patterns every watcher skips.
var DefaultIgnore = []string{
	".git",
	".braid",
	"node_modules",
	"*_test.go",
	"*.tmp",
	"*.swp",
	"*~",
}

// Watcher polls directory trees for modified, added and removed files.
// Polling trades latency for portability; there is no platform-specific
// notification path to keep working.
type Watcher struct {
	config   WatcherConfig
	onChange func(paths []string)

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	modTimes map[string]time.Time
}

// NewWatcher creates a watcher over the configured paths.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval == 0 {
		config.Interval = 100 * time.Millisecond
	}
	config.Ignore = append(append([]string(nil), DefaultIgnore...), config.Ignore...)

	return &Watcher{
		config:   config,
		modTimes: make(map[string]time.Time),
	}
}

// OnChange sets the batch callback. Each invocation carries every path
// that changed since the previous poll, sorted.
func (w *Watcher) OnChange(fn func(paths []string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start polls until the context is canceled or Stop is called. The first
// scan only seeds the baseline; it reports nothing.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.mu.Unlock()

	w.scan(false)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			w.scan(true)
		}
	}
}

// Stop halts polling.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		close(w.stopCh)
		w.running = false
	}
}

// IsRunning reports whether the watcher is polling.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// scan walks the watched trees, diffs mod times against the previous
// scan, and reports the changed set.
func (w *Watcher) scan(report bool) {
	seen := make(map[string]time.Time)
	for _, root := range w.config.Paths {
		filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if info.IsDir() {
				if w.ignored(p) {
					return filepath.SkipDir
				}
				return nil
			}
			if !w.ignored(p) {
				seen[p] = info.ModTime()
			}
			return nil
		})
	}

	w.mu.Lock()
	var changed []string
	for p, mod := range seen {
		if prev, ok := w.modTimes[p]; !ok || mod.After(prev) {
			changed = append(changed, p)
		}
	}
	for p := range w.modTimes {
		if _, ok := seen[p]; !ok {
			changed = append(changed, p)
		}
	}
	w.modTimes = seen
	callback := w.onChange
	w.mu.Unlock()

	if !report || callback == nil || len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	callback(changed)
}

// ignored matches a path against the ignore patterns.
func (w *Watcher) ignored(fullPath string) bool {
	name := filepath.Base(fullPath)
	segments := strings.Split(filepath.ToSlash(fullPath), "/")

	for _, pattern := range w.config.Ignore {
		if pattern == "" {
			continue
		}
		if strings.ContainsAny(pattern, "*?[") {
			if ok, _ := filepath.Match(pattern, name); ok {
				return true
			}
			continue
		}
		for _, seg := range segments {
			if seg == pattern {
				return true
			}
		}
	}
	return false
}
