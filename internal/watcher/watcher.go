// Package watcher reports debounced file changes under the static assets
// directory so open pages can reload during development.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conneroisu/grievance/internal/logging"
	"github.com/fsnotify/fsnotify"
)

// Change is one debounced batch of edits.
type Change struct {
	// Assets are the changed files, relative to the watched root and sorted.
	Assets []string
	At     time.Time
}

// ChangeHandler is called from the watcher goroutine for every batch.
type ChangeHandler func(Change)

// AssetWatcher watches an assets directory and its subdirectories.
type AssetWatcher struct {
	root    string
	delay   time.Duration
	fsw     *fsnotify.Watcher
	logger  logging.Logger
	mu      sync.RWMutex
	handler []ChangeHandler
}

// New starts watching root. Nothing is reported until Run is called.
func New(root string, delay time.Duration, logger logging.Logger) (*AssetWatcher, error) {
	if strings.Contains(root, "..") {
		return nil, fmt.Errorf("path contains directory traversal: %s", root)
	}
	root = filepath.Clean(root)

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &AssetWatcher{
		root:   root,
		delay:  delay,
		fsw:    fsw,
		logger: logger.WithComponent("watcher"),
	}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Root returns the watched directory.
func (w *AssetWatcher) Root() string {
	return w.root
}

// OnChange registers h for every batch of asset changes.
func (w *AssetWatcher) OnChange(h ChangeHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handler = append(w.handler, h)
}

// Run delivers batches until ctx is done or the watcher is closed.
func (w *AssetWatcher) Run(ctx context.Context) {
	var (
		batch   = newBatch(w.root)
		timer   *time.Timer
		timeout <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				// New subdirectories are watched too.
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn(ctx, err, "Failed to watch new directory", "path", event.Name)
					}
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsAsset(event.Name) {
				continue
			}
			batch.add(event.Name)
			if timer == nil {
				timer = time.NewTimer(w.delay)
			} else {
				timer.Reset(w.delay)
			}
			timeout = timer.C

		case <-timeout:
			timeout = nil
			if change, ok := batch.flush(); ok {
				w.dispatch(change)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "File watcher error")
		}
	}
}

// Close stops watching. A running Run returns.
func (w *AssetWatcher) Close() error {
	return w.fsw.Close()
}

func (w *AssetWatcher) dispatch(change Change) {
	w.mu.RLock()
	handlers := w.handler
	w.mu.RUnlock()

	for _, h := range handlers {
		h(change)
	}
}

func (w *AssetWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// batch collects distinct asset paths between flushes.
type batch struct {
	root  string
	paths map[string]struct{}
}

func newBatch(root string) *batch {
	return &batch{root: root, paths: make(map[string]struct{})}
}

func (b *batch) add(path string) {
	if rel, err := filepath.Rel(b.root, path); err == nil {
		path = filepath.ToSlash(rel)
	}
	b.paths[path] = struct{}{}
}

func (b *batch) flush() (Change, bool) {
	if len(b.paths) == 0 {
		return Change{}, false
	}

	assets := make([]string, 0, len(b.paths))
	for path := range b.paths {
		assets = append(assets, path)
	}
	sort.Strings(assets)
	b.paths = make(map[string]struct{})

	return Change{Assets: assets, At: time.Now()}, true
}

// IsAsset reports whether a change to name should reload the page. Only the
// file types served under /static count; editor swap and backup files do not.
func IsAsset(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".#") || strings.HasSuffix(base, "~") || strings.HasSuffix(base, ".swp") {
		return false
	}
	switch filepath.Ext(base) {
	case ".css", ".js", ".html", ".svg", ".png", ".ico":
		return true
	}
	return false
}
