package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// Event represents a change to one of the watched files.
type Event struct {
	Path string
	Op   fsnotify.Op
}

// Watcher reports writes to a set of files. It watches the parent
// directories rather than the files themselves so that a file replaced by
// rotation or an atomic rename keeps being reported.
type Watcher struct {
	fsw    *fsnotify.Watcher
	Events chan Event
	paths  map[string]struct{}
}

// New creates a Watcher for the given file paths.
func New(paths []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:    fsw,
		Events: make(chan Event, 256),
		paths:  make(map[string]struct{}),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		w.paths[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return w, nil
}

// Start forwards relevant events until the context is cancelled. It closes
// Events and the underlying notifier on return.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()
	defer close(w.Events)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if _, watched := w.paths[ev.Name]; !watched {
				continue
			}
			// Forward writes and (re)creations; a removal is followed by a
			// Create when the file comes back.
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			select {
			case w.Events <- Event{Path: ev.Name, Op: ev.Op}:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("watcher error: %v", err)
		}
	}
}

// Paths returns the watched files, sorted.
func (w *Watcher) Paths() []string {
	out := make([]string, 0, len(w.paths))
	for p := range w.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Expand resolves a glob pattern to matching file paths. Recursive patterns
// such as logs/**/*.{log,gz} are supported via doublestar.
func Expand(pattern string) ([]string, error) {
	return doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
}
