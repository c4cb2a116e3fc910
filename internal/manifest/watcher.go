package manifest

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called when a watched workspace manifest changes on disk.
type ChangeHandler func(workspace string)

// Watcher watches workspace manifests and reports edits so discovery can be
// re-run. Events for files other than the manifest are ignored.
type Watcher struct {
	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	watched  map[string]string // manifest path -> workspace
	handler  ChangeHandler
	closed   bool
	closedWg sync.WaitGroup
}

// NewWatcher creates a watcher delivering change events to handler.
func NewWatcher(handler ChangeHandler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		watched: make(map[string]string),
		handler: handler,
	}

	w.closedWg.Add(1)
	go w.loop()
	return w, nil
}

// Watch starts watching a workspace's manifest directory.
func (w *Watcher) Watch(workspace string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fsnotify.ErrClosed
	}

	path := filepath.Join(workspace, FileName)
	if _, ok := w.watched[path]; ok {
		return nil
	}

	// Watch the directory: editors replace files on save and a direct file
	// watch would be dropped on the first rename.
	if err := w.fsw.Add(workspace); err != nil {
		return err
	}
	w.watched[path] = workspace
	return nil
}

// Unwatch stops watching a workspace.
func (w *Watcher) Unwatch(workspace string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.watched, filepath.Join(workspace, FileName))
	_ = w.fsw.Remove(workspace)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.fsw.Close()
	w.closedWg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.closedWg.Done()
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.mu.Lock()
			workspace, watched := w.watched[ev.Name]
			handler := w.handler
			w.mu.Unlock()
			if watched && handler != nil {
				handler(workspace)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}
