package funkin

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce drops repeated events for one file within this window;
// editors and exporters often write a file several times in a row.
const watchDebounce = 100 * time.Millisecond

// Watcher reports changed asset files (atlas descriptions, images and stage
// configs) under a set of directories.
type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

// NewWatcher starts watching dirs (not recursively).
func NewWatcher(dirs ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			_ = w.Close()
			return nil, err
		}
	}

	watcher := &Watcher{
		watcher: w,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

// Poll returns the changed paths queued since the last call without
// blocking. Call it from the tick loop.
func (w *Watcher) Poll() []string {
	var out []string
	for {
		select {
		case name, ok := <-w.Events:
			if !ok {
				return out
			}
			out = append(out, name)
		default:
			return out
		}
	}
}

// PollErrors returns the watch errors queued since the last call without
// blocking. Events stall while errors go unread.
func (w *Watcher) PollErrors() []error {
	var out []error
	for {
		select {
		case err, ok := <-w.Errors:
			if !ok {
				return out
			}
			out = append(out, err)
		default:
			return out
		}
	}
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isAssetFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < watchDebounce {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			case <-w.closeCh:
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

func isAssetFile(p string) bool {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".xml", ".png", ".webp", ".yaml", ".yml":
		return true
	}
	return false
}

// FSPath converts an OS path reported by a Watcher into the slash-separated
// path an fs.FS rooted at root uses. ok is false for paths outside root.
func FSPath(root, osPath string) (string, bool) {
	rel, err := filepath.Rel(root, osPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
