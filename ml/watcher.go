package ml

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ModelWatcher calls OnChange when the model file at Path is created or
// replaced. The parent directory is watched because the trainer renames a
// temp file over the model, which drops watches on the old inode.
type ModelWatcher struct {
	Path     string
	Debounce time.Duration
	OnChange func(path string)
	OnError  func(err error)
}

// Run blocks until ctx is done or the watcher fails to start.
func (w *ModelWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(w.Path)
	// fsnotify cannot watch a directory that does not exist yet.
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError(err)
			}
		case <-timer.C:
			if w.OnChange != nil {
				w.OnChange(target)
			}
		}
	}
}
