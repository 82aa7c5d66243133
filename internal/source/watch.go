package source

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	appLog "timedesk/internal/log"
)

// Watch calls onChange whenever path is written, created or replaced, until
// ctx is done. The parent directory is watched so editors that save through
// rename keep triggering.
func Watch(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			appLog.Error("could not close watcher", err)
		}
	}()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	appLog.Info("adding watch for events file", "path", abs)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			appLog.Debug("detected event on events file", "event", event.String())
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			appLog.Error("error watching for file system events", err)
		}
	}
}
