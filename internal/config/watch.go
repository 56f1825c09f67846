package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch watches configPath for writes and calls onChange with the
// freshly reloaded Config after each one, debounced the same way the
// teacher's issue-list watcher debounces rapid filesystem events.
//
// Watch blocks until stop is closed or the underlying watcher errors
// out; callers typically run it in its own goroutine.
func Watch(configPath string, stop <-chan struct{}, onChange func(*Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	const debounceDelay = 250 * time.Millisecond
	var timer *time.Timer
	reload := func() {
		cfg, err := Load(configPath)
		onChange(cfg, err)
	}

	for {
		select {
		case <-stop:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) || filepath.Base(event.Name) != filepath.Base(configPath) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, reload)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
