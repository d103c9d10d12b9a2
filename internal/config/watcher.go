package config

import (
	"context"
	"path/filepath"
	"time"

	"marlin/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the editor write-rename-write bursts into one
// reload.
const watchDebounce = 250 * time.Millisecond

// Watch reloads path whenever it changes and hands each valid result to
// onChange. Invalid edits are logged and skipped, keeping the last good
// configuration in effect. Blocks until ctx is canceled.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors replace the file on save, which would
	// otherwise drop a watch on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	target := filepath.Clean(path)

	var timer *time.Timer
	reload := make(chan struct{}, 1)
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
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			cfg, err := Load(path)
			if err != nil {
				logger.Warnf("config: reload of %s failed, keeping previous: %v", path, err)
				continue
			}
			logger.Infof("config: reloaded %s", path)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnf("config: watcher error: %v", err)
		}
	}
}
