package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"stagecraft/internal/core/model"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events editors emit on save.
const DefaultDebounce = 100 * time.Millisecond

// Watch reloads the definition at path whenever it is written and passes
// the result to onChange. It blocks until ctx is done. The parent
// directory is watched so editors that replace the file are still seen.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange func(model.SequenceConfig, error)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve definition path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	var timer *time.Timer
	var pending <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

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
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			config, err := LoadDefinition(target)
			onChange(config, err)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onChange(model.SequenceConfig{}, fmt.Errorf("watch %s: %w", path, err))
		}
	}
}
