// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce collapses the burst of events editors produce on save.
const DefaultWatchDebounce = 200 * time.Millisecond

// ChangeFunc receives the reloaded config, or the error that prevented the
// reload. The previous config stays in effect on error.
type ChangeFunc func(cfg *Config, err error)

// Watch reloads the config file at path whenever it changes and reports
// the result to onChange. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file so that editors
// replacing the file by rename are noticed.
func Watch(ctx context.Context, path string, debounce time.Duration, onChange ChangeFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
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
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			onChange(LoadFromPath(path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			onChange(nil, fmt.Errorf("watch %s: %w", path, err))
		}
	}
}
