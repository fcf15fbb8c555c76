// Package watch re-reads a log file whenever it changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/signalnine/acckpi/internal/acc"
	"github.com/signalnine/acckpi/internal/logreader"
)

// Watch monitors path and calls onChange with the freshly parsed records each
// time the file is written or recreated. It runs until ctx is cancelled.
//
// The containing directory is watched rather than the file, so a log that is
// deleted and written again, or replaced by rename, keeps being followed.
// A log that fails to parse (typically a simulator still mid-write) is logged
// and skipped; onChange is not called for it.
func Watch(ctx context.Context, path string, onChange func([]acc.LogRecord)) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	slog.Info("watch: watching log", "path", target)

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
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				slog.Info("watch: log removed, waiting for it to reappear", "path", target)
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			records, err := logreader.ReadFile(target)
			if err != nil {
				slog.Warn("watch: reload failed, skipping", "path", target, "err", err)
				continue
			}

			slog.Debug("watch: reloaded", "path", target, "records", len(records))
			onChange(records)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("watch: watcher error", "err", err)
		}
	}
}
