package server

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces bursts of filesystem events into one reload.
// dbt rewrites manifest.json in several chunks on every compile.
const debounceWindow = 100 * time.Millisecond

// watchManifest reloads the graph when the manifest file changes. The
// watch is on the containing directory so the reload survives tools that
// replace the file via rename.
func (s *Server) watchManifest(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.manifestPath)
	if err := watcher.Add(dir); err != nil {
		s.logger.Error("failed to watch manifest directory", "dir", dir, "error", err)
		return nil
	}
	s.logger.Debug("watching manifest", "path", s.manifestPath)

	target := filepath.Clean(s.manifestPath)
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceWindow, func() {
				s.logger.Debug("manifest changed, reloading", "file", event.Name)
				if err := s.Reload(ctx); err != nil {
					s.logger.Error("reload failed", "error", err)
				}
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
