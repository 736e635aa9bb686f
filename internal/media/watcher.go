package media

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchMounts kicks the monitor whenever something changes under the
// parents of the mount roots (/media, /mnt, ...), so an inserted volume is
// picked up without waiting out the poll interval. Best-effort: polling
// remains the source of truth and the watcher failing only costs latency.
func WatchMounts(ctx context.Context, mon *Monitor, roots []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	added := 0
	seen := make(map[string]bool)
	for _, root := range roots {
		dir := filepath.Dir(root)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			slog.Debug("mount watch failed", "dir", dir, "err", err)
			continue
		}
		added++
	}
	if added == 0 {
		watcher.Close()
		return nil
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-watcher.Events:
				if !ok {
					return
				}
				mon.Kick()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("mount watcher error", "err", err)
			}
		}
	}()
	return nil
}
