package registry

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"chainforge/internal/logging"
)

// Watch evicts cached chains whose specification file changes on disk.
// Development convenience only: the serving default is process-lifetime
// caching, and template or snippet edits are not tracked — touching the
// chain's YAML file is what triggers recompilation. Blocks until ctx is
// cancelled.
func (r *Registry) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Join(r.root, r.chainsDir)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	log := logging.Get(logging.CategoryRegistry)
	log.Infow("watching chains directory", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			if !strings.HasSuffix(base, ".yaml") {
				continue
			}
			name := strings.TrimSuffix(base, ".yaml")
			r.Invalidate(name)
			log.Infow("chain invalidated", "chain", name, "op", event.Op.String())

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnw("watch error", "error", err)
		}
	}
}
